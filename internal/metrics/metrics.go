package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reservations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "busticket_reservations_total",
			Help: "Seat reservation attempts by result",
		},
		[]string{"result"},
	)

	transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "busticket_booking_transitions_total",
			Help: "Applied booking status transitions",
		},
		[]string{"from", "to"},
	)

	sweepReleased = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "busticket_sweep_released_total",
			Help: "Bookings released by the expiry sweep",
		},
	)

	sweepFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "busticket_sweep_failures_total",
			Help: "Bookings the expiry sweep failed to release",
		},
	)

	webhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "busticket_webhook_events_total",
			Help: "Payment webhook deliveries by outcome",
		},
		[]string{"outcome"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "busticket_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

const (
	ReservationGranted   = "granted"
	ReservationExhausted = "exhausted"
	ReservationError     = "error"
)

func ObserveReservation(result string) { reservations.WithLabelValues(result).Inc() }

func ObserveTransition(from, to string) { transitions.WithLabelValues(from, to).Inc() }

func ObserveSweep(released, failed int) {
	sweepReleased.Add(float64(released))
	sweepFailures.Add(float64(failed))
}

func ObserveWebhook(outcome string) { webhookEvents.WithLabelValues(outcome).Inc() }

func ObserveRequest(method, route, status string, seconds float64) {
	requestDuration.WithLabelValues(method, route, status).Observe(seconds)
}
