package models

import (
	"time"

	"busticket/internal/domain"

	"github.com/shopspring/decimal"
)

// Payment is one payment attempt tied to exactly one booking.
type Payment struct {
	ID             int64                `json:"id"`
	BookingID      int64                `json:"bookingId"`
	Amount         decimal.Decimal      `json:"amount"`
	Method         string               `json:"method"`
	Status         domain.PaymentStatus `json:"status"`
	GatewayOrderID *string              `json:"gatewayOrderId,omitempty"`
	TransactionID  *string              `json:"transactionId,omitempty"`
	CreatedAt      time.Time            `json:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt"`
}

// PaymentCapture is a verified capture event from the payment provider.
type PaymentCapture struct {
	BookingID     int64
	TransactionID string
	OrderID       string
	Method        string
	// AmountMinor is the captured amount in the currency's minor unit; zero when unknown.
	AmountMinor int64
	Source      string
}

// ConfirmResult reports the outcome of a confirm attempt.
type ConfirmResult struct {
	Booking BookingDetail `json:"booking"`
	// AlreadyConfirmed is set when the booking was confirmed by an earlier event.
	AlreadyConfirmed bool `json:"alreadyConfirmed"`
}

// GatewayOrder is returned to the client to open the provider checkout.
type GatewayOrder struct {
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"keyId"`
}

// OperatorEarning records the operator share of a confirmed booking.
type OperatorEarning struct {
	ID         int64           `json:"id"`
	BookingID  int64           `json:"bookingId"`
	OperatorID int64           `json:"operatorId"`
	Amount     decimal.Decimal `json:"amount"`
	Commission decimal.Decimal `json:"commission"`
	NetAmount  decimal.Decimal `json:"netAmount"`
	Status     string          `json:"status"`
}

// ScheduleEarnings aggregates an operator's earnings for one schedule.
type ScheduleEarnings struct {
	ScheduleID    int64           `json:"scheduleId"`
	DepartureDate time.Time       `json:"departureDate"`
	RouteFrom     string          `json:"routeFrom"`
	RouteTo       string          `json:"routeTo"`
	Bookings      int             `json:"bookings"`
	Amount        decimal.Decimal `json:"amount"`
	Commission    decimal.Decimal `json:"commission"`
	NetAmount     decimal.Decimal `json:"netAmount"`
}
