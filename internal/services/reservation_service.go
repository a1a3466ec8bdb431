package services

import (
	"context"
	"fmt"

	"busticket/internal/domain"
	"busticket/internal/metrics"
	"busticket/internal/repositories"
	"busticket/internal/utils"
)

// ReservationService owns every change to a schedule's available seat counter.
// Bind Schedules to a *sql.Tx to make the change part of a larger transaction.
type ReservationService struct {
	Schedules repositories.ScheduleRepository
	RequestID string
}

// Reserve takes n seats from the schedule in one conditional write. It returns
// false, nil when the schedule is short of seats.
func (s ReservationService) Reserve(ctx context.Context, scheduleID int64, n int) (bool, error) {
	if n <= 0 {
		return false, domain.ValidationError{Field: "seat_count", Msg: "must be positive"}
	}
	if scheduleID <= 0 {
		return false, domain.ValidationError{Field: "schedule_id", Msg: "invalid id"}
	}

	ok, err := s.Schedules.TryReserve(ctx, scheduleID, n)
	if err != nil {
		metrics.ObserveReservation(metrics.ReservationError)
		return false, domain.InternalError{Msg: "reserve seats", Err: err}
	}
	if ok {
		metrics.ObserveReservation(metrics.ReservationGranted)
		return true, nil
	}

	exists, active, available, err := s.Schedules.State(ctx, scheduleID)
	if err != nil {
		metrics.ObserveReservation(metrics.ReservationError)
		return false, domain.InternalError{Msg: "read schedule", Err: err}
	}
	if !exists {
		return false, domain.NotFoundError{Resource: "schedule"}
	}
	if !active {
		return false, domain.ConflictError{Resource: "schedule", Msg: "schedule is not active"}
	}
	metrics.ObserveReservation(metrics.ReservationExhausted)
	utils.LogEvent(s.RequestID, "reservation", "reserve",
		fmt.Sprintf("schedule_id=%d requested=%d available=%d", scheduleID, n, available))
	return false, nil
}

// Release gives n seats back. It refuses to push the counter above capacity.
func (s ReservationService) Release(ctx context.Context, scheduleID int64, n int) error {
	if n <= 0 {
		return domain.ValidationError{Field: "seat_count", Msg: "must be positive"}
	}
	ok, err := s.Schedules.Release(ctx, scheduleID, n)
	if err != nil {
		return domain.InternalError{Msg: "release seats", Err: err}
	}
	if !ok {
		return domain.ConflictError{Resource: "schedule", Msg: fmt.Sprintf("releasing %d seats would exceed capacity", n)}
	}
	return nil
}
