package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	intdb "busticket/internal/db"
	"busticket/internal/domain"
	"busticket/internal/metrics"
	"busticket/internal/repositories"
	"busticket/internal/utils"
)

const (
	DefaultHoldTimeout = 15 * time.Minute
	sweepBatchSize     = 200
)

// SweepService cancels unpaid bookings that outlived the hold timeout and gives
// their seats back. It is triggered externally and keeps no timers.
type SweepService struct {
	DB          *sql.DB
	HoldTimeout time.Duration
	BatchSize   int
	Now         func() time.Time
	RequestID   string
}

func (s SweepService) db() *sql.DB { return dbOrDefault(s.DB) }

// ReleaseExpired returns how many bookings it cancelled. Per-row failures are
// logged and skipped.
func (s SweepService) ReleaseExpired(ctx context.Context) (int, error) {
	timeout := s.HoldTimeout
	if timeout <= 0 {
		timeout = DefaultHoldTimeout
	}
	limit := s.BatchSize
	if limit <= 0 {
		limit = sweepBatchSize
	}
	now := nowOr(s.Now)

	expired, err := repositories.BookingRepository{DB: s.db()}.ListExpiredPending(ctx, now.Add(-timeout), limit)
	if err != nil {
		return 0, domain.InternalError{Msg: "list expired bookings", Err: err}
	}

	released, failed := 0, 0
	for _, e := range expired {
		ok, err := s.expire(ctx, e, now)
		if err != nil {
			failed++
			utils.LogError(s.RequestID, "sweep", fmt.Sprintf("expire booking_id=%d", e.ID), err)
			continue
		}
		if ok {
			released++
			metrics.ObserveTransition(string(domain.BookingPending), string(domain.BookingCancelled))
		}
	}
	metrics.ObserveSweep(released, failed)
	utils.LogEvent(s.RequestID, "sweep", "release_expired",
		fmt.Sprintf("candidates=%d released=%d failed=%d", len(expired), released, failed))
	return released, nil
}

// expire cancels one booking and restores its seats. A booking confirmed in the
// meantime loses the guarded write and is left alone.
func (s SweepService) expire(ctx context.Context, e repositories.ExpiredBooking, now time.Time) (bool, error) {
	applied := false
	err := intdb.WithTx(ctx, s.db(), func(tx *sql.Tx) error {
		ok, err := repositories.BookingRepository{DB: tx}.CancelUnpaid(ctx, e.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if _, err := (repositories.BookingSeatRepository{DB: tx}).DeleteByBooking(ctx, e.ID); err != nil {
			return err
		}
		if err := (ReservationService{Schedules: repositories.ScheduleRepository{DB: tx}, RequestID: s.RequestID}).
			Release(ctx, e.ScheduleID, e.SeatCount); err != nil {
			return err
		}
		if _, err := (repositories.PaymentRepository{DB: tx}).
			Transition(ctx, e.ID, domain.PaymentPending, domain.PaymentFailed, now); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}
