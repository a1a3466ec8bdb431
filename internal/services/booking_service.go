package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	intdb "busticket/internal/db"
	"busticket/internal/domain"
	"busticket/internal/domain/models"
	"busticket/internal/metrics"
	"busticket/internal/repositories"
	"busticket/internal/utils"

	"github.com/shopspring/decimal"
)

const (
	maxReferenceAttempts = 5
	DefaultCancelCutoff  = 6 * time.Hour
	completeBatchSize    = 500
)

// BookingService runs the booking lifecycle. Every transition is a guarded
// write on the expected current status.
type BookingService struct {
	DB           *sql.DB
	Location     *time.Location
	CancelCutoff time.Duration
	Now          func() time.Time
	RequestID    string
}

func (s BookingService) db() *sql.DB { return dbOrDefault(s.DB) }

func (s BookingService) cutoff() time.Duration {
	if s.CancelCutoff > 0 {
		return s.CancelCutoff
	}
	return DefaultCancelCutoff
}

// Create reserves seats and stores a pending booking with its pending payment
// in one transaction.
func (s BookingService) Create(ctx context.Context, in models.NewBooking) (models.BookingDetail, error) {
	in.PassengerName = utils.NormalizeSpace(in.PassengerName)
	in.PassengerEmail = strings.ToLower(strings.TrimSpace(in.PassengerEmail))
	in.PassengerPhone = strings.TrimSpace(in.PassengerPhone)
	if err := validate.Struct(in); err != nil {
		return models.BookingDetail{}, validationError(err)
	}

	now := nowOr(s.Now)
	var bookingID int64
	err := intdb.WithTx(ctx, s.db(), func(tx *sql.Tx) error {
		schedules := repositories.ScheduleRepository{DB: tx}
		coupons := repositories.CouponRepository{DB: tx}

		sched, err := schedules.GetDetail(ctx, in.ScheduleID)
		if err != nil {
			return notFoundOr("schedule", err)
		}
		for _, seat := range in.SeatNumbers {
			if seat > sched.TotalSeats {
				return domain.ValidationError{Field: "seat_numbers", Msg: fmt.Sprintf("seat %d does not exist on this bus", seat)}
			}
		}
		departure, err := utils.DepartureAt(sched.DepartureDate, sched.DepartureTime, locOr(s.Location))
		if err != nil {
			return domain.InternalError{Msg: "schedule departure", Err: err}
		}
		if !departure.After(now) {
			return domain.PolicyError{Rule: "departed", Msg: "schedule has already departed"}
		}

		quote, err := PricingService{Schedules: schedules, Coupons: coupons, Now: s.Now}.
			quoteFor(ctx, sched, len(in.SeatNumbers), in.CouponCode)
		if err != nil {
			return err
		}
		fare, err := settleFare(in.Fare, quote)
		if err != nil {
			return err
		}

		granted, err := ReservationService{Schedules: schedules, RequestID: s.RequestID}.
			Reserve(ctx, in.ScheduleID, len(in.SeatNumbers))
		if err != nil {
			return err
		}
		if !granted {
			return domain.ConflictError{Resource: "schedule", Msg: "not enough seats available"}
		}

		if quote.CouponID != nil {
			ok, err := coupons.Redeem(ctx, *quote.CouponID)
			if err != nil {
				return domain.InternalError{Msg: "redeem coupon", Err: err}
			}
			if !ok {
				return domain.ConflictError{Resource: "coupon", Msg: "usage limit reached"}
			}
		}

		b := models.Booking{
			ScheduleID:     in.ScheduleID,
			UserID:         in.UserID,
			SeatNumbers:    in.SeatNumbers,
			PassengerName:  in.PassengerName,
			PassengerEmail: in.PassengerEmail,
			PassengerPhone: in.PassengerPhone,
			TotalFare:      fare,
			DiscountAmount: quote.Discount,
			CouponID:       quote.CouponID,
			Status:         domain.BookingPending,
			CreatedAt:      now,
		}
		id, err := s.insertWithReference(ctx, repositories.BookingRepository{DB: tx}, b, now)
		if err != nil {
			return err
		}

		if err := (repositories.BookingSeatRepository{DB: tx}).InsertSeats(ctx, id, in.ScheduleID, in.SeatNumbers); err != nil {
			if intdb.IsDuplicateKey(err) {
				return domain.ConflictError{Resource: "seat", Msg: "seat already booked", Err: err}
			}
			return domain.InternalError{Msg: "claim seats", Err: err}
		}

		if _, err := (repositories.PaymentRepository{DB: tx}).CreatePending(ctx, models.Payment{
			BookingID: id,
			Amount:    fare,
			Method:    "razorpay",
			CreatedAt: now,
		}); err != nil {
			return domain.InternalError{Msg: "create payment", Err: err}
		}
		bookingID = id
		return nil
	})
	if err != nil {
		if !domain.IsValidation(err) && !domain.IsConflict(err) && !domain.IsNotFound(err) && !domain.IsPolicy(err) {
			utils.LogError(s.RequestID, "booking", "create", err)
		}
		return models.BookingDetail{}, err
	}

	d, err := repositories.BookingRepository{DB: s.db()}.GetDetail(ctx, bookingID)
	if err != nil {
		return models.BookingDetail{}, notFoundOr("booking", err)
	}
	utils.LogEvent(s.RequestID, "booking", "create",
		fmt.Sprintf("booking_id=%d ref=%s schedule_id=%d seats=%s", d.ID, d.BookingReference, d.ScheduleID, utils.JoinSeats(d.SeatNumbers)))
	return d, nil
}

// settleFare reconciles the client fare with the server quote. On a priced
// route the quote is authoritative.
func settleFare(supplied decimal.Decimal, q models.Quote) (decimal.Decimal, error) {
	if q.BaseFare.IsPositive() {
		if !supplied.IsZero() && !supplied.Round(2).Equal(q.TotalFare) {
			return decimal.Zero, domain.ValidationError{Field: "total_fare", Msg: "fare does not match the current quote"}
		}
		return q.TotalFare, nil
	}
	if !supplied.IsPositive() {
		return decimal.Zero, domain.ValidationError{Field: "total_fare", Msg: "must be positive"}
	}
	return supplied.Round(2).Sub(q.Discount), nil
}

func (s BookingService) insertWithReference(ctx context.Context, repo repositories.BookingRepository, b models.Booking, now time.Time) (int64, error) {
	day := now.In(locOr(s.Location))
	for attempt := 1; attempt <= maxReferenceAttempts; attempt++ {
		ref, err := utils.BookingReference(day)
		if err != nil {
			return 0, domain.InternalError{Msg: "generate booking reference", Err: err}
		}
		b.BookingReference = ref
		id, err := repo.Insert(ctx, b)
		if err == nil {
			return id, nil
		}
		if !intdb.IsDuplicateKey(err) {
			return 0, domain.InternalError{Msg: "insert booking", Err: err}
		}
		utils.LogWarn(s.RequestID, "booking", "create", fmt.Sprintf("reference collision attempt=%d ref=%s", attempt, ref))
	}
	return 0, domain.ConflictError{Resource: "booking_reference", Msg: "could not allocate a unique reference"}
}

// Get returns a booking visible to the caller: its owner, the operator running
// the bus, or an admin.
func (s BookingService) Get(ctx context.Context, rc domain.RequestContext, id int64) (models.BookingDetail, error) {
	if id <= 0 {
		return models.BookingDetail{}, domain.ValidationError{Field: "id", Msg: "invalid id"}
	}
	d, err := repositories.BookingRepository{DB: s.db()}.GetDetail(ctx, id)
	if err != nil {
		return models.BookingDetail{}, notFoundOr("booking", err)
	}
	if !canView(rc, d) {
		return models.BookingDetail{}, domain.NotFoundError{Resource: "booking"}
	}
	return d, nil
}

func canView(rc domain.RequestContext, d models.BookingDetail) bool {
	if rc.CanAccessOwnedBy(d.UserID) {
		return true
	}
	return rc.Role == domain.RoleOperator && rc.UserID > 0 && rc.UserID == d.OperatorID
}

// departureOf is the wall-clock departure of the booking's schedule.
func (s BookingService) departureOf(d models.BookingDetail) (time.Time, error) {
	at, err := utils.DepartureAt(d.DepartureDate, d.DepartureTime, locOr(s.Location))
	if err != nil {
		return time.Time{}, domain.InternalError{Msg: "booking departure", Err: err}
	}
	return at, nil
}

// cancelAllowed reports whether a confirmed booking is still outside the cutoff.
func (s BookingService) cancelAllowed(d models.BookingDetail, now time.Time) (bool, error) {
	if d.Status != domain.BookingConfirmed {
		return false, nil
	}
	departure, err := s.departureOf(d)
	if err != nil {
		return false, err
	}
	return departure.Sub(now) > s.cutoff(), nil
}

// CanCancel is true when the booking is confirmed and departure is more than
// the cutoff away.
func (s BookingService) CanCancel(ctx context.Context, rc domain.RequestContext, id int64) (bool, error) {
	d, err := s.Get(ctx, rc, id)
	if err != nil {
		return false, err
	}
	return s.cancelAllowed(d, nowOr(s.Now))
}

// Cancel is the passenger-initiated cancellation. A pending booking can always
// be abandoned; a confirmed one only outside the cutoff.
func (s BookingService) Cancel(ctx context.Context, rc domain.RequestContext, id int64) (models.BookingDetail, error) {
	now := nowOr(s.Now)
	var from domain.BookingStatus
	err := intdb.WithTx(ctx, s.db(), func(tx *sql.Tx) error {
		bookings := repositories.BookingRepository{DB: tx}
		d, err := bookings.LockDetail(ctx, id)
		if err != nil {
			return notFoundOr("booking", err)
		}
		if !rc.CanAccessOwnedBy(d.UserID) {
			return domain.NotFoundError{Resource: "booking"}
		}

		switch d.Status {
		case domain.BookingPending:
		case domain.BookingConfirmed:
			allowed, err := s.cancelAllowed(d, now)
			if err != nil {
				return err
			}
			if !allowed {
				return domain.PolicyError{
					Rule: "cancel_cutoff",
					Msg:  fmt.Sprintf("cancellation closes %s before departure", s.cutoff()),
				}
			}
		default:
			return domain.ConflictError{Resource: "booking", Msg: fmt.Sprintf("booking is already %s", d.Status)}
		}

		ok, err := bookings.Cancel(ctx, d.ID, d.Status, now)
		if err != nil {
			return domain.InternalError{Msg: "cancel booking", Err: err}
		}
		if !ok {
			return domain.ConflictError{Resource: "booking", Msg: "booking changed concurrently"}
		}
		if _, err := (repositories.BookingSeatRepository{DB: tx}).DeleteByBooking(ctx, d.ID); err != nil {
			return domain.InternalError{Msg: "free seats", Err: err}
		}
		if err := (ReservationService{Schedules: repositories.ScheduleRepository{DB: tx}, RequestID: s.RequestID}).
			Release(ctx, d.ScheduleID, d.SeatCount()); err != nil {
			return err
		}

		payments := repositories.PaymentRepository{DB: tx}
		if d.Status == domain.BookingConfirmed {
			refunded, err := payments.Transition(ctx, d.ID, domain.PaymentCompleted, domain.PaymentRefunded, now)
			if err != nil {
				return domain.InternalError{Msg: "refund payment", Err: err}
			}
			if refunded {
				utils.LogEvent(s.RequestID, "booking", "cancel",
					fmt.Sprintf("refund queued booking_id=%d amount=%s", d.ID, d.TotalFare.StringFixed(2)))
			}
			if _, err := (repositories.EarningRepository{DB: tx}).Reverse(ctx, d.ID); err != nil {
				return domain.InternalError{Msg: "reverse earnings", Err: err}
			}
		} else if _, err := payments.Transition(ctx, d.ID, domain.PaymentPending, domain.PaymentFailed, now); err != nil {
			return domain.InternalError{Msg: "fail payment", Err: err}
		}
		from = d.Status
		return nil
	})
	if err != nil {
		return models.BookingDetail{}, err
	}

	metrics.ObserveTransition(string(from), string(domain.BookingCancelled))
	utils.LogEvent(s.RequestID, "booking", "cancel", fmt.Sprintf("booking_id=%d from=%s", id, from))
	d, err := repositories.BookingRepository{DB: s.db()}.GetDetail(ctx, id)
	if err != nil {
		return models.BookingDetail{}, notFoundOr("booking", err)
	}
	return d, nil
}

// Complete moves a confirmed booking to completed. Inventory is untouched.
func (s BookingService) Complete(ctx context.Context, id int64) (models.BookingDetail, error) {
	repo := repositories.BookingRepository{DB: s.db()}
	d, err := repo.GetDetail(ctx, id)
	if err != nil {
		return models.BookingDetail{}, notFoundOr("booking", err)
	}
	if !d.Status.CanTransitionTo(domain.BookingCompleted) {
		return models.BookingDetail{}, domain.ConflictError{Resource: "booking", Msg: fmt.Sprintf("booking is %s", d.Status)}
	}
	ok, err := repo.Complete(ctx, id, nowOr(s.Now))
	if err != nil {
		return models.BookingDetail{}, domain.InternalError{Msg: "complete booking", Err: err}
	}
	if !ok {
		return models.BookingDetail{}, domain.ConflictError{Resource: "booking", Msg: "booking changed concurrently"}
	}
	metrics.ObserveTransition(string(domain.BookingConfirmed), string(domain.BookingCompleted))

	d, err = repo.GetDetail(ctx, id)
	if err != nil {
		return models.BookingDetail{}, notFoundOr("booking", err)
	}
	return d, nil
}

// CompleteDeparted completes confirmed bookings whose departure has passed.
// Rows that fail are logged and left for the next run.
func (s BookingService) CompleteDeparted(ctx context.Context) (int, error) {
	now := nowOr(s.Now)
	repo := repositories.BookingRepository{DB: s.db()}
	tomorrow := now.In(locOr(s.Location)).AddDate(0, 0, 1)
	ids, err := repo.ListDepartedConfirmed(ctx, tomorrow, completeBatchSize)
	if err != nil {
		return 0, domain.InternalError{Msg: "list departed bookings", Err: err}
	}

	completed := 0
	for _, id := range ids {
		d, err := repo.GetDetail(ctx, id)
		if err != nil {
			utils.LogError(s.RequestID, "booking", "complete_departed", err)
			continue
		}
		departure, err := s.departureOf(d)
		if err != nil {
			utils.LogError(s.RequestID, "booking", "complete_departed", err)
			continue
		}
		if departure.After(now) {
			continue
		}
		ok, err := repo.Complete(ctx, id, now)
		if err != nil {
			utils.LogError(s.RequestID, "booking", "complete_departed", err)
			continue
		}
		if ok {
			completed++
			metrics.ObserveTransition(string(domain.BookingConfirmed), string(domain.BookingCompleted))
		}
	}
	utils.LogEvent(s.RequestID, "booking", "complete_departed", fmt.Sprintf("candidates=%d completed=%d", len(ids), completed))
	return completed, nil
}
