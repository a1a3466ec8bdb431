package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	intdb "busticket/internal/db"
	"busticket/internal/domain"
	"busticket/internal/domain/models"
)

type BookingRepository struct {
	DB intdb.DBTX
}

func (r BookingRepository) db() intdb.DBTX { return conn(r.DB) }

// Insert stores a new pending booking. A duplicate booking_reference surfaces
// as a MySQL 1062 error so the caller can retry with a new reference.
func (r BookingRepository) Insert(ctx context.Context, b models.Booking) (int64, error) {
	seats, err := json.Marshal(b.SeatNumbers)
	if err != nil {
		return 0, fmt.Errorf("encode seat numbers: %w", err)
	}
	res, err := r.db().ExecContext(ctx, `
		INSERT INTO bookings (
			schedule_id, user_id, booking_reference, seat_numbers, seat_count,
			passenger_name, passenger_email, passenger_phone,
			total_fare, discount_amount, coupon_id,
			status, payment_verified, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
	`,
		b.ScheduleID, b.UserID, b.BookingReference, string(seats), len(b.SeatNumbers),
		b.PassengerName, b.PassengerEmail, b.PassengerPhone,
		b.TotalFare, b.DiscountAmount, b.CouponID,
		string(domain.BookingPending), b.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert booking: %w", err)
	}
	return res.LastInsertId()
}

const bookingDetailSelect = `
	SELECT
		bk.id, bk.schedule_id, bk.user_id, bk.booking_reference, bk.seat_numbers,
		bk.passenger_name, bk.passenger_email, bk.passenger_phone,
		bk.total_fare, bk.discount_amount, bk.coupon_id,
		bk.status, bk.payment_verified, bk.qr_code_data,
		bk.created_at, bk.confirmed_at, bk.cancelled_at, bk.completed_at,
		r.source, r.destination, s.departure_date, b.departure_time, b.bus_name, b.operator_id
	FROM bookings bk
	JOIN schedules s ON s.id = bk.schedule_id
	JOIN buses b ON b.id = s.bus_id
	JOIN routes r ON r.id = s.route_id
`

func scanBookingDetail(row interface{ Scan(...any) error }) (models.BookingDetail, error) {
	var (
		d                                  models.BookingDetail
		seatsRaw                           []byte
		status                             string
		couponID                           sql.NullInt64
		qr                                 sql.NullString
		confirmedAt, cancelledAt, complete sql.NullTime
	)
	if err := row.Scan(
		&d.ID, &d.ScheduleID, &d.UserID, &d.BookingReference, &seatsRaw,
		&d.PassengerName, &d.PassengerEmail, &d.PassengerPhone,
		&d.TotalFare, &d.DiscountAmount, &couponID,
		&status, &d.PaymentVerified, &qr,
		&d.CreatedAt, &confirmedAt, &cancelledAt, &complete,
		&d.RouteFrom, &d.RouteTo, &d.DepartureDate, &d.DepartureTime, &d.BusName, &d.OperatorID,
	); err != nil {
		return models.BookingDetail{}, err
	}

	parsed, err := domain.ParseBookingStatus(status)
	if err != nil {
		return models.BookingDetail{}, fmt.Errorf("booking %d: %w", d.ID, err)
	}
	d.Status = parsed
	if err := json.Unmarshal(seatsRaw, &d.SeatNumbers); err != nil {
		return models.BookingDetail{}, fmt.Errorf("booking %d seat numbers: %w", d.ID, err)
	}
	if couponID.Valid {
		d.CouponID = &couponID.Int64
	}
	if qr.Valid {
		d.QRCodeData = &qr.String
	}
	d.ConfirmedAt = nullTime(confirmedAt)
	d.CancelledAt = nullTime(cancelledAt)
	d.CompletedAt = nullTime(complete)
	return d, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// GetDetail loads a booking joined with its journey. Returns sql.ErrNoRows when missing.
func (r BookingRepository) GetDetail(ctx context.Context, id int64) (models.BookingDetail, error) {
	d, err := scanBookingDetail(r.db().QueryRowContext(ctx, bookingDetailSelect+` WHERE bk.id = ? LIMIT 1`, id))
	if err != nil {
		return models.BookingDetail{}, fmt.Errorf("get booking %d: %w", id, err)
	}
	return d, nil
}

// LockDetail is GetDetail with a row lock on the booking, for use inside a transaction.
func (r BookingRepository) LockDetail(ctx context.Context, id int64) (models.BookingDetail, error) {
	d, err := scanBookingDetail(r.db().QueryRowContext(ctx, bookingDetailSelect+` WHERE bk.id = ? LIMIT 1 FOR UPDATE OF bk`, id))
	if err != nil {
		return models.BookingDetail{}, fmt.Errorf("lock booking %d: %w", id, err)
	}
	return d, nil
}

// GetDetailByReference loads a booking by its public reference code.
func (r BookingRepository) GetDetailByReference(ctx context.Context, ref string) (models.BookingDetail, error) {
	d, err := scanBookingDetail(r.db().QueryRowContext(ctx, bookingDetailSelect+` WHERE bk.booking_reference = ? LIMIT 1`, ref))
	if err != nil {
		return models.BookingDetail{}, fmt.Errorf("get booking %q: %w", ref, err)
	}
	return d, nil
}

// ExpiredBooking is the minimal row the sweeper needs.
type ExpiredBooking struct {
	ID         int64
	ScheduleID int64
	SeatCount  int
	CreatedAt  time.Time
}

// ListExpiredPending returns unpaid pending bookings created before cutoff.
func (r BookingRepository) ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]ExpiredBooking, error) {
	rows, err := r.db().QueryContext(ctx, `
		SELECT id, schedule_id, seat_count, created_at
		FROM bookings
		WHERE status = ? AND payment_verified = 0 AND created_at < ?
		ORDER BY created_at ASC
		LIMIT ?
	`, string(domain.BookingPending), cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired bookings: %w", err)
	}
	defer rows.Close()

	out := []ExpiredBooking{}
	for rows.Next() {
		var e ExpiredBooking
		if err := rows.Scan(&e.ID, &e.ScheduleID, &e.SeatCount, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan expired booking: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListDepartedConfirmed returns ids of confirmed bookings whose schedule date is before day.
func (r BookingRepository) ListDepartedConfirmed(ctx context.Context, day time.Time, limit int) ([]int64, error) {
	rows, err := r.db().QueryContext(ctx, `
		SELECT bk.id
		FROM bookings bk
		JOIN schedules s ON s.id = bk.schedule_id
		WHERE bk.status = ? AND s.departure_date < ?
		ORDER BY bk.id ASC
		LIMIT ?
	`, string(domain.BookingConfirmed), day.Format("2006-01-02"), limit)
	if err != nil {
		return nil, fmt.Errorf("list departed bookings: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func affectedOne(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Confirm moves pending -> confirmed, marking the payment verified and storing
// the ticket credential in the same write.
func (r BookingRepository) Confirm(ctx context.Context, id int64, qr string, now time.Time) (bool, error) {
	ok, err := affectedOne(r.db().ExecContext(ctx, `
		UPDATE bookings
		SET status = ?, payment_verified = 1, qr_code_data = ?, confirmed_at = ?
		WHERE id = ? AND status = ?
	`, string(domain.BookingConfirmed), qr, now, id, string(domain.BookingPending)))
	if err != nil {
		return false, fmt.Errorf("confirm booking %d: %w", id, err)
	}
	return ok, nil
}

// CancelUnpaid moves an unpaid pending booking to cancelled.
func (r BookingRepository) CancelUnpaid(ctx context.Context, id int64, now time.Time) (bool, error) {
	ok, err := affectedOne(r.db().ExecContext(ctx, `
		UPDATE bookings
		SET status = ?, cancelled_at = ?
		WHERE id = ? AND status = ? AND payment_verified = 0
	`, string(domain.BookingCancelled), now, id, string(domain.BookingPending)))
	if err != nil {
		return false, fmt.Errorf("cancel unpaid booking %d: %w", id, err)
	}
	return ok, nil
}

// Cancel moves a booking from the given status to cancelled.
func (r BookingRepository) Cancel(ctx context.Context, id int64, from domain.BookingStatus, now time.Time) (bool, error) {
	if !from.CanTransitionTo(domain.BookingCancelled) {
		return false, fmt.Errorf("booking %d: %s cannot be cancelled", id, from)
	}
	ok, err := affectedOne(r.db().ExecContext(ctx, `
		UPDATE bookings SET status = ?, cancelled_at = ? WHERE id = ? AND status = ?
	`, string(domain.BookingCancelled), now, id, string(from)))
	if err != nil {
		return false, fmt.Errorf("cancel booking %d: %w", id, err)
	}
	return ok, nil
}

// Complete moves confirmed -> completed.
func (r BookingRepository) Complete(ctx context.Context, id int64, now time.Time) (bool, error) {
	ok, err := affectedOne(r.db().ExecContext(ctx, `
		UPDATE bookings SET status = ?, completed_at = ? WHERE id = ? AND status = ?
	`, string(domain.BookingCompleted), now, id, string(domain.BookingConfirmed)))
	if err != nil {
		return false, fmt.Errorf("complete booking %d: %w", id, err)
	}
	return ok, nil
}

// SetQRIfMissing stores a ticket credential on a confirmed booking that has none.
func (r BookingRepository) SetQRIfMissing(ctx context.Context, id int64, qr string) (bool, error) {
	ok, err := affectedOne(r.db().ExecContext(ctx, `
		UPDATE bookings SET qr_code_data = ? WHERE id = ? AND status = ? AND qr_code_data IS NULL
	`, qr, id, string(domain.BookingConfirmed)))
	if err != nil {
		return false, fmt.Errorf("store qr for booking %d: %w", id, err)
	}
	return ok, nil
}
