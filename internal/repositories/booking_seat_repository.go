package repositories

import (
	"context"
	"fmt"

	intdb "busticket/internal/db"
)

// BookingSeatRepository holds one row per (schedule, seat number) for live bookings.
// The unique key on (schedule_id, seat_number) is what rejects double-booked seats.
type BookingSeatRepository struct {
	DB intdb.DBTX
}

func (r BookingSeatRepository) db() intdb.DBTX { return conn(r.DB) }

// InsertSeats claims seats for a booking. A taken seat surfaces as MySQL 1062.
func (r BookingSeatRepository) InsertSeats(ctx context.Context, bookingID, scheduleID int64, seats []int) error {
	for _, seat := range seats {
		if _, err := r.db().ExecContext(ctx, `
			INSERT INTO booking_seats (booking_id, schedule_id, seat_number) VALUES (?, ?, ?)
		`, bookingID, scheduleID, seat); err != nil {
			return fmt.Errorf("claim seat %d: %w", seat, err)
		}
	}
	return nil
}

// DeleteByBooking frees the seats of a cancelled booking.
func (r BookingSeatRepository) DeleteByBooking(ctx context.Context, bookingID int64) (int64, error) {
	res, err := r.db().ExecContext(ctx, `DELETE FROM booking_seats WHERE booking_id = ?`, bookingID)
	if err != nil {
		return 0, fmt.Errorf("free seats of booking %d: %w", bookingID, err)
	}
	return res.RowsAffected()
}

// ListBySchedule returns the seat numbers currently held on a schedule.
func (r BookingSeatRepository) ListBySchedule(ctx context.Context, scheduleID int64) ([]int, error) {
	rows, err := r.db().QueryContext(ctx, `
		SELECT seat_number FROM booking_seats WHERE schedule_id = ? ORDER BY seat_number ASC
	`, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("list seats of schedule %d: %w", scheduleID, err)
	}
	defer rows.Close()

	out := []int{}
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
