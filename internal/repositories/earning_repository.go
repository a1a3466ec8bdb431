package repositories

import (
	"context"
	"fmt"
	"time"

	intdb "busticket/internal/db"
	"busticket/internal/domain/models"
)

const (
	EarningPending  = "pending"
	EarningReversed = "reversed"
)

type EarningRepository struct {
	DB intdb.DBTX
}

func (r EarningRepository) db() intdb.DBTX { return conn(r.DB) }

// Record inserts the operator share of a booking. It returns false when the
// booking already has an earnings row.
func (r EarningRepository) Record(ctx context.Context, e models.OperatorEarning, now time.Time) (bool, error) {
	_, err := r.db().ExecContext(ctx, `
		INSERT INTO operator_earnings (booking_id, operator_id, amount, commission, net_amount, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.BookingID, e.OperatorID, e.Amount, e.Commission, e.NetAmount, EarningPending, now)
	if intdb.IsDuplicateKey(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("record earning for booking %d: %w", e.BookingID, err)
	}
	return true, nil
}

// Reverse marks a not yet paid-out earning as reversed.
func (r EarningRepository) Reverse(ctx context.Context, bookingID int64) (bool, error) {
	ok, err := affectedOne(r.db().ExecContext(ctx, `
		UPDATE operator_earnings SET status = ? WHERE booking_id = ? AND status = ?
	`, EarningReversed, bookingID, EarningPending))
	if err != nil {
		return false, fmt.Errorf("reverse earning for booking %d: %w", bookingID, err)
	}
	return ok, nil
}

// SummarizeBySchedule totals non-reversed earnings of operatorID per schedule
// departing between start and end, inclusive.
func (r EarningRepository) SummarizeBySchedule(ctx context.Context, operatorID int64, start, end time.Time) ([]models.ScheduleEarnings, error) {
	rows, err := r.db().QueryContext(ctx, `
		SELECT s.id, s.departure_date, rt.source, rt.destination,
		       COUNT(*), SUM(oe.amount), SUM(oe.commission), SUM(oe.net_amount)
		FROM operator_earnings oe
		JOIN bookings bk ON bk.id = oe.booking_id
		JOIN schedules s ON s.id = bk.schedule_id
		JOIN routes rt ON rt.id = s.route_id
		WHERE oe.operator_id = ? AND oe.status <> ?
		  AND s.departure_date BETWEEN ? AND ?
		GROUP BY s.id, s.departure_date, rt.source, rt.destination
		ORDER BY s.departure_date ASC, s.id ASC
	`, operatorID, EarningReversed, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("summarize earnings for operator %d: %w", operatorID, err)
	}
	defer rows.Close()

	out := []models.ScheduleEarnings{}
	for rows.Next() {
		var e models.ScheduleEarnings
		if err := rows.Scan(&e.ScheduleID, &e.DepartureDate, &e.RouteFrom, &e.RouteTo,
			&e.Bookings, &e.Amount, &e.Commission, &e.NetAmount); err != nil {
			return nil, fmt.Errorf("scan earnings row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
