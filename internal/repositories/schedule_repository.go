package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	intconfig "busticket/internal/config"
	intdb "busticket/internal/db"
	"busticket/internal/domain/models"
)

// conn picks the explicit handle (db or tx) or falls back to the shared pool.
func conn(q intdb.DBTX) intdb.DBTX {
	if q != nil {
		return q
	}
	return intconfig.DB
}

type ScheduleRepository struct {
	DB intdb.DBTX
}

func (r ScheduleRepository) db() intdb.DBTX { return conn(r.DB) }

const scheduleDetailSelect = `
	SELECT
		s.id, s.bus_id, s.route_id, s.departure_date, s.total_seats, s.available_seats, s.is_active,
		b.operator_id, b.bus_name, b.departure_time, b.arrival_time, b.fare_per_km,
		r.source, r.destination, r.distance_km
	FROM schedules s
	JOIN buses b ON b.id = s.bus_id
	JOIN routes r ON r.id = s.route_id
`

func scanScheduleDetail(row interface{ Scan(...any) error }) (models.ScheduleDetail, error) {
	var d models.ScheduleDetail
	err := row.Scan(
		&d.ID, &d.BusID, &d.RouteID, &d.DepartureDate, &d.TotalSeats, &d.AvailableSeats, &d.IsActive,
		&d.OperatorID, &d.BusName, &d.DepartureTime, &d.ArrivalTime, &d.FarePerKm,
		&d.Source, &d.Destination, &d.DistanceKm,
	)
	return d, err
}

// GetDetail loads a schedule with its bus and route. Returns sql.ErrNoRows when missing.
func (r ScheduleRepository) GetDetail(ctx context.Context, id int64) (models.ScheduleDetail, error) {
	if id <= 0 {
		return models.ScheduleDetail{}, fmt.Errorf("invalid schedule id %d", id)
	}
	d, err := scanScheduleDetail(r.db().QueryRowContext(ctx, scheduleDetailSelect+` WHERE s.id = ? LIMIT 1`, id))
	if err != nil {
		return models.ScheduleDetail{}, fmt.Errorf("get schedule %d: %w", id, err)
	}
	return d, nil
}

// Search lists active schedules on date, optionally filtered by route endpoints.
func (r ScheduleRepository) Search(ctx context.Context, from, to string, date time.Time) ([]models.ScheduleDetail, error) {
	where := []string{"s.is_active = 1", "b.is_active = 1", "s.departure_date = ?"}
	args := []any{date.Format("2006-01-02")}
	if from = strings.TrimSpace(from); from != "" {
		where = append(where, "r.source = ?")
		args = append(args, from)
	}
	if to = strings.TrimSpace(to); to != "" {
		where = append(where, "r.destination = ?")
		args = append(args, to)
	}

	query := scheduleDetailSelect + ` WHERE ` + strings.Join(where, " AND ") + ` ORDER BY b.departure_time ASC, s.id ASC`
	rows, err := r.db().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search schedules: %w", err)
	}
	defer rows.Close()

	out := []models.ScheduleDetail{}
	for rows.Next() {
		d, err := scanScheduleDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// TryReserve decrements available_seats by n in a single conditional statement.
// It returns false when the schedule is missing, inactive, or short of seats.
func (r ScheduleRepository) TryReserve(ctx context.Context, id int64, n int) (bool, error) {
	res, err := r.db().ExecContext(ctx, `
		UPDATE schedules
		SET available_seats = available_seats - ?
		WHERE id = ? AND is_active = 1 AND available_seats >= ?
	`, n, id, n)
	if err != nil {
		return false, fmt.Errorf("reserve seats on schedule %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reserve seats rows affected: %w", err)
	}
	return affected == 1, nil
}

// Release adds n seats back, never above total_seats.
func (r ScheduleRepository) Release(ctx context.Context, id int64, n int) (bool, error) {
	res, err := r.db().ExecContext(ctx, `
		UPDATE schedules
		SET available_seats = available_seats + ?
		WHERE id = ? AND available_seats + ? <= total_seats
	`, n, id, n)
	if err != nil {
		return false, fmt.Errorf("release seats on schedule %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("release seats rows affected: %w", err)
	}
	return affected == 1, nil
}

// State reads existence, active flag and the current counter of a schedule.
func (r ScheduleRepository) State(ctx context.Context, id int64) (exists, active bool, available int, err error) {
	err = r.db().QueryRowContext(ctx, `SELECT is_active, available_seats FROM schedules WHERE id = ? LIMIT 1`, id).Scan(&active, &available)
	if errors.Is(err, sql.ErrNoRows) {
		return false, false, 0, nil
	}
	if err != nil {
		return false, false, 0, fmt.Errorf("schedule state %d: %w", id, err)
	}
	return true, active, available, nil
}

// GetBus loads the fields needed to publish a schedule for a bus.
func (r ScheduleRepository) GetBus(ctx context.Context, busID int64) (models.Bus, error) {
	var b models.Bus
	err := r.db().QueryRowContext(ctx, `
		SELECT id, operator_id, total_seats, approval_status, is_active
		FROM buses WHERE id = ? LIMIT 1
	`, busID).Scan(&b.ID, &b.OperatorID, &b.TotalSeats, &b.ApprovalStatus, &b.IsActive)
	if err != nil {
		return models.Bus{}, fmt.Errorf("get bus %d: %w", busID, err)
	}
	return b, nil
}

// RouteExists reports whether routeID is known.
func (r ScheduleRepository) RouteExists(ctx context.Context, routeID int64) (bool, error) {
	var id int64
	err := r.db().QueryRowContext(ctx, `SELECT id FROM routes WHERE id = ? LIMIT 1`, routeID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get route %d: %w", routeID, err)
	}
	return true, nil
}

// Create inserts a schedule with all seats available. Duplicate (bus, route, date)
// surfaces as a MySQL 1062 error.
func (r ScheduleRepository) Create(ctx context.Context, s models.Schedule) (int64, error) {
	res, err := r.db().ExecContext(ctx, `
		INSERT INTO schedules (bus_id, route_id, departure_date, total_seats, available_seats, is_active)
		VALUES (?, ?, ?, ?, ?, 1)
	`, s.BusID, s.RouteID, s.DepartureDate.Format("2006-01-02"), s.TotalSeats, s.TotalSeats)
	if err != nil {
		return 0, fmt.Errorf("insert schedule: %w", err)
	}
	return res.LastInsertId()
}

// Deactivate soft-deletes a schedule. Bookings keep referencing it.
func (r ScheduleRepository) Deactivate(ctx context.Context, id int64) (bool, error) {
	res, err := r.db().ExecContext(ctx, `UPDATE schedules SET is_active = 0 WHERE id = ? AND is_active = 1`, id)
	if err != nil {
		return false, fmt.Errorf("deactivate schedule %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}
