package repositories

import (
	"context"
	"fmt"

	intdb "busticket/internal/db"
	"busticket/internal/domain/models"
)

const (
	BusPending  = "pending"
	BusApproved = "approved"
	BusRejected = "rejected"
)

type BusRepository struct {
	DB intdb.DBTX
}

func (r BusRepository) db() intdb.DBTX { return conn(r.DB) }

func (r BusRepository) CreateRoute(ctx context.Context, rt models.Route) (int64, error) {
	res, err := r.db().ExecContext(ctx, `
		INSERT INTO routes (source, destination, distance_km)
		VALUES (?, ?, ?)
	`, rt.Source, rt.Destination, rt.DistanceKm)
	if err != nil {
		return 0, fmt.Errorf("insert route: %w", err)
	}
	return res.LastInsertId()
}

// Create inserts a bus awaiting approval. A reused registration number
// surfaces as a MySQL 1062 error.
func (r BusRepository) Create(ctx context.Context, b models.BusProfile) (int64, error) {
	res, err := r.db().ExecContext(ctx, `
		INSERT INTO buses (operator_id, bus_name, registration_no, total_seats, fare_per_km,
			departure_time, arrival_time, approval_status, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)
	`, b.OperatorID, b.BusName, b.RegistrationNo, b.TotalSeats, b.FarePerKm,
		b.DepartureTime, b.ArrivalTime, BusPending)
	if err != nil {
		return 0, fmt.Errorf("insert bus: %w", err)
	}
	return res.LastInsertId()
}

func (r BusRepository) Get(ctx context.Context, id int64) (models.BusProfile, error) {
	var b models.BusProfile
	err := r.db().QueryRowContext(ctx, `
		SELECT id, operator_id, bus_name, registration_no, total_seats, fare_per_km,
		       TIME_FORMAT(departure_time, '%H:%i'), TIME_FORMAT(arrival_time, '%H:%i'),
		       approval_status, is_active
		FROM buses WHERE id = ? LIMIT 1
	`, id).Scan(&b.ID, &b.OperatorID, &b.BusName, &b.RegistrationNo, &b.TotalSeats, &b.FarePerKm,
		&b.DepartureTime, &b.ArrivalTime, &b.ApprovalStatus, &b.IsActive)
	if err != nil {
		return models.BusProfile{}, fmt.Errorf("get bus %d: %w", id, err)
	}
	return b, nil
}

// Review moves a pending bus to status. It returns false when the bus is
// missing or was already reviewed.
func (r BusRepository) Review(ctx context.Context, id int64, status string) (bool, error) {
	ok, err := affectedOne(r.db().ExecContext(ctx, `
		UPDATE buses SET approval_status = ? WHERE id = ? AND approval_status = ?
	`, status, id, BusPending))
	if err != nil {
		return false, fmt.Errorf("review bus %d: %w", id, err)
	}
	return ok, nil
}
