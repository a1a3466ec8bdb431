package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	intdb "busticket/internal/db"
	"busticket/internal/domain"
	"busticket/internal/domain/models"
)

type PaymentRepository struct {
	DB intdb.DBTX
}

func (r PaymentRepository) db() intdb.DBTX { return conn(r.DB) }

// CreatePending inserts the pending payment row of a new booking.
func (r PaymentRepository) CreatePending(ctx context.Context, p models.Payment) (int64, error) {
	res, err := r.db().ExecContext(ctx, `
		INSERT INTO payments (booking_id, amount, payment_method, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.BookingID, p.Amount, p.Method, string(domain.PaymentPending), p.CreatedAt, p.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("insert payment: %w", err)
	}
	return res.LastInsertId()
}

// GetByBookingID returns sql.ErrNoRows when the booking has no payment.
func (r PaymentRepository) GetByBookingID(ctx context.Context, bookingID int64) (models.Payment, error) {
	var (
		p             models.Payment
		status        string
		orderID, txID sql.NullString
	)
	err := r.db().QueryRowContext(ctx, `
		SELECT id, booking_id, amount, payment_method, status, gateway_order_id, transaction_id, created_at, updated_at
		FROM payments WHERE booking_id = ? LIMIT 1
	`, bookingID).Scan(&p.ID, &p.BookingID, &p.Amount, &p.Method, &status, &orderID, &txID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return models.Payment{}, fmt.Errorf("get payment of booking %d: %w", bookingID, err)
	}
	p.Status = domain.PaymentStatus(status)
	if orderID.Valid {
		p.GatewayOrderID = &orderID.String
	}
	if txID.Valid {
		p.TransactionID = &txID.String
	}
	return p, nil
}

// MarkCompleted moves the booking's pending payment to completed. At most one
// payment per booking can win this write.
func (r PaymentRepository) MarkCompleted(ctx context.Context, bookingID int64, transactionID, method string, now time.Time) (bool, error) {
	ok, err := affectedOne(r.db().ExecContext(ctx, `
		UPDATE payments
		SET status = ?, transaction_id = ?, payment_method = COALESCE(?, payment_method), updated_at = ?
		WHERE booking_id = ? AND status = ?
	`, string(domain.PaymentCompleted), transactionID, intdb.NullIfEmpty(method), now, bookingID, string(domain.PaymentPending)))
	if err != nil {
		return false, fmt.Errorf("complete payment of booking %d: %w", bookingID, err)
	}
	return ok, nil
}

// Transition moves the booking's payment between statuses with a status guard.
func (r PaymentRepository) Transition(ctx context.Context, bookingID int64, from, to domain.PaymentStatus, now time.Time) (bool, error) {
	ok, err := affectedOne(r.db().ExecContext(ctx, `
		UPDATE payments SET status = ?, updated_at = ? WHERE booking_id = ? AND status = ?
	`, string(to), now, bookingID, string(from)))
	if err != nil {
		return false, fmt.Errorf("payment of booking %d %s->%s: %w", bookingID, from, to, err)
	}
	return ok, nil
}

// SetGatewayOrder records the provider order created for a pending payment.
func (r PaymentRepository) SetGatewayOrder(ctx context.Context, bookingID int64, orderID string, now time.Time) error {
	_, err := r.db().ExecContext(ctx, `
		UPDATE payments SET gateway_order_id = ?, updated_at = ? WHERE booking_id = ? AND status = ?
	`, orderID, now, bookingID, string(domain.PaymentPending))
	if err != nil {
		return fmt.Errorf("store gateway order for booking %d: %w", bookingID, err)
	}
	return nil
}
