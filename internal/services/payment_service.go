package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	intdb "busticket/internal/db"
	"busticket/internal/domain"
	"busticket/internal/domain/models"
	"busticket/internal/gateway"
	"busticket/internal/ledger"
	"busticket/internal/metrics"
	"busticket/internal/repositories"
	"busticket/internal/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderCreator opens a checkout order with the payment provider.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req gateway.OrderRequest) (gateway.Order, error)
}

// PaymentService is the only path that confirms a booking. Confirmation is
// driven by verified provider events, never by client-reported status.
type PaymentService struct {
	DB             *sql.DB
	Tickets        TicketService
	Gateway        OrderCreator
	Ledger         *ledger.RedisLedger
	KeyID          string
	KeySecret      string
	WebhookSecret  string
	Currency       string
	CommissionRate decimal.Decimal
	Now            func() time.Time
	RequestID      string
}

func (s PaymentService) db() *sql.DB { return dbOrDefault(s.DB) }

// Confirm applies a verified capture. Re-confirming a confirmed booking is a
// no-op reported through AlreadyConfirmed.
func (s PaymentService) Confirm(ctx context.Context, capture models.PaymentCapture) (models.ConfirmResult, error) {
	if capture.BookingID <= 0 {
		return models.ConfirmResult{}, domain.ValidationError{Field: "booking_id", Msg: "invalid id"}
	}
	if strings.TrimSpace(capture.TransactionID) == "" {
		return models.ConfirmResult{}, domain.ValidationError{Field: "transaction_id", Msg: "required"}
	}

	now := nowOr(s.Now)
	var result models.ConfirmResult
	err := intdb.WithTx(ctx, s.db(), func(tx *sql.Tx) error {
		bookings := repositories.BookingRepository{DB: tx}
		d, err := bookings.LockDetail(ctx, capture.BookingID)
		if err != nil {
			return notFoundOr("booking", err)
		}

		switch d.Status {
		case domain.BookingConfirmed:
			result = models.ConfirmResult{Booking: d, AlreadyConfirmed: true}
			return nil
		case domain.BookingCancelled, domain.BookingCompleted:
			return domain.ConflictError{Resource: "booking", Msg: fmt.Sprintf("booking is %s", d.Status)}
		}

		if capture.AmountMinor > 0 && capture.AmountMinor != utils.ToMinorUnits(d.TotalFare) {
			return domain.ValidationError{
				Field: "amount",
				Msg:   fmt.Sprintf("captured %d does not match booking total %d", capture.AmountMinor, utils.ToMinorUnits(d.TotalFare)),
			}
		}

		code, err := s.Tickets.Issue(d, now)
		if err != nil {
			return err
		}
		ok, err := bookings.Confirm(ctx, d.ID, code, now)
		if err != nil {
			return domain.InternalError{Msg: "confirm booking", Err: err}
		}
		if !ok {
			return domain.ConflictError{Resource: "booking", Msg: "booking changed concurrently"}
		}

		paid, err := repositories.PaymentRepository{DB: tx}.MarkCompleted(ctx, d.ID, capture.TransactionID, capture.Method, now)
		if err != nil {
			return domain.InternalError{Msg: "complete payment", Err: err}
		}
		if !paid {
			utils.LogWarn(s.RequestID, "payment", "confirm", fmt.Sprintf("no pending payment booking_id=%d", d.ID))
		}

		if err := s.recordEarning(ctx, tx, d, now); err != nil {
			return err
		}

		d.Status = domain.BookingConfirmed
		d.PaymentVerified = true
		d.QRCodeData = &code
		d.ConfirmedAt = &now
		result = models.ConfirmResult{Booking: d}
		return nil
	})
	if err != nil {
		return models.ConfirmResult{}, err
	}

	if !result.AlreadyConfirmed {
		metrics.ObserveTransition(string(domain.BookingPending), string(domain.BookingConfirmed))
	}
	utils.LogEvent(s.RequestID, "payment", "confirm", fmt.Sprintf("booking_id=%d source=%s already=%t",
		capture.BookingID, capture.Source, result.AlreadyConfirmed))
	return result, nil
}

func (s PaymentService) recordEarning(ctx context.Context, tx *sql.Tx, d models.BookingDetail, now time.Time) error {
	commission := d.TotalFare.Mul(s.CommissionRate).Round(2)
	created, err := repositories.EarningRepository{DB: tx}.Record(ctx, models.OperatorEarning{
		BookingID:  d.ID,
		OperatorID: d.OperatorID,
		Amount:     d.TotalFare,
		Commission: commission,
		NetAmount:  d.TotalFare.Sub(commission),
	}, now)
	if err != nil {
		return domain.InternalError{Msg: "record earnings", Err: err}
	}
	if !created {
		utils.LogWarn(s.RequestID, "payment", "confirm", fmt.Sprintf("earnings already recorded booking_id=%d", d.ID))
	}
	return nil
}

// WebhookResult is what the provider gets back for a delivery.
type WebhookResult struct {
	Received  bool `json:"received"`
	Applied   bool `json:"applied"`
	Duplicate bool `json:"duplicate,omitempty"`
}

// HandleWebhook authenticates and applies one provider delivery.
func (s PaymentService) HandleWebhook(ctx context.Context, body []byte, signature, eventID string) (WebhookResult, error) {
	if !gateway.VerifyWebhookSignature(body, signature, s.WebhookSecret) {
		metrics.ObserveWebhook("bad_signature")
		return WebhookResult{}, domain.UnauthorizedError{Msg: "invalid webhook signature"}
	}

	var evt gateway.WebhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		metrics.ObserveWebhook("malformed")
		return WebhookResult{}, domain.ValidationError{Field: "body", Msg: "malformed webhook payload", Err: err}
	}
	if evt.Event != gateway.EventPaymentCaptured {
		metrics.ObserveWebhook("ignored")
		return WebhookResult{Received: true}, nil
	}

	entity := evt.Payload.Payment.Entity
	bookingID, err := s.webhookBookingID(ctx, entity)
	if err != nil {
		return WebhookResult{}, err
	}
	if entity.Currency != "" && s.Currency != "" && !strings.EqualFold(entity.Currency, s.Currency) {
		metrics.ObserveWebhook("rejected")
		utils.LogWarn(s.RequestID, "payment", "webhook",
			fmt.Sprintf("reconcile: capture %s for booking_id=%d in %s, expected %s", entity.ID, bookingID, entity.Currency, s.Currency))
		return WebhookResult{Received: true}, nil
	}

	if seen, err := s.Ledger.Seen(ctx, eventID); err != nil {
		utils.LogWarn(s.RequestID, "payment", "webhook", "ledger unavailable: "+err.Error())
	} else if seen {
		metrics.ObserveWebhook("duplicate")
		return WebhookResult{Received: true, Duplicate: true}, nil
	}

	res, err := s.Confirm(ctx, models.PaymentCapture{
		BookingID:     bookingID,
		TransactionID: entity.ID,
		OrderID:       entity.OrderID,
		Method:        entity.Method,
		AmountMinor:   entity.Amount,
		Source:        "webhook",
	})
	switch {
	case err == nil:
	case domain.IsConflict(err):
		metrics.ObserveWebhook("terminal")
		utils.LogWarn(s.RequestID, "payment", "webhook",
			fmt.Sprintf("reconcile: capture %s for booking_id=%d not applied: %v", entity.ID, bookingID, err))
		return WebhookResult{Received: true}, nil
	case domain.IsNotFound(err):
		metrics.ObserveWebhook("unknown_booking")
		utils.LogWarn(s.RequestID, "payment", "webhook",
			fmt.Sprintf("reconcile: capture %s for unknown booking_id=%d", entity.ID, bookingID))
		return WebhookResult{}, err
	case domain.IsValidation(err):
		// a retry carries the same capture, so it is acknowledged and left for reconciliation
		metrics.ObserveWebhook("rejected")
		utils.LogWarn(s.RequestID, "payment", "webhook",
			fmt.Sprintf("reconcile: capture %s for booking_id=%d rejected: %v", entity.ID, bookingID, err))
		return WebhookResult{Received: true}, nil
	default:
		metrics.ObserveWebhook("error")
		utils.LogError(s.RequestID, "payment", "webhook", err)
		return WebhookResult{}, err
	}

	if _, err := s.Ledger.Remember(ctx, eventID); err != nil {
		utils.LogWarn(s.RequestID, "payment", "webhook", "ledger unavailable: "+err.Error())
	}
	if res.AlreadyConfirmed {
		metrics.ObserveWebhook("duplicate")
		return WebhookResult{Received: true, Duplicate: true}, nil
	}
	metrics.ObserveWebhook("applied")
	return WebhookResult{Received: true, Applied: true}, nil
}

// webhookBookingID resolves the booking a capture belongs to from its notes:
// a numeric booking_id, else a booking reference.
func (s PaymentService) webhookBookingID(ctx context.Context, entity gateway.PaymentEntity) (int64, error) {
	if id, ok := entity.BookingID(); ok {
		return id, nil
	}
	ref := entity.BookingReference()
	if ref == "" {
		metrics.ObserveWebhook("malformed")
		return 0, domain.ValidationError{Field: "notes.booking_id", Msg: "missing booking id"}
	}
	d, err := repositories.BookingRepository{DB: s.db()}.GetDetailByReference(ctx, ref)
	if err != nil {
		err = notFoundOr("booking", err)
		if domain.IsNotFound(err) {
			metrics.ObserveWebhook("unknown_booking")
			utils.LogWarn(s.RequestID, "payment", "webhook",
				fmt.Sprintf("reconcile: capture %s for unknown booking_reference=%s", entity.ID, ref))
		}
		return 0, err
	}
	return d.ID, nil
}

type CheckoutVerification struct {
	BookingID int64  `json:"bookingId" validate:"required,gt=0"`
	OrderID   string `json:"orderId" validate:"required"`
	PaymentID string `json:"paymentId" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

// VerifyCheckout confirms a booking from the signature the checkout widget returns.
func (s PaymentService) VerifyCheckout(ctx context.Context, rc domain.RequestContext, in CheckoutVerification) (models.ConfirmResult, error) {
	if err := validate.Struct(in); err != nil {
		return models.ConfirmResult{}, validationError(err)
	}
	if !gateway.VerifyCheckoutSignature(in.OrderID, in.PaymentID, in.Signature, s.KeySecret) {
		return models.ConfirmResult{}, domain.UnauthorizedError{Msg: "invalid payment signature"}
	}

	d, err := repositories.BookingRepository{DB: s.db()}.GetDetail(ctx, in.BookingID)
	if err != nil {
		return models.ConfirmResult{}, notFoundOr("booking", err)
	}
	if !rc.CanAccessOwnedBy(d.UserID) {
		return models.ConfirmResult{}, domain.NotFoundError{Resource: "booking"}
	}
	p, err := repositories.PaymentRepository{DB: s.db()}.GetByBookingID(ctx, in.BookingID)
	if err != nil {
		return models.ConfirmResult{}, notFoundOr("payment", err)
	}
	if p.GatewayOrderID == nil || *p.GatewayOrderID != in.OrderID {
		return models.ConfirmResult{}, domain.ValidationError{Field: "order_id", Msg: "order does not belong to this booking"}
	}

	return s.Confirm(ctx, models.PaymentCapture{
		BookingID:     in.BookingID,
		TransactionID: in.PaymentID,
		OrderID:       in.OrderID,
		Source:        "checkout",
	})
}

// CreateOrder opens a provider order for the caller's pending booking.
func (s PaymentService) CreateOrder(ctx context.Context, rc domain.RequestContext, bookingID int64) (models.GatewayOrder, error) {
	if s.Gateway == nil {
		return models.GatewayOrder{}, domain.InternalError{Msg: "payment gateway not configured"}
	}
	d, err := repositories.BookingRepository{DB: s.db()}.GetDetail(ctx, bookingID)
	if err != nil {
		return models.GatewayOrder{}, notFoundOr("booking", err)
	}
	if !rc.CanAccessOwnedBy(d.UserID) {
		return models.GatewayOrder{}, domain.NotFoundError{Resource: "booking"}
	}
	if d.Status != domain.BookingPending {
		return models.GatewayOrder{}, domain.ConflictError{Resource: "booking", Msg: fmt.Sprintf("booking is %s", d.Status)}
	}
	amount := utils.ToMinorUnits(d.TotalFare)
	if amount <= 0 {
		return models.GatewayOrder{}, domain.ValidationError{Field: "total_fare", Msg: "nothing to pay"}
	}

	order, err := s.Gateway.CreateOrder(ctx, gateway.OrderRequest{
		Amount:   amount,
		Currency: s.Currency,
		Receipt:  uuid.NewString(),
		Notes: map[string]string{
			"booking_id":        strconv.FormatInt(d.ID, 10),
			"booking_reference": d.BookingReference,
		},
	})
	if err != nil {
		utils.LogError(s.RequestID, "payment", "create_order", err)
		return models.GatewayOrder{}, domain.InternalError{Msg: "payment provider unavailable", Err: err}
	}
	if err := (repositories.PaymentRepository{DB: s.db()}).SetGatewayOrder(ctx, d.ID, order.ID, nowOr(s.Now)); err != nil {
		return models.GatewayOrder{}, domain.InternalError{Msg: "store order", Err: err}
	}
	utils.LogEvent(s.RequestID, "payment", "create_order", fmt.Sprintf("booking_id=%d order_id=%s amount=%d", d.ID, order.ID, amount))
	return models.GatewayOrder{
		OrderID:  order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		KeyID:    s.KeyID,
	}, nil
}
