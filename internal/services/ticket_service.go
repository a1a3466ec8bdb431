package services

import (
	"context"
	"crypto/hmac"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"busticket/internal/domain"
	"busticket/internal/domain/models"
	"busticket/internal/gateway"
	"busticket/internal/repositories"
	"busticket/internal/utils"
)

const (
	qrDelimiter     = "."
	DefaultQRMaxAge = 48 * time.Hour
)

// TicketService signs and checks ticket credentials and answers boarding lookups.
type TicketService struct {
	Bookings  repositories.BookingRepository
	Secret    string
	MaxAge    time.Duration
	Location  *time.Location
	Now       func() time.Time
	RequestID string
}

// Issue signs a credential for d at now. It does not persist anything.
func (s TicketService) Issue(d models.BookingDetail, now time.Time) (string, error) {
	if s.Secret == "" {
		return "", domain.InternalError{Msg: "qr signing secret not configured"}
	}
	payload := models.QRPayload{
		ID:        d.ID,
		Ref:       d.BookingReference,
		Seats:     d.SeatCount(),
		From:      d.RouteFrom,
		To:        d.RouteTo,
		Date:      utils.FormatDate(d.DepartureDate),
		Timestamp: now.UnixMilli(),
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", domain.InternalError{Msg: "encode qr payload", Err: err}
	}
	return base64.StdEncoding.EncodeToString(raw) + qrDelimiter + gateway.Sign(s.Secret, raw), nil
}

// Verify checks a credential without touching the database.
func (s TicketService) Verify(code string) models.QRVerification {
	invalid := func(msg string) models.QRVerification {
		return models.QRVerification{Valid: false, Error: msg}
	}
	if s.Secret == "" {
		return invalid("verification unavailable")
	}

	parts := strings.Split(strings.TrimSpace(code), qrDelimiter)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return invalid("malformed credential")
	}
	raw, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return invalid("malformed credential")
	}
	expected := gateway.Sign(s.Secret, raw)
	if !hmac.Equal([]byte(expected), []byte(parts[1])) {
		return invalid("invalid signature")
	}

	var payload models.QRPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return invalid("malformed credential")
	}
	maxAge := s.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultQRMaxAge
	}
	issued := time.UnixMilli(payload.Timestamp)
	if nowOr(s.Now).Sub(issued) > maxAge {
		return invalid("credential expired")
	}
	return models.QRVerification{Valid: true, Payload: &payload}
}

// IssueForBooking returns the booking's credential, signing and storing one
// when the confirmed booking has none yet.
func (s TicketService) IssueForBooking(ctx context.Context, rc domain.RequestContext, bookingID int64) (string, error) {
	d, err := s.Bookings.GetDetail(ctx, bookingID)
	if err != nil {
		return "", notFoundOr("booking", err)
	}
	if !rc.CanAccessOwnedBy(d.UserID) {
		return "", domain.NotFoundError{Resource: "booking"}
	}
	if d.Status != domain.BookingConfirmed {
		return "", domain.ConflictError{Resource: "booking", Msg: "tickets are issued for confirmed bookings only"}
	}
	if d.QRCodeData != nil && *d.QRCodeData != "" {
		return *d.QRCodeData, nil
	}

	code, err := s.Issue(d, nowOr(s.Now))
	if err != nil {
		return "", err
	}
	stored, err := s.Bookings.SetQRIfMissing(ctx, bookingID, code)
	if err != nil {
		return "", domain.InternalError{Msg: "store qr", Err: err}
	}
	if stored {
		utils.LogEvent(s.RequestID, "ticket", "issue_qr", fmt.Sprintf("booking_id=%d", bookingID))
		return code, nil
	}

	latest, err := s.Bookings.GetDetail(ctx, bookingID)
	if err != nil {
		return "", notFoundOr("booking", err)
	}
	if latest.QRCodeData == nil {
		return "", domain.ConflictError{Resource: "booking", Msg: fmt.Sprintf("booking is %s", latest.Status)}
	}
	return *latest.QRCodeData, nil
}

// Lookup resolves a booking reference at boarding time.
func (s TicketService) Lookup(ctx context.Context, ref string) (models.BookingDetail, error) {
	ref = strings.ToUpper(strings.TrimSpace(ref))
	if ref == "" {
		return models.BookingDetail{}, domain.ValidationError{Field: "ref", Msg: "required"}
	}
	d, err := s.Bookings.GetDetailByReference(ctx, ref)
	if err != nil {
		return models.BookingDetail{}, notFoundOr("booking", err)
	}

	switch {
	case d.Status == domain.BookingCancelled:
		return models.BookingDetail{}, domain.PolicyError{Rule: "ticket_cancelled", Msg: "booking cancelled"}
	case d.Status == domain.BookingCompleted:
		return models.BookingDetail{}, domain.PolicyError{Rule: "ticket_used", Msg: "journey already completed"}
	case !d.PaymentVerified || d.Status != domain.BookingConfirmed:
		return models.BookingDetail{}, domain.PolicyError{Rule: "ticket_unpaid", Msg: "payment not verified"}
	}

	today := utils.FormatDate(nowOr(s.Now).In(locOr(s.Location)))
	if utils.FormatDate(d.DepartureDate) < today {
		return models.BookingDetail{}, domain.PolicyError{Rule: "ticket_expired", Msg: "ticket expired"}
	}
	return d, nil
}
