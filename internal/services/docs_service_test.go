package services

import (
	"bytes"
	"context"
	"testing"

	"busticket/internal/domain"
	"busticket/internal/domain/models"
)

func TestDocsServiceGenerate(t *testing.T) {
	qr := "eyJpZCI6MX0.abcdef"
	loader := func(_ context.Context, id int64) (models.BookingDetail, error) {
		d := bookingDetail(id, domain.BookingConfirmed)
		d.QRCodeData = &qr
		return d, nil
	}
	svc := DocsService{Loader: loader, Currency: "INR"}

	pdf, filename, err := svc.GenerateETicket(context.Background(), domain.RequestContext{UserID: 2, Role: domain.RolePassenger}, 5)
	if err != nil {
		t.Fatalf("GenerateETicket returned error: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("output is not a pdf")
	}
	if filename != "ETICKET_BUS-20260301-0042.pdf" {
		t.Fatalf("unexpected filename %q", filename)
	}
}

func TestDocsServiceRejectsPendingAndStrangers(t *testing.T) {
	status := domain.BookingPending
	svc := DocsService{Loader: func(_ context.Context, id int64) (models.BookingDetail, error) {
		return bookingDetail(id, status), nil
	}}

	_, _, err := svc.GenerateETicket(context.Background(), domain.RequestContext{UserID: 2}, 5)
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict for pending booking, got %v", err)
	}

	status = domain.BookingConfirmed
	_, _, err = svc.GenerateETicket(context.Background(), domain.RequestContext{UserID: 3}, 5)
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found for another user, got %v", err)
	}
}
