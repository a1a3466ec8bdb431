package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"busticket/internal/domain"
	"busticket/internal/domain/models"
	"busticket/internal/repositories"
	"busticket/internal/utils"

	"github.com/phpdave11/gofpdf"
)

// DocsService renders the e-ticket PDF of a booking.
type DocsService struct {
	Bookings  repositories.BookingRepository
	Currency  string
	RequestID string
	Loader    func(context.Context, int64) (models.BookingDetail, error)
}

func (s DocsService) load(ctx context.Context, bookingID int64) (models.BookingDetail, error) {
	if s.Loader != nil {
		return s.Loader(ctx, bookingID)
	}
	d, err := s.Bookings.GetDetail(ctx, bookingID)
	if err != nil {
		return models.BookingDetail{}, notFoundOr("booking", err)
	}
	return d, nil
}

// GenerateETicket returns the PDF bytes and a download file name.
func (s DocsService) GenerateETicket(ctx context.Context, rc domain.RequestContext, bookingID int64) ([]byte, string, error) {
	d, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, "", err
	}
	if !rc.CanAccessOwnedBy(d.UserID) {
		return nil, "", domain.NotFoundError{Resource: "booking"}
	}
	if d.Status != domain.BookingConfirmed {
		return nil, "", domain.ConflictError{Resource: "booking", Msg: "e-tickets are printed for confirmed bookings only"}
	}
	utils.LogEvent(s.RequestID, "docs", "generate_eticket", fmt.Sprintf("booking_id=%d", bookingID))
	return buildETicketPDF(d, s.Currency)
}

func buildETicketPDF(d models.BookingDetail, currency string) ([]byte, string, error) {
	if currency == "" {
		currency = "INR"
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("E-Ticket "+d.BookingReference, false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "E-TICKET")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Booking Ref : %s", safe(d.BookingReference, "-")),
		fmt.Sprintf("Passenger   : %s", safe(d.PassengerName, "-")),
		fmt.Sprintf("Phone       : %s", safe(d.PassengerPhone, "-")),
		fmt.Sprintf("Seats       : %s", safe(utils.JoinSeats(d.SeatNumbers), "-")),
		fmt.Sprintf("Bus         : %s", safe(d.BusName, "-")),
		fmt.Sprintf("Route       : %s -> %s", safe(d.RouteFrom, "-"), safe(d.RouteTo, "-")),
		fmt.Sprintf("Departure   : %s %s", utils.FormatDate(d.DepartureDate), safe(timeHM(d.DepartureTime), "-")),
		fmt.Sprintf("Fare        : %s", utils.FormatMoney(currency, d.TotalFare)),
	}
	if d.DiscountAmount.IsPositive() {
		lines = append(lines, fmt.Sprintf("Discount    : %s", utils.FormatMoney(currency, d.DiscountAmount)))
	}
	for _, line := range lines {
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}

	if d.QRCodeData != nil && *d.QRCodeData != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.Cell(0, 7, "Ticket code")
		pdf.Ln(7)
		pdf.SetFont("Courier", "", 8)
		pdf.MultiCell(0, 4, *d.QRCodeData, "", "", false)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Show this ticket and a photo ID at boarding. Cancellations close 6 hours before departure.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", domain.InternalError{Msg: "render e-ticket", Err: err}
	}
	filename := fmt.Sprintf("ETICKET_%s.pdf", utils.SafeFilenamePart(d.BookingReference))
	return buf.Bytes(), filename, nil
}

func safe(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}

func timeHM(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 5 {
		return v[:5]
	}
	return v
}
