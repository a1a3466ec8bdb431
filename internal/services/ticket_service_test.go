package services

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"busticket/internal/domain"
	"busticket/internal/repositories"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQRRoundTrip(t *testing.T) {
	svc := TicketService{Secret: testSecret, Now: fixedNow(testNow.Add(time.Hour))}
	d := bookingDetail(5, domain.BookingConfirmed)

	code, err := svc.Issue(d, testNow)
	require.NoError(t, err)

	res := svc.Verify(code)
	require.True(t, res.Valid, res.Error)
	require.NotNil(t, res.Payload)
	assert.Equal(t, "BUS-20260301-0042", res.Payload.Ref)
	assert.Equal(t, "Pune", res.Payload.From)
	assert.Equal(t, "Mumbai", res.Payload.To)
	assert.Equal(t, "2026-03-14", res.Payload.Date)
	assert.Equal(t, 2, res.Payload.Seats)
	assert.Equal(t, testNow.UnixMilli(), res.Payload.Timestamp)
}

func TestQRIsDeterministic(t *testing.T) {
	svc := TicketService{Secret: testSecret, Now: fixedNow(testNow)}
	d := bookingDetail(5, domain.BookingConfirmed)
	a, err := svc.Issue(d, testNow)
	require.NoError(t, err)
	b, err := svc.Issue(d, testNow)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestQRTamperIsRejected(t *testing.T) {
	svc := TicketService{Secret: testSecret, Now: fixedNow(testNow)}
	code, err := svc.Issue(bookingDetail(5, domain.BookingConfirmed), testNow)
	require.NoError(t, err)
	payload, sig, _ := strings.Cut(code, ".")

	flipped := []byte(sig)
	if flipped[0] == 'a' {
		flipped[0] = 'b'
	} else {
		flipped[0] = 'a'
	}
	assert.False(t, svc.Verify(payload+"."+string(flipped)).Valid)

	raw, err := base64.StdEncoding.DecodeString(payload)
	require.NoError(t, err)
	forged := strings.Replace(string(raw), `"seats":2`, `"seats":9`, 1)
	res := svc.Verify(base64.StdEncoding.EncodeToString([]byte(forged)) + "." + sig)
	assert.False(t, res.Valid)
	assert.Equal(t, "invalid signature", res.Error)

	other := TicketService{Secret: "another-secret", Now: fixedNow(testNow)}
	assert.False(t, other.Verify(code).Valid)
}

func TestQRFreshnessWindow(t *testing.T) {
	code, err := TicketService{Secret: testSecret}.Issue(bookingDetail(5, domain.BookingConfirmed), testNow)
	require.NoError(t, err)

	fresh := TicketService{Secret: testSecret, Now: fixedNow(testNow.Add(47 * time.Hour))}
	assert.True(t, fresh.Verify(code).Valid)

	stale := TicketService{Secret: testSecret, Now: fixedNow(testNow.Add(49 * time.Hour))}
	res := stale.Verify(code)
	assert.False(t, res.Valid)
	assert.Equal(t, "credential expired", res.Error)
	assert.Nil(t, res.Payload)
}

func TestQRMalformed(t *testing.T) {
	svc := TicketService{Secret: testSecret, Now: fixedNow(testNow)}
	for _, code := range []string{"", "abc", "a.b.c", "!!!.deadbeef", ".deadbeef"} {
		res := svc.Verify(code)
		assert.False(t, res.Valid, code)
		assert.NotEmpty(t, res.Error, code)
	}
}

func TestIssueForBookingReusesStoredCredential(t *testing.T) {
	db, mock := newDB(t)
	svc := TicketService{Bookings: repositories.BookingRepository{DB: db}, Secret: testSecret, Now: fixedNow(testNow)}

	stored := "stored.credential"
	withQR := bookingDetail(5, domain.BookingConfirmed)
	withQR.QRCodeData = &stored
	mock.ExpectQuery(qBooking).WithArgs(int64(5)).WillReturnRows(bookingRows(withQR))

	code, err := svc.IssueForBooking(context.Background(), domain.RequestContext{UserID: 2}, 5)
	require.NoError(t, err)
	assert.Equal(t, stored, code)
	require.NoError(t, mock.ExpectationsWereMet(), "no write for an existing credential")
}

func TestIssueForBookingSignsMissingCredential(t *testing.T) {
	db, mock := newDB(t)
	svc := TicketService{Bookings: repositories.BookingRepository{DB: db}, Secret: testSecret, Now: fixedNow(testNow)}

	mock.ExpectQuery(qBooking).WithArgs(int64(5)).WillReturnRows(bookingRows(bookingDetail(5, domain.BookingConfirmed)))
	mock.ExpectExec(`UPDATE bookings SET qr_code_data = \? WHERE id = \? AND status = \? AND qr_code_data IS NULL`).
		WithArgs(sqlmock.AnyArg(), int64(5), "confirmed").WillReturnResult(sqlmock.NewResult(0, 1))

	code, err := svc.IssueForBooking(context.Background(), domain.RequestContext{UserID: 2}, 5)
	require.NoError(t, err)
	assert.True(t, svc.Verify(code).Valid)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIssueForBookingRequiresConfirmed(t *testing.T) {
	db, mock := newDB(t)
	svc := TicketService{Bookings: repositories.BookingRepository{DB: db}, Secret: testSecret, Now: fixedNow(testNow)}
	mock.ExpectQuery(qBooking).WithArgs(int64(5)).WillReturnRows(bookingRows(bookingDetail(5, domain.BookingPending)))

	_, err := svc.IssueForBooking(context.Background(), domain.RequestContext{UserID: 2}, 5)
	assert.True(t, domain.IsConflict(err))
}

func TestLookup(t *testing.T) {
	cases := []struct {
		name   string
		status domain.BookingStatus
		now    time.Time
		rule   string
	}{
		{"valid", domain.BookingConfirmed, testNow, ""},
		{"departure day", domain.BookingConfirmed, testDeparture, ""},
		{"expired", domain.BookingConfirmed, testDay.AddDate(0, 0, 2), "ticket_expired"},
		{"cancelled", domain.BookingCancelled, testNow, "ticket_cancelled"},
		{"unpaid", domain.BookingPending, testNow, "ticket_unpaid"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newDB(t)
			svc := TicketService{Bookings: repositories.BookingRepository{DB: db}, Location: kolkata, Now: fixedNow(tc.now)}
			mock.ExpectQuery(`WHERE bk.booking_reference = \?`).WithArgs("BUS-20260301-0042").
				WillReturnRows(bookingRows(bookingDetail(5, tc.status)))

			d, err := svc.Lookup(context.Background(), " bus-20260301-0042 ")
			if tc.rule == "" {
				require.NoError(t, err)
				assert.Equal(t, int64(5), d.ID)
				return
			}
			var perr domain.PolicyError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tc.rule, perr.Rule)
		})
	}
}

func TestLookupUnknownReference(t *testing.T) {
	db, mock := newDB(t)
	svc := TicketService{Bookings: repositories.BookingRepository{DB: db}, Now: fixedNow(testNow)}
	mock.ExpectQuery(`WHERE bk.booking_reference = \?`).WillReturnRows(sqlmock.NewRows(bookingCols))

	_, err := svc.Lookup(context.Background(), "BUS-00000000-0000")
	assert.True(t, domain.IsNotFound(err))
}
