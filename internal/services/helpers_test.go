package services

import (
	"database/sql"
	"strconv"
	"testing"
	"time"

	"busticket/internal/domain"
	"busticket/internal/domain/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const testSecret = "qr-test-secret"

var (
	// 08:30 IST on 14 March is 03:00 UTC.
	testDay       = time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	testDeparture = time.Date(2026, 3, 14, 3, 0, 0, 0, time.UTC)
	testNow       = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	kolkata       = time.FixedZone("IST", 5*3600+1800)
)

func fixedNow(t time.Time) func() time.Time { return func() time.Time { return t } }

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func mysqlDuplicate() error {
	return &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
}

func bookingDetail(id int64, status domain.BookingStatus) models.BookingDetail {
	return models.BookingDetail{
		Booking: models.Booking{
			ID:               id,
			ScheduleID:       9,
			UserID:           2,
			BookingReference: "BUS-20260301-0042",
			SeatNumbers:      []int{3, 4},
			PassengerName:    "Asha Rao",
			PassengerEmail:   "asha@example.com",
			PassengerPhone:   "+919800000000",
			TotalFare:        decimal.RequireFromString("900.00"),
			DiscountAmount:   decimal.Zero,
			Status:           status,
			PaymentVerified:  status == domain.BookingConfirmed || status == domain.BookingCompleted,
			CreatedAt:        testNow,
		},
		RouteFrom:     "Pune",
		RouteTo:       "Mumbai",
		DepartureDate: testDay,
		DepartureTime: "08:30:00",
		BusName:       "Volvo AC",
		OperatorID:    11,
	}
}

var bookingCols = []string{
	"id", "schedule_id", "user_id", "booking_reference", "seat_numbers",
	"passenger_name", "passenger_email", "passenger_phone",
	"total_fare", "discount_amount", "coupon_id",
	"status", "payment_verified", "qr_code_data",
	"created_at", "confirmed_at", "cancelled_at", "completed_at",
	"source", "destination", "departure_date", "departure_time", "bus_name", "operator_id",
}

func bookingRows(ds ...models.BookingDetail) *sqlmock.Rows {
	rows := sqlmock.NewRows(bookingCols)
	for _, d := range ds {
		var qr any
		if d.QRCodeData != nil {
			qr = *d.QRCodeData
		}
		seats := "["
		for i, n := range d.SeatNumbers {
			if i > 0 {
				seats += ","
			}
			seats += strconv.Itoa(n)
		}
		seats += "]"
		rows.AddRow(
			d.ID, d.ScheduleID, d.UserID, d.BookingReference, seats,
			d.PassengerName, d.PassengerEmail, d.PassengerPhone,
			d.TotalFare.StringFixed(2), d.DiscountAmount.StringFixed(2), nil,
			string(d.Status), d.PaymentVerified, qr,
			d.CreatedAt, nil, nil, nil,
			d.RouteFrom, d.RouteTo, d.DepartureDate, d.DepartureTime, d.BusName, d.OperatorID,
		)
	}
	return rows
}

var scheduleCols = []string{
	"id", "bus_id", "route_id", "departure_date", "total_seats", "available_seats", "is_active",
	"operator_id", "bus_name", "departure_time", "arrival_time", "fare_per_km",
	"source", "destination", "distance_km",
}

// scheduleRows describes schedule 9: 40 seats, Pune to Mumbai, 180 km at 2.50/km.
func scheduleRows(available int, active bool) *sqlmock.Rows {
	return sqlmock.NewRows(scheduleCols).AddRow(
		9, 3, 5, testDay, 40, available, active,
		11, "Volvo AC", "08:30:00", "12:30:00", "2.50",
		"Pune", "Mumbai", "180.00",
	)
}

const (
	qSchedule    = `FROM schedules s\s+JOIN buses b`
	qBooking     = `FROM bookings bk`
	qLockBooking = `FROM bookings bk .* FOR UPDATE OF bk`
	qReserve     = `UPDATE schedules\s+SET available_seats = available_seats - \?`
	qRelease     = `UPDATE schedules\s+SET available_seats = available_seats \+ \?`
)
