package services

import (
	"context"
	"testing"
	"time"

	"busticket/internal/domain"
	"busticket/internal/domain/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bookingSvc(t *testing.T, now time.Time) (BookingService, sqlmock.Sqlmock) {
	db, mock := newDB(t)
	return BookingService{DB: db, Location: kolkata, Now: fixedNow(now)}, mock
}

func newBookingInput() models.NewBooking {
	return models.NewBooking{
		ScheduleID:     9,
		UserID:         2,
		SeatNumbers:    []int{3, 4},
		PassengerName:  "  Asha   Rao ",
		PassengerEmail: "Asha@Example.com",
		PassengerPhone: "+919800000000",
	}
}

func TestCreateBookingReservesAndPersists(t *testing.T) {
	svc, mock := bookingSvc(t, testNow)

	mock.ExpectBegin()
	mock.ExpectQuery(qSchedule).WithArgs(int64(9)).WillReturnRows(scheduleRows(40, true))
	mock.ExpectExec(qReserve).WithArgs(2, int64(9), 2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO bookings`).
		WithArgs(int64(9), int64(2), sqlmock.AnyArg(), "[3,4]", 2,
			"Asha Rao", "asha@example.com", "+919800000000",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "pending", testNow).
		WillReturnResult(sqlmock.NewResult(77, 1))
	mock.ExpectExec(`INSERT INTO booking_seats`).WithArgs(int64(77), int64(9), 3).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO booking_seats`).WithArgs(int64(77), int64(9), 4).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec(`INSERT INTO payments`).WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(qBooking).WithArgs(int64(77)).WillReturnRows(bookingRows(bookingDetail(77, domain.BookingPending)))

	d, err := svc.Create(context.Background(), newBookingInput())
	require.NoError(t, err)
	assert.Equal(t, int64(77), d.ID)
	assert.Equal(t, domain.BookingPending, d.Status)
	assert.Nil(t, d.QRCodeData, "no credential before payment")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingDuplicateSeatRollsBack(t *testing.T) {
	svc, mock := bookingSvc(t, testNow)

	mock.ExpectBegin()
	mock.ExpectQuery(qSchedule).WithArgs(int64(9)).WillReturnRows(scheduleRows(40, true))
	mock.ExpectExec(qReserve).WithArgs(2, int64(9), 2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO bookings`).WillReturnResult(sqlmock.NewResult(78, 1))
	mock.ExpectExec(`INSERT INTO booking_seats`).WithArgs(int64(78), int64(9), 3).WillReturnError(mysqlDuplicate())
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), newBookingInput())
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))
	assert.Contains(t, err.Error(), "seat already booked")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingSoldOut(t *testing.T) {
	svc, mock := bookingSvc(t, testNow)

	mock.ExpectBegin()
	mock.ExpectQuery(qSchedule).WithArgs(int64(9)).WillReturnRows(scheduleRows(1, true))
	mock.ExpectExec(qReserve).WithArgs(2, int64(9), 2).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT is_active, available_seats FROM schedules`).WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"is_active", "available_seats"}).AddRow(true, 1))
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), newBookingInput())
	assert.True(t, domain.IsConflict(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingRetriesReferenceCollision(t *testing.T) {
	svc, mock := bookingSvc(t, testNow)

	mock.ExpectBegin()
	mock.ExpectQuery(qSchedule).WithArgs(int64(9)).WillReturnRows(scheduleRows(40, true))
	mock.ExpectExec(qReserve).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO bookings`).WillReturnError(mysqlDuplicate())
	mock.ExpectExec(`INSERT INTO bookings`).WillReturnResult(sqlmock.NewResult(79, 1))
	mock.ExpectExec(`INSERT INTO booking_seats`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO booking_seats`).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec(`INSERT INTO payments`).WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(qBooking).WithArgs(int64(79)).WillReturnRows(bookingRows(bookingDetail(79, domain.BookingPending)))

	d, err := svc.Create(context.Background(), newBookingInput())
	require.NoError(t, err)
	assert.Equal(t, int64(79), d.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingValidation(t *testing.T) {
	svc, mock := bookingSvc(t, testNow)

	in := newBookingInput()
	in.SeatNumbers = []int{3, 3}
	_, err := svc.Create(context.Background(), in)
	assert.True(t, domain.IsValidation(err))

	in = newBookingInput()
	in.PassengerEmail = "not-an-email"
	_, err = svc.Create(context.Background(), in)
	assert.True(t, domain.IsValidation(err))

	require.NoError(t, mock.ExpectationsWereMet(), "validation happens before any query")
}

func TestCreateBookingRejectsSeatOutsideBus(t *testing.T) {
	svc, mock := bookingSvc(t, testNow)

	mock.ExpectBegin()
	mock.ExpectQuery(qSchedule).WithArgs(int64(9)).WillReturnRows(scheduleRows(40, true))
	mock.ExpectRollback()

	in := newBookingInput()
	in.SeatNumbers = []int{41}
	_, err := svc.Create(context.Background(), in)
	assert.True(t, domain.IsValidation(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCanCancelHonoursCutoff(t *testing.T) {
	cases := []struct {
		name   string
		now    time.Time
		status domain.BookingStatus
		want   bool
	}{
		{"seven hours out", testDeparture.Add(-7 * time.Hour), domain.BookingConfirmed, true},
		{"five hours out", testDeparture.Add(-5 * time.Hour), domain.BookingConfirmed, false},
		{"exactly six hours", testDeparture.Add(-6 * time.Hour), domain.BookingConfirmed, false},
		{"pending", testDeparture.Add(-7 * time.Hour), domain.BookingPending, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, mock := bookingSvc(t, tc.now)
			mock.ExpectQuery(qBooking).WithArgs(int64(5)).WillReturnRows(bookingRows(bookingDetail(5, tc.status)))

			got, err := svc.CanCancel(context.Background(), domain.RequestContext{UserID: 2}, 5)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCancelInsideCutoffIsRejected(t *testing.T) {
	svc, mock := bookingSvc(t, testDeparture.Add(-5*time.Hour))

	mock.ExpectBegin()
	mock.ExpectQuery(qLockBooking).WithArgs(int64(5)).WillReturnRows(bookingRows(bookingDetail(5, domain.BookingConfirmed)))
	mock.ExpectRollback()

	_, err := svc.Cancel(context.Background(), domain.RequestContext{UserID: 2}, 5)
	require.Error(t, err)
	assert.True(t, domain.IsPolicy(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelConfirmedRestoresSeatsAndRefunds(t *testing.T) {
	now := testDeparture.Add(-7 * time.Hour)
	svc, mock := bookingSvc(t, now)

	mock.ExpectBegin()
	mock.ExpectQuery(qLockBooking).WithArgs(int64(5)).WillReturnRows(bookingRows(bookingDetail(5, domain.BookingConfirmed)))
	mock.ExpectExec(`UPDATE bookings SET status = \?, cancelled_at = \? WHERE id = \? AND status = \?`).
		WithArgs("cancelled", now, int64(5), "confirmed").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM booking_seats WHERE booking_id = \?`).WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(qRelease).WithArgs(2, int64(9), 2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE payments SET status = \?`).WithArgs("refunded", now, int64(5), "completed").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE operator_earnings`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	cancelled := bookingDetail(5, domain.BookingCancelled)
	mock.ExpectQuery(qBooking).WithArgs(int64(5)).WillReturnRows(bookingRows(cancelled))

	d, err := svc.Cancel(context.Background(), domain.RequestContext{UserID: 2}, 5)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, d.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelTerminalOrForeignBooking(t *testing.T) {
	svc, mock := bookingSvc(t, testNow)

	mock.ExpectBegin()
	mock.ExpectQuery(qLockBooking).WithArgs(int64(5)).WillReturnRows(bookingRows(bookingDetail(5, domain.BookingCompleted)))
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectQuery(qLockBooking).WithArgs(int64(6)).WillReturnRows(bookingRows(bookingDetail(6, domain.BookingPending)))
	mock.ExpectRollback()

	_, err := svc.Cancel(context.Background(), domain.RequestContext{UserID: 2}, 5)
	assert.True(t, domain.IsConflict(err))

	_, err = svc.Cancel(context.Background(), domain.RequestContext{UserID: 99}, 6)
	assert.True(t, domain.IsNotFound(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteRequiresConfirmed(t *testing.T) {
	svc, mock := bookingSvc(t, testNow)

	mock.ExpectQuery(qBooking).WithArgs(int64(5)).WillReturnRows(bookingRows(bookingDetail(5, domain.BookingPending)))
	_, err := svc.Complete(context.Background(), 5)
	assert.True(t, domain.IsConflict(err))

	mock.ExpectQuery(qBooking).WithArgs(int64(6)).WillReturnRows(bookingRows(bookingDetail(6, domain.BookingConfirmed)))
	mock.ExpectExec(`UPDATE bookings SET status = \?, completed_at = \?`).
		WithArgs("completed", testNow, int64(6), "confirmed").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(qBooking).WithArgs(int64(6)).WillReturnRows(bookingRows(bookingDetail(6, domain.BookingCompleted)))

	d, err := svc.Complete(context.Background(), 6)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCompleted, d.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteDepartedSkipsFutureDepartures(t *testing.T) {
	// 08:30 IST has passed; a 23:00 IST departure the same day has not.
	now := testDeparture.Add(time.Hour)
	svc, mock := bookingSvc(t, now)

	later := bookingDetail(8, domain.BookingConfirmed)
	later.DepartureTime = "23:00:00"

	mock.ExpectQuery(`SELECT bk.id\s+FROM bookings bk`).WithArgs("confirmed", "2026-03-15", completeBatchSize).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7).AddRow(8))
	mock.ExpectQuery(qBooking).WithArgs(int64(7)).WillReturnRows(bookingRows(bookingDetail(7, domain.BookingConfirmed)))
	mock.ExpectExec(`UPDATE bookings SET status = \?, completed_at = \?`).
		WithArgs("completed", now, int64(7), "confirmed").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(qBooking).WithArgs(int64(8)).WillReturnRows(bookingRows(later))

	n, err := svc.CompleteDeparted(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetHidesOtherUsersBookings(t *testing.T) {
	svc, mock := bookingSvc(t, testNow)
	mock.ExpectQuery(qBooking).WithArgs(int64(5)).WillReturnRows(bookingRows(bookingDetail(5, domain.BookingPending)))
	mock.ExpectQuery(qBooking).WithArgs(int64(5)).WillReturnRows(bookingRows(bookingDetail(5, domain.BookingPending)))
	mock.ExpectQuery(qBooking).WithArgs(int64(5)).WillReturnRows(bookingRows(bookingDetail(5, domain.BookingPending)))

	_, err := svc.Get(context.Background(), domain.RequestContext{UserID: 3, Role: domain.RolePassenger}, 5)
	assert.True(t, domain.IsNotFound(err))

	_, err = svc.Get(context.Background(), domain.RequestContext{UserID: 11, Role: domain.RoleOperator}, 5)
	assert.NoError(t, err, "operator of the bus can view")

	_, err = svc.Get(context.Background(), domain.RequestContext{UserID: 1, Role: domain.RoleAdmin}, 5)
	assert.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
