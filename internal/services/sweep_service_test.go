package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var expiredCols = []string{"id", "schedule_id", "seat_count", "created_at"}

func TestReleaseExpiredRestoresExactSeatCounts(t *testing.T) {
	// Scenario: booking 1 held 2 seats and expired; booking 2 was confirmed
	// between the listing and the guarded cancel and must stay untouched.
	db, mock := newDB(t)
	now := testNow.Add(16 * time.Minute)
	svc := SweepService{DB: db, Now: fixedNow(now)}

	mock.ExpectQuery(`FROM bookings\s+WHERE status = \? AND payment_verified = 0 AND created_at < \?`).
		WithArgs("pending", now.Add(-15*time.Minute), sweepBatchSize).
		WillReturnRows(sqlmock.NewRows(expiredCols).AddRow(1, 9, 2, testNow).AddRow(2, 9, 1, testNow))

	mock.ExpectBegin()
	mock.ExpectExec(`payment_verified = 0`).WithArgs("cancelled", now, int64(1), "pending").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM booking_seats`).WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(qRelease).WithArgs(2, int64(9), 2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE payments SET status = \?`).WithArgs("failed", now, int64(1), "pending").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectExec(`payment_verified = 0`).WithArgs("cancelled", now, int64(2), "pending").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	released, err := svc.ReleaseExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, released)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseExpiredSkipsFailingRows(t *testing.T) {
	db, mock := newDB(t)
	now := testNow.Add(time.Hour)
	svc := SweepService{DB: db, Now: fixedNow(now), HoldTimeout: 30 * time.Minute, BatchSize: 10}

	mock.ExpectQuery(`FROM bookings`).WithArgs("pending", now.Add(-30*time.Minute), 10).
		WillReturnRows(sqlmock.NewRows(expiredCols).AddRow(1, 9, 2, testNow).AddRow(2, 9, 1, testNow))

	mock.ExpectBegin()
	mock.ExpectExec(`payment_verified = 0`).WithArgs("cancelled", now, int64(1), "pending").WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectRollback()

	mock.ExpectBegin()
	mock.ExpectExec(`payment_verified = 0`).WithArgs("cancelled", now, int64(2), "pending").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM booking_seats`).WithArgs(int64(2)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(qRelease).WithArgs(1, int64(9), 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE payments SET status = \?`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	released, err := svc.ReleaseExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, released)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseExpiredRollsBackWhenCapacityWouldOverflow(t *testing.T) {
	db, mock := newDB(t)
	now := testNow.Add(time.Hour)
	svc := SweepService{DB: db, Now: fixedNow(now)}

	mock.ExpectQuery(`FROM bookings`).WillReturnRows(sqlmock.NewRows(expiredCols).AddRow(1, 9, 2, testNow))
	mock.ExpectBegin()
	mock.ExpectExec(`payment_verified = 0`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM booking_seats`).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(qRelease).WithArgs(2, int64(9), 2).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	released, err := svc.ReleaseExpired(context.Background())
	require.NoError(t, err)
	assert.Zero(t, released)
	require.NoError(t, mock.ExpectationsWereMet())
}
