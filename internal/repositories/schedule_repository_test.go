package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (sqlmock.Sqlmock, func() ScheduleRepository) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return mock, func() ScheduleRepository { return ScheduleRepository{DB: db} }
}

func TestTryReserveLastSeatOnlyOnce(t *testing.T) {
	mock, repo := newMock(t)

	// Two callers race for the last seat; the store applies the guarded
	// decrement to exactly one of them.
	mock.ExpectExec(`UPDATE schedules\s+SET available_seats = available_seats - \?\s+WHERE id = \? AND is_active = 1 AND available_seats >= \?`).
		WithArgs(1, int64(9), 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE schedules\s+SET available_seats = available_seats - \?`).
		WithArgs(1, int64(9), 1).WillReturnResult(sqlmock.NewResult(0, 0))

	first, err := repo().TryReserve(context.Background(), 9, 1)
	require.NoError(t, err)
	second, err := repo().TryReserve(context.Background(), 9, 1)
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseIsGuardedByTotal(t *testing.T) {
	mock, repo := newMock(t)

	mock.ExpectExec(`UPDATE schedules\s+SET available_seats = available_seats \+ \?\s+WHERE id = \? AND available_seats \+ \? <= total_seats`).
		WithArgs(3, int64(4), 3).WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo().Release(context.Background(), 4, 3)
	require.NoError(t, err)
	assert.False(t, ok, "release beyond total must not apply")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleState(t *testing.T) {
	mock, repo := newMock(t)

	mock.ExpectQuery("SELECT is_active, available_seats FROM schedules").WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"is_active", "available_seats"}).AddRow(false, 12))
	mock.ExpectQuery("SELECT is_active, available_seats FROM schedules").WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"is_active", "available_seats"}))

	exists, active, available, err := repo().State(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.False(t, active)
	assert.Equal(t, 12, available)

	exists, _, _, err = repo().State(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchSchedules(t *testing.T) {
	mock, repo := newMock(t)
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	cols := []string{"id", "bus_id", "route_id", "departure_date", "total_seats", "available_seats", "is_active",
		"operator_id", "bus_name", "departure_time", "arrival_time", "fare_per_km", "source", "destination", "distance_km"}
	mock.ExpectQuery(`FROM schedules s\s+JOIN buses b .* WHERE s.is_active = 1 AND b.is_active = 1 AND s.departure_date = \? AND r.source = \? AND r.destination = \?`).
		WithArgs("2026-03-14", "Pune", "Mumbai").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(1, 3, 5, day, 40, 38, true, 11, "Volvo AC", "08:30:00", "12:00:00", "1.50", "Pune", "Mumbai", "150.00"))

	out, err := repo().Search(context.Background(), " Pune ", "Mumbai", day)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 38, out[0].AvailableSeats)
	assert.Equal(t, "08:30:00", out[0].DepartureTime)
	assert.Equal(t, "225", out[0].FarePerKm.Mul(out[0].DistanceKm).String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateScheduleStartsFull(t *testing.T) {
	mock, repo := newMock(t)
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO schedules").WithArgs(int64(3), int64(5), "2026-03-14", 40, 40).
		WillReturnResult(sqlmock.NewResult(77, 1))

	id, err := repo().Create(context.Background(), scheduleFixture(day))
	require.NoError(t, err)
	assert.Equal(t, int64(77), id)
	require.NoError(t, mock.ExpectationsWereMet())
}
