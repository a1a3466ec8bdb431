package utils

import (
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingReferenceFormat(t *testing.T) {
	day := time.Date(2026, 1, 15, 23, 0, 0, 0, time.UTC)
	re := regexp.MustCompile(`^BUS-20260115-\d{4}$`)
	for i := 0; i < 50; i++ {
		ref, err := BookingReference(day)
		require.NoError(t, err)
		assert.Regexp(t, re, ref)
	}
}

func TestComputeFare(t *testing.T) {
	fare := ComputeFare(decimal.RequireFromString("1.25"), decimal.RequireFromString("148.6"), 3)
	assert.Equal(t, "557.25", fare.StringFixed(2))
	assert.True(t, ComputeFare(decimal.Zero, decimal.NewFromInt(100), 2).IsZero())
	assert.True(t, ComputeFare(decimal.NewFromInt(2), decimal.NewFromInt(100), 0).IsZero())
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(45050), ToMinorUnits(decimal.RequireFromString("450.50")))
	assert.Equal(t, int64(1), ToMinorUnits(decimal.RequireFromString("0.005")))
	assert.Equal(t, "450.5", FromMinorUnits(45050).String())
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "INR 1,234,567.50", FormatMoney("inr", decimal.RequireFromString("1234567.5")))
	assert.Equal(t, "INR 0.00", FormatMoney("INR", decimal.Zero))
	assert.Equal(t, "INR -12.00", FormatMoney("INR", decimal.NewFromInt(-12)))
}

func TestDepartureAt(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	at, err := DepartureAt(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), "08:30:00", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 14, 3, 0, 0, 0, time.UTC), at.UTC())

	_, err = DepartureAt(time.Now(), "8.30", loc)
	assert.Error(t, err)
}

func TestJoinSeatsAndFilename(t *testing.T) {
	assert.Equal(t, "3, 4", JoinSeats([]int{3, 4}))
	assert.Equal(t, "BUS-1_A", SafeFilenamePart("BUS-1/A"))
	assert.Equal(t, "NA", SafeFilenamePart("  "))
}
