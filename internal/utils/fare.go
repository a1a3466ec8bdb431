package utils

import "github.com/shopspring/decimal"

// ComputeFare prices a journey as fare_per_km * distance * seats, rounded to paise.
// A zero result means the route has no distance-based pricing.
func ComputeFare(farePerKm, distanceKm decimal.Decimal, seats int) decimal.Decimal {
	if seats <= 0 || !farePerKm.IsPositive() || !distanceKm.IsPositive() {
		return decimal.Zero
	}
	return farePerKm.Mul(distanceKm).Mul(decimal.NewFromInt(int64(seats))).Round(2)
}
