package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// GenerateDigits returns n random decimal digits.
func GenerateDigits(n int) (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
	v, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", n, v.Int64()), nil
}

// BookingReference builds "BUS-YYYYMMDD-NNNN" for the given day.
func BookingReference(day time.Time) (string, error) {
	suffix, err := GenerateDigits(4)
	if err != nil {
		return "", err
	}
	return "BUS-" + day.Format("20060102") + "-" + suffix, nil
}
