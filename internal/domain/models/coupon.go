package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

type Coupon struct {
	ID            int64
	Code          string
	DiscountType  string
	DiscountValue decimal.Decimal
	MaxDiscount   decimal.Decimal
	MinFare       decimal.Decimal
	UsageLimit    *int
	UsedCount     int
	ValidFrom     *time.Time
	ValidUntil    *time.Time
	IsActive      bool
}
