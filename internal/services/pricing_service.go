package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"busticket/internal/domain"
	"busticket/internal/domain/models"
	"busticket/internal/repositories"
	"busticket/internal/utils"

	"github.com/shopspring/decimal"
)

const maxSeatsPerBooking = 10

type PricingService struct {
	Schedules repositories.ScheduleRepository
	Coupons   repositories.CouponRepository
	Now       func() time.Time
}

// Quote prices seats on a schedule, applying couponCode when given.
func (s PricingService) Quote(ctx context.Context, scheduleID int64, seats int, couponCode string) (models.Quote, error) {
	if seats < 1 || seats > maxSeatsPerBooking {
		return models.Quote{}, domain.ValidationError{Field: "seats", Msg: "must be between 1 and 10"}
	}
	d, err := s.Schedules.GetDetail(ctx, scheduleID)
	if err != nil {
		return models.Quote{}, notFoundOr("schedule", err)
	}
	return s.quoteFor(ctx, d, seats, couponCode)
}

func (s PricingService) quoteFor(ctx context.Context, d models.ScheduleDetail, seats int, couponCode string) (models.Quote, error) {
	base := utils.ComputeFare(d.FarePerKm, d.DistanceKm, seats)
	q := models.Quote{
		ScheduleID: d.ID,
		Seats:      seats,
		BaseFare:   base,
		Discount:   decimal.Zero,
		TotalFare:  base,
	}
	code := strings.ToUpper(strings.TrimSpace(couponCode))
	if code == "" {
		return q, nil
	}
	if !base.IsPositive() {
		return models.Quote{}, domain.ValidationError{Field: "coupon", Msg: "coupons apply to priced routes only"}
	}

	c, err := s.Coupons.GetByCode(ctx, code)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Quote{}, domain.ValidationError{Field: "coupon", Msg: "unknown coupon"}
	}
	if err != nil {
		return models.Quote{}, domain.InternalError{Msg: "load coupon", Err: err}
	}
	discount, err := CouponDiscount(c, base, nowOr(s.Now))
	if err != nil {
		return models.Quote{}, err
	}
	id := c.ID
	q.CouponCode = c.Code
	q.CouponID = &id
	q.Discount = discount
	q.TotalFare = base.Sub(discount)
	return q, nil
}

// CouponDiscount returns the amount c takes off fare at now.
func CouponDiscount(c models.Coupon, fare decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	switch {
	case !c.IsActive:
		return decimal.Zero, domain.ValidationError{Field: "coupon", Msg: "coupon is not active"}
	case c.ValidFrom != nil && now.Before(*c.ValidFrom):
		return decimal.Zero, domain.ValidationError{Field: "coupon", Msg: "coupon is not valid yet"}
	case c.ValidUntil != nil && now.After(*c.ValidUntil):
		return decimal.Zero, domain.ValidationError{Field: "coupon", Msg: "coupon has expired"}
	case c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit:
		return decimal.Zero, domain.ConflictError{Resource: "coupon", Msg: "usage limit reached"}
	case fare.LessThan(c.MinFare):
		return decimal.Zero, domain.ValidationError{Field: "coupon", Msg: "fare is below the coupon minimum"}
	}

	var discount decimal.Decimal
	switch c.DiscountType {
	case models.DiscountPercentage:
		discount = fare.Mul(c.DiscountValue).Div(decimal.NewFromInt(100))
		if c.MaxDiscount.IsPositive() && discount.GreaterThan(c.MaxDiscount) {
			discount = c.MaxDiscount
		}
	case models.DiscountFixed:
		discount = c.DiscountValue
	default:
		return decimal.Zero, domain.ValidationError{Field: "coupon", Msg: "unsupported discount type"}
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(fare) {
		discount = fare
	}
	return discount.Round(2), nil
}
