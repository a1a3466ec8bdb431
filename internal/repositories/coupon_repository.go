package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	intdb "busticket/internal/db"
	"busticket/internal/domain/models"
)

type CouponRepository struct {
	DB intdb.DBTX
}

func (r CouponRepository) db() intdb.DBTX { return conn(r.DB) }

// GetByCode looks a coupon up case-insensitively. Returns sql.ErrNoRows when unknown.
func (r CouponRepository) GetByCode(ctx context.Context, code string) (models.Coupon, error) {
	var (
		c          models.Coupon
		usageLimit sql.NullInt64
		from, to   sql.NullTime
	)
	err := r.db().QueryRowContext(ctx, `
		SELECT id, code, discount_type, discount_value, max_discount, min_fare,
		       usage_limit, used_count, valid_from, valid_until, is_active
		FROM coupons WHERE code = ? LIMIT 1
	`, strings.ToUpper(strings.TrimSpace(code))).Scan(
		&c.ID, &c.Code, &c.DiscountType, &c.DiscountValue, &c.MaxDiscount, &c.MinFare,
		&usageLimit, &c.UsedCount, &from, &to, &c.IsActive,
	)
	if err != nil {
		return models.Coupon{}, fmt.Errorf("get coupon %q: %w", code, err)
	}
	if usageLimit.Valid {
		n := int(usageLimit.Int64)
		c.UsageLimit = &n
	}
	c.ValidFrom = nullTime(from)
	c.ValidUntil = nullTime(to)
	return c, nil
}

// Redeem increments used_count unless the usage limit is reached.
func (r CouponRepository) Redeem(ctx context.Context, id int64) (bool, error) {
	ok, err := affectedOne(r.db().ExecContext(ctx, `
		UPDATE coupons
		SET used_count = used_count + 1
		WHERE id = ? AND is_active = 1 AND (usage_limit IS NULL OR used_count < usage_limit)
	`, id))
	if err != nil {
		return false, fmt.Errorf("redeem coupon %d: %w", id, err)
	}
	return ok, nil
}
