package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/nazakat/storefront/internal/domain/coupon"
)

const (
	couponColumns = `code, description, discount_type, discount_value, minimum_amount,
		maximum_discount, usage_limit, used_count, valid_from, valid_until, active,
		categories, created_at, updated_at`

	getCouponByCodeSQL = `SELECT ` + couponColumns + `
		FROM coupons WHERE code = UPPER($1)`

	listActiveCouponsSQL = `SELECT ` + couponColumns + `
		FROM coupons
		WHERE active = TRUE
		  AND valid_from <= now()
		  AND valid_until >= now()
		  AND (usage_limit = 0 OR used_count < usage_limit)
		ORDER BY code`

	insertCouponSQL = `INSERT INTO coupons (code, description, discount_type, discount_value,
		minimum_amount, maximum_discount, usage_limit, valid_from, valid_until, active, categories)
		VALUES (UPPER($1), $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	// The guard repeats the usage-limit predicate so two racing redemptions
	// cannot push the counter past its limit.
	incrementCouponUsageSQL = `UPDATE coupons
		SET used_count = used_count + 1, updated_at = now()
		WHERE code = UPPER($1) AND (usage_limit = 0 OR used_count < usage_limit)`
)

// uniqueViolation is the PostgreSQL error code for duplicate keys.
const uniqueViolation = "23505"

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
// Codes are stored uppercase; every query uppercases its parameter so
// lookups are case-insensitive.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its code (case-insensitive).
// Returns coupon.ErrNotFound when no coupon has the code.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// Create persists a new coupon. Returns coupon.ErrDuplicateCode when the
// code already exists.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	categoriesJSON, err := json.Marshal(c.Categories)
	if err != nil {
		return fmt.Errorf("marshaling coupon categories: %w", err)
	}

	_, err = r.pool.Exec(ctx, insertCouponSQL,
		c.Code, c.Description, string(c.Type), c.Value, c.MinimumAmount,
		c.MaximumDiscount, c.UsageLimit, c.ValidFrom, c.ValidUntil, c.Active, categoriesJSON,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return coupon.ErrDuplicateCode
		}
		return fmt.Errorf("creating coupon %q: %w", c.Code, err)
	}
	return nil
}

// ListActive returns coupons that are currently usable.
func (r *CouponRepository) ListActive(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listActiveCouponsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing active coupons: %w", err)
	}
	return pgx.CollectRows(rows, scanCoupon)
}

// IncrementUsage bumps the usage counter by one. The WHERE clause rejects
// the increment once the limit is reached, in which case
// coupon.ErrUsageLimitReached is returned.
func (r *CouponRepository) IncrementUsage(ctx context.Context, code string) error {
	tag, err := r.pool.Exec(ctx, incrementCouponUsageSQL, code)
	if err != nil {
		return fmt.Errorf("incrementing usage for coupon %q: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrUsageLimitReached
	}
	return nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c              coupon.Coupon
		discountType   string
		maxDiscount    *decimal.Decimal
		categoriesJSON []byte
	)
	err := row.Scan(
		&c.Code, &c.Description, &discountType, &c.Value, &c.MinimumAmount,
		&maxDiscount, &c.UsageLimit, &c.UsedCount, &c.ValidFrom, &c.ValidUntil,
		&c.Active, &categoriesJSON, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return c, err
	}
	c.Type = coupon.Type(discountType)
	c.MaximumDiscount = maxDiscount

	if err := json.Unmarshal(categoriesJSON, &c.Categories); err != nil {
		return c, fmt.Errorf("unmarshaling coupon categories: %w", err)
	}
	return c, nil
}
