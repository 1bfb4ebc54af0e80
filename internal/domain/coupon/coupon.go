package coupon

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates the supported discount strategies.
type Type string

const (
	// TypePercentage discounts a percentage of the order amount, optionally
	// clamped by MaximumDiscount.
	TypePercentage Type = "percentage"
	// TypeFixed discounts a fixed amount, never more than the order amount.
	TypeFixed Type = "fixed"
)

var (
	// ErrNotFound is returned when no coupon exists for a code.
	ErrNotFound = errors.New("invalid coupon code")
	// ErrInactive is returned when a coupon has been switched off.
	ErrInactive = errors.New("coupon is inactive")
	// ErrNotYetActive is returned when the validity window has not opened.
	ErrNotYetActive = errors.New("coupon is not yet active")
	// ErrExpired is returned when the validity window has closed.
	ErrExpired = errors.New("coupon has expired")
	// ErrUsageLimitReached is returned when the usage counter hit the limit.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
	// ErrDuplicateCode is returned when creating a coupon whose code exists.
	ErrDuplicateCode = errors.New("coupon code already exists")
)

// MinimumAmountError indicates the order amount is below the coupon's floor.
type MinimumAmountError struct {
	Minimum decimal.Decimal
}

func (e *MinimumAmountError) Error() string {
	return fmt.Sprintf("minimum order amount of Rs. %s required for this coupon", e.Minimum)
}

// Coupon is a discount code with its constraints and usage state.
// Codes are stored uppercase; lookups uppercase the input so matching is
// case-insensitive.
type Coupon struct {
	Code            string
	Description     string
	Type            Type
	Value           decimal.Decimal
	MinimumAmount   decimal.Decimal
	MaximumDiscount *decimal.Decimal
	UsageLimit      int // 0 means unlimited
	UsedCount       int
	ValidFrom       time.Time
	ValidUntil      time.Time
	Active          bool
	Categories      []string // empty means all categories
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CheckValid reports why the coupon cannot be used at the given instant, or
// nil when it is usable. Ordering matches the reasons surfaced to clients:
// inactive, not yet active, expired, usage limit.
func (c *Coupon) CheckValid(now time.Time) error {
	if !c.Active {
		return ErrInactive
	}
	if now.Before(c.ValidFrom) {
		return ErrNotYetActive
	}
	if now.After(c.ValidUntil) {
		return ErrExpired
	}
	if c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit {
		return ErrUsageLimitReached
	}
	return nil
}

// Discount computes the discount for the given order amount, rounded to two
// decimal places. The amount is assumed to already satisfy MinimumAmount.
func (c *Coupon) Discount(amount decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch c.Type {
	case TypePercentage:
		d = amount.Mul(c.Value).Div(hundred)
		if c.MaximumDiscount != nil && d.GreaterThan(*c.MaximumDiscount) {
			d = *c.MaximumDiscount
		}
	case TypeFixed:
		d = decimal.Min(c.Value, amount)
	}
	return d.Round(2)
}

var hundred = decimal.NewFromInt(100)

// Repository provides lookup and mutation of coupons.
type Repository interface {
	// FindByCode looks up a coupon case-insensitively. Returns ErrNotFound
	// when no coupon has the code.
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	// Create persists a new coupon. Returns ErrDuplicateCode on a code clash.
	Create(ctx context.Context, c *Coupon) error
	// ListActive returns coupons currently usable (active, inside their
	// window, under their usage limit).
	ListActive(ctx context.Context) ([]Coupon, error)
	// IncrementUsage bumps the usage counter by one, guarded so the counter
	// never exceeds the usage limit. Returns ErrUsageLimitReached when the
	// guard rejects the increment.
	IncrementUsage(ctx context.Context, code string) error
}
