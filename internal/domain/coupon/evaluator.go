package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Quote is the discount breakdown for a coupon applied to an order amount.
type Quote struct {
	Code            string
	Description     string
	Type            Type
	Value           decimal.Decimal
	Amount          decimal.Decimal
	MinimumAmount   decimal.Decimal
	MaximumDiscount *decimal.Decimal
}

// Redemption is the snapshot recorded on an order when a coupon is consumed.
type Redemption struct {
	Code   string          `json:"code"`
	Type   Type            `json:"discountType"`
	Value  decimal.Decimal `json:"discountValue"`
	Amount decimal.Decimal `json:"discountAmount"`
}

// Evaluator validates coupon codes against order amounts and computes
// discounts. Quote is read-only; Redeem additionally consumes one use.
type Evaluator struct {
	repo Repository
	now  func() time.Time
}

// NewEvaluator creates an Evaluator backed by the given Repository.
func NewEvaluator(repo Repository) *Evaluator {
	return &Evaluator{repo: repo, now: time.Now}
}

// Quote checks a code against an order amount and returns the discount
// breakdown without touching the usage counter.
func (e *Evaluator) Quote(ctx context.Context, code string, amount decimal.Decimal) (*Quote, error) {
	c, err := e.lookup(ctx, code, amount)
	if err != nil {
		return nil, err
	}
	return &Quote{
		Code:            c.Code,
		Description:     c.Description,
		Type:            c.Type,
		Value:           c.Value,
		Amount:          c.Discount(amount),
		MinimumAmount:   c.MinimumAmount,
		MaximumDiscount: c.MaximumDiscount,
	}, nil
}

// Redeem validates a code against an order amount and consumes one use.
// The increment is a single guarded write, so two racing redemptions of a
// nearly exhausted coupon cannot push the counter past its limit.
func (e *Evaluator) Redeem(ctx context.Context, code string, amount decimal.Decimal) (*Redemption, error) {
	c, err := e.lookup(ctx, code, amount)
	if err != nil {
		return nil, err
	}

	if err := e.repo.IncrementUsage(ctx, c.Code); err != nil {
		if errors.Is(err, ErrUsageLimitReached) {
			return nil, ErrUsageLimitReached
		}
		return nil, errors.Wrap(err, "increment coupon usage")
	}

	return &Redemption{
		Code:   c.Code,
		Type:   c.Type,
		Value:  c.Value,
		Amount: c.Discount(amount),
	}, nil
}

func (e *Evaluator) lookup(ctx context.Context, code string, amount decimal.Decimal) (*Coupon, error) {
	c, err := e.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	if err := c.CheckValid(e.now()); err != nil {
		return nil, err
	}
	if amount.LessThan(c.MinimumAmount) {
		return nil, &MinimumAmountError{Minimum: c.MinimumAmount}
	}
	return c, nil
}
