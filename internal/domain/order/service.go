package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nazakat/storefront/internal/domain/cart"
	"github.com/nazakat/storefront/internal/domain/coupon"
)

// gatewayStatusComplete is the gateway's terminal success status. Any other
// callback status marks the payment as failed.
const gatewayStatusComplete = "COMPLETE"

// CouponRedeemer validates a coupon against an order amount and consumes one
// use on success.
type CouponRedeemer interface {
	Redeem(ctx context.Context, code string, amount decimal.Decimal) (*coupon.Redemption, error)
}

// Notifier dispatches customer notifications. Implementations must never
// block the caller; delivery is best-effort.
type Notifier interface {
	OrderPlaced(o *Order)
	PaymentConfirmed(o *Order)
}

// PlaceRequest holds the checkout input.
type PlaceRequest struct {
	UserID     string
	Customer   Customer
	Method     Method
	CouponCode string
}

// GatewayResult is the outcome of a verified gateway callback.
type GatewayResult struct {
	OrderID          string
	PaymentStatus    string
	GatewayPaymentID string
	Amount           decimal.Decimal
}

// Service builds orders from carts and reconciles their status against
// gateway callbacks.
type Service struct {
	orders   Repository
	carts    cart.Repository
	coupons  CouponRedeemer
	notifier Notifier
	now      func() time.Time
}

// NewService creates an order Service.
func NewService(orders Repository, carts cart.Repository, coupons CouponRedeemer, notifier Notifier) *Service {
	return &Service{
		orders:   orders,
		carts:    carts,
		coupons:  coupons,
		notifier: notifier,
		now:      time.Now,
	}
}

// Place converts the user's cart into an order. The coupon (when supplied)
// is redeemed against the freshly computed subtotal, the order is persisted,
// and only then is the cart cleared, so a mid-flight failure never loses the
// cart contents. The confirmation notification for COD orders is dispatched
// fire-and-forget.
func (s *Service) Place(ctx context.Context, req PlaceRequest) (*Order, error) {
	if err := req.Method.validate(); err != nil {
		return nil, err
	}
	if err := cart.CheckUserID(req.UserID); err != nil {
		return nil, err
	}

	c, err := s.carts.Get(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			return nil, ErrEmptyCart
		}
		return nil, errors.Wrap(err, "get cart")
	}
	if len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}

	subtotal := c.Subtotal()

	var redemption *coupon.Redemption
	discount := decimal.Zero
	if req.CouponCode != "" {
		redemption, err = s.coupons.Redeem(ctx, req.CouponCode, subtotal)
		if err != nil {
			return nil, err
		}
		discount = redemption.Amount
	}

	now := s.now()
	o := &Order{
		ID:        uuid.New().String(),
		UserID:    req.UserID,
		Items:     snapshotItems(c.Items),
		Subtotal:  subtotal,
		Discount:  discount,
		Total:     subtotal.Sub(discount),
		Method:    req.Method,
		Status:    initialStatus(req.Method),
		Customer:  req.Customer,
		Coupon:    redemption,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	// The order exists; losing the cart from here on is acceptable.
	if err := s.carts.Clear(ctx, req.UserID); err != nil {
		return nil, errors.Wrap(err, "clear cart")
	}

	if req.Method == MethodCOD {
		s.notifier.OrderPlaced(o)
	}

	return o, nil
}

// Get returns an order by its identifier.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get order")
	}
	return o, nil
}

// ApplyGatewayResult applies a verified callback outcome to the referenced
// order. The transition is guarded on the order still being in Pending
// Payment: a repeated callback for an already settled order is acknowledged
// without re-applying anything.
func (s *Service) ApplyGatewayResult(ctx context.Context, res GatewayResult) (*Order, error) {
	o, err := s.orders.GetByID(ctx, res.OrderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get order")
	}

	now := s.now()

	if res.PaymentStatus == gatewayStatusComplete {
		details := &PaymentDetails{
			GatewayPaymentID: res.GatewayPaymentID,
			Method:           "PayFast",
			PaidAmount:       res.Amount,
			PaidAt:           &now,
		}
		err = s.orders.UpdateStatus(ctx, o.ID, StatusPendingPayment, StatusPaid, details)
		if err != nil {
			if errors.Is(err, ErrAlreadyFinal) {
				return o, nil
			}
			return nil, errors.Wrap(err, "mark order paid")
		}
		o.Status = StatusPaid
		o.Payment = details

		if err := s.carts.Clear(ctx, o.UserID); err != nil {
			return nil, errors.Wrap(err, "clear cart")
		}
		s.notifier.PaymentConfirmed(o)
		return o, nil
	}

	details := &PaymentDetails{
		Method:        "PayFast",
		FailureReason: "Payment status: " + res.PaymentStatus,
		FailedAt:      &now,
	}
	err = s.orders.UpdateStatus(ctx, o.ID, StatusPendingPayment, StatusPaymentFailed, details)
	if err != nil {
		if errors.Is(err, ErrAlreadyFinal) {
			return o, nil
		}
		return nil, errors.Wrap(err, "mark order failed")
	}
	o.Status = StatusPaymentFailed
	o.Payment = details
	return o, nil
}

func (m Method) validate() error {
	switch m {
	case MethodOnline, MethodCOD:
		return nil
	}
	return ErrInvalidMethod
}

func initialStatus(m Method) Status {
	if m == MethodCOD {
		return StatusPlaced
	}
	return StatusPendingPayment
}
