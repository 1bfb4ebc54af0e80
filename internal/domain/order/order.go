package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/nazakat/storefront/internal/domain/cart"
	"github.com/nazakat/storefront/internal/domain/coupon"
	"github.com/nazakat/storefront/internal/domain/product"
)

// Method enumerates the accepted payment methods.
type Method string

const (
	// MethodOnline routes payment through the hosted gateway page.
	MethodOnline Method = "online"
	// MethodCOD is cash on delivery.
	MethodCOD Method = "cod"
)

// ParseMethod validates a raw payment method string.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodOnline, MethodCOD:
		return Method(s), nil
	}
	return "", ErrInvalidMethod
}

// Status is an order's lifecycle state. Online orders start in
// StatusPendingPayment and move to StatusPaid or StatusPaymentFailed on the
// gateway callback; COD orders start and stay in StatusPlaced. No
// transition ever returns an order to StatusPendingPayment.
type Status string

const (
	StatusPendingPayment Status = "Pending Payment"
	StatusPlaced         Status = "Order Placed"
	StatusPaid           Status = "Paid"
	StatusPaymentFailed  Status = "Payment Failed"
)

var (
	// ErrInvalidMethod is returned for a payment method outside the set.
	ErrInvalidMethod = errors.New("invalid payment method")
	// ErrEmptyCart is returned when checkout finds no cart or no items.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrNotFound is returned when an order reference is unknown.
	ErrNotFound = errors.New("order not found")
	// ErrAlreadyFinal is returned by the guarded status update when the
	// order is no longer in the expected source state.
	ErrAlreadyFinal = errors.New("order already in a final state")
)

// Customer is the contact and delivery information captured at checkout.
type Customer struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
}

// Item is a cart line copied into the order snapshot. Values are copied, not
// referenced: later cart or price changes never affect a placed order.
type Item struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	Tier      product.Tier    `json:"pieceOption"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Total     decimal.Decimal `json:"totalPrice"`
}

// PaymentDetails is the gateway metadata attached after the callback.
type PaymentDetails struct {
	GatewayPaymentID string          `json:"pfPaymentId,omitempty"`
	Method           string          `json:"paymentMethod,omitempty"`
	PaidAmount       decimal.Decimal `json:"paidAmount,omitempty"`
	PaidAt           *time.Time      `json:"paidAt,omitempty"`
	FailureReason    string          `json:"failureReason,omitempty"`
	FailedAt         *time.Time      `json:"failedAt,omitempty"`
}

// Order is an immutable snapshot of a cart at checkout time. Total is always
// Subtotal minus Discount and never negative. After reaching a terminal
// status only payment metadata is attached.
type Order struct {
	ID        string             `json:"orderId"`
	UserID    string             `json:"userId"`
	Items     []Item             `json:"items"`
	Subtotal  decimal.Decimal    `json:"subtotal"`
	Discount  decimal.Decimal    `json:"discount"`
	Total     decimal.Decimal    `json:"totalAmount"`
	Method    Method             `json:"paymentMethod"`
	Status    Status             `json:"orderStatus"`
	Customer  Customer           `json:"customerInfo"`
	Coupon    *coupon.Redemption `json:"couponUsed,omitempty"`
	Payment   *PaymentDetails    `json:"paymentDetails,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	// GetByID returns ErrNotFound for an unknown order reference.
	GetByID(ctx context.Context, id string) (*Order, error)
	// UpdateStatus transitions an order from the expected current status,
	// attaching the given payment details. Returns ErrAlreadyFinal when
	// the order is not in the expected status, ErrNotFound when the order
	// does not exist.
	UpdateStatus(ctx context.Context, id string, from, to Status, details *PaymentDetails) error
}

func snapshotItems(lines []cart.Line) []Item {
	items := make([]Item, len(lines))
	for i, l := range lines {
		items[i] = Item{
			ProductID: l.ProductID,
			Name:      l.Name,
			Image:     l.Image,
			Tier:      l.Tier,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			Total:     l.Total,
		}
	}
	return items
}
