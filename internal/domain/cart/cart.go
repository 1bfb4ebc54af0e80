package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/nazakat/storefront/internal/domain/product"
)

var (
	// ErrUnauthenticated is returned when an operation arrives without a
	// usable user identifier.
	ErrUnauthenticated = errors.New("user authentication required")
	// ErrNotFound is returned by repositories when no cart row exists for a
	// user. The service layer synthesizes an empty cart instead of
	// surfacing it.
	ErrNotFound = errors.New("cart not found")
	// ErrLineNotFound is returned when an update targets a line that is not
	// in the cart.
	ErrLineNotFound = errors.New("product not found in cart")
	// ErrInsufficientStock is returned when a change would exceed the
	// tier's available stock.
	ErrInsufficientStock = errors.New("not enough stock available")
	// ErrOutOfStock is returned when the selected tier has no stock at all.
	ErrOutOfStock = errors.New("piece option is out of stock")
	// ErrQuantityFloor is returned when a decrement would take a line below
	// quantity one. The line stays; removal is a separate operation.
	ErrQuantityFloor = errors.New("quantity cannot be less than 1")
	// ErrInvalidQuantity is returned when a set targets a non-positive
	// quantity.
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
)

// Line is one (product, tier) entry in a cart.
type Line struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	Tier      product.Tier    `json:"pieceOption"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Total     decimal.Decimal `json:"totalPrice"`
}

// Cart holds the line items for one user. At most one line exists per
// (product, tier) pair; duplicate adds merge into the existing line.
type Cart struct {
	UserID string `json:"userId"`
	Items  []Line `json:"items"`
}

// Subtotal is the sum of all line totals.
func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.Items {
		sum = sum.Add(l.Total)
	}
	return sum
}

// Find returns a pointer to the line matching (productID, tier), or nil.
func (c *Cart) Find(productID string, tier product.Tier) *Line {
	for i := range c.Items {
		if c.Items[i].ProductID == productID && c.Items[i].Tier == tier {
			return &c.Items[i]
		}
	}
	return nil
}

func intDecimal(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}

// Repository defines persistence for carts. Carts are keyed by user ID and
// stored as a single document per user.
type Repository interface {
	// Get returns the cart for a user, or ErrNotFound when none exists.
	Get(ctx context.Context, userID string) (*Cart, error)
	// Save upserts the full cart document.
	Save(ctx context.Context, c *Cart) error
	// Clear empties the item list of an existing cart. Clearing a cart
	// that does not exist is a no-op.
	Clear(ctx context.Context, userID string) error
}
