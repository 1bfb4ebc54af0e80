package cart

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/nazakat/storefront/internal/domain/product"
)

// UpdateMode selects how Update changes a line's quantity.
type UpdateMode string

const (
	// ModeSet assigns an absolute quantity.
	ModeSet UpdateMode = "set"
	// ModeIncrement adds one, bounded by stock.
	ModeIncrement UpdateMode = "increment"
	// ModeDecrement subtracts one, floored at one.
	ModeDecrement UpdateMode = "decrement"
)

// InvalidModeError indicates an update mode outside the known set.
type InvalidModeError struct {
	Mode string
}

func (e *InvalidModeError) Error() string {
	return "invalid mode " + e.Mode + `: use "increment", "decrement", or "set" with quantity`
}

// Service maintains per-user carts. Every mutating operation resolves the
// product first so quantities are always checked against the tier's current
// stock counter, and returns the full updated cart.
type Service struct {
	carts    Repository
	products product.Repository
}

// NewService creates a cart Service.
func NewService(carts Repository, products product.Repository) *Service {
	return &Service{carts: carts, products: products}
}

// CheckUserID rejects missing identifiers before any storage access. The
// storefront client historically serialized absent identifiers as the
// literal strings "null" and "undefined", so those are rejected too.
func CheckUserID(userID string) error {
	if userID == "" || userID == "null" || userID == "undefined" {
		return ErrUnauthenticated
	}
	return nil
}

// Get returns the user's cart. A user with no cart row gets a synthesized
// empty cart, never an error.
func (s *Service) Get(ctx context.Context, userID string) (*Cart, error) {
	if err := CheckUserID(userID); err != nil {
		return nil, err
	}
	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &Cart{UserID: userID, Items: []Line{}}, nil
		}
		return nil, errors.Wrap(err, "get cart")
	}
	return c, nil
}

// Add puts qty units of (productID, tier) into the user's cart. When the
// line already exists the quantities are summed; otherwise a new line is
// appended. qty defaults to 1 when non-positive.
func (s *Service) Add(ctx context.Context, userID, productID string, tier product.Tier, qty int) (*Cart, error) {
	if err := CheckUserID(userID); err != nil {
		return nil, err
	}
	if qty < 1 {
		qty = 1
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %s", productID)
	}

	offer, ok := p.Offer(tier)
	if !ok || offer.Stock < 1 {
		return nil, ErrOutOfStock
	}

	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if line := c.Find(productID, tier); line != nil {
		if line.Quantity+qty > offer.Stock {
			return nil, ErrInsufficientStock
		}
		line.Quantity += qty
		line.Total = offer.Price.Mul(intDecimal(line.Quantity))
	} else {
		if qty > offer.Stock {
			return nil, ErrInsufficientStock
		}
		c.Items = append(c.Items, Line{
			ProductID: productID,
			Name:      p.Name,
			Image:     p.Image,
			Tier:      tier,
			UnitPrice: offer.Price,
			Quantity:  qty,
			Total:     offer.Price.Mul(intDecimal(qty)),
		})
	}

	if err := s.carts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}

// Update changes the quantity of an existing (productID, tier) line
// according to mode, recomputing the line total.
func (s *Service) Update(ctx context.Context, userID, productID string, tier product.Tier, mode UpdateMode, qty int) (*Cart, error) {
	if err := CheckUserID(userID); err != nil {
		return nil, err
	}

	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get cart")
	}

	line := c.Find(productID, tier)
	if line == nil {
		return nil, ErrLineNotFound
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %s", productID)
	}
	offer, _ := p.Offer(tier)

	switch mode {
	case ModeSet:
		if qty <= 0 {
			return nil, ErrInvalidQuantity
		}
		if qty > offer.Stock {
			return nil, ErrInsufficientStock
		}
		line.Quantity = qty
	case ModeIncrement:
		if line.Quantity+1 > offer.Stock {
			return nil, ErrInsufficientStock
		}
		line.Quantity++
	case ModeDecrement:
		if line.Quantity <= 1 {
			return nil, ErrQuantityFloor
		}
		line.Quantity--
	default:
		return nil, &InvalidModeError{Mode: string(mode)}
	}

	line.Total = line.UnitPrice.Mul(intDecimal(line.Quantity))

	if err := s.carts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}

// Remove deletes the line matching productID, optionally narrowed to a
// single tier. A missing line is a no-op success.
func (s *Service) Remove(ctx context.Context, userID, productID string, tier *product.Tier) (*Cart, error) {
	if err := CheckUserID(userID); err != nil {
		return nil, err
	}

	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get cart")
	}

	kept := c.Items[:0]
	for _, l := range c.Items {
		if l.ProductID == productID && (tier == nil || l.Tier == *tier) {
			continue
		}
		kept = append(kept, l)
	}
	c.Items = kept

	if err := s.carts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}

// Clear empties the user's cart. A user with no cart gets back a synthesized
// empty cart.
func (s *Service) Clear(ctx context.Context, userID string) (*Cart, error) {
	if err := CheckUserID(userID); err != nil {
		return nil, err
	}

	if err := s.carts.Clear(ctx, userID); err != nil {
		return nil, errors.Wrap(err, "clear cart")
	}
	return &Cart{UserID: userID, Items: []Line{}}, nil
}
