package product

import (
	"context"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Tier identifies a selectable piece option for a product. Each tier carries
// its own price and stock counter.
type Tier string

const (
	// Tier12 is the 12-piece option.
	Tier12 Tier = "12"
	// Tier24 is the 24-piece option.
	Tier24 Tier = "24"
)

// AllTiers lists every tier a product may offer, in display order.
var AllTiers = []Tier{Tier12, Tier24}

// InvalidTierError indicates a piece option outside the known set.
type InvalidTierError struct {
	Value string
}

func (e *InvalidTierError) Error() string {
	return "invalid piece option " + strconv.Quote(e.Value)
}

// ParseTier validates a raw piece-option string against the known tiers.
func ParseTier(s string) (Tier, error) {
	for _, t := range AllTiers {
		if string(t) == s {
			return t, nil
		}
	}
	return "", &InvalidTierError{Value: s}
}

// Offer is the price and stock counter for one tier of a product.
type Offer struct {
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

// Product represents a catalog item. Per-tier prices and stock live in the
// Offers table keyed by Tier.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Images      []string        `json:"images,omitempty"`
	Collection  string          `json:"collection"`
	Rating      decimal.Decimal `json:"rating"`
	Offers      map[Tier]Offer  `json:"offers"`
}

// Offer returns the offer for the given tier. The second result reports
// whether the product carries that tier at all.
func (p *Product) Offer(tier Tier) (Offer, bool) {
	o, ok := p.Offers[tier]
	return o, ok
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
}
