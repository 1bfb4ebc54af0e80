package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/nazakat/storefront/internal/domain/product"
)

const (
	listProductsSQL = `SELECT id, name, description, image, images, collection, rating, offers
		FROM products ORDER BY id`

	getProductByIDSQL = `SELECT id, name, description, image, images, collection, rating, offers
		FROM products WHERE id = $1`

	insertProductSQL = `INSERT INTO products (id, name, description, image, images, collection, rating, offers)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			image = EXCLUDED.image,
			images = EXCLUDED.images,
			collection = EXCLUDED.collection,
			rating = EXCLUDED.rating,
			offers = EXCLUDED.offers`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
// Tier offers are stored as a JSONB object keyed by piece option.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products from the catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// Upsert inserts or replaces a catalog entry. Used by the seed tool.
func (r *ProductRepository) Upsert(ctx context.Context, p *product.Product) error {
	imagesJSON, err := json.Marshal(p.Images)
	if err != nil {
		return fmt.Errorf("marshaling product images: %w", err)
	}
	offersJSON, err := json.Marshal(p.Offers)
	if err != nil {
		return fmt.Errorf("marshaling product offers: %w", err)
	}

	_, err = r.pool.Exec(ctx, insertProductSQL,
		p.ID, p.Name, p.Description, p.Image, imagesJSON, p.Collection, p.Rating, offersJSON,
	)
	if err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p          product.Product
		rating     decimal.Decimal
		imagesJSON []byte
		offersJSON []byte
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Image, &imagesJSON, &p.Collection, &rating, &offersJSON,
	)
	if err != nil {
		return p, err
	}
	p.Rating = rating

	if err := json.Unmarshal(imagesJSON, &p.Images); err != nil {
		return p, fmt.Errorf("unmarshaling product images: %w", err)
	}
	if err := json.Unmarshal(offersJSON, &p.Offers); err != nil {
		return p, fmt.Errorf("unmarshaling product offers: %w", err)
	}
	return p, nil
}
