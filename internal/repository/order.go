package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nazakat/storefront/internal/domain/coupon"
	"github.com/nazakat/storefront/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (id, user_id, items, subtotal, discount, total,
		payment_method, status, customer, coupon_used, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	getOrderByIDSQL = `SELECT id, user_id, items, subtotal, discount, total,
		payment_method, status, customer, coupon_used, payment_details, created_at, updated_at
		FROM orders WHERE id = $1`

	orderExistsSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`

	// Guarded transition: only applies when the order is still in the
	// expected source status, so repeated gateway callbacks are no-ops.
	updateOrderStatusSQL = `UPDATE orders
		SET status = $3, payment_details = $4, updated_at = now()
		WHERE id = $1 AND status = $2`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. The
// item snapshot, customer info, coupon usage, and payment metadata are
// stored as JSONB documents.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}
	customerJSON, err := json.Marshal(o.Customer)
	if err != nil {
		return fmt.Errorf("marshaling order customer: %w", err)
	}
	var couponJSON []byte
	if o.Coupon != nil {
		couponJSON, err = json.Marshal(o.Coupon)
		if err != nil {
			return fmt.Errorf("marshaling order coupon: %w", err)
		}
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.UserID, itemsJSON, o.Subtotal, o.Discount, o.Total,
		string(o.Method), string(o.Status), customerJSON, couponJSON,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns an order by its identifier, or order.ErrNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// UpdateStatus transitions an order from one status to another, attaching
// payment details. When the order is not in the expected source status the
// update matches no row and order.ErrAlreadyFinal is returned; when the
// order does not exist at all, order.ErrNotFound.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to order.Status, details *order.PaymentDetails) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshaling payment details: %w", err)
	}

	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, string(from), string(to), detailsJSON)
	if err != nil {
		return fmt.Errorf("updating order %q status: %w", id, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, orderExistsSQL, id).Scan(&exists); err != nil {
		return fmt.Errorf("checking order %q exists: %w", id, err)
	}
	if !exists {
		return order.ErrNotFound
	}
	return order.ErrAlreadyFinal
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o            order.Order
		method       string
		status       string
		itemsJSON    []byte
		customerJSON []byte
		couponJSON   []byte
		paymentJSON  []byte
	)
	err := row.Scan(
		&o.ID, &o.UserID, &itemsJSON, &o.Subtotal, &o.Discount, &o.Total,
		&method, &status, &customerJSON, &couponJSON, &paymentJSON,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}
	o.Method = order.Method(method)
	o.Status = order.Status(status)

	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, fmt.Errorf("unmarshaling order items: %w", err)
	}
	if err := json.Unmarshal(customerJSON, &o.Customer); err != nil {
		return o, fmt.Errorf("unmarshaling order customer: %w", err)
	}
	if len(couponJSON) > 0 {
		var c coupon.Redemption
		if err := json.Unmarshal(couponJSON, &c); err != nil {
			return o, fmt.Errorf("unmarshaling order coupon: %w", err)
		}
		o.Coupon = &c
	}
	if len(paymentJSON) > 0 {
		var p order.PaymentDetails
		if err := json.Unmarshal(paymentJSON, &p); err != nil {
			return o, fmt.Errorf("unmarshaling payment details: %w", err)
		}
		o.Payment = &p
	}
	return o, nil
}
