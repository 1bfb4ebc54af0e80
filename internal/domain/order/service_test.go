package order

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nazakat/storefront/internal/domain/cart"
	"github.com/nazakat/storefront/internal/domain/coupon"
	"github.com/nazakat/storefront/internal/domain/product"
)

// --- Mock implementations ---

type mockOrderRepo struct {
	orders    map[string]*Order
	createErr error
	updateErr error

	lastFrom Status
	lastTo   Status
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[string]*Order)}
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.orders[o.ID] = o
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id string, from, to Status, details *PaymentDetails) error {
	m.lastFrom, m.lastTo = from, to
	if m.updateErr != nil {
		return m.updateErr
	}
	o, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	if o.Status != from {
		return ErrAlreadyFinal
	}
	o.Status = to
	o.Payment = details
	return nil
}

type mockCartRepo struct {
	carts   map[string]*cart.Cart
	cleared []string
}

func newMockCartRepo() *mockCartRepo {
	return &mockCartRepo{carts: make(map[string]*cart.Cart)}
}

func (m *mockCartRepo) Get(_ context.Context, userID string) (*cart.Cart, error) {
	c, ok := m.carts[userID]
	if !ok {
		return nil, cart.ErrNotFound
	}
	return c, nil
}

func (m *mockCartRepo) Save(_ context.Context, c *cart.Cart) error {
	m.carts[c.UserID] = c
	return nil
}

func (m *mockCartRepo) Clear(_ context.Context, userID string) error {
	m.cleared = append(m.cleared, userID)
	if c, ok := m.carts[userID]; ok {
		c.Items = []cart.Line{}
	}
	return nil
}

type mockRedeemer struct {
	redemption *coupon.Redemption
	err        error

	code   string
	amount decimal.Decimal
}

func (m *mockRedeemer) Redeem(_ context.Context, code string, amount decimal.Decimal) (*coupon.Redemption, error) {
	m.code, m.amount = code, amount
	return m.redemption, m.err
}

type mockNotifier struct {
	placed    []*Order
	confirmed []*Order
}

func (m *mockNotifier) OrderPlaced(o *Order)      { m.placed = append(m.placed, o) }
func (m *mockNotifier) PaymentConfirmed(o *Order) { m.confirmed = append(m.confirmed, o) }

// --- Helpers ---

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func testCartLine(qty int) cart.Line {
	price := decimal.NewFromInt(799)
	return cart.Line{
		ProductID: "classic-french",
		Name:      "Classic French Press-On Set",
		Tier:      product.Tier12,
		UnitPrice: price,
		Quantity:  qty,
		Total:     price.Mul(decimal.NewFromInt(int64(qty))),
	}
}

type fixture struct {
	svc      *Service
	orders   *mockOrderRepo
	carts    *mockCartRepo
	redeemer *mockRedeemer
	notifier *mockNotifier
}

func newFixture() *fixture {
	f := &fixture{
		orders:   newMockOrderRepo(),
		carts:    newMockCartRepo(),
		redeemer: &mockRedeemer{},
		notifier: &mockNotifier{},
	}
	f.svc = NewService(f.orders, f.carts, f.redeemer, f.notifier)
	f.svc.now = func() time.Time { return testNow }
	return f
}

func (f *fixture) stockCart(userID string, lines ...cart.Line) {
	f.carts.carts[userID] = &cart.Cart{UserID: userID, Items: lines}
}

// --- Place ---

func TestPlace_CashOnDelivery(t *testing.T) {
	f := newFixture()
	f.stockCart("user-1", testCartLine(2))

	o, err := f.svc.Place(context.Background(), PlaceRequest{
		UserID:   "user-1",
		Method:   MethodCOD,
		Customer: Customer{FirstName: "Ayesha", Email: "ayesha@example.com"},
	})

	require.NoError(t, err)
	assert.Equal(t, StatusPlaced, o.Status)
	assert.True(t, decimal.NewFromInt(1598).Equal(o.Subtotal))
	assert.True(t, decimal.NewFromInt(1598).Equal(o.Total))
	assert.True(t, decimal.Zero.Equal(o.Discount))
	assert.NotEmpty(t, o.ID)
	require.Len(t, o.Items, 1)
	assert.Equal(t, 2, o.Items[0].Quantity)

	// Order persisted, cart cleared, customer notified.
	assert.Contains(t, f.orders.orders, o.ID)
	assert.Equal(t, []string{"user-1"}, f.carts.cleared)
	require.Len(t, f.notifier.placed, 1)
	assert.Equal(t, o.ID, f.notifier.placed[0].ID)
}

func TestPlace_OnlineStartsPendingPayment(t *testing.T) {
	f := newFixture()
	f.stockCart("user-1", testCartLine(1))

	o, err := f.svc.Place(context.Background(), PlaceRequest{
		UserID: "user-1",
		Method: MethodOnline,
	})

	require.NoError(t, err)
	assert.Equal(t, StatusPendingPayment, o.Status)
	// The confirmation waits for the gateway callback.
	assert.Empty(t, f.notifier.placed)
}

func TestPlace_WithCoupon(t *testing.T) {
	f := newFixture()
	f.stockCart("user-1", testCartLine(2))
	f.redeemer.redemption = &coupon.Redemption{
		Code:   "WELCOME10",
		Type:   coupon.TypePercentage,
		Value:  decimal.NewFromInt(10),
		Amount: decimal.RequireFromString("159.80"),
	}

	o, err := f.svc.Place(context.Background(), PlaceRequest{
		UserID:     "user-1",
		Method:     MethodOnline,
		CouponCode: "WELCOME10",
	})

	require.NoError(t, err)
	assert.Equal(t, "WELCOME10", f.redeemer.code)
	assert.True(t, decimal.NewFromInt(1598).Equal(f.redeemer.amount))
	assert.True(t, decimal.RequireFromString("159.80").Equal(o.Discount))
	assert.True(t, decimal.RequireFromString("1438.20").Equal(o.Total))
	require.NotNil(t, o.Coupon)
	assert.Equal(t, "WELCOME10", o.Coupon.Code)
}

func TestPlace_CouponRejected(t *testing.T) {
	f := newFixture()
	f.stockCart("user-1", testCartLine(2))
	f.redeemer.err = coupon.ErrNotFound

	_, err := f.svc.Place(context.Background(), PlaceRequest{
		UserID:     "user-1",
		Method:     MethodOnline,
		CouponCode: "BOGUS",
	})

	require.ErrorIs(t, err, coupon.ErrNotFound)
	// The cart survives a failed placement.
	assert.Empty(t, f.carts.cleared)
	assert.Empty(t, f.orders.orders)
}

func TestPlace_EmptyCart(t *testing.T) {
	f := newFixture()
	f.stockCart("user-1")

	_, err := f.svc.Place(context.Background(), PlaceRequest{UserID: "user-1", Method: MethodCOD})
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestPlace_NoCartRow(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Place(context.Background(), PlaceRequest{UserID: "user-1", Method: MethodCOD})
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestPlace_InvalidMethod(t *testing.T) {
	f := newFixture()
	f.stockCart("user-1", testCartLine(1))

	_, err := f.svc.Place(context.Background(), PlaceRequest{UserID: "user-1", Method: "cheque"})
	require.ErrorIs(t, err, ErrInvalidMethod)
}

func TestPlace_Unauthenticated(t *testing.T) {
	f := newFixture()

	for _, id := range []string{"", "null", "undefined"} {
		_, err := f.svc.Place(context.Background(), PlaceRequest{UserID: id, Method: MethodCOD})
		require.ErrorIs(t, err, cart.ErrUnauthenticated, "id %q", id)
	}
}

func TestPlace_CreateError(t *testing.T) {
	f := newFixture()
	f.stockCart("user-1", testCartLine(1))
	f.orders.createErr = errors.New("db write failed")

	_, err := f.svc.Place(context.Background(), PlaceRequest{UserID: "user-1", Method: MethodCOD})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")
	assert.Empty(t, f.carts.cleared)
}

// --- ApplyGatewayResult ---

func placedOnlineOrder(f *fixture) *Order {
	o := &Order{
		ID:     "order-1",
		UserID: "user-1",
		Items:  snapshotItems([]cart.Line{testCartLine(2)}),
		Total:  decimal.NewFromInt(1598),
		Method: MethodOnline,
		Status: StatusPendingPayment,
	}
	f.orders.orders[o.ID] = o
	return o
}

func TestApplyGatewayResult_Complete(t *testing.T) {
	f := newFixture()
	placedOnlineOrder(f)

	o, err := f.svc.ApplyGatewayResult(context.Background(), GatewayResult{
		OrderID:          "order-1",
		PaymentStatus:    "COMPLETE",
		GatewayPaymentID: "pf-123",
		Amount:           decimal.NewFromInt(1598),
	})

	require.NoError(t, err)
	assert.Equal(t, StatusPaid, o.Status)
	require.NotNil(t, o.Payment)
	assert.Equal(t, "pf-123", o.Payment.GatewayPaymentID)
	assert.Equal(t, "PayFast", o.Payment.Method)
	require.NotNil(t, o.Payment.PaidAt)
	assert.Equal(t, testNow, *o.Payment.PaidAt)

	assert.Equal(t, []string{"user-1"}, f.carts.cleared)
	require.Len(t, f.notifier.confirmed, 1)
	assert.Equal(t, "order-1", f.notifier.confirmed[0].ID)
}

func TestApplyGatewayResult_Failed(t *testing.T) {
	f := newFixture()
	placedOnlineOrder(f)

	o, err := f.svc.ApplyGatewayResult(context.Background(), GatewayResult{
		OrderID:       "order-1",
		PaymentStatus: "CANCELLED",
	})

	require.NoError(t, err)
	assert.Equal(t, StatusPaymentFailed, o.Status)
	require.NotNil(t, o.Payment)
	assert.Equal(t, "Payment status: CANCELLED", o.Payment.FailureReason)
	require.NotNil(t, o.Payment.FailedAt)

	assert.Empty(t, f.notifier.confirmed)
	assert.Empty(t, f.carts.cleared)
}

func TestApplyGatewayResult_RepeatedCallbackIsIdempotent(t *testing.T) {
	f := newFixture()
	placedOnlineOrder(f)

	first, err := f.svc.ApplyGatewayResult(context.Background(), GatewayResult{
		OrderID:       "order-1",
		PaymentStatus: "COMPLETE",
	})
	require.NoError(t, err)
	require.Equal(t, StatusPaid, first.Status)

	// The gateway retries the callback; the order stays paid and nothing is
	// re-applied.
	second, err := f.svc.ApplyGatewayResult(context.Background(), GatewayResult{
		OrderID:       "order-1",
		PaymentStatus: "COMPLETE",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, second.Status)
	assert.Len(t, f.carts.cleared, 1)
	assert.Len(t, f.notifier.confirmed, 1)
}

func TestApplyGatewayResult_FailureAfterPaidIsIgnored(t *testing.T) {
	f := newFixture()
	o := placedOnlineOrder(f)
	o.Status = StatusPaid

	got, err := f.svc.ApplyGatewayResult(context.Background(), GatewayResult{
		OrderID:       "order-1",
		PaymentStatus: "CANCELLED",
	})

	require.NoError(t, err)
	assert.Equal(t, StatusPaid, got.Status)
}

func TestApplyGatewayResult_UnknownOrder(t *testing.T) {
	f := newFixture()

	_, err := f.svc.ApplyGatewayResult(context.Background(), GatewayResult{
		OrderID:       "missing",
		PaymentStatus: "COMPLETE",
	})
	require.ErrorIs(t, err, ErrNotFound)
}

// --- Get ---

func TestGet(t *testing.T) {
	f := newFixture()
	placedOnlineOrder(f)

	o, err := f.svc.Get(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, "order-1", o.ID)

	_, err = f.svc.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}
