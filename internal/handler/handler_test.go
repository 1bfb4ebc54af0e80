package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nazakat/storefront/internal/domain/cart"
	"github.com/nazakat/storefront/internal/domain/coupon"
	"github.com/nazakat/storefront/internal/domain/order"
	"github.com/nazakat/storefront/internal/domain/product"
	"github.com/nazakat/storefront/internal/payfast"
)

// --- Mock repositories ---

type mockProductRepo struct {
	products []product.Product
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) {
	return m.products, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	for i := range m.products {
		if m.products[i].ID == id {
			return &m.products[i], nil
		}
	}
	return nil, product.ErrNotFound
}

type mockCartRepo struct {
	carts map[string]*cart.Cart
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
	if c, ok := m.carts[userID]; ok {
		c.Items = []cart.Line{}
	}
	return nil
}

type mockCouponRepo struct {
	coupons map[string]*coupon.Coupon
	created []*coupon.Coupon
}

func (m *mockCouponRepo) FindByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	c, ok := m.coupons[strings.ToUpper(code)]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	return c, nil
}

func (m *mockCouponRepo) Create(_ context.Context, c *coupon.Coupon) error {
	key := strings.ToUpper(c.Code)
	if _, ok := m.coupons[key]; ok {
		return coupon.ErrDuplicateCode
	}
	m.coupons[key] = c
	m.created = append(m.created, c)
	return nil
}

func (m *mockCouponRepo) ListActive(_ context.Context) ([]coupon.Coupon, error) {
	out := make([]coupon.Coupon, 0, len(m.coupons))
	for _, c := range m.coupons {
		out = append(out, *c)
	}
	return out, nil
}

func (m *mockCouponRepo) IncrementUsage(_ context.Context, code string) error {
	c, ok := m.coupons[strings.ToUpper(code)]
	if !ok {
		return coupon.ErrNotFound
	}
	c.UsedCount++
	return nil
}

type mockOrderRepo struct {
	orders map[string]*order.Order
}

func (m *mockOrderRepo) Create(_ context.Context, o *order.Order) error {
	m.orders[o.ID] = o
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id string, from, to order.Status, details *order.PaymentDetails) error {
	o, ok := m.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	if o.Status != from {
		return order.ErrAlreadyFinal
	}
	o.Status = to
	o.Payment = details
	return nil
}

type nopNotifier struct{}

func (nopNotifier) OrderPlaced(*order.Order)      {}
func (nopNotifier) PaymentConfirmed(*order.Order) {}

// --- Fixture ---

type fixture struct {
	handler  http.Handler
	products *mockProductRepo
	carts    *mockCartRepo
	coupons  *mockCouponRepo
	orders   *mockOrderRepo
}

func newFixture() *fixture {
	f := &fixture{
		products: &mockProductRepo{},
		carts:    &mockCartRepo{carts: make(map[string]*cart.Cart)},
		coupons:  &mockCouponRepo{coupons: make(map[string]*coupon.Coupon)},
		orders:   &mockOrderRepo{orders: make(map[string]*order.Order)},
	}

	eval := coupon.NewEvaluator(f.coupons)
	cartSvc := cart.NewService(f.carts, f.products)
	orderSvc := order.NewService(f.orders, f.carts, eval, nopNotifier{})
	gateway := payfast.NewClient(payfast.Config{
		MerchantID:  "10000100",
		MerchantKey: "46f0cd694581a",
		Passphrase:  "jt7NOE43FZPn",
		NotifyURL:   "https://shop.example.com/api/payment/notify",
		Sandbox:     true,
	})

	h := New(
		Config{
			ImageBaseURL: "https://cdn.example.com",
			FrontendURL:  "https://shop.example.com",
		},
		f.products, cartSvc, orderSvc, eval, f.coupons, gateway,
	)
	f.handler = h.Routes()
	return f
}

func (f *fixture) addProduct(id string, price int64, stock int) {
	f.products.products = append(f.products.products, product.Product{
		ID:    id,
		Name:  "Classic French Press-On Set",
		Image: "/images/" + id + "/cover.jpg",
		Offers: map[product.Tier]product.Offer{
			product.Tier12: {Price: decimal.NewFromInt(price), Stock: stock},
		},
	})
}

func (f *fixture) addCoupon(c *coupon.Coupon) {
	f.coupons.coupons[strings.ToUpper(c.Code)] = c
}

func (f *fixture) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func validTestCoupon() *coupon.Coupon {
	return &coupon.Coupon{
		Code:          "WELCOME10",
		Description:   "10% off your first order",
		Type:          coupon.TypePercentage,
		Value:         decimal.NewFromInt(10),
		MinimumAmount: decimal.NewFromInt(500),
		Active:        true,
		ValidFrom:     time.Now().Add(-time.Hour),
		ValidUntil:    time.Now().Add(24 * time.Hour),
	}
}

// --- Products ---

func TestListProducts(t *testing.T) {
	f := newFixture()
	f.addProduct("classic-french", 799, 40)

	rec, body := f.do(t, http.MethodGet, "/products", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	products := body["products"].([]any)
	require.Len(t, products, 1)
	p := products[0].(map[string]any)
	assert.Equal(t, "https://cdn.example.com/images/classic-french/cover.jpg", p["image"])
}

func TestGetProduct_NotFound(t *testing.T) {
	f := newFixture()

	rec, body := f.do(t, http.MethodGet, "/products/missing", "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Product not found", body["message"])
}

// --- Cart ---

func TestCartFlow(t *testing.T) {
	f := newFixture()
	f.addProduct("classic-french", 799, 40)

	rec, body := f.do(t, http.MethodPost, "/cart/user-1",
		`{"productId":"classic-french","pieceOption":"12","quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	c := body["cart"].(map[string]any)
	items := c["items"].([]any)
	require.Len(t, items, 1)
	line := items[0].(map[string]any)
	assert.Equal(t, "12", line["pieceOption"])
	assert.Equal(t, float64(2), line["quantity"])

	rec, body = f.do(t, http.MethodGet, "/cart/user-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	c = body["cart"].(map[string]any)
	require.Len(t, c["items"].([]any), 1)

	rec, _ = f.do(t, http.MethodPut, "/cart/user-1/classic-french?pieceOption=12",
		`{"quantity":5,"mode":"set"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = f.do(t, http.MethodDelete, "/cart/user-1/classic-french?pieceOption=12", "")
	require.Equal(t, http.StatusOK, rec.Code)
	c = body["cart"].(map[string]any)
	assert.Empty(t, c["items"])
}

func TestCart_InvalidPieceOption(t *testing.T) {
	f := newFixture()
	f.addProduct("classic-french", 799, 40)

	rec, body := f.do(t, http.MethodPost, "/cart/user-1",
		`{"productId":"classic-french","pieceOption":"36","quantity":1}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["message"], "invalid piece option")
}

func TestCart_Unauthenticated(t *testing.T) {
	f := newFixture()

	for _, id := range []string{"null", "undefined"} {
		rec, body := f.do(t, http.MethodGet, "/cart/"+id, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code, "id %q", id)
		assert.Equal(t, "user authentication required", body["message"])
	}
}

func TestClearCart(t *testing.T) {
	f := newFixture()
	f.addProduct("classic-french", 799, 40)

	_, _ = f.do(t, http.MethodPost, "/cart/user-1",
		`{"productId":"classic-french","pieceOption":"12","quantity":1}`)

	rec, _ := f.do(t, http.MethodDelete, "/cart/clear/user-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	_, body := f.do(t, http.MethodGet, "/cart/user-1", "")
	c := body["cart"].(map[string]any)
	assert.Empty(t, c["items"])
}

// --- Coupons ---

func TestValidateCoupon(t *testing.T) {
	f := newFixture()
	f.addCoupon(validTestCoupon())

	rec, body := f.do(t, http.MethodPost, "/coupons/validate",
		`{"code":"welcome10","orderAmount":1598}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Coupon applied successfully", body["message"])

	summary := body["orderSummary"].(map[string]any)
	assert.Equal(t, "1598", summary["subtotal"])
	assert.Equal(t, "159.8", summary["discount"])
	assert.Equal(t, "1438.2", summary["total"])

	// Validation must not consume a use.
	assert.Equal(t, 0, f.coupons.coupons["WELCOME10"].UsedCount)
}

func TestValidateCoupon_UnknownCode(t *testing.T) {
	f := newFixture()

	rec, body := f.do(t, http.MethodPost, "/coupons/validate",
		`{"code":"BOGUS","orderAmount":1000}`)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "invalid coupon code", body["message"])
}

func TestValidateCoupon_BelowMinimum(t *testing.T) {
	f := newFixture()
	f.addCoupon(validTestCoupon())

	rec, body := f.do(t, http.MethodPost, "/coupons/validate",
		`{"code":"WELCOME10","orderAmount":499}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "minimum order amount of Rs. 500 required for this coupon", body["message"])
}

func TestCreateCoupon(t *testing.T) {
	f := newFixture()

	rec, body := f.do(t, http.MethodPost, "/coupons/",
		`{"code":"SAVE50","discountType":"fixed","discountValue":50,"minimumAmount":1000}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, body["success"])
	require.Len(t, f.coupons.created, 1)
	assert.True(t, f.coupons.created[0].Active)

	// Creating the same code again clashes.
	rec, body = f.do(t, http.MethodPost, "/coupons/",
		`{"code":"SAVE50","discountType":"fixed","discountValue":50}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "coupon code already exists", body["message"])
}

// --- Payments ---

const customerJSON = `{"firstName":"Ayesha","lastName":"Khan","email":"ayesha@example.com","phone":"03001234567","address":"House 12","city":"Lahore","postalCode":"54000"}`

func (f *fixture) fillCart(t *testing.T) {
	t.Helper()
	rec, _ := f.do(t, http.MethodPost, "/cart/user-1",
		`{"productId":"classic-french","pieceOption":"12","quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCreatePayment_COD(t *testing.T) {
	f := newFixture()
	f.addProduct("classic-french", 799, 40)
	f.fillCart(t)

	rec, body := f.do(t, http.MethodPost, "/payment/create",
		`{"userId":"user-1","paymentMethod":"cod","customerInfo":`+customerJSON+`}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["orderId"])

	o := body["order"].(map[string]any)
	assert.Equal(t, "Order Placed", o["orderStatus"])
	assert.Equal(t, "1598", o["totalAmount"])

	// The cart is cleared once the order exists.
	_, cartBody := f.do(t, http.MethodGet, "/cart/user-1", "")
	assert.Empty(t, cartBody["cart"].(map[string]any)["items"])
}

func TestCreatePayment_Online(t *testing.T) {
	f := newFixture()
	f.addProduct("classic-french", 799, 40)
	f.fillCart(t)

	rec, body := f.do(t, http.MethodPost, "/payment/create",
		`{"userId":"user-1","paymentMethod":"online","customerInfo":`+customerJSON+`}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "https://sandbox.payfast.co.za/eng/process", body["paymentUrl"])

	data := body["paymentData"].(map[string]any)
	assert.Equal(t, "10000100", data["merchant_id"])
	assert.Equal(t, "1598.00", data["amount"])
	assert.NotEmpty(t, data["signature"])
	assert.Equal(t, body["orderId"], data["m_payment_id"])

	orderID := body["orderId"].(string)
	_, statusBody := f.do(t, http.MethodGet, "/payment/status/"+orderID, "")
	assert.Equal(t, "Pending Payment", statusBody["orderStatus"])
}

func TestCreatePayment_EmptyCart(t *testing.T) {
	f := newFixture()

	rec, body := f.do(t, http.MethodPost, "/payment/create",
		`{"userId":"user-1","paymentMethod":"cod","customerInfo":`+customerJSON+`}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "cart is empty", body["message"])
}

func TestCreatePayment_InvalidMethod(t *testing.T) {
	f := newFixture()

	rec, _ := f.do(t, http.MethodPost, "/payment/create",
		`{"userId":"user-1","paymentMethod":"cheque","customerInfo":`+customerJSON+`}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreatePayment_Unauthenticated(t *testing.T) {
	f := newFixture()

	rec, _ := f.do(t, http.MethodPost, "/payment/create",
		`{"userId":"null","paymentMethod":"cod","customerInfo":`+customerJSON+`}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func notifyRequest(t *testing.T, f *fixture, orderID, status string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	v := &payfast.Values{}
	v.Set("m_payment_id", orderID)
	v.Set("pf_payment_id", "pf-123")
	v.Set("payment_status", status)
	v.Set("amount_gross", "1598.00")
	sig := payfast.Sign(v, "jt7NOE43FZPn")

	body := "m_payment_id=" + orderID + "&pf_payment_id=pf-123&payment_status=" + status +
		"&amount_gross=1598.00&signature=" + sig

	req := httptest.NewRequest(http.MethodPost, "/payment/notify", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestPaymentNotify_Complete(t *testing.T) {
	f := newFixture()
	f.addProduct("classic-french", 799, 40)
	f.fillCart(t)

	_, body := f.do(t, http.MethodPost, "/payment/create",
		`{"userId":"user-1","paymentMethod":"online","customerInfo":`+customerJSON+`}`)
	orderID := body["orderId"].(string)

	rec, _ := notifyRequest(t, f, orderID, "COMPLETE")
	require.Equal(t, http.StatusOK, rec.Code)

	_, statusBody := f.do(t, http.MethodGet, "/payment/status/"+orderID, "")
	assert.Equal(t, "Paid", statusBody["orderStatus"])
}

func TestPaymentNotify_Failed(t *testing.T) {
	f := newFixture()
	f.addProduct("classic-french", 799, 40)
	f.fillCart(t)

	_, body := f.do(t, http.MethodPost, "/payment/create",
		`{"userId":"user-1","paymentMethod":"online","customerInfo":`+customerJSON+`}`)
	orderID := body["orderId"].(string)

	rec, _ := notifyRequest(t, f, orderID, "CANCELLED")
	require.Equal(t, http.StatusOK, rec.Code)

	_, statusBody := f.do(t, http.MethodGet, "/payment/status/"+orderID, "")
	assert.Equal(t, "Payment Failed", statusBody["orderStatus"])
}

func TestPaymentNotify_BadSignature(t *testing.T) {
	f := newFixture()

	body := "m_payment_id=order-1&payment_status=COMPLETE&signature=deadbeef"
	req := httptest.NewRequest(http.MethodPost, "/payment/notify", strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaymentNotify_UnknownOrder(t *testing.T) {
	f := newFixture()

	rec, _ := notifyRequest(t, f, "missing", "COMPLETE")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPaymentStatus_NotFound(t *testing.T) {
	f := newFixture()

	rec, _ := f.do(t, http.MethodGet, "/payment/status/missing", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPaymentReturnRedirects(t *testing.T) {
	f := newFixture()

	req := httptest.NewRequest(http.MethodGet, "/payment/success?m_payment_id=order-1", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://shop.example.com/payment/success?m_payment_id=order-1", rec.Header().Get("Location"))
}
