//go:build integration

package integration

import (
	"net/http"
	"strings"
	"testing"
)

func TestListProducts(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	list := decodeJSON[productListResponse](t, resp)
	if !list.Success {
		t.Fatal("expected success")
	}
	if len(list.Products) != 5 {
		t.Fatalf("expected 5 products, got %d", len(list.Products))
	}
	for _, p := range list.Products {
		if len(p.Offers) == 0 {
			t.Errorf("product %s has no offers", p.ID)
		}
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	resp := doGet(t, "/api/products/no-such-product")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestCartLifecycle(t *testing.T) {
	const userID = "it-cart-user"

	// Add two 12-piece sets.
	resp := doJSON(t, http.MethodPost, "/api/cart/"+userID, map[string]any{
		"productId":   "classic-french",
		"pieceOption": "12",
		"quantity":    2,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add to cart: expected 200, got %d", resp.StatusCode)
	}
	body := decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	if len(body.Cart.Items) != 1 || body.Cart.Items[0].Quantity != 2 {
		t.Fatalf("unexpected cart after add: %+v", body.Cart)
	}

	// Bump the quantity.
	resp = doJSON(t, http.MethodPut, "/api/cart/"+userID+"/classic-french?pieceOption=12", map[string]any{
		"quantity": 3,
		"mode":     "set",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update cart: expected 200, got %d", resp.StatusCode)
	}
	body = decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	if body.Cart.Items[0].Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", body.Cart.Items[0].Quantity)
	}

	// Remove the line.
	resp = doJSON(t, http.MethodDelete, "/api/cart/"+userID+"/classic-french?pieceOption=12", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("remove from cart: expected 200, got %d", resp.StatusCode)
	}
	body = decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	if len(body.Cart.Items) != 0 {
		t.Fatalf("expected empty cart, got %+v", body.Cart.Items)
	}
}

func TestCart_AnonymousUserRejected(t *testing.T) {
	resp := doGet(t, "/api/cart/null")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestValidateCoupon_Seeded(t *testing.T) {
	resp := doJSON(t, http.MethodPost, "/api/coupons/validate", map[string]any{
		"code":        "WELCOME10",
		"orderAmount": 1598,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeJSON[validateResponse](t, resp)
	if !body.Success {
		t.Fatalf("expected success, got message %q", body.Message)
	}
	if body.OrderSummary == nil || body.OrderSummary.Discount != "159.8" {
		t.Fatalf("unexpected order summary: %+v", body.OrderSummary)
	}
}

func TestValidateCoupon_BelowMinimum(t *testing.T) {
	resp := doJSON(t, http.MethodPost, "/api/coupons/validate", map[string]any{
		"code":        "WELCOME10",
		"orderAmount": 100,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	body := decodeJSON[apiResponse](t, resp)
	if !strings.Contains(body.Message, "minimum order amount") {
		t.Fatalf("unexpected message %q", body.Message)
	}
}

func TestCheckout_CashOnDelivery(t *testing.T) {
	const userID = "it-cod-user"

	resp := doJSON(t, http.MethodPost, "/api/cart/"+userID, map[string]any{
		"productId":   "rose-gold-chrome",
		"pieceOption": "12",
		"quantity":    1,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add to cart: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, "/api/payment/create", map[string]any{
		"userId":        userID,
		"paymentMethod": "cod",
		"customerInfo": map[string]string{
			"firstName": "Ayesha",
			"lastName":  "Khan",
			"email":     "ayesha@example.com",
			"phone":     "03001234567",
			"address":   "House 12",
			"city":      "Lahore",
		},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create payment: expected 201, got %d", resp.StatusCode)
	}
	body := decodeJSON[paymentResponse](t, resp)
	resp.Body.Close()

	if body.OrderID == "" || body.Order == nil {
		t.Fatalf("unexpected payment response: %+v", body)
	}
	if body.Order.OrderStatus != "Order Placed" {
		t.Fatalf("expected Order Placed, got %q", body.Order.OrderStatus)
	}

	// Checkout clears the cart.
	resp = doGet(t, "/api/cart/"+userID)
	cart := decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	if len(cart.Cart.Items) != 0 {
		t.Fatalf("expected empty cart after checkout, got %+v", cart.Cart.Items)
	}

	// Status endpoint agrees.
	resp = doGet(t, "/api/payment/status/"+body.OrderID)
	status := decodeJSON[statusResponse](t, resp)
	resp.Body.Close()
	if status.OrderStatus != "Order Placed" {
		t.Fatalf("expected Order Placed, got %q", status.OrderStatus)
	}
}

func TestCheckout_OnlinePending(t *testing.T) {
	const userID = "it-online-user"

	resp := doJSON(t, http.MethodPost, "/api/cart/"+userID, map[string]any{
		"productId":   "classic-french",
		"pieceOption": "24",
		"quantity":    1,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add to cart: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, "/api/payment/create", map[string]any{
		"userId":        userID,
		"paymentMethod": "online",
		"customerInfo": map[string]string{
			"firstName": "Sana",
			"lastName":  "Malik",
			"email":     "sana@example.com",
			"phone":     "03007654321",
			"address":   "Street 4",
			"city":      "Karachi",
		},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create payment: expected 201, got %d", resp.StatusCode)
	}
	body := decodeJSON[paymentResponse](t, resp)
	resp.Body.Close()

	if body.PaymentURL == "" {
		t.Fatal("expected a hosted payment URL")
	}
	if body.PaymentData["signature"] == "" {
		t.Fatal("expected a signed payment payload")
	}
	if body.PaymentData["m_payment_id"] != body.OrderID {
		t.Fatalf("payment reference %q does not match order %q",
			body.PaymentData["m_payment_id"], body.OrderID)
	}

	resp = doGet(t, "/api/payment/status/"+body.OrderID)
	status := decodeJSON[statusResponse](t, resp)
	resp.Body.Close()
	if status.OrderStatus != "Pending Payment" {
		t.Fatalf("expected Pending Payment, got %q", status.OrderStatus)
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	resp := doJSON(t, http.MethodPost, "/api/payment/create", map[string]any{
		"userId":        "it-empty-user",
		"paymentMethod": "cod",
		"customerInfo":  map[string]string{"firstName": "A", "email": "a@example.com"},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestPaymentReturnRedirect(t *testing.T) {
	resp := doGet(t, "/api/payment/success?m_payment_id=some-order")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}
	loc := resp.Header.Get("Location")
	if !strings.Contains(loc, "/payment/success") {
		t.Fatalf("unexpected redirect location %q", loc)
	}
}
