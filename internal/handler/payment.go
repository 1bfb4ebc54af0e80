package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/nazakat/storefront/internal/domain/cart"
	"github.com/nazakat/storefront/internal/domain/order"
	"github.com/nazakat/storefront/internal/payfast"
)

type createPaymentRequest struct {
	UserID        string         `json:"userId"`
	PaymentMethod string         `json:"paymentMethod"`
	CouponCode    string         `json:"couponCode"`
	Customer      order.Customer `json:"customerInfo"`
}

// CreatePayment places an order from the user's cart. Online orders get a
// signed gateway parameter set for the hosted payment page; cash on delivery
// orders are confirmed immediately.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	method, err := order.ParseMethod(req.PaymentMethod)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	o, err := h.orders.Place(r.Context(), order.PlaceRequest{
		UserID:     req.UserID,
		Customer:   req.Customer,
		Method:     method,
		CouponCode: req.CouponCode,
	})
	if err != nil {
		respondOrderError(w, r, err)
		return
	}

	if method == order.MethodCOD {
		respond(w, http.StatusCreated, map[string]any{
			"success": true,
			"message": "Order placed successfully",
			"orderId": o.ID,
			"order":   o,
		})
		return
	}

	payment := h.gateway.BuildPayment(payfast.PaymentRequest{
		OrderID:     o.ID,
		Amount:      o.Total,
		FirstName:   o.Customer.FirstName,
		LastName:    o.Customer.LastName,
		Email:       o.Customer.Email,
		ItemName:    "Nazakat Nails Order",
		Description: orderItemSummary(o),
	})

	respond(w, http.StatusCreated, map[string]any{
		"success":     true,
		"orderId":     o.ID,
		"paymentUrl":  h.gateway.ProcessURL(),
		"paymentData": payment.Params.Map(),
	})
}

// PaymentNotify handles the gateway's server-to-server callback. The raw body
// is verified before any state change; a bad signature is rejected without
// touching the order.
func (h *Handler) PaymentNotify(w http.ResponseWriter, r *http.Request) {
	lg := zctx.From(r.Context())

	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	n, err := h.gateway.VerifyNotification(string(body))
	if err != nil {
		lg.Warn("Rejected gateway callback", zap.Error(err))
		respondError(w, http.StatusBadRequest, "Invalid notification")
		return
	}

	o, err := h.orders.ApplyGatewayResult(r.Context(), order.GatewayResult{
		OrderID:          n.OrderID,
		PaymentStatus:    n.PaymentStatus,
		GatewayPaymentID: n.GatewayPaymentID,
		Amount:           n.Amount,
	})
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Order not found")
			return
		}
		respondInternal(w, r, errors.Wrap(err, "apply gateway result"))
		return
	}

	lg.Info("Processed gateway callback",
		zap.String("order_id", o.ID),
		zap.String("status", string(o.Status)),
	)
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Order not found")
			return
		}
		respondInternal(w, r, errors.Wrap(err, "get order"))
		return
	}

	respond(w, http.StatusOK, map[string]any{
		"success":     true,
		"orderId":     o.ID,
		"orderStatus": o.Status,
		"order":       o,
	})
}

// PaymentReturn redirects the customer's browser back to the storefront after
// the hosted payment page finishes.
func (h *Handler) PaymentReturn(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := strings.TrimSuffix(h.cfg.FrontendURL, "/") + path
		if q := r.URL.RawQuery; q != "" {
			target += "?" + q
		}
		http.Redirect(w, r, target, http.StatusFound)
	}
}

// respondOrderError maps order placement errors onto the API error envelope.
// Coupon rejections surface with their own reasons via respondCouponError.
func respondOrderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, cart.ErrUnauthenticated):
		respondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, order.ErrInvalidMethod),
		errors.Is(err, order.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondCouponError(w, r, err)
	}
}

func orderItemSummary(o *order.Order) string {
	names := make([]string, len(o.Items))
	for i, it := range o.Items {
		names[i] = it.Name
	}
	return strings.Join(names, ", ")
}
