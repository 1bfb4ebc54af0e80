package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/nazakat/storefront/internal/domain/cart"
	"github.com/nazakat/storefront/internal/domain/coupon"
	"github.com/nazakat/storefront/internal/domain/order"
	"github.com/nazakat/storefront/internal/domain/product"
	"github.com/nazakat/storefront/internal/payfast"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product
	// responses. When empty, image paths are returned as stored.
	ImageBaseURL string
	// FrontendURL is the storefront origin used for gateway return
	// redirects.
	FrontendURL string
}

// Handler serves the storefront JSON API, delegating business logic to the
// injected domain services.
type Handler struct {
	cfg      Config
	products product.Repository
	carts    *cart.Service
	orders   *order.Service
	coupons  *coupon.Evaluator
	couponDB coupon.Repository
	gateway  *payfast.Client
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	products product.Repository,
	carts *cart.Service,
	orders *order.Service,
	coupons *coupon.Evaluator,
	couponDB coupon.Repository,
	gateway *payfast.Client,
) *Handler {
	return &Handler{
		cfg:      cfg,
		products: products,
		carts:    carts,
		orders:   orders,
		coupons:  coupons,
		couponDB: couponDB,
		gateway:  gateway,
	}
}

// Routes mounts every API route on a fresh chi router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Get("/{productID}", h.GetProduct)
	})

	r.Route("/cart", func(r chi.Router) {
		// The clear route must be registered before the generic
		// {userID} routes so "clear" is never taken as a user ID.
		r.Delete("/clear/{userID}", h.ClearCart)
		r.Get("/{userID}", h.GetCart)
		r.Post("/{userID}", h.AddToCart)
		r.Put("/{userID}/{productID}", h.UpdateCartItem)
		r.Delete("/{userID}/{productID}", h.RemoveCartItem)
	})

	r.Route("/coupons", func(r chi.Router) {
		r.Post("/validate", h.ValidateCoupon)
		r.Get("/active", h.ListActiveCoupons)
		r.Post("/", h.CreateCoupon)
	})

	r.Route("/payment", func(r chi.Router) {
		r.Post("/create", h.CreatePayment)
		r.Post("/notify", h.PaymentNotify)
		r.Get("/status/{orderID}", h.PaymentStatus)
		r.Get("/success", h.PaymentReturn("/payment/success"))
		r.Get("/cancel", h.PaymentReturn("/payment/cancel"))
	})

	return r
}

// respond writes v as JSON with the given status code.
func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respondError writes the standard failure envelope.
func respondError(w http.ResponseWriter, status int, message string) {
	respond(w, status, map[string]any{
		"success": false,
		"message": message,
	})
}

// respondInternal logs err and writes a generic 500 envelope.
func respondInternal(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	respondError(w, http.StatusInternalServerError, "Internal server error")
}

// decode parses the request body into v.
func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
