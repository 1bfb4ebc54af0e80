package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/nazakat/storefront/internal/domain/cart"
	"github.com/nazakat/storefront/internal/domain/product"
)

type addToCartRequest struct {
	ProductID   string `json:"productId"`
	PieceOption string `json:"pieceOption"`
	Quantity    int    `json:"quantity"`
}

type updateCartRequest struct {
	Quantity    int    `json:"quantity"`
	Mode        string `json:"mode"`
	PieceOption string `json:"pieceOption"`
}

// respondCartError maps cart domain errors onto the API error envelope.
func respondCartError(w http.ResponseWriter, r *http.Request, err error) {
	var tierErr *product.InvalidTierError
	var modeErr *cart.InvalidModeError
	switch {
	case errors.Is(err, cart.ErrUnauthenticated):
		respondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, product.ErrNotFound):
		respondError(w, http.StatusNotFound, "Product not found")
	case errors.Is(err, cart.ErrLineNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, cart.ErrOutOfStock),
		errors.Is(err, cart.ErrInsufficientStock),
		errors.Is(err, cart.ErrQuantityFloor),
		errors.Is(err, cart.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &tierErr), errors.As(err, &modeErr):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondInternal(w, r, err)
	}
}

func respondCart(w http.ResponseWriter, c *cart.Cart) {
	respond(w, http.StatusOK, map[string]any{
		"success": true,
		"cart":    c,
	})
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Get(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		respondCartError(w, r, err)
		return
	}
	respondCart(w, c)
}

func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tier, err := product.ParseTier(req.PieceOption)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := h.carts.Add(r.Context(), chi.URLParam(r, "userID"), req.ProductID, tier, req.Quantity)
	if err != nil {
		respondCartError(w, r, err)
		return
	}
	respondCart(w, c)
}

func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateCartRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	pieceOption := req.PieceOption
	if q := r.URL.Query().Get("pieceOption"); q != "" {
		pieceOption = q
	}
	tier, err := product.ParseTier(pieceOption)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	mode := cart.UpdateMode(req.Mode)
	if req.Mode == "" {
		mode = cart.ModeSet
	}

	c, err := h.carts.Update(r.Context(),
		chi.URLParam(r, "userID"), chi.URLParam(r, "productID"),
		tier, mode, req.Quantity,
	)
	if err != nil {
		respondCartError(w, r, err)
		return
	}
	respondCart(w, c)
}

func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	var tier *product.Tier
	if q := r.URL.Query().Get("pieceOption"); q != "" {
		t, err := product.ParseTier(q)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		tier = &t
	}

	c, err := h.carts.Remove(r.Context(),
		chi.URLParam(r, "userID"), chi.URLParam(r, "productID"), tier,
	)
	if err != nil {
		respondCartError(w, r, err)
		return
	}
	respondCart(w, c)
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Clear(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		respondCartError(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "cart cleared",
		"cart":    c,
	})
}
