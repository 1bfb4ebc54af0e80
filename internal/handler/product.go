package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/nazakat/storefront/internal/domain/product"
)

// resolveImage converts a stored image path into an absolute URL.
func (h *Handler) resolveImage(path string) string {
	if path == "" || h.cfg.ImageBaseURL == "" {
		return path
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimSuffix(h.cfg.ImageBaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
}

func (h *Handler) presentProduct(p *product.Product) *product.Product {
	out := *p
	out.Image = h.resolveImage(p.Image)
	if len(p.Images) > 0 {
		out.Images = make([]string, len(p.Images))
		for i, img := range p.Images {
			out.Images[i] = h.resolveImage(img)
		}
	}
	return &out
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		respondInternal(w, r, errors.Wrap(err, "list products"))
		return
	}

	out := make([]*product.Product, len(products))
	for i := range products {
		out[i] = h.presentProduct(&products[i])
	}
	respond(w, http.StatusOK, map[string]any{
		"success":  true,
		"products": out,
	})
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productID")

	p, err := h.products.GetByID(r.Context(), id)
	switch {
	case errors.Is(err, product.ErrNotFound):
		respondError(w, http.StatusNotFound, "Product not found")
		return
	case err != nil:
		respondInternal(w, r, errors.Wrap(err, "get product"))
		return
	}

	respond(w, http.StatusOK, map[string]any{
		"success": true,
		"product": h.presentProduct(p),
	})
}
