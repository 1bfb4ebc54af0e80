package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/nazakat/storefront/internal/domain/coupon"
)

type validateCouponRequest struct {
	Code        string          `json:"code"`
	OrderAmount decimal.Decimal `json:"orderAmount"`
}

type couponView struct {
	Code            string           `json:"code"`
	Description     string           `json:"description,omitempty"`
	DiscountType    coupon.Type      `json:"discountType"`
	DiscountValue   decimal.Decimal  `json:"discountValue"`
	MinimumAmount   decimal.Decimal  `json:"minimumAmount"`
	MaximumDiscount *decimal.Decimal `json:"maximumDiscount,omitempty"`
	ValidUntil      *time.Time       `json:"validUntil,omitempty"`
}

func (h *Handler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var req validateCouponRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Code == "" {
		respondError(w, http.StatusBadRequest, "Coupon code is required")
		return
	}

	q, err := h.coupons.Quote(r.Context(), req.Code, req.OrderAmount)
	if err != nil {
		respondCouponError(w, r, err)
		return
	}

	total := req.OrderAmount.Sub(q.Amount)
	respond(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Coupon applied successfully",
		"coupon": couponView{
			Code:            q.Code,
			Description:     q.Description,
			DiscountType:    q.Type,
			DiscountValue:   q.Value,
			MinimumAmount:   q.MinimumAmount,
			MaximumDiscount: q.MaximumDiscount,
		},
		"orderSummary": map[string]any{
			"subtotal": req.OrderAmount,
			"discount": q.Amount,
			"total":    total,
		},
	})
}

func (h *Handler) ListActiveCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.couponDB.ListActive(r.Context())
	if err != nil {
		respondInternal(w, r, errors.Wrap(err, "list active coupons"))
		return
	}

	out := make([]couponView, len(coupons))
	for i, c := range coupons {
		validUntil := c.ValidUntil
		out[i] = couponView{
			Code:            c.Code,
			Description:     c.Description,
			DiscountType:    c.Type,
			DiscountValue:   c.Value,
			MinimumAmount:   c.MinimumAmount,
			MaximumDiscount: c.MaximumDiscount,
			ValidUntil:      &validUntil,
		}
	}
	respond(w, http.StatusOK, map[string]any{
		"success": true,
		"coupons": out,
	})
}

type createCouponRequest struct {
	Code            string           `json:"code"`
	Description     string           `json:"description"`
	DiscountType    coupon.Type      `json:"discountType"`
	DiscountValue   decimal.Decimal  `json:"discountValue"`
	MinimumAmount   decimal.Decimal  `json:"minimumAmount"`
	MaximumDiscount *decimal.Decimal `json:"maximumDiscount"`
	UsageLimit      int              `json:"usageLimit"`
	ValidFrom       *time.Time       `json:"validFrom"`
	ValidUntil      *time.Time       `json:"validUntil"`
	Categories      []string         `json:"applicableCategories"`
}

func (h *Handler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req createCouponRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Code == "" {
		respondError(w, http.StatusBadRequest, "Coupon code is required")
		return
	}
	if req.DiscountType != coupon.TypePercentage && req.DiscountType != coupon.TypeFixed {
		respondError(w, http.StatusBadRequest, "discountType must be percentage or fixed")
		return
	}
	if req.DiscountValue.LessThanOrEqual(decimal.Zero) {
		respondError(w, http.StatusBadRequest, "discountValue must be positive")
		return
	}

	now := time.Now()
	c := &coupon.Coupon{
		Code:            req.Code,
		Description:     req.Description,
		Type:            req.DiscountType,
		Value:           req.DiscountValue,
		MinimumAmount:   req.MinimumAmount,
		MaximumDiscount: req.MaximumDiscount,
		UsageLimit:      req.UsageLimit,
		ValidFrom:       now,
		ValidUntil:      now.AddDate(0, 1, 0),
		Active:          true,
		Categories:      req.Categories,
	}
	if req.ValidFrom != nil {
		c.ValidFrom = *req.ValidFrom
	}
	if req.ValidUntil != nil {
		c.ValidUntil = *req.ValidUntil
	}

	if err := h.couponDB.Create(r.Context(), c); err != nil {
		if errors.Is(err, coupon.ErrDuplicateCode) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondInternal(w, r, errors.Wrap(err, "create coupon"))
		return
	}

	respond(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Coupon created successfully",
		"coupon": couponView{
			Code:            c.Code,
			Description:     c.Description,
			DiscountType:    c.Type,
			DiscountValue:   c.Value,
			MinimumAmount:   c.MinimumAmount,
			MaximumDiscount: c.MaximumDiscount,
		},
	})
}

// respondCouponError maps coupon domain errors onto the API error envelope.
// An unknown code is a 404; every other rejection reason is a 400.
func respondCouponError(w http.ResponseWriter, r *http.Request, err error) {
	var minErr *coupon.MinimumAmountError
	switch {
	case errors.Is(err, coupon.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, coupon.ErrInactive),
		errors.Is(err, coupon.ErrNotYetActive),
		errors.Is(err, coupon.ErrExpired),
		errors.Is(err, coupon.ErrUsageLimitReached):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &minErr):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondInternal(w, r, err)
	}
}
