package handler

import (
	"coursepay/internal/adapter/http/dto"
	"coursepay/internal/core/domain"
	"coursepay/internal/core/ports"
	"coursepay/pkg/apperror"
	"coursepay/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CheckoutHandler handles checkout and coupon endpoints.
type CheckoutHandler struct {
	checkoutSvc ports.CheckoutService
	couponSvc   ports.CouponService
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(checkoutSvc ports.CheckoutService, couponSvc ports.CouponService) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutSvc: checkoutSvc,
		couponSvc:   couponSvc,
	}
}

// Checkout handles POST /api/v1/checkout.
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	var itemID *uuid.UUID
	if req.ItemID != nil {
		parsed, err := uuid.Parse(*req.ItemID)
		if err != nil {
			response.Error(c, apperror.Validation("item_id must be a UUID"))
			return
		}
		itemID = &parsed
	}

	result, err := h.checkoutSvc.Checkout(c.Request.Context(), ports.CheckoutParams{
		UserID:         userID,
		ItemType:       domain.PaymentItemType(req.ItemType),
		ItemID:         itemID,
		Amount:         req.Amount,
		Gateway:        req.Gateway,
		CouponCode:     req.CouponCode,
		IdempotencyKey: idempotencyKey(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.CheckoutResponse{
		Payment: toPaymentResponse(result.Payment),
	}
	if result.Quote.Code != "" {
		quote := toQuoteResponse(result.Quote, req.Amount)
		resp.Quote = &quote
	}
	if result.Entry != nil {
		entry := toEntryResponse(result.Entry)
		resp.Entry = &entry
	}

	response.Created(c, resp)
}

// CouponPreview handles POST /api/v1/coupons/preview.
func (h *CheckoutHandler) CouponPreview(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CouponPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	quote, err := h.couponSvc.Apply(c.Request.Context(), req.Code, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toQuoteResponse(quote, req.Amount))
}
