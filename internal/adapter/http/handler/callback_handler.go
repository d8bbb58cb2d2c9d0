package handler

import (
	"net/http"
	"strconv"

	"coursepay/internal/adapter/http/dto"
	"coursepay/internal/adapter/http/middleware"
	"coursepay/internal/core/domain"
	"coursepay/internal/core/ports"
	"coursepay/pkg/apperror"
	"coursepay/pkg/response"

	"github.com/gin-gonic/gin"
)

// CallbackHandler handles gateway settlement callbacks and the
// operator review feed.
type CallbackHandler struct {
	settlementSvc ports.SettlementService
}

// NewCallbackHandler creates a new CallbackHandler.
func NewCallbackHandler(settlementSvc ports.SettlementService) *CallbackHandler {
	return &CallbackHandler{settlementSvc: settlementSvc}
}

// GatewayCallback handles POST /api/v1/gateway/callback. The request
// has already passed HMAC, timestamp and nonce checks.
func (h *CallbackHandler) GatewayCallback(c *gin.Context) {
	gatewayVal, ok := c.Get(middleware.CtxGateway)
	if !ok {
		response.Error(c, apperror.ErrInvalidSignature())
		return
	}
	gateway := gatewayVal.(string)

	var req dto.GatewayEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	payment, err := h.settlementSvc.RecordGatewayEvent(c.Request.Context(), gateway, domain.GatewayEvent{
		GatewayTxID:      req.GatewayTxID,
		PaymentReference: req.PaymentReference,
		Outcome:          domain.GatewayOutcome(req.Outcome),
		Amount:           req.Amount,
		Currency:         req.Currency,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toPaymentResponse(payment))
}

// ListReviews handles GET /api/v1/settlements/reviews.
func (h *CallbackHandler) ListReviews(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	page := 1
	pageSize := 20
	if v := c.Query("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p < 1 {
			response.Error(c, apperror.Validation("page must be a positive integer"))
			return
		}
		page = p
	}
	if v := c.Query("page_size"); v != "" {
		s, err := strconv.Atoi(v)
		if err != nil || s < 1 {
			response.Error(c, apperror.Validation("page_size must be a positive integer"))
			return
		}
		pageSize = s
	}

	reviews, total, err := h.settlementSvc.ListReviews(c.Request.Context(), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.ReviewResponse, 0, len(reviews))
	for i := range reviews {
		items = append(items, toReviewResponse(&reviews[i]))
	}

	response.OK(c, dto.ReviewListResponse{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// HealthCheck returns a handler that pings every registered dependency.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		type depStatus struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		}

		deps := make(map[string]depStatus)
		allHealthy := true

		for _, checker := range checkers {
			if err := checker.Ping(c.Request.Context()); err != nil {
				deps[checker.Name()] = depStatus{Status: "unhealthy", Error: err.Error()}
				allHealthy = false
			} else {
				deps[checker.Name()] = depStatus{Status: "healthy"}
			}
		}

		status := "healthy"
		httpCode := http.StatusOK
		if !allHealthy {
			status = "degraded"
			httpCode = http.StatusServiceUnavailable
		}

		c.JSON(httpCode, gin.H{
			"status":       status,
			"dependencies": deps,
		})
	}
}
