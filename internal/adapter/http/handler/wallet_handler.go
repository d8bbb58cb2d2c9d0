package handler

import (
	"strconv"

	"coursepay/internal/adapter/http/dto"
	"coursepay/internal/adapter/http/middleware"
	"coursepay/internal/core/domain"
	"coursepay/internal/core/ports"
	"coursepay/pkg/apperror"
	"coursepay/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderIdempotencyKey carries the caller-supplied operation key on
// mutating wallet endpoints.
const HeaderIdempotencyKey = "Idempotency-Key"

// WalletHandler handles wallet-related endpoints.
type WalletHandler struct {
	ledgerSvc    ports.LedgerService
	checkoutSvc  ports.CheckoutService
	reportingSvc ports.ReportingService
	exponent     int32
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(ledgerSvc ports.LedgerService, checkoutSvc ports.CheckoutService, reportingSvc ports.ReportingService, exponent int32) *WalletHandler {
	return &WalletHandler{
		ledgerSvc:    ledgerSvc,
		checkoutSvc:  checkoutSvc,
		reportingSvc: reportingSvc,
		exponent:     exponent,
	}
}

// currentUserID extracts the authenticated user from the context.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(middleware.CtxUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// idempotencyKey reads the optional operation key header.
func idempotencyKey(c *gin.Context) *string {
	if key := c.GetHeader(HeaderIdempotencyKey); key != "" {
		return &key
	}
	return nil
}

// GetBalance handles GET /api/v1/wallets/balance.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	balance, currency, err := h.reportingSvc.GetBalance(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{
		Balance:  balance,
		Display:  domain.FormatMinor(balance, h.exponent),
		Currency: currency,
	})
}

// ListTransactions handles GET /api/v1/wallets/transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	params, err := parseListParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	entries, total, err := h.reportingSvc.ListTransactions(c.Request.Context(), userID, params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.EntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, toEntryResponse(&entries[i]))
	}
	totalPages := 0
	if params.PageSize > 0 {
		totalPages = int((total + int64(params.PageSize) - 1) / int64(params.PageSize))
	}

	response.OK(c, dto.EntryListResponse{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	})
}

// GetStats handles GET /api/v1/wallets/stats.
func (h *WalletHandler) GetStats(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	stats, err := h.reportingSvc.GetWalletStats(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, stats)
}

// Transfer handles POST /api/v1/wallets/transfer.
func (h *WalletHandler) Transfer(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	toUserID, err := uuid.Parse(req.ToUserID)
	if err != nil {
		response.Error(c, apperror.Validation("to_user_id must be a UUID"))
		return
	}

	result, err := h.ledgerSvc.Transfer(c.Request.Context(), ports.TransferParams{
		FromUserID:     userID,
		ToUserID:       toUserID,
		Amount:         req.Amount,
		Reference:      req.Reference,
		IdempotencyKey: idempotencyKey(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.TransferResponse{
		TransferGroupID: result.GroupID.String(),
		Debit:           toEntryResponse(result.Debit),
		Credit:          toEntryResponse(result.Credit),
	})
}

// Withdraw handles POST /api/v1/wallets/withdraw.
func (h *WalletHandler) Withdraw(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	entry, err := h.checkoutSvc.Withdraw(c.Request.Context(), ports.WithdrawParams{
		UserID:         userID,
		Amount:         req.Amount,
		Destination:    req.Destination,
		IdempotencyKey: idempotencyKey(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toEntryResponse(entry))
}

func parseListParams(c *gin.Context) (ports.EntryListParams, error) {
	params := ports.EntryListParams{Page: 1, PageSize: 20}

	if v := c.Query("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return params, apperror.Validation("page must be a positive integer")
		}
		params.Page = page
	}
	if v := c.Query("page_size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 1 {
			return params, apperror.Validation("page_size must be a positive integer")
		}
		params.PageSize = size
	}
	if v := c.Query("status"); v != "" {
		status := domain.EntryStatus(v)
		params.Status = &status
	}
	if v := c.Query("direction"); v != "" {
		direction := domain.EntryDirection(v)
		params.Direction = &direction
	}
	if v := c.Query("from"); v != "" {
		from, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return params, apperror.Validation("from must be a unix timestamp")
		}
		params.From = &from
	}
	if v := c.Query("to"); v != "" {
		to, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return params, apperror.Validation("to must be a unix timestamp")
		}
		params.To = &to
	}
	return params, nil
}
