package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("WAL_001", "Insufficient balance in wallet", http.StatusPaymentRequired),
			expected: "[WAL_001] Insufficient balance in wallet",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("SYS_001", "DB error", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap("SYS_001", "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
}

func TestAppError_IsNilUnwrap(t *testing.T) {
	appErr := New("WAL_002", "test", http.StatusBadRequest)
	assert.Nil(t, appErr.Unwrap())
}

func TestWalletErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"InsufficientFunds", ErrInsufficientFunds(), "WAL_001", 402},
		{"InvalidAmount", ErrInvalidAmount(), "WAL_002", 400},
		{"WalletInactive", ErrWalletInactive(), "WAL_003", 403},
		{"SelfTransfer", ErrSelfTransfer(), "WAL_004", 400},
		{"UnknownWallet", ErrUnknownWallet(), "WAL_005", 404},
		{"IdempotencyKeyMismatch", ErrIdempotencyKeyMismatch(), "WAL_006", 409},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestValidation(t *testing.T) {
	err := Validation("item_id is required for course purchases")

	assert.Equal(t, "VAL_001", err.Code)
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus)
	assert.Equal(t, "item_id is required for course purchases", err.Message)
}

func TestSettlementErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"UnknownPayment", ErrUnknownPayment(), "PAY_001", 404},
		{"InvalidTransition", ErrInvalidTransition("COMPLETED", "success"), "PAY_002", 409},
		{"EventAmountMismatch", ErrEventAmountMismatch(), "PAY_003", 409},
		{"NotFound", ErrNotFound("coupon"), "PAY_004", 404},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestInvalidTransition_Message(t *testing.T) {
	err := ErrInvalidTransition("REFUNDED", "success")
	assert.Contains(t, err.Message, "REFUNDED")
	assert.Contains(t, err.Message, "success")
}

func TestSecurityErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"InvalidSignature", ErrInvalidSignature(), "SEC_001", 401},
		{"TimestampExpired", ErrTimestampExpired(), "SEC_002", 403},
		{"NonceUsed", ErrNonceUsed(), "SEC_003", 403},
		{"InvalidToken", ErrInvalidToken(), "SEC_004", 401},
		{"UnknownGateway", ErrUnknownGateway(), "SEC_005", 401},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestInternalError_WrapsCause(t *testing.T) {
	cause := fmt.Errorf("pool exhausted")
	err := InternalError(cause)

	assert.Equal(t, "SYS_001", err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus)
	assert.True(t, errors.Is(err, cause))
}
