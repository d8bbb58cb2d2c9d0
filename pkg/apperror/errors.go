package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Wallet & Ledger (WAL) ----

func ErrInsufficientFunds() *AppError {
	return New("WAL_001", "Insufficient balance in wallet", http.StatusPaymentRequired)
}

func ErrInvalidAmount() *AppError {
	return New("WAL_002", "Amount must be a positive number of minor units", http.StatusBadRequest)
}

func ErrWalletInactive() *AppError {
	return New("WAL_003", "Wallet is inactive", http.StatusForbidden)
}

func ErrSelfTransfer() *AppError {
	return New("WAL_004", "Cannot transfer to the same wallet", http.StatusBadRequest)
}

func ErrUnknownWallet() *AppError {
	return New("WAL_005", "Wallet not found", http.StatusNotFound)
}

// ErrIdempotencyKeyMismatch signals a key reused with a different amount
// than originally recorded. Always a caller bug.
func ErrIdempotencyKeyMismatch() *AppError {
	return New("WAL_006", "Idempotency key already used with a different amount", http.StatusConflict)
}

// ---- Payments & Settlement (PAY) ----

func ErrUnknownPayment() *AppError {
	return New("PAY_001", "Payment not found", http.StatusNotFound)
}

func ErrInvalidTransition(from string, event string) *AppError {
	return New("PAY_002", fmt.Sprintf("Event %q is not valid for a payment in state %q", event, from), http.StatusConflict)
}

func ErrEventAmountMismatch() *AppError {
	return New("PAY_003", "Settlement event amount does not match the payment", http.StatusConflict)
}

func ErrNotFound(entity string) *AppError {
	return New("PAY_004", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Security (SEC) ----

func ErrInvalidSignature() *AppError {
	return New("SEC_001", "Invalid signature", http.StatusUnauthorized)
}

func ErrTimestampExpired() *AppError {
	return New("SEC_002", "Request timestamp expired", http.StatusForbidden)
}

func ErrNonceUsed() *AppError {
	return New("SEC_003", "Nonce has already been used", http.StatusForbidden)
}

func ErrInvalidToken() *AppError {
	return New("SEC_004", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrUnknownGateway() *AppError {
	return New("SEC_005", "Unknown payment gateway", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// ---- Request validation (VAL) ----

// Validation returns a VAL_001 error for a malformed or inconsistent
// request, with a caller-supplied message.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}
