package ports

import (
	"context"
	"time"

	"coursepay/internal/core/domain"

	"github.com/google/uuid"
)

// MutationParams describes a single-wallet balance mutation.
type MutationParams struct {
	UserID         uuid.UUID
	Amount         int64 // minor units, must be > 0
	Reference      string
	IdempotencyKey *string
}

// TransferParams describes an atomic two-wallet transfer.
type TransferParams struct {
	FromUserID     uuid.UUID
	ToUserID       uuid.UUID
	Amount         int64
	Reference      string
	IdempotencyKey *string
}

// TransferResult carries the paired entries of a completed transfer.
type TransferResult struct {
	GroupID uuid.UUID
	Debit   *domain.LedgerEntry
	Credit  *domain.LedgerEntry
}

// LedgerService is the balance mutator. Every method serializes on the
// wallet row lock, so concurrent callers observe a total order of
// mutations per wallet.
type LedgerService interface {
	Credit(ctx context.Context, p MutationParams) (*domain.LedgerEntry, error)
	Debit(ctx context.Context, p MutationParams) (*domain.LedgerEntry, error)
	Transfer(ctx context.Context, p TransferParams) (*TransferResult, error)
	// AppendPendingCredit records a credit that does not yet count toward
	// the balance. Used for gateway top-ups awaiting settlement.
	AppendPendingCredit(ctx context.Context, p MutationParams) (*domain.LedgerEntry, error)
	// CompletePendingCredit finalizes the pending entry bound to key and
	// applies its amount to the wallet balance. Idempotent: an already
	// completed entry is returned as-is.
	CompletePendingCredit(ctx context.Context, key string) (*domain.LedgerEntry, error)
	// FailPendingCredit marks the pending entry bound to key as FAILED
	// without touching the balance. Idempotent.
	FailPendingCredit(ctx context.Context, key string) (*domain.LedgerEntry, error)
	GetBalance(ctx context.Context, userID uuid.UUID) (int64, string, error)
}

// SettlementService reconciles asynchronous gateway events against
// payments and the ledger.
type SettlementService interface {
	RecordGatewayEvent(ctx context.Context, gateway string, event domain.GatewayEvent) (*domain.Payment, error)
	ListReviews(ctx context.Context, page, pageSize int) ([]domain.SettlementReview, int64, error)
}

// CheckoutParams describes a purchase or top-up request.
type CheckoutParams struct {
	UserID         uuid.UUID
	ItemType       domain.PaymentItemType
	ItemID         *uuid.UUID
	Amount         int64
	Gateway        string // domain.GatewayWallet or an external gateway name
	CouponCode     *string
	IdempotencyKey *string
}

// CheckoutResult is the outcome of a checkout request.
type CheckoutResult struct {
	Payment *domain.Payment
	Quote   domain.CouponQuote
	// Entry is set for wallet-funded checkouts and gateway top-ups
	// (pending); nil for externally paid purchases.
	Entry *domain.LedgerEntry
}

// WithdrawParams describes a wallet withdrawal to an external account.
type WithdrawParams struct {
	UserID         uuid.UUID
	Amount         int64
	Destination    string
	IdempotencyKey *string
}

// CheckoutService orchestrates purchases, top-ups and withdrawals.
type CheckoutService interface {
	Checkout(ctx context.Context, p CheckoutParams) (*CheckoutResult, error)
	Withdraw(ctx context.Context, p WithdrawParams) (*domain.LedgerEntry, error)
}

// CouponService resolves coupon codes against the catalog and prices
// an amount. Unknown or inactive codes yield Valid=false, not an error.
type CouponService interface {
	Apply(ctx context.Context, code string, baseAmount int64) (domain.CouponQuote, error)
}

// WalletStats is an audit view of a wallet: the cached balance checked
// against the replayed entry totals.
type WalletStats struct {
	WalletID        uuid.UUID `json:"wallet_id"`
	Currency        string    `json:"currency"`
	TotalCredits    int64     `json:"total_credits"`
	TotalDebits     int64     `json:"total_debits"`
	CachedBalance   int64     `json:"cached_balance"`
	ComputedBalance int64     `json:"computed_balance"`
	Consistent      bool      `json:"consistent"`
}

// ReportingService provides the read side of the ledger.
type ReportingService interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (int64, string, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, params EntryListParams) ([]domain.LedgerEntry, int64, error)
	GetWalletStats(ctx context.Context, userID uuid.UUID) (*WalletStats, error)
}

// TokenClaims is the authenticated identity extracted from a JWT.
type TokenClaims struct {
	UserID uuid.UUID
}

// TokenService issues and validates user access tokens.
type TokenService interface {
	Generate(userID uuid.UUID) (token string, expiresAt time.Time, err error)
	Validate(token string) (*TokenClaims, error)
}

// SignatureService computes and checks HMAC signatures for gateway
// callbacks and outbound enrollment calls.
type SignatureService interface {
	Sign(secret, payload string) string
	Verify(secret, payload, signature string) bool
	BuildCanonicalString(method, path string, timestamp int64, nonce, body string) string
}

// IdempotencyCache is the fast-path duplicate detector in front of the
// ledger's durable idempotency index. A cache miss returns nil, nil.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) (*domain.LedgerEntry, error)
	Set(ctx context.Context, key string, entry *domain.LedgerEntry, ttl time.Duration) error
}

// NonceStore tracks gateway callback nonces for replay protection.
// CheckAndSet returns false when the nonce was already seen.
type NonceStore interface {
	CheckAndSet(ctx context.Context, gateway, nonce string, ttl time.Duration) (bool, error)
}

// RateLimiter throttles callers by key within a sliding window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// AccessGranter notifies the enrollment system that a user gained or
// lost access to purchased content. Calls are idempotent on the
// collaborator side.
type AccessGranter interface {
	GrantAccess(ctx context.Context, userID, itemID uuid.UUID, itemType domain.PaymentItemType) error
	RevokeAccess(ctx context.Context, userID, itemID uuid.UUID, itemType domain.PaymentItemType) error
}
