package ports

import (
	"context"
	"errors"

	"coursepay/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrDuplicateKey is returned by EntryRepository.Create when the entry's
// idempotency key is already bound to another entry. Storage backends
// translate their native uniqueness failure (e.g. SQLSTATE 23505) into
// this sentinel so the ledger can treat a concurrent duplicate as
// "already reserved, fetch the existing result".
var ErrDuplicateKey = errors.New("idempotency key already reserved")

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx run inside transaction blocks and take the
// per-wallet row lock that serializes all balance mutations.
type WalletRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	// GetOrCreateForUpdate locks the user's wallet row, lazily inserting
	// a zero-balance wallet first if none exists. MUST be called within a
	// transaction; the lock is held until commit/rollback.
	GetOrCreateForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID, currency string) (*domain.Wallet, error)
	// GetForUpdate locks an existing wallet row by its id.
	GetForUpdate(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (*domain.Wallet, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance int64) error
	SetActive(ctx context.Context, userID uuid.UUID, active bool) error
}

// EntryRepository defines persistence operations for ledger entries.
type EntryRepository interface {
	Create(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.LedgerEntry, error)
	// Finalize moves a PENDING entry to COMPLETED or FAILED within a
	// transaction. Returns false if the entry was not PENDING (already
	// terminal), which callers treat as an idempotent no-op.
	Finalize(ctx context.Context, tx pgx.Tx, id uuid.UUID, to domain.EntryStatus) (bool, error)
	// GetByTransferGroup returns both legs of a transfer, debit first.
	GetByTransferGroup(ctx context.Context, groupID uuid.UUID) ([]domain.LedgerEntry, error)
	List(ctx context.Context, params EntryListParams) ([]domain.LedgerEntry, int64, error)
	// SumCompleted returns the completed credit and debit totals for a
	// wallet, used to audit the cached balance.
	SumCompleted(ctx context.Context, walletID uuid.UUID) (credits int64, debits int64, err error)
}

// EntryListParams holds filter + pagination for listing ledger entries.
// Results are ordered by creation time ascending.
type EntryListParams struct {
	WalletID  uuid.UUID
	Status    *domain.EntryStatus
	Direction *domain.EntryDirection
	From      *int64 // Unix timestamp
	To        *int64 // Unix timestamp
	Page      int
	PageSize  int
}

// PaymentRepository defines persistence operations for payments.
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	GetByGatewayTxID(ctx context.Context, gatewayTxID string) (*domain.Payment, error)
	// TransitionStatus is a compare-and-swap on the payment status.
	// Returns false when the payment was not in the expected state, which
	// is how duplicate settlement events are detected.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to domain.PaymentStatus, gatewayTxID *string) (bool, error)
}

// CouponRepository defines read access to the coupon catalog.
type CouponRepository interface {
	GetByCode(ctx context.Context, code string) (*domain.Coupon, error) // nil, nil when unknown
}

// ReviewRepository stores settlement events that could not be applied,
// for manual operational review.
type ReviewRepository interface {
	Create(ctx context.Context, review *domain.SettlementReview) error
	List(ctx context.Context, page, pageSize int) ([]domain.SettlementReview, int64, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
