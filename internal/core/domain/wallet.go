package domain

import (
	"time"

	"github.com/google/uuid"
)

// Wallet is a per-user monetary account holding a single balance in one
// currency. Balance is a cache over the completed ledger entries: at any
// point balance == sum(completed credits) - sum(completed debits).
type Wallet struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Currency  string    `json:"currency"`
	Balance   int64     `json:"balance"` // minor units
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewWallet creates a zero-balance active wallet for a user. Wallets are
// created lazily inside the first mutating transaction that touches them.
func NewWallet(userID uuid.UUID, currency string) *Wallet {
	now := time.Now().UTC()
	return &Wallet{
		ID:        uuid.New(),
		UserID:    userID,
		Currency:  currency,
		Balance:   0,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
