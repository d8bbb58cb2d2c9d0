package domain

import (
	"time"

	"github.com/google/uuid"
)

// EntryDirection says which way money moved.
type EntryDirection string

const (
	EntryDirectionCredit EntryDirection = "CREDIT"
	EntryDirectionDebit  EntryDirection = "DEBIT"
)

// EntryStatus is the lifecycle state of a ledger entry. PENDING is used
// only for gateway-originated credits awaiting settlement; internal
// operations create entries directly as COMPLETED.
type EntryStatus string

const (
	EntryStatusPending   EntryStatus = "PENDING"
	EntryStatusCompleted EntryStatus = "COMPLETED"
	EntryStatusFailed    EntryStatus = "FAILED"
)

// LedgerEntry is an immutable record of one balance movement. Once an
// entry reaches COMPLETED or FAILED it is never edited; corrections are
// new compensating entries.
type LedgerEntry struct {
	ID              uuid.UUID      `json:"id"`
	WalletID        uuid.UUID      `json:"wallet_id"`
	Direction       EntryDirection `json:"direction"`
	Amount          int64          `json:"amount"` // positive minor units
	Status          EntryStatus    `json:"status"`
	Reference       string         `json:"reference"`
	IdempotencyKey  *string        `json:"idempotency_key,omitempty"`
	TransferGroupID *uuid.UUID     `json:"transfer_group_id,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
}

// IsTerminal returns true once the entry can no longer change.
func (e *LedgerEntry) IsTerminal() bool {
	return e.Status == EntryStatusCompleted || e.Status == EntryStatusFailed
}

// Signed returns the amount with debits negated, i.e. the entry's
// contribution to the wallet balance once completed.
func (e *LedgerEntry) Signed() int64 {
	if e.Direction == EntryDirectionDebit {
		return -e.Amount
	}
	return e.Amount
}

// BuildPaymentEntryKey is the idempotency key binding a pending gateway
// credit to the payment it settles.
func BuildPaymentEntryKey(paymentID uuid.UUID) string {
	return "payment:" + paymentID.String()
}

// BuildRefundEntryKey is the idempotency key for the compensating credit
// issued when a wallet-funded payment is refunded.
func BuildRefundEntryKey(paymentID uuid.UUID) string {
	return "refund:" + paymentID.String()
}
