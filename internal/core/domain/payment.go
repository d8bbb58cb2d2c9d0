package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentItemType says what a payment pays for. TOPUP funds the wallet
// itself and has no item.
type PaymentItemType string

const (
	PaymentItemCourse PaymentItemType = "COURSE"
	PaymentItemEbook  PaymentItemType = "EBOOK"
	PaymentItemTopup  PaymentItemType = "TOPUP"
)

// PaymentStatus is the settlement state machine:
// PENDING -> COMPLETED | FAILED, COMPLETED -> REFUNDED.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// GatewayWallet marks payments funded synchronously from the user's
// wallet rather than through an external gateway.
const GatewayWallet = "wallet"

// Payment ties an external-gateway transaction (or an internal
// wallet-funded purchase) to a course/ebook purchase or wallet top-up.
// One payment produces at most one completed ledger entry, enforced via
// the entry idempotency key.
type Payment struct {
	ID             uuid.UUID       `json:"id"`
	UserID         uuid.UUID       `json:"user_id"`
	ItemType       PaymentItemType `json:"item_type"`
	ItemID         *uuid.UUID      `json:"item_id,omitempty"`
	Amount         int64           `json:"amount"` // minor units, post-coupon
	Currency       string          `json:"currency"`
	Status         PaymentStatus   `json:"status"`
	Gateway        string          `json:"gateway"`
	GatewayTxID    *string         `json:"gateway_tx_id,omitempty"`
	CouponCode     *string         `json:"coupon_code,omitempty"`
	DiscountAmount int64           `json:"discount_amount"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// IsTerminal returns true when no further settlement event can move the
// payment, i.e. FAILED or REFUNDED. COMPLETED can still be refunded.
func (p *Payment) IsTerminal() bool {
	return p.Status == PaymentStatusFailed || p.Status == PaymentStatusRefunded
}

// WalletFunded returns true if the payment was debited from the user's
// wallet at checkout.
func (p *Payment) WalletFunded() bool {
	return p.Gateway == GatewayWallet
}

// GrantsAccess returns true if completing the payment should enroll the
// user into the purchased item.
func (p *Payment) GrantsAccess() bool {
	return (p.ItemType == PaymentItemCourse || p.ItemType == PaymentItemEbook) && p.ItemID != nil
}

// GatewayOutcome is the externally delivered settlement outcome.
type GatewayOutcome string

const (
	GatewayOutcomeSuccess GatewayOutcome = "success"
	GatewayOutcomeFailure GatewayOutcome = "failure"
	GatewayOutcomeRefund  GatewayOutcome = "refund"
)

// GatewayEvent is a payment-gateway settlement callback. Events may be
// delivered more than once and out of order.
type GatewayEvent struct {
	GatewayTxID      string         `json:"gateway_transaction_id"`
	PaymentReference string         `json:"payment_reference"` // Payment.ID as string
	Outcome          GatewayOutcome `json:"outcome"`
	Amount           int64          `json:"amount"`
	Currency         string         `json:"currency"`
}

// SettlementReview is an operational review record for settlement events
// that could not be applied. Append-only; never silently dropped.
type SettlementReview struct {
	ID          uuid.UUID `json:"id"`
	GatewayTxID string    `json:"gateway_tx_id"`
	PaymentRef  string    `json:"payment_ref"`
	Reason      string    `json:"reason"`
	Detail      string    `json:"detail"`
	CreatedAt   time.Time `json:"created_at"`
}
