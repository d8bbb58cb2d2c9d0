package service

import (
	"context"
	"fmt"
	"time"

	"coursepay/internal/core/domain"
	"coursepay/internal/core/ports"
	"coursepay/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Review reasons recorded for settlement events that could not be
// applied as-is.
const (
	reviewUnknownPayment    = "unknown_payment"
	reviewAmountMismatch    = "amount_mismatch"
	reviewInvalidTransition = "invalid_transition"
	reviewLedgerRejected    = "ledger_rejected"
	reviewAccessGrant       = "access_grant_failed"
	reviewExternalRefund    = "external_refund"
)

// SettlementServiceImpl implements ports.SettlementService. It is the
// only caller allowed to drive the ledger on behalf of asynchronous,
// untrusted gateway events.
type SettlementServiceImpl struct {
	paymentRepo ports.PaymentRepository
	reviewRepo  ports.ReviewRepository
	ledger      ports.LedgerService
	access      ports.AccessGranter
	log         zerolog.Logger
}

// NewSettlementService creates a new SettlementServiceImpl.
func NewSettlementService(
	paymentRepo ports.PaymentRepository,
	reviewRepo ports.ReviewRepository,
	ledger ports.LedgerService,
	access ports.AccessGranter,
	log zerolog.Logger,
) *SettlementServiceImpl {
	return &SettlementServiceImpl{
		paymentRepo: paymentRepo,
		reviewRepo:  reviewRepo,
		ledger:      ledger,
		access:      access,
		log:         log,
	}
}

// RecordGatewayEvent applies a gateway settlement outcome to the
// referenced payment. Duplicate deliveries of the same outcome are
// accepted and produce no new ledger entry; anything that cannot be
// applied is written to the review queue before the error is returned.
func (s *SettlementServiceImpl) RecordGatewayEvent(ctx context.Context, gateway string, event domain.GatewayEvent) (*domain.Payment, error) {
	paymentID, err := uuid.Parse(event.PaymentReference)
	if err != nil {
		s.review(ctx, event, reviewUnknownPayment, "payment reference is not a valid id")
		return nil, apperror.ErrUnknownPayment()
	}

	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load payment: %w", err))
	}
	if payment == nil {
		s.review(ctx, event, reviewUnknownPayment, "no payment with this reference")
		return nil, apperror.ErrUnknownPayment()
	}

	if event.Amount != payment.Amount || event.Currency != payment.Currency {
		s.review(ctx, event, reviewAmountMismatch, fmt.Sprintf(
			"event %d %s vs payment %d %s", event.Amount, event.Currency, payment.Amount, payment.Currency))
		return nil, apperror.ErrEventAmountMismatch()
	}

	switch event.Outcome {
	case domain.GatewayOutcomeSuccess:
		return s.settleSuccess(ctx, gateway, payment, event)
	case domain.GatewayOutcomeFailure:
		return s.settleFailure(ctx, payment, event)
	case domain.GatewayOutcomeRefund:
		return s.settleRefund(ctx, payment, event)
	default:
		s.review(ctx, event, reviewInvalidTransition, fmt.Sprintf("unknown outcome %q", event.Outcome))
		return nil, apperror.Validation(fmt.Sprintf("unknown gateway outcome %q", event.Outcome))
	}
}

func (s *SettlementServiceImpl) settleSuccess(ctx context.Context, gateway string, payment *domain.Payment, event domain.GatewayEvent) (*domain.Payment, error) {
	if payment.Status == domain.PaymentStatusCompleted {
		s.log.Debug().Str("payment_id", payment.ID.String()).Msg("duplicate success event ignored")
		return payment, nil
	}
	if payment.IsTerminal() {
		s.review(ctx, event, reviewInvalidTransition, fmt.Sprintf("success event for %s payment", payment.Status))
		return nil, apperror.ErrInvalidTransition(string(payment.Status), string(event.Outcome))
	}

	// Ledger first, payment state second, access grant last. A crash
	// between the steps self-heals on redelivery because every step is
	// idempotent.
	if payment.ItemType == domain.PaymentItemTopup {
		if _, err := s.ledger.CompletePendingCredit(ctx, domain.BuildPaymentEntryKey(payment.ID)); err != nil {
			s.failAfterLedgerReject(ctx, payment, event, err)
			return nil, err
		}
	}

	moved, err := s.paymentRepo.TransitionStatus(ctx, payment.ID, domain.PaymentStatusPending, domain.PaymentStatusCompleted, &event.GatewayTxID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("complete payment: %w", err))
	}
	if !moved {
		return s.reloadAfterRace(ctx, payment.ID, domain.PaymentStatusCompleted, event)
	}
	payment.Status = domain.PaymentStatusCompleted
	payment.GatewayTxID = &event.GatewayTxID
	payment.UpdatedAt = time.Now().UTC()

	if payment.GrantsAccess() {
		if err := s.access.GrantAccess(ctx, payment.UserID, *payment.ItemID, payment.ItemType); err != nil {
			s.log.Error().Err(err).Str("payment_id", payment.ID.String()).Msg("access grant failed")
			s.review(ctx, event, reviewAccessGrant, err.Error())
		}
	}

	s.log.Info().
		Str("payment_id", payment.ID.String()).
		Str("gateway", gateway).
		Str("gateway_tx_id", event.GatewayTxID).
		Msg("payment settled")
	return payment, nil
}

func (s *SettlementServiceImpl) settleFailure(ctx context.Context, payment *domain.Payment, event domain.GatewayEvent) (*domain.Payment, error) {
	if payment.Status == domain.PaymentStatusFailed {
		return payment, nil
	}
	if payment.Status != domain.PaymentStatusPending {
		s.review(ctx, event, reviewInvalidTransition, fmt.Sprintf("failure event for %s payment", payment.Status))
		return nil, apperror.ErrInvalidTransition(string(payment.Status), string(event.Outcome))
	}

	if payment.ItemType == domain.PaymentItemTopup {
		if _, err := s.ledger.FailPendingCredit(ctx, domain.BuildPaymentEntryKey(payment.ID)); err != nil {
			return nil, err
		}
	}

	moved, err := s.paymentRepo.TransitionStatus(ctx, payment.ID, domain.PaymentStatusPending, domain.PaymentStatusFailed, &event.GatewayTxID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("fail payment: %w", err))
	}
	if !moved {
		return s.reloadAfterRace(ctx, payment.ID, domain.PaymentStatusFailed, event)
	}
	payment.Status = domain.PaymentStatusFailed
	payment.GatewayTxID = &event.GatewayTxID
	payment.UpdatedAt = time.Now().UTC()

	s.log.Info().Str("payment_id", payment.ID.String()).Msg("payment marked failed")
	return payment, nil
}

func (s *SettlementServiceImpl) settleRefund(ctx context.Context, payment *domain.Payment, event domain.GatewayEvent) (*domain.Payment, error) {
	if payment.Status == domain.PaymentStatusRefunded {
		return payment, nil
	}
	if payment.Status != domain.PaymentStatusCompleted {
		s.review(ctx, event, reviewInvalidTransition, fmt.Sprintf("refund event for %s payment", payment.Status))
		return nil, apperror.ErrInvalidTransition(string(payment.Status), string(event.Outcome))
	}

	refundKey := domain.BuildRefundEntryKey(payment.ID)
	switch {
	case payment.WalletFunded():
		// The purchase debited the wallet; put exactly that amount back.
		_, err := s.ledger.Credit(ctx, ports.MutationParams{
			UserID:         payment.UserID,
			Amount:         payment.Amount,
			Reference:      "refund " + payment.ID.String(),
			IdempotencyKey: &refundKey,
		})
		if err != nil {
			s.review(ctx, event, reviewLedgerRejected, err.Error())
			return nil, err
		}
	case payment.ItemType == domain.PaymentItemTopup:
		// The top-up credited the wallet; the gateway returns the money
		// externally, so claw the credit back. Insufficient funds means
		// the user already spent it and an operator has to step in.
		_, err := s.ledger.Debit(ctx, ports.MutationParams{
			UserID:         payment.UserID,
			Amount:         payment.Amount,
			Reference:      "refund " + payment.ID.String(),
			IdempotencyKey: &refundKey,
		})
		if err != nil {
			s.review(ctx, event, reviewLedgerRejected, err.Error())
			return nil, err
		}
	default:
		// Externally paid purchase: no wallet movement, just a durable
		// refund record.
		s.review(ctx, event, reviewExternalRefund, fmt.Sprintf("refunded %d %s externally", payment.Amount, payment.Currency))
	}

	moved, err := s.paymentRepo.TransitionStatus(ctx, payment.ID, domain.PaymentStatusCompleted, domain.PaymentStatusRefunded, nil)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("refund payment: %w", err))
	}
	if !moved {
		return s.reloadAfterRace(ctx, payment.ID, domain.PaymentStatusRefunded, event)
	}
	payment.Status = domain.PaymentStatusRefunded
	payment.UpdatedAt = time.Now().UTC()

	if payment.GrantsAccess() {
		if err := s.access.RevokeAccess(ctx, payment.UserID, *payment.ItemID, payment.ItemType); err != nil {
			s.log.Error().Err(err).Str("payment_id", payment.ID.String()).Msg("access revoke failed")
			s.review(ctx, event, reviewAccessGrant, err.Error())
		}
	}

	s.log.Info().Str("payment_id", payment.ID.String()).Int64("amount", payment.Amount).Msg("payment refunded")
	return payment, nil
}

// ListReviews returns the settlement review queue, newest first.
func (s *SettlementServiceImpl) ListReviews(ctx context.Context, page, pageSize int) ([]domain.SettlementReview, int64, error) {
	reviews, total, err := s.reviewRepo.List(ctx, page, pageSize)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list reviews: %w", err))
	}
	return reviews, total, nil
}

// failAfterLedgerReject marks a payment failed when the ledger refused
// an internal credit that was expected to succeed, so the payment is
// not stuck pending forever.
func (s *SettlementServiceImpl) failAfterLedgerReject(ctx context.Context, payment *domain.Payment, event domain.GatewayEvent, cause error) {
	s.review(ctx, event, reviewLedgerRejected, cause.Error())
	moved, err := s.paymentRepo.TransitionStatus(ctx, payment.ID, domain.PaymentStatusPending, domain.PaymentStatusFailed, &event.GatewayTxID)
	if err != nil {
		s.log.Error().Err(err).Str("payment_id", payment.ID.String()).Msg("could not mark payment failed after ledger reject")
		return
	}
	if moved {
		payment.Status = domain.PaymentStatusFailed
		s.log.Warn().Str("payment_id", payment.ID.String()).Msg("payment failed after ledger reject")
	}
}

// reloadAfterRace re-reads a payment after a lost status CAS. If another
// delivery already landed the same target state, the duplicate is
// accepted.
func (s *SettlementServiceImpl) reloadAfterRace(ctx context.Context, id uuid.UUID, want domain.PaymentStatus, event domain.GatewayEvent) (*domain.Payment, error) {
	current, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("reload payment: %w", err))
	}
	if current != nil && current.Status == want {
		return current, nil
	}
	status := "missing"
	if current != nil {
		status = string(current.Status)
	}
	s.review(ctx, event, reviewInvalidTransition, fmt.Sprintf("lost settlement race, payment is %s", status))
	return nil, apperror.ErrInvalidTransition(status, string(want))
}

// review appends to the review queue, best-effort.
func (s *SettlementServiceImpl) review(ctx context.Context, event domain.GatewayEvent, reason, detail string) {
	rec := &domain.SettlementReview{
		ID:          uuid.New(),
		GatewayTxID: event.GatewayTxID,
		PaymentRef:  event.PaymentReference,
		Reason:      reason,
		Detail:      detail,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.reviewRepo.Create(ctx, rec); err != nil {
		s.log.Error().Err(err).Str("reason", reason).Msg("failed to record settlement review")
	}
}
