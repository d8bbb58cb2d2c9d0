package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"coursepay/internal/core/domain"
	"coursepay/internal/core/ports"
	"coursepay/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// checkoutRefPrefix tags wallet-funded checkout entries so a retried
// request with the same idempotency key can be resolved back to its
// payment.
const checkoutRefPrefix = "checkout:"

// CheckoutServiceImpl implements ports.CheckoutService. Wallet-funded
// purchases settle synchronously; external-gateway purchases and top-ups
// produce a pending payment that the settlement reconciler finishes.
type CheckoutServiceImpl struct {
	paymentRepo ports.PaymentRepository
	entryRepo   ports.EntryRepository
	ledger      ports.LedgerService
	coupons     ports.CouponService
	access      ports.AccessGranter
	currency    string
	log         zerolog.Logger
}

// NewCheckoutService creates a new CheckoutServiceImpl.
func NewCheckoutService(
	paymentRepo ports.PaymentRepository,
	entryRepo ports.EntryRepository,
	ledger ports.LedgerService,
	coupons ports.CouponService,
	access ports.AccessGranter,
	currency string,
	log zerolog.Logger,
) *CheckoutServiceImpl {
	return &CheckoutServiceImpl{
		paymentRepo: paymentRepo,
		entryRepo:   entryRepo,
		ledger:      ledger,
		coupons:     coupons,
		access:      access,
		currency:    currency,
		log:         log,
	}
}

// Checkout prices the request, records a payment and, depending on the
// funding method, either debits the wallet now or leaves the payment
// pending for gateway settlement.
func (s *CheckoutServiceImpl) Checkout(ctx context.Context, p ports.CheckoutParams) (*ports.CheckoutResult, error) {
	if p.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	switch p.ItemType {
	case domain.PaymentItemCourse, domain.PaymentItemEbook:
		if p.ItemID == nil {
			return nil, apperror.Validation("item id is required for course and ebook purchases")
		}
	case domain.PaymentItemTopup:
		if p.Gateway == domain.GatewayWallet {
			return nil, apperror.Validation("a wallet cannot top up itself")
		}
		if p.CouponCode != nil {
			return nil, apperror.Validation("coupons do not apply to top-ups")
		}
	default:
		return nil, apperror.Validation(fmt.Sprintf("unknown item type %q", p.ItemType))
	}

	if p.IdempotencyKey != nil {
		replayed, err := s.replayCheckout(ctx, *p.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if replayed != nil {
			return replayed, nil
		}
	}

	quote := domain.CouponQuote{Valid: false, FinalAmount: p.Amount}
	if p.CouponCode != nil {
		var err error
		quote, err = s.coupons.Apply(ctx, *p.CouponCode, p.Amount)
		if err != nil {
			return nil, err
		}
		// An invalid code does not block checkout, it just quotes the
		// full price.
	}

	now := time.Now().UTC()
	payment := &domain.Payment{
		ID:             uuid.New(),
		UserID:         p.UserID,
		ItemType:       p.ItemType,
		ItemID:         p.ItemID,
		Amount:         quote.FinalAmount,
		Currency:       s.currency,
		Status:         domain.PaymentStatusPending,
		Gateway:        p.Gateway,
		DiscountAmount: quote.DiscountAmount,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if quote.Valid {
		payment.CouponCode = &quote.Code
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create payment: %w", err))
	}

	switch {
	case payment.Amount == 0:
		// Fully discounted: nothing to move, settle immediately.
		return s.completeFree(ctx, payment, quote)
	case payment.WalletFunded():
		return s.walletCheckout(ctx, payment, quote, p.IdempotencyKey)
	case payment.ItemType == domain.PaymentItemTopup:
		entry, err := s.ledger.AppendPendingCredit(ctx, ports.MutationParams{
			UserID:         payment.UserID,
			Amount:         payment.Amount,
			Reference:      checkoutRefPrefix + payment.ID.String(),
			IdempotencyKey: ptr(domain.BuildPaymentEntryKey(payment.ID)),
		})
		if err != nil {
			return nil, err
		}
		s.log.Info().Str("payment_id", payment.ID.String()).Str("gateway", payment.Gateway).Msg("top-up awaiting settlement")
		return &ports.CheckoutResult{Payment: payment, Quote: quote, Entry: entry}, nil
	default:
		// Externally paid purchase: no wallet movement; the gateway
		// callback will complete the payment.
		s.log.Info().Str("payment_id", payment.ID.String()).Str("gateway", payment.Gateway).Msg("purchase awaiting settlement")
		return &ports.CheckoutResult{Payment: payment, Quote: quote}, nil
	}
}

func (s *CheckoutServiceImpl) walletCheckout(ctx context.Context, payment *domain.Payment, quote domain.CouponQuote, key *string) (*ports.CheckoutResult, error) {
	entryKey := domain.BuildPaymentEntryKey(payment.ID)
	if key != nil {
		entryKey = *key
	}

	ownRef := checkoutRefPrefix + payment.ID.String()
	entry, err := s.ledger.Debit(ctx, ports.MutationParams{
		UserID:         payment.UserID,
		Amount:         payment.Amount,
		Reference:      ownRef,
		IdempotencyKey: &entryKey,
	})
	if err != nil {
		if _, terr := s.paymentRepo.TransitionStatus(ctx, payment.ID, domain.PaymentStatusPending, domain.PaymentStatusFailed, nil); terr != nil {
			s.log.Error().Err(terr).Str("payment_id", payment.ID.String()).Msg("could not mark payment failed after debit reject")
		}
		return nil, err
	}

	if entry.Reference != ownRef {
		// A concurrent request with the same key won the debit; this
		// payment never moved money. Retire it and hand back the
		// winner's result.
		if _, terr := s.paymentRepo.TransitionStatus(ctx, payment.ID, domain.PaymentStatusPending, domain.PaymentStatusFailed, nil); terr != nil {
			s.log.Error().Err(terr).Str("payment_id", payment.ID.String()).Msg("could not retire duplicate payment")
		}
		s.log.Debug().
			Str("payment_id", payment.ID.String()).
			Str("entry_reference", entry.Reference).
			Msg("checkout lost idempotency race, resolving to winning payment")
		return s.resultForEntry(ctx, entry)
	}

	if _, err := s.paymentRepo.TransitionStatus(ctx, payment.ID, domain.PaymentStatusPending, domain.PaymentStatusCompleted, nil); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("complete payment: %w", err))
	}
	payment.Status = domain.PaymentStatusCompleted
	payment.UpdatedAt = time.Now().UTC()

	if payment.GrantsAccess() {
		if err := s.access.GrantAccess(ctx, payment.UserID, *payment.ItemID, payment.ItemType); err != nil {
			s.log.Error().Err(err).Str("payment_id", payment.ID.String()).Msg("access grant failed")
		}
	}

	s.log.Info().
		Str("payment_id", payment.ID.String()).
		Int64("amount", payment.Amount).
		Int64("discount", payment.DiscountAmount).
		Msg("wallet checkout completed")
	return &ports.CheckoutResult{Payment: payment, Quote: quote, Entry: entry}, nil
}

func (s *CheckoutServiceImpl) completeFree(ctx context.Context, payment *domain.Payment, quote domain.CouponQuote) (*ports.CheckoutResult, error) {
	if _, err := s.paymentRepo.TransitionStatus(ctx, payment.ID, domain.PaymentStatusPending, domain.PaymentStatusCompleted, nil); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("complete payment: %w", err))
	}
	payment.Status = domain.PaymentStatusCompleted
	payment.UpdatedAt = time.Now().UTC()

	if payment.GrantsAccess() {
		if err := s.access.GrantAccess(ctx, payment.UserID, *payment.ItemID, payment.ItemType); err != nil {
			s.log.Error().Err(err).Str("payment_id", payment.ID.String()).Msg("access grant failed")
		}
	}
	s.log.Info().Str("payment_id", payment.ID.String()).Msg("fully discounted checkout completed")
	return &ports.CheckoutResult{Payment: payment, Quote: quote}, nil
}

// replayCheckout resolves a retried wallet checkout back to the payment
// its first attempt produced.
func (s *CheckoutServiceImpl) replayCheckout(ctx context.Context, key string) (*ports.CheckoutResult, error) {
	prior, err := s.entryRepo.GetByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("idempotency lookup: %w", err))
	}
	if prior == nil || !strings.HasPrefix(prior.Reference, checkoutRefPrefix) {
		return nil, nil
	}
	s.log.Debug().Str("key", key).Msg("checkout replayed from idempotency key")
	return s.resultForEntry(ctx, prior)
}

// resultForEntry rebuilds a checkout result from a debit entry whose
// reference names the payment it settled.
func (s *CheckoutServiceImpl) resultForEntry(ctx context.Context, entry *domain.LedgerEntry) (*ports.CheckoutResult, error) {
	if !strings.HasPrefix(entry.Reference, checkoutRefPrefix) {
		return nil, apperror.ErrIdempotencyKeyMismatch()
	}
	paymentID, err := uuid.Parse(strings.TrimPrefix(entry.Reference, checkoutRefPrefix))
	if err != nil {
		return nil, apperror.ErrIdempotencyKeyMismatch()
	}
	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load payment: %w", err))
	}
	if payment == nil {
		return nil, apperror.ErrIdempotencyKeyMismatch()
	}
	quote := domain.CouponQuote{
		Valid:          payment.CouponCode != nil,
		FinalAmount:    payment.Amount,
		DiscountAmount: payment.DiscountAmount,
	}
	if payment.CouponCode != nil {
		quote.Code = *payment.CouponCode
	}
	return &ports.CheckoutResult{Payment: payment, Quote: quote, Entry: entry}, nil
}

// Withdraw debits the wallet for an external payout.
func (s *CheckoutServiceImpl) Withdraw(ctx context.Context, p ports.WithdrawParams) (*domain.LedgerEntry, error) {
	if p.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if strings.TrimSpace(p.Destination) == "" {
		return nil, apperror.Validation("withdrawal destination is required")
	}
	entry, err := s.ledger.Debit(ctx, ports.MutationParams{
		UserID:         p.UserID,
		Amount:         p.Amount,
		Reference:      "withdraw:" + p.Destination,
		IdempotencyKey: p.IdempotencyKey,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("entry_id", entry.ID.String()).
		Int64("amount", p.Amount).
		Msg("withdrawal recorded")
	return entry, nil
}

func ptr[T any](v T) *T { return &v }
