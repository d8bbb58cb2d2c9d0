package service

import (
	"context"
	"testing"

	"coursepay/internal/core/domain"
	"coursepay/internal/core/ports"
	"coursepay/internal/core/ports/mocks"
	"coursepay/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type settlementTestDeps struct {
	svc         *SettlementServiceImpl
	paymentRepo *mocks.MockPaymentRepository
	reviewRepo  *mocks.MockReviewRepository
	ledger      *mocks.MockLedgerService
	access      *mocks.MockAccessGranter
	ctrl        *gomock.Controller
}

func setupSettlementService(t *testing.T) *settlementTestDeps {
	ctrl := gomock.NewController(t)
	d := &settlementTestDeps{
		paymentRepo: mocks.NewMockPaymentRepository(ctrl),
		reviewRepo:  mocks.NewMockReviewRepository(ctrl),
		ledger:      mocks.NewMockLedgerService(ctrl),
		access:      mocks.NewMockAccessGranter(ctrl),
		ctrl:        ctrl,
	}
	d.svc = NewSettlementService(d.paymentRepo, d.reviewRepo, d.ledger, d.access, zerolog.Nop())
	return d
}

func pendingTopup(amount int64) *domain.Payment {
	return &domain.Payment{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		ItemType: domain.PaymentItemTopup,
		Amount:   amount,
		Currency: testCurrency,
		Status:   domain.PaymentStatusPending,
		Gateway:  "stripe",
	}
}

func pendingCoursePurchase(amount int64) *domain.Payment {
	itemID := uuid.New()
	return &domain.Payment{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		ItemType: domain.PaymentItemCourse,
		ItemID:   &itemID,
		Amount:   amount,
		Currency: testCurrency,
		Status:   domain.PaymentStatusPending,
		Gateway:  "stripe",
	}
}

func eventFor(p *domain.Payment, outcome domain.GatewayOutcome) domain.GatewayEvent {
	return domain.GatewayEvent{
		GatewayTxID:      "gw-" + p.ID.String()[:8],
		PaymentReference: p.ID.String(),
		Outcome:          outcome,
		Amount:           p.Amount,
		Currency:         p.Currency,
	}
}

// ==================== Success Events ====================

func TestSettlementService_Success_Topup(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payment := pendingTopup(5000)
	event := eventFor(payment, domain.GatewayOutcomeSuccess)
	key := domain.BuildPaymentEntryKey(payment.ID)

	d.paymentRepo.EXPECT().GetByID(ctx, payment.ID).Return(payment, nil)
	d.ledger.EXPECT().CompletePendingCredit(ctx, key).Return(&domain.LedgerEntry{
		ID:     uuid.New(),
		Amount: 5000,
		Status: domain.EntryStatusCompleted,
	}, nil)
	d.paymentRepo.EXPECT().TransitionStatus(ctx, payment.ID, domain.PaymentStatusPending, domain.PaymentStatusCompleted, &event.GatewayTxID).Return(true, nil)

	got, err := d.svc.RecordGatewayEvent(ctx, "stripe", event)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, got.Status)
	require.NotNil(t, got.GatewayTxID)
	assert.Equal(t, event.GatewayTxID, *got.GatewayTxID)
}

func TestSettlementService_Success_CoursePurchase_GrantsAccess(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payment := pendingCoursePurchase(30000)
	event := eventFor(payment, domain.GatewayOutcomeSuccess)

	d.paymentRepo.EXPECT().GetByID(ctx, payment.ID).Return(payment, nil)
	d.paymentRepo.EXPECT().TransitionStatus(ctx, payment.ID, domain.PaymentStatusPending, domain.PaymentStatusCompleted, &event.GatewayTxID).Return(true, nil)
	d.access.EXPECT().GrantAccess(ctx, payment.UserID, *payment.ItemID, domain.PaymentItemCourse).Return(nil)

	got, err := d.svc.RecordGatewayEvent(ctx, "stripe", event)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, got.Status)
}

func TestSettlementService_Success_DuplicateDelivery(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payment := pendingTopup(5000)
	payment.Status = domain.PaymentStatusCompleted
	event := eventFor(payment, domain.GatewayOutcomeSuccess)

	d.paymentRepo.EXPECT().GetByID(ctx, payment.ID).Return(payment, nil)
	// No ledger call, no transition, no access grant: the duplicate is a no-op.

	got, err := d.svc.RecordGatewayEvent(ctx, "stripe", event)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, got.Status)
}

func TestSettlementService_Success_OnFailedPayment(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payment := pendingTopup(5000)
	payment.Status = domain.PaymentStatusFailed
	event := eventFor(payment, domain.GatewayOutcomeSuccess)

	d.paymentRepo.EXPECT().GetByID(ctx, payment.ID).Return(payment, nil)
	d.reviewRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	_, err := d.svc.RecordGatewayEvent(ctx, "stripe", event)
	assertAppError(t, err, "PAY_002")
}

func TestSettlementService_Success_LedgerReject_MarksFailed(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payment := pendingTopup(5000)
	event := eventFor(payment, domain.GatewayOutcomeSuccess)
	key := domain.BuildPaymentEntryKey(payment.ID)

	d.paymentRepo.EXPECT().GetByID(ctx, payment.ID).Return(payment, nil)
	d.ledger.EXPECT().CompletePendingCredit(ctx, key).Return(nil, apperror.ErrWalletInactive())
	d.reviewRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)
	d.paymentRepo.EXPECT().TransitionStatus(ctx, payment.ID, domain.PaymentStatusPending, domain.PaymentStatusFailed, &event.GatewayTxID).Return(true, nil)

	_, err := d.svc.RecordGatewayEvent(ctx, "stripe", event)
	assertAppError(t, err, "WAL_003")
	assert.Equal(t, domain.PaymentStatusFailed, payment.Status)
}

// ==================== Failure Events ====================

func TestSettlementService_Failure_Topup(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payment := pendingTopup(5000)
	event := eventFor(payment, domain.GatewayOutcomeFailure)
	key := domain.BuildPaymentEntryKey(payment.ID)

	d.paymentRepo.EXPECT().GetByID(ctx, payment.ID).Return(payment, nil)
	d.ledger.EXPECT().FailPendingCredit(ctx, key).Return(&domain.LedgerEntry{
		ID:     uuid.New(),
		Status: domain.EntryStatusFailed,
	}, nil)
	d.paymentRepo.EXPECT().TransitionStatus(ctx, payment.ID, domain.PaymentStatusPending, domain.PaymentStatusFailed, &event.GatewayTxID).Return(true, nil)

	got, err := d.svc.RecordGatewayEvent(ctx, "stripe", event)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusFailed, got.Status)
}

func TestSettlementService_Failure_Duplicate(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payment := pendingTopup(5000)
	payment.Status = domain.PaymentStatusFailed
	event := eventFor(payment, domain.GatewayOutcomeFailure)

	d.paymentRepo.EXPECT().GetByID(ctx, payment.ID).Return(payment, nil)

	got, err := d.svc.RecordGatewayEvent(ctx, "stripe", event)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusFailed, got.Status)
}

// ==================== Refund Events ====================

func TestSettlementService_Refund_WalletFunded(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payment := pendingCoursePurchase(2000)
	payment.Gateway = domain.GatewayWallet
	payment.Status = domain.PaymentStatusCompleted
	event := eventFor(payment, domain.GatewayOutcomeRefund)
	refundKey := domain.BuildRefundEntryKey(payment.ID)

	d.paymentRepo.EXPECT().GetByID(ctx, payment.ID).Return(payment, nil)
	d.ledger.EXPECT().Credit(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, p ports.MutationParams) (*domain.LedgerEntry, error) {
			assert.Equal(t, payment.UserID, p.UserID)
			assert.Equal(t, int64(2000), p.Amount)
			require.NotNil(t, p.IdempotencyKey)
			assert.Equal(t, refundKey, *p.IdempotencyKey)
			return &domain.LedgerEntry{ID: uuid.New(), Amount: p.Amount, Status: domain.EntryStatusCompleted}, nil
		})
	d.paymentRepo.EXPECT().TransitionStatus(ctx, payment.ID, domain.PaymentStatusCompleted, domain.PaymentStatusRefunded, gomock.Nil()).Return(true, nil)
	d.access.EXPECT().RevokeAccess(ctx, payment.UserID, *payment.ItemID, domain.PaymentItemCourse).Return(nil)

	got, err := d.svc.RecordGatewayEvent(ctx, "stripe", event)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusRefunded, got.Status)
}

func TestSettlementService_Refund_ExternalPurchase_NoWalletMovement(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payment := pendingCoursePurchase(2000)
	payment.Status = domain.PaymentStatusCompleted
	event := eventFor(payment, domain.GatewayOutcomeRefund)

	d.paymentRepo.EXPECT().GetByID(ctx, payment.ID).Return(payment, nil)
	d.reviewRepo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, r *domain.SettlementReview) error {
			assert.Equal(t, reviewExternalRefund, r.Reason)
			return nil
		})
	d.paymentRepo.EXPECT().TransitionStatus(ctx, payment.ID, domain.PaymentStatusCompleted, domain.PaymentStatusRefunded, gomock.Nil()).Return(true, nil)
	d.access.EXPECT().RevokeAccess(ctx, payment.UserID, *payment.ItemID, domain.PaymentItemCourse).Return(nil)

	got, err := d.svc.RecordGatewayEvent(ctx, "stripe", event)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusRefunded, got.Status)
}

func TestSettlementService_Refund_Topup_ClawsBackCredit(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payment := pendingTopup(5000)
	payment.Status = domain.PaymentStatusCompleted
	event := eventFor(payment, domain.GatewayOutcomeRefund)
	refundKey := domain.BuildRefundEntryKey(payment.ID)

	d.paymentRepo.EXPECT().GetByID(ctx, payment.ID).Return(payment, nil)
	d.ledger.EXPECT().Debit(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, p ports.MutationParams) (*domain.LedgerEntry, error) {
			assert.Equal(t, int64(5000), p.Amount)
			require.NotNil(t, p.IdempotencyKey)
			assert.Equal(t, refundKey, *p.IdempotencyKey)
			return &domain.LedgerEntry{ID: uuid.New(), Amount: p.Amount, Status: domain.EntryStatusCompleted}, nil
		})
	d.paymentRepo.EXPECT().TransitionStatus(ctx, payment.ID, domain.PaymentStatusCompleted, domain.PaymentStatusRefunded, gomock.Nil()).Return(true, nil)

	got, err := d.svc.RecordGatewayEvent(ctx, "stripe", event)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusRefunded, got.Status)
}

func TestSettlementService_Refund_PendingPayment(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payment := pendingTopup(5000)
	event := eventFor(payment, domain.GatewayOutcomeRefund)

	d.paymentRepo.EXPECT().GetByID(ctx, payment.ID).Return(payment, nil)
	d.reviewRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	_, err := d.svc.RecordGatewayEvent(ctx, "stripe", event)
	assertAppError(t, err, "PAY_002")
}

// ==================== Malformed Events ====================

func TestSettlementService_UnknownPayment(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	missing := uuid.New()
	event := domain.GatewayEvent{
		GatewayTxID:      "gw-1",
		PaymentReference: missing.String(),
		Outcome:          domain.GatewayOutcomeSuccess,
		Amount:           1000,
		Currency:         testCurrency,
	}

	d.paymentRepo.EXPECT().GetByID(ctx, missing).Return(nil, nil)
	d.reviewRepo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, r *domain.SettlementReview) error {
			assert.Equal(t, reviewUnknownPayment, r.Reason)
			assert.Equal(t, missing.String(), r.PaymentRef)
			return nil
		})

	_, err := d.svc.RecordGatewayEvent(ctx, "stripe", event)
	assertAppError(t, err, "PAY_001")
}

func TestSettlementService_MalformedReference(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	event := domain.GatewayEvent{
		GatewayTxID:      "gw-1",
		PaymentReference: "not-a-uuid",
		Outcome:          domain.GatewayOutcomeSuccess,
	}
	d.reviewRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	_, err := d.svc.RecordGatewayEvent(context.Background(), "stripe", event)
	assertAppError(t, err, "PAY_001")
}

func TestSettlementService_AmountMismatch(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payment := pendingTopup(5000)
	event := eventFor(payment, domain.GatewayOutcomeSuccess)
	event.Amount = 4999

	d.paymentRepo.EXPECT().GetByID(ctx, payment.ID).Return(payment, nil)
	d.reviewRepo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, r *domain.SettlementReview) error {
			assert.Equal(t, reviewAmountMismatch, r.Reason)
			return nil
		})

	_, err := d.svc.RecordGatewayEvent(ctx, "stripe", event)
	assertAppError(t, err, "PAY_003")
}
