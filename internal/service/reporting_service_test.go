package service

import (
	"context"
	"testing"

	"coursepay/internal/core/domain"
	"coursepay/internal/core/ports"
	"coursepay/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type reportingTestDeps struct {
	svc        *ReportingServiceImpl
	walletRepo *mocks.MockWalletRepository
	entryRepo  *mocks.MockEntryRepository
	ctrl       *gomock.Controller
}

func setupReportingService(t *testing.T) *reportingTestDeps {
	ctrl := gomock.NewController(t)
	d := &reportingTestDeps{
		walletRepo: mocks.NewMockWalletRepository(ctrl),
		entryRepo:  mocks.NewMockEntryRepository(ctrl),
		ctrl:       ctrl,
	}
	d.svc = NewReportingService(d.walletRepo, d.entryRepo, testCurrency, zerolog.Nop())
	return d
}

func TestReportingService_GetBalance_NoWallet(t *testing.T) {
	d := setupReportingService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	d.walletRepo.EXPECT().GetByUserID(ctx, userID).Return(nil, nil)

	balance, currency, err := d.svc.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
	assert.Equal(t, testCurrency, currency)
}

func TestReportingService_ListTransactions_DefaultsPagination(t *testing.T) {
	d := setupReportingService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	wallet := activeWallet(userID, 100)

	d.walletRepo.EXPECT().GetByUserID(ctx, userID).Return(wallet, nil)
	d.entryRepo.EXPECT().List(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, params ports.EntryListParams) ([]domain.LedgerEntry, int64, error) {
			assert.Equal(t, wallet.ID, params.WalletID)
			assert.Equal(t, 1, params.Page)
			assert.Equal(t, defaultPageSize, params.PageSize)
			return []domain.LedgerEntry{{ID: uuid.New()}}, 1, nil
		})

	entries, total, err := d.svc.ListTransactions(ctx, userID, ports.EntryListParams{})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, int64(1), total)
}

func TestReportingService_ListTransactions_NoWallet(t *testing.T) {
	d := setupReportingService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	d.walletRepo.EXPECT().GetByUserID(ctx, userID).Return(nil, nil)

	entries, total, err := d.svc.ListTransactions(ctx, userID, ports.EntryListParams{})
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, int64(0), total)
}

func TestReportingService_ListTransactions_CapsPageSize(t *testing.T) {
	d := setupReportingService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	wallet := activeWallet(userID, 100)

	d.walletRepo.EXPECT().GetByUserID(ctx, userID).Return(wallet, nil)
	d.entryRepo.EXPECT().List(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, params ports.EntryListParams) ([]domain.LedgerEntry, int64, error) {
			assert.Equal(t, maxPageSize, params.PageSize)
			return nil, 0, nil
		})

	_, _, err := d.svc.ListTransactions(ctx, userID, ports.EntryListParams{PageSize: 5000})
	require.NoError(t, err)
}

func TestReportingService_GetWalletStats_Consistent(t *testing.T) {
	d := setupReportingService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	wallet := activeWallet(userID, 700)

	d.walletRepo.EXPECT().GetByUserID(ctx, userID).Return(wallet, nil)
	d.entryRepo.EXPECT().SumCompleted(ctx, wallet.ID).Return(int64(1000), int64(300), nil)

	stats, err := d.svc.GetWalletStats(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), stats.TotalCredits)
	assert.Equal(t, int64(300), stats.TotalDebits)
	assert.Equal(t, int64(700), stats.ComputedBalance)
	assert.True(t, stats.Consistent)
}

func TestReportingService_GetWalletStats_Diverged(t *testing.T) {
	d := setupReportingService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	wallet := activeWallet(userID, 999)

	d.walletRepo.EXPECT().GetByUserID(ctx, userID).Return(wallet, nil)
	d.entryRepo.EXPECT().SumCompleted(ctx, wallet.ID).Return(int64(1000), int64(300), nil)

	stats, err := d.svc.GetWalletStats(ctx, userID)
	require.NoError(t, err)
	assert.False(t, stats.Consistent)
}

func TestReportingService_GetWalletStats_NoWallet(t *testing.T) {
	d := setupReportingService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	d.walletRepo.EXPECT().GetByUserID(ctx, userID).Return(nil, nil)

	_, err := d.svc.GetWalletStats(ctx, userID)
	assertAppError(t, err, "WAL_005")
}
