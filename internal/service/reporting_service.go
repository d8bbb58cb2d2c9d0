package service

import (
	"context"
	"fmt"

	"coursepay/internal/core/domain"
	"coursepay/internal/core/ports"
	"coursepay/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ReportingServiceImpl implements ports.ReportingService, the
// non-blocking read side of the ledger.
type ReportingServiceImpl struct {
	walletRepo ports.WalletRepository
	entryRepo  ports.EntryRepository
	currency   string
	log        zerolog.Logger
}

// NewReportingService creates a new ReportingServiceImpl.
func NewReportingService(
	walletRepo ports.WalletRepository,
	entryRepo ports.EntryRepository,
	currency string,
	log zerolog.Logger,
) *ReportingServiceImpl {
	return &ReportingServiceImpl{
		walletRepo: walletRepo,
		entryRepo:  entryRepo,
		currency:   currency,
		log:        log,
	}
}

// GetBalance returns the cached balance. Users without a wallet yet
// report zero.
func (s *ReportingServiceImpl) GetBalance(ctx context.Context, userID uuid.UUID) (int64, string, error) {
	wallet, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return 0, "", apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return 0, s.currency, nil
	}
	return wallet.Balance, wallet.Currency, nil
}

// ListTransactions returns the user's ledger history with the given
// filters, oldest first.
func (s *ReportingServiceImpl) ListTransactions(ctx context.Context, userID uuid.UUID, params ports.EntryListParams) ([]domain.LedgerEntry, int64, error) {
	wallet, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return []domain.LedgerEntry{}, 0, nil
	}

	params.WalletID = wallet.ID
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = defaultPageSize
	}
	if params.PageSize > maxPageSize {
		params.PageSize = maxPageSize
	}

	entries, total, err := s.entryRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list entries: %w", err))
	}
	return entries, total, nil
}

// GetWalletStats replays the completed entries and checks the cached
// balance against them. An inconsistency is loud: it means the append
// and the balance update diverged somewhere.
func (s *ReportingServiceImpl) GetWalletStats(ctx context.Context, userID uuid.UUID) (*ports.WalletStats, error) {
	wallet, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrUnknownWallet()
	}

	credits, debits, err := s.entryRepo.SumCompleted(ctx, wallet.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("sum entries: %w", err))
	}

	stats := &ports.WalletStats{
		WalletID:        wallet.ID,
		Currency:        wallet.Currency,
		TotalCredits:    credits,
		TotalDebits:     debits,
		CachedBalance:   wallet.Balance,
		ComputedBalance: credits - debits,
	}
	stats.Consistent = stats.CachedBalance == stats.ComputedBalance
	if !stats.Consistent {
		s.log.Error().
			Str("wallet_id", wallet.ID.String()).
			Int64("cached", stats.CachedBalance).
			Int64("computed", stats.ComputedBalance).
			Msg("wallet balance diverged from ledger")
	}
	return stats, nil
}
