package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"coursepay/internal/core/domain"
	"coursepay/internal/core/ports"
	"coursepay/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const idempotencyTTL = 24 * time.Hour

// LedgerServiceImpl implements ports.LedgerService. All balance
// mutations follow the same shape: idempotency check, transaction,
// wallet row lock, entry append, balance update, commit.
type LedgerServiceImpl struct {
	walletRepo ports.WalletRepository
	entryRepo  ports.EntryRepository
	idempCache ports.IdempotencyCache
	transactor ports.DBTransactor
	currency   string
	log        zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	walletRepo ports.WalletRepository,
	entryRepo ports.EntryRepository,
	idempCache ports.IdempotencyCache,
	transactor ports.DBTransactor,
	currency string,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		walletRepo: walletRepo,
		entryRepo:  entryRepo,
		idempCache: idempCache,
		transactor: transactor,
		currency:   currency,
		log:        log,
	}
}

// Credit adds funds to the user's wallet.
func (s *LedgerServiceImpl) Credit(ctx context.Context, p ports.MutationParams) (*domain.LedgerEntry, error) {
	return s.mutate(ctx, p, domain.EntryDirectionCredit)
}

// Debit removes funds from the user's wallet, rejecting overdrafts.
func (s *LedgerServiceImpl) Debit(ctx context.Context, p ports.MutationParams) (*domain.LedgerEntry, error) {
	return s.mutate(ctx, p, domain.EntryDirectionDebit)
}

func (s *LedgerServiceImpl) mutate(ctx context.Context, p ports.MutationParams, dir domain.EntryDirection) (*domain.LedgerEntry, error) {
	if p.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	if p.IdempotencyKey != nil {
		prior, err := s.findPrior(ctx, *p.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if prior != nil {
			return s.replay(prior, p.Amount, dir)
		}
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.lockWallet(ctx, dbTx, p.UserID)
	if err != nil {
		return nil, err
	}

	if dir == domain.EntryDirectionDebit && wallet.Balance < p.Amount {
		return nil, apperror.ErrInsufficientFunds()
	}

	now := time.Now().UTC()
	entry := &domain.LedgerEntry{
		ID:             uuid.New(),
		WalletID:       wallet.ID,
		Direction:      dir,
		Amount:         p.Amount,
		Status:         domain.EntryStatusCompleted,
		Reference:      p.Reference,
		IdempotencyKey: p.IdempotencyKey,
		CreatedAt:      now,
		CompletedAt:    &now,
	}

	if err := s.entryRepo.Create(ctx, dbTx, entry); err != nil {
		if errors.Is(err, ports.ErrDuplicateKey) && p.IdempotencyKey != nil {
			return s.resolveDuplicate(ctx, *p.IdempotencyKey, p.Amount, dir)
		}
		return nil, apperror.InternalError(fmt.Errorf("create entry: %w", err))
	}

	newBalance := wallet.Balance + entry.Signed()
	if err := s.walletRepo.UpdateBalance(ctx, dbTx, wallet.ID, newBalance); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.cacheEntry(ctx, entry)
	s.log.Info().
		Str("entry_id", entry.ID.String()).
		Str("wallet_id", wallet.ID.String()).
		Str("direction", string(dir)).
		Int64("amount", p.Amount).
		Int64("balance", newBalance).
		Msg("wallet mutated")

	return entry, nil
}

// Transfer moves funds between two wallets atomically. Wallet rows are
// locked in ascending owner id order so two opposite transfers cannot
// deadlock each other.
func (s *LedgerServiceImpl) Transfer(ctx context.Context, p ports.TransferParams) (*ports.TransferResult, error) {
	if p.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if p.FromUserID == p.ToUserID {
		return nil, apperror.ErrSelfTransfer()
	}

	if p.IdempotencyKey != nil {
		prior, err := s.findPrior(ctx, *p.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if prior != nil {
			return s.replayTransfer(ctx, prior, p.Amount)
		}
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	first, second := p.FromUserID, p.ToUserID
	if bytes.Compare(second[:], first[:]) < 0 {
		first, second = second, first
	}
	wallets := make(map[uuid.UUID]*domain.Wallet, 2)
	for _, userID := range []uuid.UUID{first, second} {
		w, err := s.lockWallet(ctx, dbTx, userID)
		if err != nil {
			return nil, err
		}
		wallets[userID] = w
	}
	src, dst := wallets[p.FromUserID], wallets[p.ToUserID]

	if src.Balance < p.Amount {
		return nil, apperror.ErrInsufficientFunds()
	}

	now := time.Now().UTC()
	groupID := uuid.New()
	debit := &domain.LedgerEntry{
		ID:              uuid.New(),
		WalletID:        src.ID,
		Direction:       domain.EntryDirectionDebit,
		Amount:          p.Amount,
		Status:          domain.EntryStatusCompleted,
		Reference:       p.Reference,
		IdempotencyKey:  p.IdempotencyKey,
		TransferGroupID: &groupID,
		CreatedAt:       now,
		CompletedAt:     &now,
	}
	credit := &domain.LedgerEntry{
		ID:              uuid.New(),
		WalletID:        dst.ID,
		Direction:       domain.EntryDirectionCredit,
		Amount:          p.Amount,
		Status:          domain.EntryStatusCompleted,
		Reference:       p.Reference,
		TransferGroupID: &groupID,
		CreatedAt:       now,
		CompletedAt:     &now,
	}

	if err := s.entryRepo.Create(ctx, dbTx, debit); err != nil {
		if errors.Is(err, ports.ErrDuplicateKey) && p.IdempotencyKey != nil {
			prior, perr := s.entryRepo.GetByIdempotencyKey(ctx, *p.IdempotencyKey)
			if perr != nil {
				return nil, apperror.InternalError(fmt.Errorf("idempotency lookup: %w", perr))
			}
			if prior == nil {
				return nil, apperror.InternalError(fmt.Errorf("duplicate key without entry: %s", *p.IdempotencyKey))
			}
			return s.replayTransfer(ctx, prior, p.Amount)
		}
		return nil, apperror.InternalError(fmt.Errorf("create debit entry: %w", err))
	}
	if err := s.entryRepo.Create(ctx, dbTx, credit); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create credit entry: %w", err))
	}

	if err := s.walletRepo.UpdateBalance(ctx, dbTx, src.ID, src.Balance-p.Amount); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("debit balance: %w", err))
	}
	if err := s.walletRepo.UpdateBalance(ctx, dbTx, dst.ID, dst.Balance+p.Amount); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("credit balance: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.cacheEntry(ctx, debit)
	s.log.Info().
		Str("group_id", groupID.String()).
		Str("from_wallet", src.ID.String()).
		Str("to_wallet", dst.ID.String()).
		Int64("amount", p.Amount).
		Msg("transfer completed")

	return &ports.TransferResult{GroupID: groupID, Debit: debit, Credit: credit}, nil
}

// AppendPendingCredit records a credit awaiting external settlement.
// The entry does not affect the balance until completed. A key is
// mandatory: pending entries are always finalized by key later.
func (s *LedgerServiceImpl) AppendPendingCredit(ctx context.Context, p ports.MutationParams) (*domain.LedgerEntry, error) {
	if p.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if p.IdempotencyKey == nil || *p.IdempotencyKey == "" {
		return nil, apperror.Validation("idempotency key is required for pending credits")
	}

	prior, err := s.findPrior(ctx, *p.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		return s.replay(prior, p.Amount, domain.EntryDirectionCredit)
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.lockWallet(ctx, dbTx, p.UserID)
	if err != nil {
		return nil, err
	}

	entry := &domain.LedgerEntry{
		ID:             uuid.New(),
		WalletID:       wallet.ID,
		Direction:      domain.EntryDirectionCredit,
		Amount:         p.Amount,
		Status:         domain.EntryStatusPending,
		Reference:      p.Reference,
		IdempotencyKey: p.IdempotencyKey,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.entryRepo.Create(ctx, dbTx, entry); err != nil {
		if errors.Is(err, ports.ErrDuplicateKey) {
			return s.resolveDuplicate(ctx, *p.IdempotencyKey, p.Amount, domain.EntryDirectionCredit)
		}
		return nil, apperror.InternalError(fmt.Errorf("create pending entry: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("entry_id", entry.ID.String()).
		Str("key", *p.IdempotencyKey).
		Int64("amount", p.Amount).
		Msg("pending credit recorded")
	return entry, nil
}

// CompletePendingCredit finalizes the pending entry bound to key and
// applies its amount to the wallet balance.
func (s *LedgerServiceImpl) CompletePendingCredit(ctx context.Context, key string) (*domain.LedgerEntry, error) {
	return s.finalizePending(ctx, key, domain.EntryStatusCompleted)
}

// FailPendingCredit marks the pending entry bound to key as failed.
// The balance is untouched.
func (s *LedgerServiceImpl) FailPendingCredit(ctx context.Context, key string) (*domain.LedgerEntry, error) {
	return s.finalizePending(ctx, key, domain.EntryStatusFailed)
}

func (s *LedgerServiceImpl) finalizePending(ctx context.Context, key string, to domain.EntryStatus) (*domain.LedgerEntry, error) {
	entry, err := s.entryRepo.GetByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lookup entry: %w", err))
	}
	if entry == nil {
		return nil, apperror.ErrNotFound("ledger entry")
	}
	if entry.Status == to {
		return entry, nil
	}
	if entry.IsTerminal() {
		return nil, apperror.ErrInvalidTransition(string(entry.Status), string(to))
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetForUpdate(ctx, dbTx, entry.WalletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrUnknownWallet()
	}

	moved, err := s.entryRepo.Finalize(ctx, dbTx, entry.ID, to)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("finalize entry: %w", err))
	}
	if !moved {
		// Lost the race to another finalizer. Re-read and report.
		if err := dbTx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.log.Warn().Err(err).Msg("rollback after finalize race")
		}
		current, gerr := s.entryRepo.GetByID(ctx, entry.ID)
		if gerr != nil {
			return nil, apperror.InternalError(fmt.Errorf("reload entry: %w", gerr))
		}
		if current != nil && current.Status == to {
			return current, nil
		}
		return nil, apperror.ErrInvalidTransition(string(domain.EntryStatusPending), string(to))
	}

	if to == domain.EntryStatusCompleted {
		if err := s.walletRepo.UpdateBalance(ctx, dbTx, wallet.ID, wallet.Balance+entry.Amount); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("update balance: %w", err))
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	now := time.Now().UTC()
	entry.Status = to
	entry.CompletedAt = &now
	s.cacheEntry(ctx, entry)

	s.log.Info().
		Str("entry_id", entry.ID.String()).
		Str("key", key).
		Str("status", string(to)).
		Msg("pending credit finalized")
	return entry, nil
}

// GetBalance returns the cached balance for the user's wallet. Users
// without a wallet yet report a zero balance; wallets are created
// lazily on the first mutation.
func (s *LedgerServiceImpl) GetBalance(ctx context.Context, userID uuid.UUID) (int64, string, error) {
	wallet, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return 0, "", apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return 0, s.currency, nil
	}
	return wallet.Balance, wallet.Currency, nil
}

// lockWallet locks the user's wallet row inside dbTx, creating the
// wallet lazily, and rejects inactive wallets.
func (s *LedgerServiceImpl) lockWallet(ctx context.Context, dbTx pgx.Tx, userID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetOrCreateForUpdate(ctx, dbTx, userID, s.currency)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if !wallet.Active {
		return nil, apperror.ErrWalletInactive()
	}
	return wallet, nil
}

// findPrior runs the two-layer idempotency check: Redis first, then the
// durable entry index. A Redis failure degrades to the DB check.
func (s *LedgerServiceImpl) findPrior(ctx context.Context, key string) (*domain.LedgerEntry, error) {
	cached, err := s.idempCache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("redis idempotency check failed, falling through to DB")
	}
	if cached != nil {
		return cached, nil
	}
	entry, err := s.entryRepo.GetByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("db idempotency check: %w", err))
	}
	return entry, nil
}

// replay returns the previously recorded entry for a duplicate request,
// rejecting requests that reuse the key with different parameters.
func (s *LedgerServiceImpl) replay(prior *domain.LedgerEntry, amount int64, dir domain.EntryDirection) (*domain.LedgerEntry, error) {
	if prior.Amount != amount || prior.Direction != dir {
		return nil, apperror.ErrIdempotencyKeyMismatch()
	}
	return prior, nil
}

func (s *LedgerServiceImpl) replayTransfer(ctx context.Context, prior *domain.LedgerEntry, amount int64) (*ports.TransferResult, error) {
	if prior.Amount != amount || prior.Direction != domain.EntryDirectionDebit || prior.TransferGroupID == nil {
		return nil, apperror.ErrIdempotencyKeyMismatch()
	}
	legs, err := s.entryRepo.GetByTransferGroup(ctx, *prior.TransferGroupID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load transfer group: %w", err))
	}
	result := &ports.TransferResult{GroupID: *prior.TransferGroupID}
	for i := range legs {
		leg := legs[i]
		if leg.Direction == domain.EntryDirectionDebit {
			result.Debit = &leg
		} else {
			result.Credit = &leg
		}
	}
	if result.Debit == nil || result.Credit == nil {
		return nil, apperror.InternalError(fmt.Errorf("incomplete transfer group: %s", prior.TransferGroupID))
	}
	return result, nil
}

// resolveDuplicate handles the lost race on the unique key index: the
// winning request's entry is authoritative.
func (s *LedgerServiceImpl) resolveDuplicate(ctx context.Context, key string, amount int64, dir domain.EntryDirection) (*domain.LedgerEntry, error) {
	prior, err := s.entryRepo.GetByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("idempotency lookup: %w", err))
	}
	if prior == nil {
		return nil, apperror.InternalError(fmt.Errorf("duplicate key without entry: %s", key))
	}
	return s.replay(prior, amount, dir)
}

// cacheEntry stores the entry in Redis, best-effort.
func (s *LedgerServiceImpl) cacheEntry(ctx context.Context, entry *domain.LedgerEntry) {
	if entry.IdempotencyKey == nil {
		return
	}
	if err := s.idempCache.Set(ctx, *entry.IdempotencyKey, entry, idempotencyTTL); err != nil {
		s.log.Warn().Err(err).Str("key", *entry.IdempotencyKey).Msg("failed to cache idempotency in redis")
	}
}
