package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"coursepay/internal/core/domain"
	"coursepay/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// memDB is a shared in-memory store backing the repository fakes. Per
// wallet mutexes stand in for Postgres row locks: GetOrCreateForUpdate
// blocks until the holding transaction commits or rolls back, which
// reproduces the serialization the services rely on.
type memDB struct {
	mu            sync.Mutex
	wallets       map[uuid.UUID]*memWallet
	walletsByUser map[uuid.UUID]uuid.UUID
	entries       []*domain.LedgerEntry
	entriesByID   map[uuid.UUID]*domain.LedgerEntry
	entriesByKey  map[string]*domain.LedgerEntry
	payments      map[uuid.UUID]*domain.Payment
	coupons       map[string]*domain.Coupon
	reviews       []*domain.SettlementReview
}

type memWallet struct {
	lock sync.Mutex
	w    domain.Wallet
}

func newMemDB() *memDB {
	return &memDB{
		wallets:       make(map[uuid.UUID]*memWallet),
		walletsByUser: make(map[uuid.UUID]uuid.UUID),
		entriesByID:   make(map[uuid.UUID]*domain.LedgerEntry),
		entriesByKey:  make(map[string]*domain.LedgerEntry),
		payments:      make(map[uuid.UUID]*domain.Payment),
		coupons:       make(map[string]*domain.Coupon),
	}
}

// --- Transactor and transaction ---

type memTransactor struct {
	db *memDB
}

func newMemTransactor(db *memDB) *memTransactor {
	return &memTransactor{db: db}
}

func (t *memTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &memTx{}, nil
}

// memTx holds the wallet locks taken during the transaction and
// releases them exactly once on Commit or Rollback. The embedded pgx.Tx
// is never touched by the code under test.
type memTx struct {
	pgx.Tx
	mu   sync.Mutex
	held []*memWallet
	done bool
}

func (t *memTx) hold(w *memWallet) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.held = append(t.held, w)
}

func (t *memTx) release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}
	t.done = true
	for _, w := range t.held {
		w.lock.Unlock()
	}
	t.held = nil
}

func (t *memTx) Commit(ctx context.Context) error {
	t.release()
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	t.release()
	return nil
}

// --- Wallet repo ---

type memWalletRepo struct {
	db *memDB
}

func newMemWalletRepo(db *memDB) *memWalletRepo {
	return &memWalletRepo{db: db}
}

func (r *memWalletRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	walletID, ok := r.db.walletsByUser[userID]
	if !ok {
		return nil, nil
	}
	w := r.db.wallets[walletID].w
	return &w, nil
}

func (r *memWalletRepo) GetOrCreateForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID, currency string) (*domain.Wallet, error) {
	r.db.mu.Lock()
	walletID, ok := r.db.walletsByUser[userID]
	if !ok {
		walletID = uuid.New()
		now := time.Now().UTC()
		r.db.wallets[walletID] = &memWallet{w: domain.Wallet{
			ID:        walletID,
			UserID:    userID,
			Currency:  currency,
			Balance:   0,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}}
		r.db.walletsByUser[userID] = walletID
	}
	mw := r.db.wallets[walletID]
	r.db.mu.Unlock()

	mw.lock.Lock()
	tx.(*memTx).hold(mw)
	w := mw.w
	return &w, nil
}

func (r *memWalletRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (*domain.Wallet, error) {
	r.db.mu.Lock()
	mw, ok := r.db.wallets[walletID]
	r.db.mu.Unlock()
	if !ok {
		return nil, nil
	}

	mw.lock.Lock()
	tx.(*memTx).hold(mw)
	w := mw.w
	return &w, nil
}

func (r *memWalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance int64) error {
	r.db.mu.Lock()
	mw, ok := r.db.wallets[walletID]
	r.db.mu.Unlock()
	if !ok {
		return fmt.Errorf("wallet not found: %s", walletID)
	}
	// Caller holds the wallet lock through its transaction.
	mw.w.Balance = balance
	mw.w.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memWalletRepo) SetActive(ctx context.Context, userID uuid.UUID, active bool) error {
	r.db.mu.Lock()
	walletID, ok := r.db.walletsByUser[userID]
	if !ok {
		r.db.mu.Unlock()
		return fmt.Errorf("wallet not found for user: %s", userID)
	}
	mw := r.db.wallets[walletID]
	r.db.mu.Unlock()

	mw.lock.Lock()
	defer mw.lock.Unlock()
	mw.w.Active = active
	return nil
}

// --- Entry repo ---

type memEntryRepo struct {
	db *memDB
}

func newMemEntryRepo(db *memDB) *memEntryRepo {
	return &memEntryRepo{db: db}
}

func (r *memEntryRepo) Create(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if entry.IdempotencyKey != nil {
		if _, exists := r.db.entriesByKey[*entry.IdempotencyKey]; exists {
			return ports.ErrDuplicateKey
		}
	}
	e := *entry
	r.db.entries = append(r.db.entries, &e)
	r.db.entriesByID[e.ID] = &e
	if e.IdempotencyKey != nil {
		r.db.entriesByKey[*e.IdempotencyKey] = &e
	}
	return nil
}

func (r *memEntryRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	e, ok := r.db.entriesByID[id]
	if !ok {
		return nil, nil
	}
	out := *e
	return &out, nil
}

func (r *memEntryRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.LedgerEntry, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	e, ok := r.db.entriesByKey[key]
	if !ok {
		return nil, nil
	}
	out := *e
	return &out, nil
}

func (r *memEntryRepo) Finalize(ctx context.Context, tx pgx.Tx, id uuid.UUID, to domain.EntryStatus) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	e, ok := r.db.entriesByID[id]
	if !ok || e.Status != domain.EntryStatusPending {
		return false, nil
	}
	now := time.Now().UTC()
	e.Status = to
	e.CompletedAt = &now
	return true, nil
}

func (r *memEntryRepo) GetByTransferGroup(ctx context.Context, groupID uuid.UUID) ([]domain.LedgerEntry, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var legs []domain.LedgerEntry
	for _, e := range r.db.entries {
		if e.TransferGroupID != nil && *e.TransferGroupID == groupID {
			legs = append(legs, *e)
		}
	}
	// Debit first, matching the SQL ordering.
	sort.Slice(legs, func(i, j int) bool {
		return legs[i].Direction > legs[j].Direction
	})
	return legs, nil
}

func (r *memEntryRepo) List(ctx context.Context, params ports.EntryListParams) ([]domain.LedgerEntry, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var result []domain.LedgerEntry
	for _, e := range r.db.entries {
		if e.WalletID != params.WalletID {
			continue
		}
		if params.Status != nil && e.Status != *params.Status {
			continue
		}
		if params.Direction != nil && e.Direction != *params.Direction {
			continue
		}
		if params.From != nil && e.CreatedAt.Unix() < *params.From {
			continue
		}
		if params.To != nil && e.CreatedAt.Unix() > *params.To {
			continue
		}
		result = append(result, *e)
	}
	total := int64(len(result))

	start := (params.Page - 1) * params.PageSize
	if start >= len(result) {
		return []domain.LedgerEntry{}, total, nil
	}
	end := start + params.PageSize
	if end > len(result) {
		end = len(result)
	}
	return result[start:end], total, nil
}

func (r *memEntryRepo) SumCompleted(ctx context.Context, walletID uuid.UUID) (int64, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var credits, debits int64
	for _, e := range r.db.entries {
		if e.WalletID != walletID || e.Status != domain.EntryStatusCompleted {
			continue
		}
		if e.Direction == domain.EntryDirectionCredit {
			credits += e.Amount
		} else {
			debits += e.Amount
		}
	}
	return credits, debits, nil
}

// --- Payment repo ---

type memPaymentRepo struct {
	db *memDB
}

func newMemPaymentRepo(db *memDB) *memPaymentRepo {
	return &memPaymentRepo{db: db}
}

func (r *memPaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *p
	r.db.payments[cp.ID] = &cp
	return nil
}

func (r *memPaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.payments[id]
	if !ok {
		return nil, nil
	}
	out := *p
	return &out, nil
}

func (r *memPaymentRepo) GetByGatewayTxID(ctx context.Context, gatewayTxID string) (*domain.Payment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.payments {
		if p.GatewayTxID != nil && *p.GatewayTxID == gatewayTxID {
			out := *p
			return &out, nil
		}
	}
	return nil, nil
}

func (r *memPaymentRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from, to domain.PaymentStatus, gatewayTxID *string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.payments[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	if gatewayTxID != nil {
		p.GatewayTxID = gatewayTxID
	}
	p.UpdatedAt = time.Now().UTC()
	return true, nil
}

// --- Coupon repo ---

type memCouponRepo struct {
	db *memDB
}

func newMemCouponRepo(db *memDB) *memCouponRepo {
	return &memCouponRepo{db: db}
}

func (r *memCouponRepo) put(c domain.Coupon) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.coupons[c.Code] = &c
}

func (r *memCouponRepo) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.coupons[code]
	if !ok {
		return nil, nil
	}
	out := *c
	return &out, nil
}

// --- Review repo ---

type memReviewRepo struct {
	db *memDB
}

func newMemReviewRepo(db *memDB) *memReviewRepo {
	return &memReviewRepo{db: db}
}

func (r *memReviewRepo) Create(ctx context.Context, review *domain.SettlementReview) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *review
	r.db.reviews = append(r.db.reviews, &cp)
	return nil
}

func (r *memReviewRepo) List(ctx context.Context, page, pageSize int) ([]domain.SettlementReview, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	total := int64(len(r.db.reviews))

	// Newest first, matching the SQL ordering.
	reversed := make([]domain.SettlementReview, 0, len(r.db.reviews))
	for i := len(r.db.reviews) - 1; i >= 0; i-- {
		reversed = append(reversed, *r.db.reviews[i])
	}

	start := (page - 1) * pageSize
	if start >= len(reversed) {
		return []domain.SettlementReview{}, total, nil
	}
	end := start + pageSize
	if end > len(reversed) {
		end = len(reversed)
	}
	return reversed[start:end], total, nil
}

// --- Access granter ---

type accessCall struct {
	Action   string
	UserID   uuid.UUID
	ItemID   uuid.UUID
	ItemType domain.PaymentItemType
}

type memAccessGranter struct {
	mu    sync.Mutex
	calls []accessCall
	err   error
}

func newMemAccessGranter() *memAccessGranter {
	return &memAccessGranter{}
}

func (g *memAccessGranter) GrantAccess(ctx context.Context, userID, itemID uuid.UUID, itemType domain.PaymentItemType) error {
	return g.record("grant", userID, itemID, itemType)
}

func (g *memAccessGranter) RevokeAccess(ctx context.Context, userID, itemID uuid.UUID, itemType domain.PaymentItemType) error {
	return g.record("revoke", userID, itemID, itemType)
}

func (g *memAccessGranter) record(action string, userID, itemID uuid.UUID, itemType domain.PaymentItemType) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	g.calls = append(g.calls, accessCall{Action: action, UserID: userID, ItemID: itemID, ItemType: itemType})
	return nil
}

func (g *memAccessGranter) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

// --- Idempotency cache ---

type memIdempotencyCache struct {
	mu      sync.Mutex
	entries map[string]*domain.LedgerEntry
}

func newMemIdempotencyCache() *memIdempotencyCache {
	return &memIdempotencyCache{entries: make(map[string]*domain.LedgerEntry)}
}

func (c *memIdempotencyCache) Get(ctx context.Context, key string) (*domain.LedgerEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, nil
	}
	out := *e
	return &out, nil
}

func (c *memIdempotencyCache) Set(ctx context.Context, key string, entry *domain.LedgerEntry, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *entry
	c.entries[key] = &cp
	return nil
}
