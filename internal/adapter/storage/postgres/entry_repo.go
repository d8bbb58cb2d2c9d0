package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coursepay/internal/core/domain"
	"coursepay/internal/core/ports"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// EntryRepo implements ports.EntryRepository.
type EntryRepo struct {
	pool Pool
}

// NewEntryRepo creates a new EntryRepo.
func NewEntryRepo(pool Pool) *EntryRepo {
	return &EntryRepo{pool: pool}
}

const entryColumns = `id, wallet_id, direction, amount, status, reference, idempotency_key, transfer_group_id, created_at, completed_at`

// Create appends a ledger entry within a transaction. A collision on
// the idempotency key index is reported as ports.ErrDuplicateKey so the
// caller can fetch the winning entry.
func (r *EntryRepo) Create(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error {
	query := `INSERT INTO ledger_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := tx.Exec(ctx, query,
		entry.ID, entry.WalletID, entry.Direction, entry.Amount, entry.Status,
		entry.Reference, entry.IdempotencyKey, entry.TransferGroupID,
		entry.CreatedAt, entry.CompletedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ports.ErrDuplicateKey
		}
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// GetByID fetches an entry by id.
func (r *EntryRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id), "get entry by id")
}

// GetByIdempotencyKey fetches the entry bound to an operation key.
func (r *EntryRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE idempotency_key = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, key), "get entry by key")
}

// Finalize moves a PENDING entry to a terminal status. Returns false
// when the entry was not PENDING.
func (r *EntryRepo) Finalize(ctx context.Context, tx pgx.Tx, id uuid.UUID, to domain.EntryStatus) (bool, error) {
	query := `UPDATE ledger_entries SET status = $1, completed_at = $2
		WHERE id = $3 AND status = 'PENDING'`

	tag, err := tx.Exec(ctx, query, to, time.Now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("finalize entry: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetByTransferGroup returns both legs of a transfer, debit first.
func (r *EntryRepo) GetByTransferGroup(ctx context.Context, groupID uuid.UUID) ([]domain.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries
		WHERE transfer_group_id = $1 ORDER BY direction DESC`

	rows, err := r.pool.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("get transfer group: %w", err)
	}
	defer rows.Close()
	return r.scanAll(rows)
}

// List returns a filtered page of a wallet's entries, oldest first.
func (r *EntryRepo) List(ctx context.Context, params ports.EntryListParams) ([]domain.LedgerEntry, int64, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	where := sq.And{sq.Eq{"wallet_id": params.WalletID}}
	if params.Status != nil {
		where = append(where, sq.Eq{"status": *params.Status})
	}
	if params.Direction != nil {
		where = append(where, sq.Eq{"direction": *params.Direction})
	}
	if params.From != nil {
		where = append(where, sq.GtOrEq{"created_at": time.Unix(*params.From, 0).UTC()})
	}
	if params.To != nil {
		where = append(where, sq.LtOrEq{"created_at": time.Unix(*params.To, 0).UTC()})
	}

	countSQL, countArgs, err := psql.Select("COUNT(*)").From("ledger_entries").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}
	var total int64
	if err := r.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count entries: %w", err)
	}

	offset := uint64(params.Page-1) * uint64(params.PageSize)
	listSQL, listArgs, err := psql.Select(entryColumns).
		From("ledger_entries").
		Where(where).
		OrderBy("created_at ASC", "id ASC").
		Limit(uint64(params.PageSize)).
		Offset(offset).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.pool.Query(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	entries, err := r.scanAll(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// SumCompleted returns the completed credit and debit totals for a
// wallet.
func (r *EntryRepo) SumCompleted(ctx context.Context, walletID uuid.UUID) (int64, int64, error) {
	query := `SELECT
		COALESCE(SUM(amount) FILTER (WHERE direction = 'CREDIT'), 0),
		COALESCE(SUM(amount) FILTER (WHERE direction = 'DEBIT'), 0)
		FROM ledger_entries WHERE wallet_id = $1 AND status = 'COMPLETED'`

	var credits, debits int64
	if err := r.pool.QueryRow(ctx, query, walletID).Scan(&credits, &debits); err != nil {
		return 0, 0, fmt.Errorf("sum completed entries: %w", err)
	}
	return credits, debits, nil
}

func (r *EntryRepo) scanOne(row pgx.Row, op string) (*domain.LedgerEntry, error) {
	e := &domain.LedgerEntry{}
	err := row.Scan(
		&e.ID, &e.WalletID, &e.Direction, &e.Amount, &e.Status,
		&e.Reference, &e.IdempotencyKey, &e.TransferGroupID,
		&e.CreatedAt, &e.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return e, nil
}

func (r *EntryRepo) scanAll(rows pgx.Rows) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(
			&e.ID, &e.WalletID, &e.Direction, &e.Amount, &e.Status,
			&e.Reference, &e.IdempotencyKey, &e.TransferGroupID,
			&e.CreatedAt, &e.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}
