package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Transactor implements ports.DBTransactor over the connection pool.
// Every ledger mutation runs inside one of these transactions so the
// wallet row lock spans the whole read-validate-append-update window.
type Transactor struct {
	pool Pool
}

// NewTransactor wraps the pool for transaction management.
func NewTransactor(pool Pool) *Transactor {
	return &Transactor{pool: pool}
}

// Begin opens a database transaction.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return t.pool.Begin(ctx)
}
