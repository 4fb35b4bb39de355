package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUnavailable wraps persistence-layer failures (connectivity, lock
// timeouts). Callers may retry the whole operation; nothing was applied.
var ErrUnavailable = errors.New("storage unavailable")

// Queryer is the subset of pgx shared by *pgxpool.Pool and pgx.Tx. Store
// methods accept it so the same code runs inside or outside a transaction.
// Memory-backed stores ignore it.
type Queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxRunner executes a function inside one atomic unit. Every statement issued
// through the provided Queryer commits or rolls back together.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Queryer) error) error
}

// PgxRunner runs atomic units on a PostgreSQL pool.
type PgxRunner struct {
	db *pgxpool.Pool
}

// NewPgxRunner builds a TxRunner backed by the given pool.
func NewPgxRunner(db *pgxpool.Pool) *PgxRunner {
	return &PgxRunner{db: db}
}

// Pool exposes the underlying pool for non-transactional reads.
func (r *PgxRunner) Pool() *pgxpool.Pool {
	return r.db
}

// WithinTx begins a transaction, invokes fn, and commits. Any error from fn
// rolls the transaction back and is returned unchanged so business sentinels
// survive the round trip.
func (r *PgxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Queryer) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrUnavailable, err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrUnavailable, err)
	}
	return nil
}
