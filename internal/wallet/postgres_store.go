package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rupeeflow/rupeeflow/internal/storage"
)

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// PostgresStore persists wallets in PostgreSQL.
type PostgresStore struct{}

// NewPostgresStore builds a Postgres-backed wallet store.
func NewPostgresStore() *PostgresStore {
	return &PostgresStore{}
}

// Create inserts a wallet row with its opening balance.
func (s *PostgresStore) Create(ctx context.Context, q storage.Queryer, w Wallet) error {
	now := time.Now().UTC()
	_, err := q.Exec(ctx, `INSERT INTO wallets (user_id, balance_minor, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)`, w.UserID, w.BalanceMinor, w.Currency, now)
	if err != nil {
		return fmt.Errorf("%w: create wallet: %v", storage.ErrUnavailable, err)
	}
	return nil
}

// GetByUserID fetches a wallet without locking it.
func (s *PostgresStore) GetByUserID(ctx context.Context, q storage.Queryer, userID string) (Wallet, error) {
	row := q.QueryRow(ctx, `SELECT user_id, balance_minor, currency, created_at, updated_at
		FROM wallets WHERE user_id = $1`, userID)
	var w Wallet
	if err := row.Scan(&w.UserID, &w.BalanceMinor, &w.Currency, &w.CreatedAt, &w.UpdatedAt); err != nil {
		if isNoRows(err) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, fmt.Errorf("%w: get wallet: %v", storage.ErrUnavailable, err)
	}
	w.CreatedAt = w.CreatedAt.UTC()
	w.UpdatedAt = w.UpdatedAt.UTC()
	return w, nil
}

// LockedBalances reads the requested rows under FOR UPDATE in one statement.
// The ORDER BY preserves the caller's ascending id order on the server side.
func (s *PostgresStore) LockedBalances(ctx context.Context, tx storage.Queryer, userIDs []string) (map[string]int64, error) {
	rows, err := tx.Query(ctx, `SELECT user_id, balance_minor FROM wallets
		WHERE user_id = ANY($1)
		ORDER BY user_id
		FOR UPDATE`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: lock wallets: %v", storage.ErrUnavailable, err)
	}
	defer rows.Close()

	balances := make(map[string]int64, len(userIDs))
	for rows.Next() {
		var id string
		var balance int64
		if err := rows.Scan(&id, &balance); err != nil {
			return nil, fmt.Errorf("%w: scan wallet lock: %v", storage.ErrUnavailable, err)
		}
		balances[id] = balance
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: lock wallets: %v", storage.ErrUnavailable, err)
	}

	if len(balances) != len(userIDs) {
		return nil, ErrNotFound
	}
	return balances, nil
}

// SetBalance writes a locked wallet's new balance.
func (s *PostgresStore) SetBalance(ctx context.Context, tx storage.Queryer, userID string, newBalanceMinor int64) error {
	if newBalanceMinor < 0 {
		panic(fmt.Sprintf("wallet: negative balance write for user %s: %d", userID, newBalanceMinor))
	}
	cmd, err := tx.Exec(ctx, `UPDATE wallets SET balance_minor = $2, updated_at = $3 WHERE user_id = $1`,
		userID, newBalanceMinor, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%w: set balance: %v", storage.ErrUnavailable, err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
