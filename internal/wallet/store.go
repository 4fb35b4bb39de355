package wallet

import (
	"context"
	"errors"

	"github.com/rupeeflow/rupeeflow/internal/storage"
)

var (
	// ErrNotFound indicates the user has no wallet.
	ErrNotFound = errors.New("wallet not found")

	// ErrInsufficientBalance indicates the sender cannot cover the requested
	// debit. Detected under the row lock, never by unlocked arithmetic.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Store owns wallet rows.
//
// LockedBalances must be called inside an open atomic unit and acquires
// exclusive locks on exactly the requested rows. Callers locking more than
// one wallet must pass ids sorted ascending in a single call; the store does
// not reorder them. That shared ordering discipline is what rules out
// deadlock across concurrent operations.
type Store interface {
	Create(ctx context.Context, q storage.Queryer, w Wallet) error
	GetByUserID(ctx context.Context, q storage.Queryer, userID string) (Wallet, error)
	LockedBalances(ctx context.Context, tx storage.Queryer, userIDs []string) (map[string]int64, error)

	// SetBalance writes a new balance. The caller must have validated
	// newBalanceMinor >= 0; a negative value is a programming error and
	// panics.
	SetBalance(ctx context.Context, tx storage.Queryer, userID string, newBalanceMinor int64) error
}
