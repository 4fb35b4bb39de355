package wallet

import "time"

// Wallet is a user's stored-value balance. Balance never goes below zero at
// any observable point; the store's CHECK constraint and every caller's
// pre-write validation both enforce it.
type Wallet struct {
	UserID       string
	BalanceMinor int64
	Currency     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
