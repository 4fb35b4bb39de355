package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/rupeeflow/rupeeflow/internal/storage"
)

var (
	// ErrDuplicateKey indicates the entry's idempotency key already exists.
	// The unique constraint, not a read-before-write, is the source of truth.
	ErrDuplicateKey = errors.New("duplicate idempotency key")

	// ErrInvalidState indicates a terminal transition on an entry that is not
	// PENDING. This is a programming error, not a recoverable condition.
	ErrInvalidState = errors.New("entry is not pending")

	// ErrNotFound indicates no entry matched the lookup.
	ErrNotFound = errors.New("entry not found")
)

// Entry types.
const (
	TypeAddMoney       = "ADD_MONEY"
	TypeTransferDebit  = "TRANSFER_DEBIT"
	TypeTransferCredit = "TRANSFER_CREDIT"
)

// Entry statuses. ADD_MONEY entries transition PENDING to exactly one
// terminal state; transfer entries are written already terminal.
const (
	StatusPending = "PENDING"
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// GatewayDetails is the closed, typed record of an external gateway response.
// Exactly one of the method-specific fields is set, matching PaymentMethod.
type GatewayDetails struct {
	Provider    string
	ReferenceID string
	UPI         *UPIDetails
	Card        *CardDetails
	NetBanking  *NetBankingDetails
}

// UPIDetails captures the UPI rail response.
type UPIDetails struct {
	VPA           string
	RailReference string
}

// CardDetails captures the card rail response.
type CardDetails struct {
	Network string
	Last4   string
}

// NetBankingDetails captures the netbanking rail response.
type NetBankingDetails struct {
	BankCode string
}

// Entry is one immutable audit record of a money movement.
type Entry struct {
	ID                  string
	IdempotencyKey      string // optional; unique when present
	OwnerUserID         string
	Type                string
	AmountMinor         int64
	BalanceBeforeMinor  int64
	BalanceAfterMinor   int64
	Status              string
	PaymentMethod       string // ADD_MONEY only
	CounterpartyUserID  string // transfers only
	CounterpartyEntryID string // transfers only; the paired entry
	FailureReason       string // FAILED only
	Gateway             *GatewayDetails
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Terminal describes the final state applied by MarkTerminal.
type Terminal struct {
	Status            string
	BalanceAfterMinor int64
	FailureReason     string
	Gateway           *GatewayDetails
}

// Engine owns ledger entries. Methods accept a storage.Queryer so they
// compose into the caller's atomic unit.
type Engine interface {
	// Append inserts a new entry. A clashing idempotency key fails with
	// ErrDuplicateKey.
	Append(ctx context.Context, q storage.Queryer, e Entry) error

	// MarkTerminal moves a PENDING entry to SUCCESS or FAILED exactly once.
	// Calling it on a non-PENDING entry fails with ErrInvalidState.
	MarkTerminal(ctx context.Context, q storage.Queryer, entryID string, t Terminal) error

	// Get loads one entry by id.
	Get(ctx context.Context, q storage.Queryer, entryID string) (Entry, error)

	// FindByIdempotencyKey loads the entry claimed under key, if any.
	FindByIdempotencyKey(ctx context.Context, q storage.Queryer, key string) (Entry, error)

	// ListByOwner pages through a user's entries, newest first, returning the
	// page and the total row count.
	ListByOwner(ctx context.Context, q storage.Queryer, ownerID string, limit, offset int) ([]Entry, int64, error)
}
