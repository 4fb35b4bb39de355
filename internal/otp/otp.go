package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/rupeeflow/rupeeflow/internal/storage"
)

var (
	// ErrInvalid indicates an unknown reference or a code mismatch.
	ErrInvalid = errors.New("invalid otp")

	// ErrExpired indicates the code's validity window has passed.
	ErrExpired = errors.New("otp expired")

	// ErrConsumed indicates the code was already redeemed once.
	ErrConsumed = errors.New("otp already used")

	// ErrAmountMismatch indicates the presented amount differs from the one
	// the code was issued for.
	ErrAmountMismatch = errors.New("otp issued for a different amount")
)

// PurposeTransfer is the only authorization purpose the engine issues.
const PurposeTransfer = "TRANSFER"

// Authorization is a single-use, time-boxed code gating one pending transfer.
type Authorization struct {
	UserID      string
	ReferenceID string
	Code        string
	Purpose     string
	AmountMinor int64
	Used        bool
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// Manager issues and redeems transfer authorizations. A code authorizes one
// exact (user, reference, amount) triple; presenting it with any other amount
// fails with ErrAmountMismatch.
//
// Verify is a read-only precheck so a bad code rejects a transfer before any
// wallet lock is taken. Redeem is the authoritative consumption: one
// conditional update (unused, unexpired, code and amount match) inside the
// transfer's atomic unit, so an aborted transfer also aborts the consumption.
type Manager interface {
	Issue(ctx context.Context, q storage.Queryer, userID, referenceID string, amountMinor int64) (string, error)
	Verify(ctx context.Context, q storage.Queryer, userID, referenceID, code string, amountMinor int64) error
	Redeem(ctx context.Context, tx storage.Queryer, userID, referenceID, code string, amountMinor int64) error
}

// Policy carries OTP issuance parameters.
type Policy struct {
	Validity   time.Duration
	CodeLength int
}

func generateCode(length int) (string, error) {
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("generate otp: %w", err)
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}
