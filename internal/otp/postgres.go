package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rupeeflow/rupeeflow/internal/storage"
)

// PostgresManager stores authorizations in PostgreSQL.
type PostgresManager struct {
	policy Policy
}

// NewPostgresManager builds a Postgres-backed OTP manager.
func NewPostgresManager(policy Policy) *PostgresManager {
	return &PostgresManager{policy: policy}
}

// Issue generates and stores a fresh unused code for (user, reference).
func (m *PostgresManager) Issue(ctx context.Context, q storage.Queryer, userID, referenceID string, amountMinor int64) (string, error) {
	code, err := generateCode(m.policy.CodeLength)
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	_, err = q.Exec(ctx, `INSERT INTO transfer_otps
		(reference_id, user_id, code, purpose, amount_minor, used, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7)`,
		referenceID, userID, code, PurposeTransfer, amountMinor, now.Add(m.policy.Validity), now)
	if err != nil {
		return "", fmt.Errorf("%w: issue otp: %v", storage.ErrUnavailable, err)
	}
	return code, nil
}

// Verify checks the code without consuming it.
func (m *PostgresManager) Verify(ctx context.Context, q storage.Queryer, userID, referenceID, code string, amountMinor int64) error {
	var (
		stored       string
		storedAmount int64
		used         bool
		expiresAt    time.Time
	)
	err := q.QueryRow(ctx, `SELECT code, amount_minor, used, expires_at FROM transfer_otps
		WHERE reference_id = $1 AND user_id = $2`, referenceID, userID).
		Scan(&stored, &storedAmount, &used, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInvalid
		}
		return fmt.Errorf("%w: verify otp: %v", storage.ErrUnavailable, err)
	}
	return check(stored, storedAmount, used, expiresAt, code, amountMinor)
}

// Redeem consumes the code with a single conditional update. Zero rows
// affected means some condition failed; Verify narrows the reason.
func (m *PostgresManager) Redeem(ctx context.Context, tx storage.Queryer, userID, referenceID, code string, amountMinor int64) error {
	cmd, err := tx.Exec(ctx, `UPDATE transfer_otps SET used = TRUE
		WHERE reference_id = $1 AND user_id = $2 AND code = $3
		  AND amount_minor = $4 AND used = FALSE AND expires_at > $5`,
		referenceID, userID, code, amountMinor, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%w: redeem otp: %v", storage.ErrUnavailable, err)
	}
	if cmd.RowsAffected() == 0 {
		if verr := m.Verify(ctx, tx, userID, referenceID, code, amountMinor); verr != nil {
			return verr
		}
		return ErrInvalid
	}
	return nil
}

func check(stored string, storedAmount int64, used bool, expiresAt time.Time, presented string, presentedAmount int64) error {
	switch {
	case used:
		return ErrConsumed
	case time.Now().UTC().After(expiresAt):
		return ErrExpired
	case stored != presented:
		return ErrInvalid
	case storedAmount != presentedAmount:
		return ErrAmountMismatch
	default:
		return nil
	}
}
