package limits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rupeeflow/rupeeflow/internal/money"
	"github.com/rupeeflow/rupeeflow/internal/storage"
)

// ErrDailyLimitExceeded indicates the operation would push the user past the
// configured daily ceiling for that flow.
var ErrDailyLimitExceeded = errors.New("daily limit exceeded")

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// Field selects which accumulator a reservation targets.
type Field string

const (
	FieldAdded       Field = "added"
	FieldTransferred Field = "transferred"
)

// Day is a calendar date in UTC, the granularity of limit accounting.
func Day(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Tracker accumulates per-user per-day totals and enforces ceilings.
//
// Reserve is a pre-check: it must run before any balance mutation and aborts
// the whole enclosing operation when the ceiling would be crossed. Apply
// increments the accumulator and must execute in the same atomic unit as the
// balance change, so both commit or roll back together.
type Tracker interface {
	Reserve(ctx context.Context, q storage.Queryer, userID, day string, field Field, amountMinor int64) error
	Apply(ctx context.Context, tx storage.Queryer, userID, day string, field Field, amountMinor int64) error
}

// Ceilings carries the configured daily maxima in paise.
type Ceilings struct {
	AddedMinor       int64
	TransferredMinor int64
}

func (c Ceilings) ceiling(field Field) int64 {
	if field == FieldAdded {
		return c.AddedMinor
	}
	return c.TransferredMinor
}

// PostgresTracker keeps daily totals in a (user, day) keyed table.
type PostgresTracker struct {
	ceilings Ceilings
}

// NewPostgresTracker builds a Postgres-backed tracker.
func NewPostgresTracker(ceilings Ceilings) *PostgresTracker {
	return &PostgresTracker{ceilings: ceilings}
}

func column(field Field) string {
	if field == FieldAdded {
		return "total_added_minor"
	}
	return "total_transferred_minor"
}

// Reserve checks currentTotal + amount against the ceiling.
func (t *PostgresTracker) Reserve(ctx context.Context, q storage.Queryer, userID, day string, field Field, amountMinor int64) error {
	var total int64
	err := q.QueryRow(ctx, `SELECT COALESCE(`+column(field)+`, 0) FROM daily_limits
		WHERE user_id = $1 AND day = $2`, userID, day).Scan(&total)
	if err != nil && !isNoRows(err) {
		return fmt.Errorf("%w: read daily total: %v", storage.ErrUnavailable, err)
	}

	if total+amountMinor > t.ceilings.ceiling(field) {
		return fmt.Errorf("%w: %s today plus %s passes the %s ceiling",
			ErrDailyLimitExceeded,
			money.FormatMinor(total), money.FormatMinor(amountMinor),
			money.FormatMinor(t.ceilings.ceiling(field)))
	}
	return nil
}

// Apply increments the accumulator, creating the day's row on first activity.
func (t *PostgresTracker) Apply(ctx context.Context, tx storage.Queryer, userID, day string, field Field, amountMinor int64) error {
	col := column(field)
	_, err := tx.Exec(ctx, `INSERT INTO daily_limits (user_id, day, `+col+`)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, day)
		DO UPDATE SET `+col+` = daily_limits.`+col+` + EXCLUDED.`+col,
		userID, day, amountMinor)
	if err != nil {
		return fmt.Errorf("%w: apply daily total: %v", storage.ErrUnavailable, err)
	}
	return nil
}
