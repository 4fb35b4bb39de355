package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rupeeflow/rupeeflow/internal/storage"
)

const pgUniqueViolation = "23505"

// PostgresEngine persists ledger entries in PostgreSQL. Idempotency keys are
// guarded by a unique index, terminal transitions by a conditional update.
type PostgresEngine struct{}

// NewPostgresEngine constructs a Postgres-backed ledger engine.
func NewPostgresEngine() *PostgresEngine {
	return &PostgresEngine{}
}

const entryColumns = `id, idempotency_key, owner_user_id, entry_type, amount_minor,
	balance_before_minor, balance_after_minor, status, payment_method,
	counterparty_user_id, counterparty_entry_id, failure_reason,
	gateway_provider, gateway_reference, upi_vpa, upi_rail_reference,
	card_network, card_last4, bank_code, created_at, updated_at`

// Append inserts a new entry.
func (e *PostgresEngine) Append(ctx context.Context, q storage.Queryer, entry Entry) error {
	if entry.AmountMinor <= 0 {
		return fmt.Errorf("amount must be positive")
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = entry.CreatedAt

	g := flattenGateway(entry.Gateway)
	_, err := q.Exec(ctx, `INSERT INTO ledger_entries (`+entryColumns+`)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, NULLIF($9, ''),
			NULLIF($10, ''), NULLIF($11, ''), NULLIF($12, ''),
			NULLIF($13, ''), NULLIF($14, ''), NULLIF($15, ''), NULLIF($16, ''),
			NULLIF($17, ''), NULLIF($18, ''), NULLIF($19, ''), $20, $21)`,
		entry.ID, entry.IdempotencyKey, entry.OwnerUserID, entry.Type, entry.AmountMinor,
		entry.BalanceBeforeMinor, entry.BalanceAfterMinor, entry.Status, entry.PaymentMethod,
		entry.CounterpartyUserID, entry.CounterpartyEntryID, entry.FailureReason,
		g.provider, g.reference, g.upiVPA, g.upiRail, g.cardNetwork, g.cardLast4, g.bankCode,
		entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicateKey
		}
		return fmt.Errorf("%w: append entry: %v", storage.ErrUnavailable, err)
	}
	return nil
}

// MarkTerminal finalizes a PENDING entry.
func (e *PostgresEngine) MarkTerminal(ctx context.Context, q storage.Queryer, entryID string, t Terminal) error {
	if t.Status != StatusSuccess && t.Status != StatusFailed {
		return fmt.Errorf("%w: status %q is not terminal", ErrInvalidState, t.Status)
	}
	g := flattenGateway(t.Gateway)
	cmd, err := q.Exec(ctx, `UPDATE ledger_entries
		SET status = $2,
			balance_after_minor = $3,
			failure_reason = NULLIF($4, ''),
			gateway_provider = COALESCE(NULLIF($5, ''), gateway_provider),
			gateway_reference = COALESCE(NULLIF($6, ''), gateway_reference),
			upi_vpa = COALESCE(NULLIF($7, ''), upi_vpa),
			upi_rail_reference = COALESCE(NULLIF($8, ''), upi_rail_reference),
			card_network = COALESCE(NULLIF($9, ''), card_network),
			card_last4 = COALESCE(NULLIF($10, ''), card_last4),
			bank_code = COALESCE(NULLIF($11, ''), bank_code),
			updated_at = $12
		WHERE id = $1 AND status = $13`,
		entryID, t.Status, t.BalanceAfterMinor, t.FailureReason,
		g.provider, g.reference, g.upiVPA, g.upiRail, g.cardNetwork, g.cardLast4, g.bankCode,
		time.Now().UTC(), StatusPending)
	if err != nil {
		return fmt.Errorf("%w: mark terminal: %v", storage.ErrUnavailable, err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrInvalidState
	}
	return nil
}

// Get loads one entry by id.
func (e *PostgresEngine) Get(ctx context.Context, q storage.Queryer, entryID string) (Entry, error) {
	row := q.QueryRow(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE id = $1`, entryID)
	return scanEntry(row)
}

// FindByIdempotencyKey loads the entry claimed under key, if any.
func (e *PostgresEngine) FindByIdempotencyKey(ctx context.Context, q storage.Queryer, key string) (Entry, error) {
	if key == "" {
		return Entry{}, ErrNotFound
	}
	row := q.QueryRow(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE idempotency_key = $1`, key)
	return scanEntry(row)
}

// ListByOwner pages through a user's entries, newest first.
func (e *PostgresEngine) ListByOwner(ctx context.Context, q storage.Queryer, ownerID string, limit, offset int) ([]Entry, int64, error) {
	var total int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM ledger_entries WHERE owner_user_id = $1`, ownerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%w: count entries: %v", storage.ErrUnavailable, err)
	}

	rows, err := q.Query(ctx, `SELECT `+entryColumns+` FROM ledger_entries
		WHERE owner_user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, ownerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list entries: %v", storage.ErrUnavailable, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: list entries: %v", storage.ErrUnavailable, err)
	}
	return entries, total, nil
}

type flatGateway struct {
	provider, reference    string
	upiVPA, upiRail        string
	cardNetwork, cardLast4 string
	bankCode               string
}

func flattenGateway(g *GatewayDetails) flatGateway {
	if g == nil {
		return flatGateway{}
	}
	out := flatGateway{provider: g.Provider, reference: g.ReferenceID}
	if g.UPI != nil {
		out.upiVPA, out.upiRail = g.UPI.VPA, g.UPI.RailReference
	}
	if g.Card != nil {
		out.cardNetwork, out.cardLast4 = g.Card.Network, g.Card.Last4
	}
	if g.NetBanking != nil {
		out.bankCode = g.NetBanking.BankCode
	}
	return out
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		entry                                     Entry
		idemKey, method, counterparty, counterEnt *string
		failure, provider, reference              *string
		upiVPA, upiRail, cardNetwork, cardLast4   *string
		bankCode                                  *string
		createdAt, updatedAt                      time.Time
	)
	err := row.Scan(&entry.ID, &idemKey, &entry.OwnerUserID, &entry.Type, &entry.AmountMinor,
		&entry.BalanceBeforeMinor, &entry.BalanceAfterMinor, &entry.Status, &method,
		&counterparty, &counterEnt, &failure,
		&provider, &reference, &upiVPA, &upiRail, &cardNetwork, &cardLast4, &bankCode,
		&createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, fmt.Errorf("%w: scan entry: %v", storage.ErrUnavailable, err)
	}

	entry.IdempotencyKey = deref(idemKey)
	entry.PaymentMethod = deref(method)
	entry.CounterpartyUserID = deref(counterparty)
	entry.CounterpartyEntryID = deref(counterEnt)
	entry.FailureReason = deref(failure)
	entry.CreatedAt = createdAt.UTC()
	entry.UpdatedAt = updatedAt.UTC()

	if provider != nil || reference != nil {
		g := &GatewayDetails{Provider: deref(provider), ReferenceID: deref(reference)}
		if upiVPA != nil || upiRail != nil {
			g.UPI = &UPIDetails{VPA: deref(upiVPA), RailReference: deref(upiRail)}
		}
		if cardNetwork != nil || cardLast4 != nil {
			g.Card = &CardDetails{Network: deref(cardNetwork), Last4: deref(cardLast4)}
		}
		if bankCode != nil {
			g.NetBanking = &NetBankingDetails{BankCode: deref(bankCode)}
		}
		entry.Gateway = g
	}
	return entry, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
