package funding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rupeeflow/rupeeflow/internal/config"
	"github.com/rupeeflow/rupeeflow/internal/gateway"
	"github.com/rupeeflow/rupeeflow/internal/idempotency"
	"github.com/rupeeflow/rupeeflow/internal/ledger"
	"github.com/rupeeflow/rupeeflow/internal/limits"
	"github.com/rupeeflow/rupeeflow/internal/money"
	"github.com/rupeeflow/rupeeflow/internal/storage"
	"github.com/rupeeflow/rupeeflow/internal/wallet"
)

// Service coordinates wallet top-ups. The gateway round-trip runs strictly
// between two short atomic units so no wallet row stays locked while an
// external processor deliberates.
type Service struct {
	limits config.Limits

	runner  storage.TxRunner
	db      storage.Queryer // nil with memory stores
	wallets wallet.Store
	ledger  ledger.Engine
	tracker limits.Tracker
	guard   *idempotency.Guard
	gateway gateway.Gateway
	logger  *slog.Logger
}

// Deps aggregates the collaborators a funding service needs.
type Deps struct {
	Runner  storage.TxRunner
	DB      storage.Queryer
	Wallets wallet.Store
	Ledger  ledger.Engine
	Tracker limits.Tracker
	Guard   *idempotency.Guard
	Gateway gateway.Gateway
	Logger  *slog.Logger
}

// NewService constructs a funding service.
func NewService(cfg config.Config, d Deps) *Service {
	return &Service{
		limits:  cfg.Limits,
		runner:  d.Runner,
		db:      d.DB,
		wallets: d.Wallets,
		ledger:  d.Ledger,
		tracker: d.Tracker,
		guard:   d.Guard,
		gateway: d.Gateway,
		logger:  d.Logger,
	}
}

// Input carries one top-up request.
type Input struct {
	UserID         string
	Amount         decimal.Decimal
	PaymentMethod  string
	IdempotencyKey string
}

// Result is the outcome of a top-up. A gateway decline yields Success=false
// with a FAILED ledger entry, not an error.
type Result struct {
	Success   bool
	Message   string
	Duplicate bool
	Entry     ledger.Entry
}

// AddMoney executes one top-up.
func (s *Service) AddMoney(ctx context.Context, in Input) (Result, error) {
	amountMinor, err := money.ToMinor(in.Amount)
	if err != nil {
		return Result{}, err
	}
	if err := money.CheckBounds(amountMinor, s.limits.MinTransactionMinor, s.limits.MaxTransactionMinor); err != nil {
		return Result{}, err
	}
	if err := gateway.ValidateMethod(in.PaymentMethod); err != nil {
		return Result{}, err
	}

	day := limits.Day(time.Now())
	// Reject over-ceiling requests before touching the gateway. The
	// authoritative re-check runs under lock in the settlement unit.
	if err := s.tracker.Reserve(ctx, s.db, in.UserID, day, limits.FieldAdded, amountMinor); err != nil {
		return Result{}, err
	}

	if cached, err := s.guard.Check(ctx, in.IdempotencyKey); err != nil {
		return Result{}, err
	} else if cached != nil {
		return duplicateResult(*cached), nil
	}

	entryID := uuid.NewString()
	err = s.runner.WithinTx(ctx, func(ctx context.Context, tx storage.Queryer) error {
		// Locked read, so the provisional snapshot cannot tear against a
		// concurrent transfer committing between read and append.
		balances, err := s.wallets.LockedBalances(ctx, tx, []string{in.UserID})
		if err != nil {
			return err
		}
		current := balances[in.UserID]
		// Balance is unchanged while PENDING; before equals after until the
		// settlement unit rewrites it.
		return s.ledger.Append(ctx, tx, ledger.Entry{
			ID:                 entryID,
			IdempotencyKey:     in.IdempotencyKey,
			OwnerUserID:        in.UserID,
			Type:               ledger.TypeAddMoney,
			AmountMinor:        amountMinor,
			BalanceBeforeMinor: current,
			BalanceAfterMinor:  current,
			Status:             ledger.StatusPending,
			PaymentMethod:      in.PaymentMethod,
		})
	})
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateKey) {
			winner, rerr := s.guard.Resolve(ctx, in.IdempotencyKey)
			if rerr != nil {
				return Result{}, rerr
			}
			return duplicateResult(*winner), nil
		}
		return Result{}, err
	}

	// No locks held here. A crash in this window leaves a PENDING entry for
	// reconciliation; it never leaves a balance change.
	outcome, gerr := s.gateway.Process(ctx, in.PaymentMethod, amountMinor)
	if gerr != nil {
		s.logger.Error("gateway call failed",
			slog.String("entry_id", entryID), slog.Any("error", gerr))
		outcome = gateway.Result{Success: false, Message: gatewayFailureReason(gerr)}
	}

	entry, err := s.settle(ctx, in.UserID, entryID, day, amountMinor, outcome)
	if err != nil {
		return Result{}, err
	}

	s.guard.Remember(ctx, in.IdempotencyKey, entry)

	return Result{
		Success: entry.Status == ledger.StatusSuccess,
		Message: settleMessage(entry),
		Entry:   entry,
	}, nil
}

// settle closes the PENDING entry: credit plus SUCCESS, or FAILED with the
// gateway's reason. The balance write and the terminal transition share one
// atomic unit.
func (s *Service) settle(ctx context.Context, userID, entryID, day string, amountMinor int64, outcome gateway.Result) (ledger.Entry, error) {
	err := s.runner.WithinTx(ctx, func(ctx context.Context, tx storage.Queryer) error {
		if outcome.Success {
			if err := s.tracker.Reserve(ctx, tx, userID, day, limits.FieldAdded, amountMinor); err != nil {
				// A concurrent top-up consumed the ceiling while the gateway
				// was deliberating. The charge succeeded upstream, so record
				// the failure loudly for reconciliation.
				s.logger.Error("ceiling consumed during gateway call, failing settled charge",
					slog.String("entry_id", entryID), slog.String("user_id", userID))
				outcome = gateway.Result{Success: false, Message: err.Error(), Details: outcome.Details}
			}
		}

		if !outcome.Success {
			// Balance is untouched on failure; carry the PENDING snapshot
			// through so the terminal write does not zero it.
			pending, err := s.ledger.Get(ctx, tx, entryID)
			if err != nil {
				return err
			}
			return s.ledger.MarkTerminal(ctx, tx, entryID, ledger.Terminal{
				Status:            ledger.StatusFailed,
				BalanceAfterMinor: pending.BalanceAfterMinor,
				FailureReason:     outcome.Message,
				Gateway:           outcome.Details,
			})
		}

		balances, err := s.wallets.LockedBalances(ctx, tx, []string{userID})
		if err != nil {
			return err
		}
		newBalance := balances[userID] + amountMinor
		if err := s.wallets.SetBalance(ctx, tx, userID, newBalance); err != nil {
			return err
		}
		if err := s.ledger.MarkTerminal(ctx, tx, entryID, ledger.Terminal{
			Status:            ledger.StatusSuccess,
			BalanceAfterMinor: newBalance,
			Gateway:           outcome.Details,
		}); err != nil {
			return err
		}
		return s.tracker.Apply(ctx, tx, userID, day, limits.FieldAdded, amountMinor)
	})
	if err != nil {
		return ledger.Entry{}, err
	}
	return s.ledger.Get(ctx, s.db, entryID)
}

func gatewayFailureReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "gateway timed out"
	}
	return fmt.Sprintf("gateway error: %v", err)
}

func settleMessage(entry ledger.Entry) string {
	if entry.Status == ledger.StatusSuccess {
		return fmt.Sprintf("added %s, new balance %s",
			money.FormatMinor(entry.AmountMinor), money.FormatMinor(entry.BalanceAfterMinor))
	}
	return entry.FailureReason
}

func duplicateResult(entry ledger.Entry) Result {
	return Result{
		Success:   entry.Status == ledger.StatusSuccess,
		Message:   "duplicate request; original result returned",
		Duplicate: true,
		Entry:     entry,
	}
}
