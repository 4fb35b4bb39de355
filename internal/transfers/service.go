package transfers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rupeeflow/rupeeflow/internal/config"
	"github.com/rupeeflow/rupeeflow/internal/idempotency"
	"github.com/rupeeflow/rupeeflow/internal/identity"
	"github.com/rupeeflow/rupeeflow/internal/ledger"
	"github.com/rupeeflow/rupeeflow/internal/limits"
	"github.com/rupeeflow/rupeeflow/internal/money"
	"github.com/rupeeflow/rupeeflow/internal/notification"
	"github.com/rupeeflow/rupeeflow/internal/otp"
	"github.com/rupeeflow/rupeeflow/internal/storage"
	"github.com/rupeeflow/rupeeflow/internal/wallet"
)

// Directory resolves transfer recipients.
type Directory interface {
	FindActiveByEmail(ctx context.Context, email string) (identity.User, error)
}

// Service coordinates OTP-gated peer transfers: recipient resolution, the
// locked dual-wallet update, paired ledger writes, OTP consumption, and the
// daily-limit increment, all in one atomic unit.
type Service struct {
	limits    config.Limits
	exposeOTP bool

	runner   storage.TxRunner
	db       storage.Queryer // nil with memory stores
	wallets  wallet.Store
	ledger   ledger.Engine
	otps     otp.Manager
	tracker  limits.Tracker
	guard    *idempotency.Guard
	users    Directory
	notifier notification.Notifier
	logger   *slog.Logger
}

// Deps aggregates the collaborators a transfer service needs.
type Deps struct {
	Runner   storage.TxRunner
	DB       storage.Queryer
	Wallets  wallet.Store
	Ledger   ledger.Engine
	OTPs     otp.Manager
	Tracker  limits.Tracker
	Guard    *idempotency.Guard
	Users    Directory
	Notifier notification.Notifier
	Logger   *slog.Logger
}

// NewService constructs a transfer service. The OTP code is echoed in
// responses only outside production.
func NewService(cfg config.Config, d Deps) *Service {
	return &Service{
		limits:    cfg.Limits,
		exposeOTP: cfg.IsDev(),
		runner:    d.Runner,
		db:        d.DB,
		wallets:   d.Wallets,
		ledger:    d.Ledger,
		otps:      d.OTPs,
		tracker:   d.Tracker,
		guard:     d.Guard,
		users:     d.Users,
		notifier:  d.Notifier,
		logger:    d.Logger,
	}
}

// Recipient identifies the resolved destination of a transfer.
type Recipient struct {
	UserID string
	Email  string
	Name   string
}

// OTPIssued is the outcome of GenerateOTP. Code is empty in production; the
// user receives it through the notification channel instead.
type OTPIssued struct {
	ReferenceID string
	Recipient   Recipient
	Code        string
	ExpiresIn   time.Duration
}

// GenerateOTP validates the intended transfer and issues a single-use code
// for it. The balance and limit checks here are advisory only; the
// authoritative checks re-run under lock when the transfer commits, because
// the balance may change between issuance and redemption.
func (s *Service) GenerateOTP(ctx context.Context, userID, toEmail string, amount decimal.Decimal) (OTPIssued, error) {
	amountMinor, err := money.ToMinor(amount)
	if err != nil {
		return OTPIssued{}, err
	}
	if err := money.CheckBounds(amountMinor, s.limits.MinTransactionMinor, s.limits.MaxTransactionMinor); err != nil {
		return OTPIssued{}, err
	}

	recipient, err := s.resolveRecipient(ctx, userID, toEmail)
	if err != nil {
		return OTPIssued{}, err
	}

	w, err := s.wallets.GetByUserID(ctx, s.db, userID)
	if err != nil {
		return OTPIssued{}, err
	}
	if w.BalanceMinor < amountMinor {
		return OTPIssued{}, wallet.ErrInsufficientBalance
	}
	if err := s.tracker.Reserve(ctx, s.db, userID, limits.Day(time.Now()), limits.FieldTransferred, amountMinor); err != nil {
		return OTPIssued{}, err
	}

	referenceID := uuid.NewString()
	code, err := s.otps.Issue(ctx, s.db, userID, referenceID, amountMinor)
	if err != nil {
		return OTPIssued{}, err
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindTransferOTP,
			Destination: userID,
			Body:        fmt.Sprintf("Your transfer OTP is %s. It expires in %s.", code, s.limits.OTPValidity),
		})
	}

	issued := OTPIssued{ReferenceID: referenceID, Recipient: recipient, ExpiresIn: s.limits.OTPValidity}
	if s.exposeOTP {
		issued.Code = code
	}
	return issued, nil
}

// Input carries one transfer request.
type Input struct {
	UserID         string
	ToEmail        string
	Amount         decimal.Decimal
	OTPCode        string
	ReferenceID    string
	IdempotencyKey string
}

// Result is the outcome of a transfer.
type Result struct {
	Success   bool
	Message   string
	Duplicate bool
	Entry     ledger.Entry // the sender's TRANSFER_DEBIT
	Recipient Recipient
}

// Transfer executes one OTP-authorized peer transfer.
func (s *Service) Transfer(ctx context.Context, in Input) (Result, error) {
	amountMinor, err := money.ToMinor(in.Amount)
	if err != nil {
		return Result{}, err
	}
	if err := money.CheckBounds(amountMinor, s.limits.MinTransactionMinor, s.limits.MaxTransactionMinor); err != nil {
		return Result{}, err
	}

	recipient, err := s.resolveRecipient(ctx, in.UserID, in.ToEmail)
	if err != nil {
		return Result{}, err
	}

	// A replayed key short-circuits before the OTP precheck: the original
	// attempt already consumed the code, so checking it first would turn
	// every retry of a completed transfer into ErrConsumed.
	if cached, err := s.guard.Check(ctx, in.IdempotencyKey); err != nil {
		return Result{}, err
	} else if cached != nil {
		return s.duplicateResult(*cached, recipient), nil
	}

	// Reject a bad code before taking any wallet lock. The consumption
	// itself happens inside the atomic unit below.
	if err := s.otps.Verify(ctx, s.db, in.UserID, in.ReferenceID, in.OTPCode, amountMinor); err != nil {
		return Result{}, err
	}

	day := limits.Day(time.Now())
	debitID, creditID := uuid.NewString(), uuid.NewString()
	var debit ledger.Entry

	err = s.runner.WithinTx(ctx, func(ctx context.Context, tx storage.Queryer) error {
		if err := s.tracker.Reserve(ctx, tx, in.UserID, day, limits.FieldTransferred, amountMinor); err != nil {
			return err
		}

		// Participants are locked in one call, ids ascending. Every
		// multi-wallet caller sharing this order is what rules out deadlock.
		pair := []string{in.UserID, recipient.UserID}
		sort.Strings(pair)
		balances, err := s.wallets.LockedBalances(ctx, tx, pair)
		if err != nil {
			return err
		}

		senderBefore := balances[in.UserID]
		recipientBefore := balances[recipient.UserID]
		if senderBefore < amountMinor {
			return wallet.ErrInsufficientBalance
		}

		senderAfter := senderBefore - amountMinor
		recipientAfter := recipientBefore + amountMinor
		if err := s.wallets.SetBalance(ctx, tx, in.UserID, senderAfter); err != nil {
			return err
		}
		if err := s.wallets.SetBalance(ctx, tx, recipient.UserID, recipientAfter); err != nil {
			return err
		}

		debit = ledger.Entry{
			ID:                  debitID,
			IdempotencyKey:      in.IdempotencyKey,
			OwnerUserID:         in.UserID,
			Type:                ledger.TypeTransferDebit,
			AmountMinor:         amountMinor,
			BalanceBeforeMinor:  senderBefore,
			BalanceAfterMinor:   senderAfter,
			Status:              ledger.StatusSuccess,
			CounterpartyUserID:  recipient.UserID,
			CounterpartyEntryID: creditID,
		}
		if err := s.ledger.Append(ctx, tx, debit); err != nil {
			return err
		}

		credit := ledger.Entry{
			ID:                  creditID,
			OwnerUserID:         recipient.UserID,
			Type:                ledger.TypeTransferCredit,
			AmountMinor:         amountMinor,
			BalanceBeforeMinor:  recipientBefore,
			BalanceAfterMinor:   recipientAfter,
			Status:              ledger.StatusSuccess,
			CounterpartyUserID:  in.UserID,
			CounterpartyEntryID: debitID,
		}
		if err := s.ledger.Append(ctx, tx, credit); err != nil {
			return err
		}

		if err := s.otps.Redeem(ctx, tx, in.UserID, in.ReferenceID, in.OTPCode, amountMinor); err != nil {
			return err
		}
		return s.tracker.Apply(ctx, tx, in.UserID, day, limits.FieldTransferred, amountMinor)
	})
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateKey) {
			// Lost the insert race for the key: hand back the winner's entry.
			winner, rerr := s.guard.Resolve(ctx, in.IdempotencyKey)
			if rerr != nil {
				return Result{}, rerr
			}
			return s.duplicateResult(*winner, recipient), nil
		}
		return Result{}, err
	}

	s.guard.Remember(ctx, in.IdempotencyKey, debit)

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindTransferReceived,
			Destination: recipient.UserID,
			Body:        fmt.Sprintf("You received %s from %s", money.FormatMinor(amountMinor), in.UserID),
		})
	}

	return Result{
		Success:   true,
		Message:   fmt.Sprintf("transferred %s to %s", money.FormatMinor(amountMinor), recipient.Email),
		Entry:     debit,
		Recipient: recipient,
	}, nil
}

func (s *Service) resolveRecipient(ctx context.Context, senderID, toEmail string) (Recipient, error) {
	user, err := s.users.FindActiveByEmail(ctx, toEmail)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return Recipient{}, ErrRecipientNotFound
		}
		return Recipient{}, err
	}
	if user.ID == senderID {
		return Recipient{}, ErrSelfTransfer
	}
	return Recipient{UserID: user.ID, Email: user.Email, Name: user.Name}, nil
}

func (s *Service) duplicateResult(entry ledger.Entry, recipient Recipient) Result {
	return Result{
		Success:   entry.Status == ledger.StatusSuccess,
		Message:   "duplicate request; original result returned",
		Duplicate: true,
		Entry:     entry,
		Recipient: recipient,
	}
}
