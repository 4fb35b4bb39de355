package wallet

import (
	"context"
	"time"

	"github.com/rupeeflow/rupeeflow/internal/ledger"
	"github.com/rupeeflow/rupeeflow/internal/money"
	"github.com/rupeeflow/rupeeflow/internal/storage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Service exposes read-side wallet operations. Mutations happen only through
// the funding and transfer coordinators.
type Service struct {
	store  Store
	ledger ledger.Engine
	db     storage.Queryer // nil when the memory store is in use
}

// NewService builds a wallet service instance.
func NewService(store Store, ledgerEngine ledger.Engine, db storage.Queryer) *Service {
	return &Service{store: store, ledger: ledgerEngine, db: db}
}

// Provision creates a wallet with a zero opening balance. Called once at user
// onboarding.
func (s *Service) Provision(ctx context.Context, userID string) (Wallet, error) {
	w := Wallet{UserID: userID, BalanceMinor: 0, Currency: money.Currency}
	if err := s.store.Create(ctx, s.db, w); err != nil {
		return Wallet{}, err
	}
	return w, nil
}

// Balance describes the funds available to a user.
type Balance struct {
	UserID       string
	BalanceMinor int64
	Currency     string
	AsOf         time.Time
}

// Balance returns the user's current balance, or ErrNotFound.
func (s *Service) Balance(ctx context.Context, userID string) (Balance, error) {
	w, err := s.store.GetByUserID(ctx, s.db, userID)
	if err != nil {
		return Balance{}, err
	}
	return Balance{
		UserID:       w.UserID,
		BalanceMinor: w.BalanceMinor,
		Currency:     w.Currency,
		AsOf:         time.Now().UTC(),
	}, nil
}

// Page describes history pagination.
type Page struct {
	Page       int
	PageSize   int
	Total      int64
	TotalPages int64
}

// History returns the user's ledger entries, newest first.
func (s *Service) History(ctx context.Context, userID string, page, pageSize int) ([]ledger.Entry, Page, error) {
	if _, err := s.store.GetByUserID(ctx, s.db, userID); err != nil {
		return nil, Page{}, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	entries, total, err := s.ledger.ListByOwner(ctx, s.db, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, Page{}, err
	}

	totalPages := total / int64(pageSize)
	if total%int64(pageSize) != 0 {
		totalPages++
	}
	return entries, Page{Page: page, PageSize: pageSize, Total: total, TotalPages: totalPages}, nil
}
