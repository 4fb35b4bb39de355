package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rupeeflow/rupeeflow/internal/storage"
)

type memoryStore struct {
	mu      sync.RWMutex
	wallets map[string]Wallet
}

// NewMemoryStore constructs an in-memory wallet store for tests. It
// implements storage.Participant for rollback emulation.
func NewMemoryStore() Store {
	return &memoryStore{wallets: make(map[string]Wallet)}
}

func (s *memoryStore) Create(_ context.Context, _ storage.Queryer, w Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.wallets[w.UserID]; exists {
		return errors.New("wallet exists")
	}
	now := time.Now().UTC()
	w.CreatedAt, w.UpdatedAt = now, now
	s.wallets[w.UserID] = w
	return nil
}

func (s *memoryStore) GetByUserID(_ context.Context, _ storage.Queryer, userID string) (Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[userID]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	return w, nil
}

func (s *memoryStore) LockedBalances(_ context.Context, _ storage.Queryer, userIDs []string) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	balances := make(map[string]int64, len(userIDs))
	for _, id := range userIDs {
		w, ok := s.wallets[id]
		if !ok {
			return nil, ErrNotFound
		}
		balances[id] = w.BalanceMinor
	}
	return balances, nil
}

func (s *memoryStore) SetBalance(_ context.Context, _ storage.Queryer, userID string, newBalanceMinor int64) error {
	if newBalanceMinor < 0 {
		panic(fmt.Sprintf("wallet: negative balance write for user %s: %d", userID, newBalanceMinor))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[userID]
	if !ok {
		return ErrNotFound
	}
	w.BalanceMinor = newBalanceMinor
	w.UpdatedAt = time.Now().UTC()
	s.wallets[userID] = w
	return nil
}

// Snapshot captures store state for the memory transaction runner.
func (s *memoryStore) Snapshot() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := make(map[string]Wallet, len(s.wallets))
	for k, v := range s.wallets {
		snap[k] = v
	}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.wallets = snap
	}
}
