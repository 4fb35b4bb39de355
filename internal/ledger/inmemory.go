package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rupeeflow/rupeeflow/internal/storage"
)

type inMemoryEngine struct {
	mu      sync.RWMutex
	entries map[string]Entry
	byKey   map[string]string // idempotency key -> entry id
	seq     int64             // breaks created_at ties in ordering
	order   map[string]int64
}

// NewInMemory creates a concurrency-safe in-memory engine useful for unit
// tests. It implements storage.Participant for rollback emulation.
func NewInMemory() Engine {
	return &inMemoryEngine{
		entries: make(map[string]Entry),
		byKey:   make(map[string]string),
		order:   make(map[string]int64),
	}
}

func (l *inMemoryEngine) Append(_ context.Context, _ storage.Queryer, entry Entry) error {
	if entry.AmountMinor <= 0 {
		return fmt.Errorf("amount must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.IdempotencyKey != "" {
		if _, exists := l.byKey[entry.IdempotencyKey]; exists {
			return ErrDuplicateKey
		}
	}

	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = entry.CreatedAt

	l.entries[entry.ID] = entry
	if entry.IdempotencyKey != "" {
		l.byKey[entry.IdempotencyKey] = entry.ID
	}
	l.seq++
	l.order[entry.ID] = l.seq
	return nil
}

func (l *inMemoryEngine) MarkTerminal(_ context.Context, _ storage.Queryer, entryID string, t Terminal) error {
	if t.Status != StatusSuccess && t.Status != StatusFailed {
		return fmt.Errorf("%w: status %q is not terminal", ErrInvalidState, t.Status)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[entryID]
	if !ok || entry.Status != StatusPending {
		return ErrInvalidState
	}

	entry.Status = t.Status
	entry.BalanceAfterMinor = t.BalanceAfterMinor
	entry.FailureReason = t.FailureReason
	if t.Gateway != nil {
		entry.Gateway = t.Gateway
	}
	entry.UpdatedAt = time.Now().UTC()
	l.entries[entryID] = entry
	return nil
}

func (l *inMemoryEngine) Get(_ context.Context, _ storage.Queryer, entryID string) (Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entry, ok := l.entries[entryID]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return entry, nil
}

func (l *inMemoryEngine) FindByIdempotencyKey(_ context.Context, _ storage.Queryer, key string) (Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	id, ok := l.byKey[key]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return l.entries[id], nil
}

func (l *inMemoryEngine) ListByOwner(_ context.Context, _ storage.Queryer, ownerID string, limit, offset int) ([]Entry, int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var owned []Entry
	for _, entry := range l.entries {
		if entry.OwnerUserID == ownerID {
			owned = append(owned, entry)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		return l.order[owned[i].ID] > l.order[owned[j].ID]
	})

	total := int64(len(owned))
	if offset >= len(owned) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(owned) {
		end = len(owned)
	}
	return owned[offset:end], total, nil
}

// Snapshot captures the engine state and returns a restore function, so the
// memory transaction runner can roll failed units back.
func (l *inMemoryEngine) Snapshot() func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := make(map[string]Entry, len(l.entries))
	for k, v := range l.entries {
		entries[k] = v
	}
	byKey := make(map[string]string, len(l.byKey))
	for k, v := range l.byKey {
		byKey[k] = v
	}
	order := make(map[string]int64, len(l.order))
	for k, v := range l.order {
		order[k] = v
	}
	seq := l.seq

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.entries = entries
		l.byKey = byKey
		l.order = order
		l.seq = seq
	}
}
