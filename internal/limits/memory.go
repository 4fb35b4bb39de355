package limits

import (
	"context"
	"fmt"
	"sync"

	"github.com/rupeeflow/rupeeflow/internal/money"
	"github.com/rupeeflow/rupeeflow/internal/storage"
)

type record struct {
	added       int64
	transferred int64
}

type memoryTracker struct {
	mu       sync.RWMutex
	ceilings Ceilings
	totals   map[string]record // key: userID + "|" + day
}

// NewMemoryTracker constructs an in-memory tracker for tests. It implements
// storage.Participant for rollback emulation.
func NewMemoryTracker(ceilings Ceilings) Tracker {
	return &memoryTracker{ceilings: ceilings, totals: make(map[string]record)}
}

func key(userID, day string) string {
	return userID + "|" + day
}

func (t *memoryTracker) Reserve(_ context.Context, _ storage.Queryer, userID, day string, field Field, amountMinor int64) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rec := t.totals[key(userID, day)]
	total := rec.added
	if field == FieldTransferred {
		total = rec.transferred
	}
	if total+amountMinor > t.ceilings.ceiling(field) {
		return fmt.Errorf("%w: %s today plus %s passes the %s ceiling",
			ErrDailyLimitExceeded,
			money.FormatMinor(total), money.FormatMinor(amountMinor),
			money.FormatMinor(t.ceilings.ceiling(field)))
	}
	return nil
}

func (t *memoryTracker) Apply(_ context.Context, _ storage.Queryer, userID, day string, field Field, amountMinor int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec := t.totals[key(userID, day)]
	if field == FieldAdded {
		rec.added += amountMinor
	} else {
		rec.transferred += amountMinor
	}
	t.totals[key(userID, day)] = rec
	return nil
}

// Snapshot captures tracker state for the memory transaction runner.
func (t *memoryTracker) Snapshot() func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	snap := make(map[string]record, len(t.totals))
	for k, v := range t.totals {
		snap[k] = v
	}
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.totals = snap
	}
}
