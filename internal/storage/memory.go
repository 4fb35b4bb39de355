package storage

import (
	"context"
	"sync"
)

// Participant is implemented by memory-backed stores that can capture and
// restore their state, letting MemoryRunner emulate rollback.
type Participant interface {
	Snapshot() (restore func())
}

// MemoryRunner serializes atomic units under one mutex and rolls back
// registered participants when the unit fails. It exists so coordinator tests
// exercise commit/rollback semantics without a database.
type MemoryRunner struct {
	mu           sync.Mutex
	participants []Participant
}

// NewMemoryRunner builds a runner over the given participants.
func NewMemoryRunner(participants ...Participant) *MemoryRunner {
	return &MemoryRunner{participants: participants}
}

// Register adds another participant. Not safe to call concurrently with
// WithinTx.
func (r *MemoryRunner) Register(p Participant) {
	r.participants = append(r.participants, p)
}

// WithinTx runs fn under the runner's mutex. On error every participant is
// restored to its pre-unit state and the error is returned unchanged.
func (r *MemoryRunner) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Queryer) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	restores := make([]func(), 0, len(r.participants))
	for _, p := range r.participants {
		restores = append(restores, p.Snapshot())
	}

	if err := fn(ctx, nil); err != nil {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
		return err
	}
	return nil
}
