package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rupeeflow/rupeeflow/internal/ledger"
	"github.com/rupeeflow/rupeeflow/internal/logging"
)

func setupGuard(t *testing.T) (*Guard, ledger.Engine, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	eng := ledger.NewInMemory()
	guard := NewGuard(cache, eng, nil, time.Hour, logging.Discard())
	cleanup := func() {
		cache.Close()
		mr.Close()
	}
	return guard, eng, cleanup
}

func terminalEntry(key string) ledger.Entry {
	return ledger.Entry{
		ID:                uuid.NewString(),
		IdempotencyKey:    key,
		OwnerUserID:       uuid.NewString(),
		Type:              ledger.TypeAddMoney,
		AmountMinor:       50_000,
		BalanceAfterMinor: 50_000,
		Status:            ledger.StatusSuccess,
	}
}

func TestEmptyKeyAlwaysProceeds(t *testing.T) {
	guard, _, cleanup := setupGuard(t)
	defer cleanup()

	entry, err := guard.Check(context.Background(), "")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if entry != nil {
		t.Fatalf("expected proceed for empty key, got %+v", entry)
	}
}

func TestCheckFallsBackToLedger(t *testing.T) {
	guard, eng, cleanup := setupGuard(t)
	defer cleanup()
	ctx := context.Background()

	want := terminalEntry("key-1")
	if err := eng.Append(ctx, nil, want); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := guard.Check(ctx, "key-1")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if got == nil || got.ID != want.ID {
		t.Fatalf("expected cached result for key-1, got %+v", got)
	}
}

func TestCheckServesFromCache(t *testing.T) {
	guard, eng, cleanup := setupGuard(t)
	defer cleanup()
	ctx := context.Background()

	want := terminalEntry("key-2")
	guard.Remember(ctx, "key-2", want)

	// Nothing in the ledger: a hit proves the fast path answered.
	got, err := guard.Check(ctx, "key-2")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if got == nil || got.ID != want.ID {
		t.Fatalf("expected fast-path hit, got %+v", got)
	}

	if _, err := eng.FindByIdempotencyKey(ctx, nil, "key-2"); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("test setup leaked into ledger: %v", err)
	}
}

func TestPendingClaimReportsInProgress(t *testing.T) {
	guard, eng, cleanup := setupGuard(t)
	defer cleanup()
	ctx := context.Background()

	pending := terminalEntry("key-3")
	pending.Status = ledger.StatusPending
	if err := eng.Append(ctx, nil, pending); err != nil {
		t.Fatalf("append: %v", err)
	}

	if _, err := guard.Check(ctx, "key-3"); !errors.Is(err, ErrInProgress) {
		t.Fatalf("expected ErrInProgress, got %v", err)
	}

	// Remember must never cache a pending entry.
	guard.Remember(ctx, "key-3", pending)
	if _, err := guard.Check(ctx, "key-3"); !errors.Is(err, ErrInProgress) {
		t.Fatalf("expected ErrInProgress after Remember, got %v", err)
	}
}

func TestResolveReturnsWinner(t *testing.T) {
	guard, eng, cleanup := setupGuard(t)
	defer cleanup()
	ctx := context.Background()

	winner := terminalEntry("key-4")
	if err := eng.Append(ctx, nil, winner); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := guard.Resolve(ctx, "key-4")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.ID != winner.ID {
		t.Fatalf("expected winner entry, got %+v", got)
	}
}

func TestGuardWorksWithoutCache(t *testing.T) {
	eng := ledger.NewInMemory()
	guard := NewGuard(nil, eng, nil, time.Hour, logging.Discard())
	ctx := context.Background()

	want := terminalEntry("key-5")
	if err := eng.Append(ctx, nil, want); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := guard.Check(ctx, "key-5")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if got == nil || got.ID != want.ID {
		t.Fatalf("expected ledger-backed result, got %+v", got)
	}
}
