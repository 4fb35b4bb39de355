package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func newEntry(owner, key string) Entry {
	return Entry{
		ID:                 uuid.NewString(),
		IdempotencyKey:     key,
		OwnerUserID:        owner,
		Type:               TypeAddMoney,
		AmountMinor:        50_000,
		BalanceBeforeMinor: 0,
		BalanceAfterMinor:  0,
		Status:             StatusPending,
		PaymentMethod:      "UPI",
	}
}

func TestInMemoryAppendAndGet(t *testing.T) {
	eng := NewInMemory()
	ctx := context.Background()

	entry := newEntry("user-1", "key-1")
	if err := eng.Append(ctx, nil, entry); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := eng.Get(ctx, nil, entry.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.OwnerUserID != "user-1" || got.Status != StatusPending {
		t.Fatalf("unexpected entry: %+v", got)
	}

	byKey, err := eng.FindByIdempotencyKey(ctx, nil, "key-1")
	if err != nil {
		t.Fatalf("find by key: %v", err)
	}
	if byKey.ID != entry.ID {
		t.Fatalf("expected entry %s, got %s", entry.ID, byKey.ID)
	}
}

func TestInMemoryDuplicateKey(t *testing.T) {
	eng := NewInMemory()
	ctx := context.Background()

	if err := eng.Append(ctx, nil, newEntry("user-1", "dup")); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if err := eng.Append(ctx, nil, newEntry("user-1", "dup")); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}

	// Empty keys never collide.
	if err := eng.Append(ctx, nil, newEntry("user-1", "")); err != nil {
		t.Fatalf("append without key: %v", err)
	}
	if err := eng.Append(ctx, nil, newEntry("user-1", "")); err != nil {
		t.Fatalf("second append without key: %v", err)
	}
}

func TestInMemoryMarkTerminalExactlyOnce(t *testing.T) {
	eng := NewInMemory()
	ctx := context.Background()

	entry := newEntry("user-1", "")
	if err := eng.Append(ctx, nil, entry); err != nil {
		t.Fatalf("append: %v", err)
	}

	terminal := Terminal{Status: StatusSuccess, BalanceAfterMinor: 50_000}
	if err := eng.MarkTerminal(ctx, nil, entry.ID, terminal); err != nil {
		t.Fatalf("mark terminal: %v", err)
	}

	got, _ := eng.Get(ctx, nil, entry.ID)
	if got.Status != StatusSuccess || got.BalanceAfterMinor != 50_000 {
		t.Fatalf("unexpected entry after transition: %+v", got)
	}

	if err := eng.MarkTerminal(ctx, nil, entry.ID, terminal); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on second transition, got %v", err)
	}

	if err := eng.MarkTerminal(ctx, nil, entry.ID, Terminal{Status: StatusPending}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for non-terminal status, got %v", err)
	}
}

func TestInMemoryListByOwnerNewestFirst(t *testing.T) {
	eng := NewInMemory()
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		entry := newEntry("user-1", "")
		ids = append(ids, entry.ID)
		if err := eng.Append(ctx, nil, entry); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if err := eng.Append(ctx, nil, newEntry("user-2", "")); err != nil {
		t.Fatalf("append other owner: %v", err)
	}

	page, total, err := eng.ListByOwner(ctx, nil, "user-1", 2, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 5 {
		t.Fatalf("expected total 5, got %d", total)
	}
	if len(page) != 2 {
		t.Fatalf("expected page of 2, got %d", len(page))
	}
	if page[0].ID != ids[4] || page[1].ID != ids[3] {
		t.Fatalf("expected newest first ordering")
	}

	tail, _, err := eng.ListByOwner(ctx, nil, "user-1", 2, 4)
	if err != nil {
		t.Fatalf("list tail: %v", err)
	}
	if len(tail) != 1 || tail[0].ID != ids[0] {
		t.Fatalf("unexpected tail page: %+v", tail)
	}
}
