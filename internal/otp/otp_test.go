package otp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

var policy = Policy{Validity: 5 * time.Minute, CodeLength: 6}

func TestIssueVerifyRedeemOnce(t *testing.T) {
	mgr := NewMemoryManager(policy)
	ctx := context.Background()
	user, ref := uuid.NewString(), uuid.NewString()

	code, err := mgr.Issue(ctx, nil, user, ref, 50_000)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("expected 6-digit code, got %q", code)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			t.Fatalf("expected numeric code, got %q", code)
		}
	}

	if err := mgr.Verify(ctx, nil, user, ref, code, 50_000); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := mgr.Redeem(ctx, nil, user, ref, code, 50_000); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if err := mgr.Redeem(ctx, nil, user, ref, code, 50_000); !errors.Is(err, ErrConsumed) {
		t.Fatalf("expected ErrConsumed on reuse, got %v", err)
	}
}

func TestWrongCodeAndWrongUser(t *testing.T) {
	mgr := NewMemoryManager(policy)
	ctx := context.Background()
	user, ref := uuid.NewString(), uuid.NewString()

	code, err := mgr.Issue(ctx, nil, user, ref, 50_000)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	wrong := "000000"
	if wrong == code {
		wrong = "111111"
	}
	if err := mgr.Redeem(ctx, nil, user, ref, wrong, 50_000); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for wrong code, got %v", err)
	}
	if err := mgr.Redeem(ctx, nil, uuid.NewString(), ref, code, 50_000); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for wrong user, got %v", err)
	}
	if err := mgr.Redeem(ctx, nil, user, uuid.NewString(), code, 50_000); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for unknown reference, got %v", err)
	}

	// The failed attempts must not consume the code.
	if err := mgr.Redeem(ctx, nil, user, ref, code, 50_000); err != nil {
		t.Fatalf("redeem after failed attempts: %v", err)
	}
}

func TestExpiredCodeNeverRedeems(t *testing.T) {
	current := time.Now()
	mgr := NewMemoryManagerAt(policy, func() time.Time { return current })
	ctx := context.Background()
	user, ref := uuid.NewString(), uuid.NewString()

	code, err := mgr.Issue(ctx, nil, user, ref, 50_000)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	current = current.Add(policy.Validity + time.Second)

	if err := mgr.Verify(ctx, nil, user, ref, code, 50_000); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired on verify, got %v", err)
	}
	if err := mgr.Redeem(ctx, nil, user, ref, code, 50_000); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired on redeem, got %v", err)
	}
}

func TestAmountMustMatchIssuance(t *testing.T) {
	mgr := NewMemoryManager(policy)
	ctx := context.Background()
	user, ref := uuid.NewString(), uuid.NewString()

	code, err := mgr.Issue(ctx, nil, user, ref, 10_000)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// A valid code presented with a different amount must not pass, and the
	// attempt must not burn the code.
	if err := mgr.Verify(ctx, nil, user, ref, code, 20_000_000); !errors.Is(err, ErrAmountMismatch) {
		t.Fatalf("expected ErrAmountMismatch on verify, got %v", err)
	}
	if err := mgr.Redeem(ctx, nil, user, ref, code, 20_000_000); !errors.Is(err, ErrAmountMismatch) {
		t.Fatalf("expected ErrAmountMismatch on redeem, got %v", err)
	}
	if err := mgr.Redeem(ctx, nil, user, ref, code, 10_000); err != nil {
		t.Fatalf("redeem with issued amount: %v", err)
	}
}
