package otp

import (
	"context"
	"sync"
	"time"

	"github.com/rupeeflow/rupeeflow/internal/storage"
)

type memoryManager struct {
	mu     sync.RWMutex
	policy Policy
	codes  map[string]Authorization // key: reference id
	now    func() time.Time
}

// NewMemoryManager constructs an in-memory OTP manager for tests. It
// implements storage.Participant for rollback emulation.
func NewMemoryManager(policy Policy) Manager {
	return &memoryManager{policy: policy, codes: make(map[string]Authorization), now: time.Now}
}

// NewMemoryManagerAt is NewMemoryManager with an injectable clock, so tests
// can cross the expiry boundary without sleeping.
func NewMemoryManagerAt(policy Policy, now func() time.Time) Manager {
	return &memoryManager{policy: policy, codes: make(map[string]Authorization), now: now}
}

func (m *memoryManager) Issue(_ context.Context, _ storage.Queryer, userID, referenceID string, amountMinor int64) (string, error) {
	code, err := generateCode(m.policy.CodeLength)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now().UTC()
	m.codes[referenceID] = Authorization{
		UserID:      userID,
		ReferenceID: referenceID,
		Code:        code,
		Purpose:     PurposeTransfer,
		AmountMinor: amountMinor,
		ExpiresAt:   now.Add(m.policy.Validity),
		CreatedAt:   now,
	}
	return code, nil
}

func (m *memoryManager) Verify(_ context.Context, _ storage.Queryer, userID, referenceID, code string, amountMinor int64) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.checkLocked(userID, referenceID, code, amountMinor)
}

func (m *memoryManager) Redeem(_ context.Context, _ storage.Queryer, userID, referenceID, code string, amountMinor int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkLocked(userID, referenceID, code, amountMinor); err != nil {
		return err
	}
	auth := m.codes[referenceID]
	auth.Used = true
	m.codes[referenceID] = auth
	return nil
}

func (m *memoryManager) checkLocked(userID, referenceID, code string, amountMinor int64) error {
	auth, ok := m.codes[referenceID]
	if !ok || auth.UserID != userID {
		return ErrInvalid
	}
	switch {
	case auth.Used:
		return ErrConsumed
	case m.now().UTC().After(auth.ExpiresAt):
		return ErrExpired
	case auth.Code != code:
		return ErrInvalid
	case auth.AmountMinor != amountMinor:
		return ErrAmountMismatch
	default:
		return nil
	}
}

// Snapshot captures manager state for the memory transaction runner.
func (m *memoryManager) Snapshot() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := make(map[string]Authorization, len(m.codes))
	for k, v := range m.codes {
		snap[k] = v
	}
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.codes = snap
	}
}
