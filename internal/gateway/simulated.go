package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/rupeeflow/rupeeflow/internal/ledger"
)

// Simulated approves every charge after a short delay. It stands in for the
// real processors in development and exercises the same typed response shape.
type Simulated struct {
	Provider string
	MaxDelay time.Duration
}

// NewSimulated builds the development gateway.
func NewSimulated() *Simulated {
	return &Simulated{Provider: "simulated", MaxDelay: 250 * time.Millisecond}
}

// Process approves the charge with a synthetic reference, honoring context
// cancellation during the simulated latency.
func (g *Simulated) Process(ctx context.Context, method string, amountMinor int64) (Result, error) {
	if err := ValidateMethod(method); err != nil {
		return Result{}, err
	}

	if g.MaxDelay > 0 {
		delay := time.Duration(rand.Int63n(int64(g.MaxDelay)))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}

	reference := uuid.NewString()
	details := &ledger.GatewayDetails{Provider: g.Provider, ReferenceID: reference}
	switch method {
	case MethodUPI:
		details.UPI = &ledger.UPIDetails{VPA: "customer@simbank", RailReference: reference}
	case MethodCard:
		details.Card = &ledger.CardDetails{Network: "visa", Last4: "4242"}
	case MethodNetBanking:
		details.NetBanking = &ledger.NetBankingDetails{BankCode: "SIMB0000001"}
	}

	return Result{
		Success: true,
		Message: fmt.Sprintf("approved by %s", g.Provider),
		Details: details,
	}, nil
}
