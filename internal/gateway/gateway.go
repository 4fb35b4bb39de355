package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/rupeeflow/rupeeflow/internal/ledger"
)

// Recognized payment methods.
const (
	MethodUPI        = "UPI"
	MethodCard       = "CARD"
	MethodNetBanking = "NETBANKING"
)

// ErrUnknownMethod indicates an unrecognized payment method.
var ErrUnknownMethod = errors.New("unknown payment method")

// ValidateMethod checks a payment method against the recognized set.
func ValidateMethod(method string) error {
	switch method {
	case MethodUPI, MethodCard, MethodNetBanking:
		return nil
	default:
		return ErrUnknownMethod
	}
}

// Result is the gateway's decision on one charge attempt. A declined charge
// is a business outcome (Success=false), not a transport error.
type Result struct {
	Success bool
	Message string
	Details *ledger.GatewayDetails
}

// Gateway connects to an external payment processor. Implementations must be
// safe for concurrent use and must not share mutable per-call state. Latency
// is unbounded upstream; callers cap it through the context deadline.
type Gateway interface {
	Process(ctx context.Context, method string, amountMinor int64) (Result, error)
}

type timeoutGateway struct {
	inner   Gateway
	timeout time.Duration
}

// WithTimeout bounds every Process call with a deadline so a slow processor
// can never hold the caller indefinitely. The call happens outside any row
// lock; the deadline protects the request handler, not the database.
func WithTimeout(inner Gateway, timeout time.Duration) Gateway {
	return &timeoutGateway{inner: inner, timeout: timeout}
}

func (g *timeoutGateway) Process(ctx context.Context, method string, amountMinor int64) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.inner.Process(ctx, method, amountMinor)
}
