package gateway

import (
	"context"
	"fmt"

	stripe "github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/charge"

	"github.com/rupeeflow/rupeeflow/internal/ledger"
)

// Stripe charges cards through the Stripe API. Only the CARD method routes
// here; UPI and NETBANKING stay on the simulated rail.
type Stripe struct {
	source string
}

// NewStripe configures the Stripe adapter. The secret key is process-wide,
// matching how the stripe-go client binds credentials.
func NewStripe(secretKey string) *Stripe {
	stripe.Key = secretKey
	return &Stripe{source: "tok_visa"}
}

// Process creates a charge. A card decline comes back as a failed Result,
// not an error; only transport-level problems surface as errors.
func (g *Stripe) Process(ctx context.Context, method string, amountMinor int64) (Result, error) {
	if method != MethodCard {
		return Result{}, fmt.Errorf("%w: stripe handles CARD only, got %s", ErrUnknownMethod, method)
	}

	params := &stripe.ChargeParams{
		Params:      stripe.Params{Context: ctx},
		Amount:      stripe.Int64(amountMinor),
		Currency:    stripe.String(string(stripe.CurrencyINR)),
		Description: stripe.String("wallet top-up"),
	}
	if err := params.SetSource(g.source); err != nil {
		return Result{}, err
	}

	ch, err := charge.New(params)
	if err != nil {
		if stripeErr, ok := err.(*stripe.Error); ok && stripeErr.Type == stripe.ErrorTypeCard {
			return Result{
				Success: false,
				Message: stripeErr.Msg,
				Details: &ledger.GatewayDetails{Provider: "stripe"},
			}, nil
		}
		return Result{}, err
	}

	details := &ledger.GatewayDetails{Provider: "stripe", ReferenceID: ch.ID}
	if ch.PaymentMethodDetails != nil && ch.PaymentMethodDetails.Card != nil {
		details.Card = &ledger.CardDetails{
			Network: string(ch.PaymentMethodDetails.Card.Network),
			Last4:   ch.PaymentMethodDetails.Card.Last4,
		}
	}

	return Result{Success: ch.Paid, Message: "charge " + string(ch.Status), Details: details}, nil
}
