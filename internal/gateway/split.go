package gateway

import "context"

type split struct {
	card Gateway
	rest Gateway
}

// SplitByMethod routes card charges to one processor and every other method
// to another. Used to put Stripe on card traffic while UPI and netbanking
// stay on the simulator.
func SplitByMethod(card, rest Gateway) Gateway {
	return &split{card: card, rest: rest}
}

func (s *split) Process(ctx context.Context, method string, amountMinor int64) (Result, error) {
	if method == MethodCard {
		return s.card.Process(ctx, method, amountMinor)
	}
	return s.rest.Process(ctx, method, amountMinor)
}
