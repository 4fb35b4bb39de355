package funding

import (
	"github.com/shopspring/decimal"
)

// AddMoneyRequest tops up the caller's wallet through a payment gateway.
type AddMoneyRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	PaymentMethod  string          `json:"payment_method"`
	IdempotencyKey string          `json:"idempotency_key"`
}

// AddMoneyResponse reports the settled top-up.
type AddMoneyResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	Duplicate     bool   `json:"duplicate,omitempty"`
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Amount        string `json:"amount"`
	NewBalance    string `json:"new_balance"`
}
