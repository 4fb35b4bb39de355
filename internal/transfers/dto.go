package transfers

import (
	"github.com/shopspring/decimal"
)

// GenerateOTPRequest asks for a single-use code authorizing one transfer.
type GenerateOTPRequest struct {
	ToEmail string          `json:"to_email"`
	Amount  decimal.Decimal `json:"amount"`
}

// GenerateOTPResponse carries the issued authorization reference. OTP is
// populated only outside production.
type GenerateOTPResponse struct {
	ReferenceID      string `json:"reference_id"`
	RecipientName    string `json:"recipient_name"`
	ExpiresInSeconds int64  `json:"expires_in_seconds"`
	OTP              string `json:"otp,omitempty"`
}

// TransferRequest executes an authorized transfer.
type TransferRequest struct {
	ToEmail        string          `json:"to_email"`
	Amount         decimal.Decimal `json:"amount"`
	OTP            string          `json:"otp"`
	ReferenceID    string          `json:"reference_id"`
	IdempotencyKey string          `json:"idempotency_key"`
}

// TransferResponse reports the committed transfer.
type TransferResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	Duplicate      bool   `json:"duplicate,omitempty"`
	TransactionID  string `json:"transaction_id"`
	RecipientEmail string `json:"recipient_email"`
	Amount         string `json:"amount"`
	NewBalance     string `json:"new_balance"`
}
