package notification

import (
	"context"
	"log/slog"
)

// Notification kinds.
const (
	KindTransferOTP      = "transfer_otp"
	KindTransferReceived = "transfer_received"
)

// Message describes a notification payload.
type Message struct {
	Kind        string
	Destination string // user id or phone-equivalent address
	Body        string
}

// Notifier delivers notifications to downstream channels (SMS in production).
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is the mock delivery channel: it writes messages to the
// structured logger. OTP codes reach users through it in development.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs the logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination, "body", message.Body)
	return nil
}
