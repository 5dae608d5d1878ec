package notify

import (
	"context"

	"github.com/dbsmedya/straycheck/internal/logger"
)

// LogNotifier records the message in the log instead of delivering it.
type LogNotifier struct {
	log *logger.Logger
}

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Send logs the subject, recipients and body size.
func (n *LogNotifier) Send(_ context.Context, msg Message) error {
	n.log.Infow("Notification not delivered (log notifier)",
		"subject", msg.Subject,
		"to", msg.To,
		"cc", msg.CC,
		"body_bytes", len(msg.HTMLBody),
	)
	return nil
}
