// Package notify selects recipients for a reconciliation result and
// delivers the rendered report.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/dbsmedya/straycheck/internal/config"
	"github.com/dbsmedya/straycheck/internal/logger"
)

// ErrDelivery marks a failed delivery attempt.
var ErrDelivery = errors.New("notification delivery failed")

// Message is one outgoing notification.
type Message struct {
	Subject  string
	To       []string
	CC       []string
	HTMLBody string
}

// Notifier delivers a message. Each call is a single attempt.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Select picks the found or clear route depending on whether any orphans
// were detected. The body is left empty for the caller to fill.
func Select(route config.NotificationConfig, orphanCount int) Message {
	r := route.Clear
	subject := config.DefaultClearSubject
	if orphanCount > 0 {
		r = route.Found
		subject = config.DefaultFoundSubject
	}
	if r.Subject != "" {
		subject = r.Subject
	}
	return Message{
		Subject: subject,
		To:      append([]string(nil), r.To...),
		CC:      append([]string(nil), r.CC...),
	}
}

// New creates the notifier configured by cfg.Type.
func New(cfg config.NotifierConfig, log *logger.Logger) (Notifier, error) {
	switch cfg.Type {
	case config.NotifierCommand, "":
		if cfg.Command.Path == "" {
			return nil, fmt.Errorf("command notifier requires a path")
		}
		return NewCommandNotifier(cfg.Command, log), nil
	case config.NotifierSMTP:
		return NewSMTPNotifier(cfg.SMTP, log), nil
	case config.NotifierLog:
		return NewLogNotifier(log), nil
	default:
		return nil, fmt.Errorf("unsupported notifier type %q", cfg.Type)
	}
}

func deliveryError(err error) error {
	return fmt.Errorf("%w: %w", ErrDelivery, err)
}
