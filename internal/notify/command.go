package notify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/dbsmedya/straycheck/internal/config"
	"github.com/dbsmedya/straycheck/internal/logger"
)

// recipientSeparator joins addresses the way Outlook-style helpers expect.
const recipientSeparator = "; "

// defaultWaitDelay bounds how long Send waits for the helper's output pipes
// after the helper exits or is killed. Processes it started may hold them.
const defaultWaitDelay = 2 * time.Second

// CommandNotifier hands the message to an external mail helper. The body is
// written to a temporary HTML file whose path is the helper's last argument.
type CommandNotifier struct {
	path      string
	args      []string
	tempDir   string
	waitDelay time.Duration
	log       *logger.Logger
}

// NewCommandNotifier creates a notifier that runs cfg.Path.
func NewCommandNotifier(cfg config.CommandConfig, log *logger.Logger) *CommandNotifier {
	return &CommandNotifier{
		path:      cfg.Path,
		args:      append([]string(nil), cfg.Args...),
		waitDelay: defaultWaitDelay,
		log:       log,
	}
}

// Send runs path args... <to> <cc> <subject> <html-file>. The temporary
// file is removed whether the helper succeeds or not.
func (n *CommandNotifier) Send(ctx context.Context, msg Message) error {
	f, err := os.CreateTemp(n.tempDir, "straycheck-*.html")
	if err != nil {
		return deliveryError(fmt.Errorf("create body file: %w", err))
	}
	bodyPath := f.Name()
	defer func() { _ = os.Remove(bodyPath) }()

	if _, err := f.WriteString(msg.HTMLBody); err != nil {
		_ = f.Close()
		return deliveryError(fmt.Errorf("write body file: %w", err))
	}
	if err := f.Close(); err != nil {
		return deliveryError(fmt.Errorf("close body file: %w", err))
	}

	args := append(append([]string(nil), n.args...),
		strings.Join(msg.To, recipientSeparator),
		strings.Join(msg.CC, recipientSeparator),
		msg.Subject,
		bodyPath,
	)

	n.log.Debugw("Running mail helper", "path", n.path, "subject", msg.Subject)

	cmd := exec.CommandContext(ctx, n.path, args...)
	cmd.WaitDelay = n.waitDelay
	out, err := cmd.CombinedOutput()
	if errors.Is(err, exec.ErrWaitDelay) {
		// The helper exited successfully but left a child holding its output.
		n.log.Warnw("Mail helper left output open after exiting", "path", n.path)
		err = nil
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w (%v)", ctxErr, err)
		}
		if text := strings.TrimSpace(string(out)); text != "" {
			return deliveryError(fmt.Errorf("mail helper %s: %w: %s", n.path, err, text))
		}
		return deliveryError(fmt.Errorf("mail helper %s: %w", n.path, err))
	}

	n.log.Infow("Notification sent", "subject", msg.Subject,
		"to", len(msg.To), "cc", len(msg.CC))
	return nil
}
