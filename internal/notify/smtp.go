package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/dbsmedya/straycheck/internal/config"
	"github.com/dbsmedya/straycheck/internal/logger"
)

// SMTPNotifier delivers the report as an HTML mail over SMTP.
type SMTPNotifier struct {
	cfg config.SMTPConfig
	log *logger.Logger
	now func() time.Time
}

// NewSMTPNotifier creates an SMTP notifier.
func NewSMTPNotifier(cfg config.SMTPConfig, log *logger.Logger) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg, log: log, now: time.Now}
}

// Send dials the relay, upgrades to TLS when offered, authenticates when a
// username is configured and submits one message to all To and CC recipients.
func (n *SMTPNotifier) Send(ctx context.Context, msg Message) error {
	recipients := append(append([]string(nil), msg.To...), msg.CC...)
	if len(recipients) == 0 {
		return deliveryError(fmt.Errorf("no recipients"))
	}

	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return deliveryError(fmt.Errorf("dial %s: %w", addr, err))
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, n.cfg.Host)
	if err != nil {
		conn.Close()
		return deliveryError(fmt.Errorf("smtp handshake with %s: %w", addr, err))
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: n.cfg.Host}); err != nil {
			return deliveryError(fmt.Errorf("starttls: %w", err))
		}
	}

	if n.cfg.Username != "" {
		auth := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
		if err := c.Auth(auth); err != nil {
			return deliveryError(fmt.Errorf("smtp auth: %w", err))
		}
	}

	if err := c.Mail(n.cfg.From); err != nil {
		return deliveryError(fmt.Errorf("MAIL FROM: %w", err))
	}
	for _, rcpt := range recipients {
		if err := c.Rcpt(rcpt); err != nil {
			return deliveryError(fmt.Errorf("RCPT TO %s: %w", rcpt, err))
		}
	}

	w, err := c.Data()
	if err != nil {
		return deliveryError(fmt.Errorf("DATA: %w", err))
	}
	body, err := n.buildMessage(msg)
	if err != nil {
		_ = w.Close()
		return deliveryError(err)
	}
	if _, err := w.Write(body); err != nil {
		_ = w.Close()
		return deliveryError(fmt.Errorf("write message: %w", err))
	}
	if err := w.Close(); err != nil {
		return deliveryError(fmt.Errorf("finish message: %w", err))
	}

	if err := c.Quit(); err != nil {
		n.log.Warnw("SMTP QUIT failed after message was accepted", "error", err)
	}

	n.log.Infow("Notification sent", "subject", msg.Subject,
		"to", len(msg.To), "cc", len(msg.CC), "relay", addr)
	return nil
}

// buildMessage renders headers and a quoted-printable HTML body.
func (n *SMTPNotifier) buildMessage(msg Message) ([]byte, error) {
	var buf bytes.Buffer

	header := func(k, v string) {
		fmt.Fprintf(&buf, "%s: %s\r\n", k, v)
	}
	header("From", n.cfg.From)
	header("To", strings.Join(msg.To, ", "))
	if len(msg.CC) > 0 {
		header("Cc", strings.Join(msg.CC, ", "))
	}
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", n.now().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", "text/html; charset=UTF-8")
	header("Content-Transfer-Encoding", "quoted-printable")
	buf.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&buf)
	if _, err := qp.Write([]byte(msg.HTMLBody)); err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	if err := qp.Close(); err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	return buf.Bytes(), nil
}
