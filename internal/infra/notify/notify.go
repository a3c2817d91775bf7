// Package notify delivers outbound patron messages.
//
// Two senders implement domain.Notifier: an SMTP sender for real
// deployments, and a log sender used whenever no SMTP host is
// configured, so the rest of the system never needs to care whether
// mail is actually wired up.
package notify

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/circulo/circulo/internal/domain"
)

// ─── SMTP Sender ────────────────────────────────────────────────────────────

// SMTPSender delivers messages through a plain SMTP relay.
type SMTPSender struct {
	addr string // host:port
	from string
	auth smtp.Auth

	// send is swappable for tests; defaults to smtp.SendMail.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender returns a sender relaying through addr as from.
// Username may be empty for relays that accept unauthenticated mail.
func NewSMTPSender(addr, from, username, password string) *SMTPSender {
	var auth smtp.Auth
	if username != "" {
		host := addr
		if i := strings.LastIndex(addr, ":"); i >= 0 {
			host = addr[:i]
		}
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPSender{addr: addr, from: from, auth: auth, send: smtp.SendMail}
}

// Send delivers one message. The context deadline is not plumbed into
// the SMTP dial (net/smtp has no context support); callers should keep
// their own timeout around the call.
func (s *SMTPSender) Send(ctx context.Context, recipient, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := buildMessage(s.from, recipient, subject, body)
	if err := s.send(s.addr, s.auth, s.from, []string{recipient}, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", recipient, err)
	}
	log.Printf("[notify] sent to=%s subject=%q", recipient, subject)
	return nil
}

// buildMessage assembles an RFC 5322 message with a unique Message-ID,
// so relays and patrons' mailboxes can deduplicate resends.
func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Message-ID: <%s@circulo>\r\n", uuid.NewString())
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

// ─── Log Sender ─────────────────────────────────────────────────────────────

// LogSender writes messages to the process log instead of delivering
// them. It is the default when no SMTP host is configured.
type LogSender struct{}

// Send logs the message and reports success.
func (LogSender) Send(ctx context.Context, recipient, subject, body string) error {
	log.Printf("[notify] (log only) to=%s subject=%q body=%d bytes", recipient, subject, len(body))
	return nil
}

var (
	_ domain.Notifier = (*SMTPSender)(nil)
	_ domain.Notifier = LogSender{}
)
