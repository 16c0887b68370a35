package licenses

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rcallahan/dispatch-relay-service/internal/models"
)

// LogNotifier writes reminders to the log. Used by CLI sweeps without --email.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n *LogNotifier) Notify(ctx context.Context, lic models.License, expiry time.Time) error {
	logger := n.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("license expiring",
		zap.String("name", lic.Name),
		zap.String("expires", expiry.Format(dateLayout)))
	return nil
}

// SMTPNotifier sends one text/plain reminder per license that has a
// recipient. Entries without an email address are skipped silently, matching
// the CLI notifier's behavior of only reminding what it can reach.
type SMTPNotifier struct {
	Host     string
	Port     int
	Sender   string
	Username string
	Password string
}

func (n *SMTPNotifier) Notify(ctx context.Context, lic models.License, expiry time.Time) error {
	if lic.Email == "" {
		return nil
	}

	body := fmt.Sprintf("Reminder: %q expires on %s.", lic.Name, expiry.Format(dateLayout))
	msg := buildMessage(n.Sender, lic.Email,
		fmt.Sprintf("License Expiration Notice: %s", lic.Name), body)

	addr := fmt.Sprintf("%s:%d", n.Host, n.Port)
	var auth smtp.Auth
	if n.Username != "" && n.Password != "" {
		auth = smtp.PlainAuth("", n.Username, n.Password, n.Host)
	}
	if err := smtp.SendMail(addr, auth, n.Sender, []string{lic.Email}, msg); err != nil {
		return fmt.Errorf("send reminder: %w", err)
	}
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}
