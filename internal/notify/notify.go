// package notify sends best-effort completion emails over SMTP
package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/tempolab/podtempo/internal/shared"
)

// sendMail is swapped out in tests.
var sendMail = smtp.SendMail

// Mailer delivers plain-text notifications. An incomplete configuration
// disables it; callers check Configured before relying on delivery.
type Mailer struct {
	cfg    shared.NotifyConfig
	logger *log.Logger
}

// NewMailer creates a Mailer from notification configuration.
func NewMailer(cfg shared.NotifyConfig, logger *log.Logger) *Mailer {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Mailer{cfg: cfg, logger: logger}
}

// Configured reports whether every field needed to send is present.
func (m *Mailer) Configured() bool {
	return m.cfg.SMTPServer != "" && m.cfg.SMTPPort > 0 &&
		m.cfg.Username != "" && m.cfg.Password != "" && m.cfg.Recipient != ""
}

// Send delivers one message. Unconfigured mailers succeed silently so the
// pipeline never depends on notification settings.
func (m *Mailer) Send(subject, body string) error {
	if !m.Configured() {
		m.logger.Debug("notification skipped: smtp not configured")
		return nil
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.SMTPServer, m.cfg.SMTPPort)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.SMTPServer)

	msg := strings.Join([]string{
		"From: " + m.cfg.Username,
		"To: " + m.cfg.Recipient,
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")

	if err := sendMail(addr, auth, m.cfg.Username, []string{m.cfg.Recipient}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}

	m.logger.Info("notification sent", "to", m.cfg.Recipient, "subject", subject)
	return nil
}
