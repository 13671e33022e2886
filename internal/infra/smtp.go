package infra

import (
	"fmt"
	"net/smtp"

	"feedstock/internal/config"

	"github.com/jordan-wright/email"
)

// Mailer delivers plain-text mail: stock alerts to the operations mailbox
// and valuation reports with the PDF attached.
type Mailer struct {
	addr string
	from string
	auth smtp.Auth
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		addr: fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		from: cfg.SMTPUser,
		auth: smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPHost),
	}
}

// Send delivers one message; attachPath, when non-empty, names a local file
// to attach (the valuation PDF).
func (m *Mailer) Send(to, subject, body, attachPath string) error {
	e := email.NewEmail()
	e.From = m.from
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	if attachPath != "" {
		if _, err := e.AttachFile(attachPath); err != nil {
			return fmt.Errorf("mailer: attach %s: %w", attachPath, err)
		}
	}
	if err := e.Send(m.addr, m.auth); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", to, err)
	}
	return nil
}
