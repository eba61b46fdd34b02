package email

import (
	"fmt"
	"net/smtp"
	"strings"
)

type Sender interface {
	Send(to string, subject string, body string) error
}

// Config shapes the clinic's outgoing mail. FromName becomes the display
// name on the From header; ReplyTo routes client replies to the front
// desk instead of the no-reply address.
type Config struct {
	Host     string
	Port     string
	From     string
	FromName string
	ReplyTo  string
}

// SMTPSender sends mail via unauthenticated SMTP (Mailpit-compatible).
type SMTPSender struct {
	addr string
	cfg  Config
}

func NewSMTPSender(cfg Config) *SMTPSender {
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.Port = strings.TrimSpace(cfg.Port)
	cfg.From = strings.TrimSpace(cfg.From)
	if cfg.From == "" {
		cfg.From = "no-reply@glowdesk.local"
	}
	return &SMTPSender{
		addr: cfg.Host + ":" + cfg.Port,
		cfg:  cfg,
	}
}

func (s *SMTPSender) Send(to string, subject string, body string) error {
	msg := buildMessage(s.cfg, to, subject, body)
	return smtp.SendMail(s.addr, nil, s.cfg.From, []string{to}, []byte(msg))
}

// buildMessage assembles a minimal RFC 5322 message; enough for Mailpit
// and most SMTP relays.
func buildMessage(cfg Config, to, subject, body string) string {
	from := cfg.From
	if cfg.FromName != "" {
		from = fmt.Sprintf("%q <%s>", cfg.FromName, cfg.From)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	if cfg.ReplyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\r\n", cfg.ReplyTo)
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return b.String()
}
