// Package mailer delivers OTP mail over SMTP. Delivery failures are for the
// caller to log; the engine never blocks a request on the mail path.
package mailer

import (
	"context"
	"fmt"
	"net"
	"net/smtp"

	"github.com/MrEthical07/otpAuth/internal/config"
)

// SMTPSender implements otpAuth.EmailSender on top of net/smtp with PLAIN
// auth.
type SMTPSender struct {
	host     string
	port     string
	username string
	password string
	from     string
}

func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
	}
}

// Send delivers one message. The context is checked before dialing; net/smtp
// itself does not support cancellation mid-transaction.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.host == "" {
		return fmt.Errorf("smtp host not configured")
	}

	msg := []byte(
		fmt.Sprintf("From: %s\r\n", s.from) +
			fmt.Sprintf("To: %s\r\n", to) +
			fmt.Sprintf("Subject: %s\r\n", subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/plain; charset=\"utf-8\"\r\n" +
			"\r\n" +
			body,
	)

	addr := net.JoinHostPort(s.host, s.port)
	auth := smtp.PlainAuth("", s.username, s.password, s.host)
	if err := smtp.SendMail(addr, auth, s.from, []string{to}, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}
