package email

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"

	"github.com/wisemarket1122/wisemarket/internal/config"
)

// Sender defines the interface for dispatching outbound mail. The core never
// talks SMTP directly; a failed Send on a non-critical path (verification
// mail) must be surfaced to the caller as a soft notice, not a fatal error.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPSender implements Sender using Go's net/smtp package.
type SMTPSender struct {
	cfg  *config.Config
	auth smtp.Auth
	addr string
}

// NewSMTPSender creates a Sender backed by the configured SMTP relay. When no
// SMTP host is configured it falls back to a logging sender, which is what
// local development runs on.
func NewSMTPSender(cfg *config.Config) Sender {
	if cfg.SmtpHost == "" {
		log.Println("SMTP host not configured, using logging email sender.")
		return &LoggingSender{cfg: cfg}
	}

	auth := smtp.PlainAuth(
		"", // identity
		cfg.SmtpUsername,
		cfg.SmtpPassword,
		cfg.SmtpHost,
	)
	addr := fmt.Sprintf("%s:%d", cfg.SmtpHost, cfg.SmtpPort)

	return &SMTPSender{
		cfg:  cfg,
		auth: auth,
		addr: addr,
	}
}

// Send sends a plain-text email over SMTP.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: WISE market <%s>\r\n", s.cfg.SmtpFromAddress)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	err := smtp.SendMail(s.addr, s.auth, s.cfg.SmtpFromAddress, []string{to}, []byte(msg.String()))
	if err != nil {
		log.Printf("Failed to send email via SMTP to %s: %v", to, err)
		return fmt.Errorf("smtp error: %w", err)
	}
	log.Printf("Email sent via SMTP to %s (Subject: %s)", to, subject)
	return nil
}

// LoggingSender is a Sender that just logs email details. Useful for
// development or when SMTP isn't configured.
type LoggingSender struct {
	cfg *config.Config
}

// Send logs the email details instead of sending.
func (s *LoggingSender) Send(ctx context.Context, to, subject, body string) error {
	log.Printf("--- Sending Email (Logged) ---")
	log.Printf("From: %s", s.cfg.SmtpFromAddress)
	log.Printf("To: %s", to)
	log.Printf("Subject: %s", subject)
	log.Println(body)
	log.Println("--- End Email ---")
	return nil
}

// VerificationBody renders the body of the signup verification mail.
func VerificationBody(verifyURL string) string {
	return "Welcome to WISE market.\n\n" +
		"Click the link below to verify your campus email address:\n\n" +
		verifyURL + "\n\n" +
		"If the link is not clickable, copy it into your browser's address bar.\n"
}
