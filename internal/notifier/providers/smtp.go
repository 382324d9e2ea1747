package providers

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SMTPSender sends emails via SMTP
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
	now      func() time.Time
}

// NewSMTPSender creates a new SMTP sender. Without a username the message is
// sent unauthenticated.
func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		now:      time.Now,
	}
}

// Send sends a multipart/alternative email via SMTP
func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody, plainBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	msg := s.buildMessage(to, subject, htmlBody, plainBody)

	if s.username != "" {
		auth := smtp.PlainAuth("", s.username, s.password, s.host)
		if err := smtp.SendMail(addr, auth, s.from, []string{to}, msg); err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		return nil
	}

	c, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	defer c.Close()

	if err := c.Mail(s.from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return c.Quit()
}

func (s *SMTPSender) buildMessage(to, subject, htmlBody, plainBody string) []byte {
	boundary := "narratives-" + uuid.NewString()

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", sanitizeHeader(s.from))
	fmt.Fprintf(&msg, "To: %s\r\n", sanitizeHeader(to))
	fmt.Fprintf(&msg, "Subject: %s\r\n", sanitizeHeader(subject))
	fmt.Fprintf(&msg, "Date: %s\r\n", s.now().Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%q\r\n", boundary)
	msg.WriteString("\r\n")

	// Plain text part
	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	msg.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(plainBody)
	msg.WriteString("\r\n")

	// HTML part
	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	msg.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)
	msg.WriteString("\r\n")

	fmt.Fprintf(&msg, "--%s--\r\n", boundary)
	return []byte(msg.String())
}

func sanitizeHeader(s string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}
