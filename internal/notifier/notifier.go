// Package notifier delivers rendered reports.
package notifier

import (
	"context"
	"fmt"

	"github.com/ibeckermayer/narratives/internal/config"
	"github.com/ibeckermayer/narratives/internal/notifier/providers"
	"github.com/ibeckermayer/narratives/internal/report"
)

// Notifier handles sending report notifications
type Notifier struct {
	sender Sender
	to     string
}

// Sender defines the interface for email sending
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody, plainBody string) error
}

// New creates a notifier sending to the given address
func New(sender Sender, to string) *Notifier {
	return &Notifier{sender: sender, to: to}
}

// NewFromConfig creates a notifier based on configuration. A disabled
// provider yields a nil Notifier and no error.
func NewFromConfig(cfg config.NotifyConfig) (*Notifier, error) {
	switch cfg.Provider {
	case config.NotifyNone, "":
		return nil, nil
	case config.NotifySMTP:
		sender := providers.NewSMTPSender(
			cfg.SMTPHost,
			cfg.SMTPPort,
			cfg.SMTPUser,
			cfg.SMTPPass,
			cfg.FromAddr,
		)
		return New(sender, cfg.ToAddr), nil
	default:
		return nil, fmt.Errorf("unknown notify provider: %s", cfg.Provider)
	}
}

// SendReport emails r
func (n *Notifier) SendReport(ctx context.Context, r *report.Report) error {
	return n.sender.Send(ctx, n.to, r.Title, r.HTMLBody, r.PlainBody)
}
