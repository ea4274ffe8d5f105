// Package smtp implements the outbound mail port using authenticated SMTP.
package smtp

import (
	"fmt"
	"log/slog"

	gomail "github.com/wneessen/go-mail"

	"github.com/procureflow/procureflow/internal/config"
	"github.com/procureflow/procureflow/internal/domain"
)

// Sender implements domain.MailSender.
type Sender struct {
	host     string
	port     int
	username string
	password string
	from     string
	replyTo  string
}

// NewSender constructs a Sender from configuration.
func NewSender(cfg config.Config) *Sender {
	return &Sender{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     cfg.SMTPFrom,
		replyTo:  cfg.EmailReplyTo,
	}
}

func (s *Sender) client() (*gomail.Client, error) {
	return gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	)
}

// SendRFP delivers one RFP to one vendor as a multipart text+HTML message.
// Replies must keep the subject's trailing ID for the poller to match them.
func (s *Sender) SendRFP(ctx domain.Context, rfp domain.RFP, vendor domain.Vendor) error {
	text, html, err := renderRFP(rfp, vendor)
	if err != nil {
		return fmt.Errorf("op=smtp.render: %w", err)
	}

	msg := gomail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("op=smtp.from: %w", err)
	}
	if err := msg.To(vendor.Email); err != nil {
		return fmt.Errorf("op=smtp.to: %w", err)
	}
	if s.replyTo != "" {
		if err := msg.ReplyTo(s.replyTo); err != nil {
			return fmt.Errorf("op=smtp.reply_to: %w", err)
		}
	}
	msg.Subject(rfp.SubjectLine())
	msg.SetBodyString(gomail.TypeTextPlain, text)
	msg.AddAlternativeString(gomail.TypeTextHTML, html)

	c, err := s.client()
	if err != nil {
		return fmt.Errorf("op=smtp.client: %w", err)
	}
	if err := c.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("op=smtp.send to %s: %w", vendor.Email, err)
	}
	slog.Info("rfp email delivered",
		slog.Int64("rfp_id", rfp.ID),
		slog.String("to", vendor.Email))
	return nil
}

// Verify opens and closes an authenticated SMTP session without sending.
func (s *Sender) Verify(ctx domain.Context) error {
	c, err := s.client()
	if err != nil {
		return fmt.Errorf("op=smtp.client: %w", err)
	}
	if err := c.DialWithContext(ctx); err != nil {
		return fmt.Errorf("op=smtp.verify: %w", err)
	}
	return c.Close()
}
