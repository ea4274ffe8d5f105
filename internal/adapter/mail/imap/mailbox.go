// Package imap implements the inbound mailbox port against an IMAP server.
// Each poll logs in, searches INBOX for unseen messages within the window
// and downloads their full bodies; the fetch marks them seen.
package imap

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	goimap "github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"

	"github.com/procureflow/procureflow/internal/config"
	"github.com/procureflow/procureflow/internal/domain"
)

// Mailbox implements domain.Mailbox over IMAP with TLS.
type Mailbox struct {
	addr     string
	username string
	password string
	timeout  time.Duration
}

// NewMailbox constructs a Mailbox from configuration.
func NewMailbox(cfg config.Config) *Mailbox {
	return &Mailbox{
		addr:     fmt.Sprintf("%s:%d", cfg.IMAPHost, cfg.IMAPPort),
		username: cfg.IMAPUser,
		password: cfg.IMAPPassword,
		timeout:  cfg.IMAPTimeout,
	}
}

// FetchUnseen returns all unseen INBOX messages received on/after since.
// A message whose body cannot be parsed is logged and skipped; it never
// fails the whole fetch.
func (m *Mailbox) FetchUnseen(ctx domain.Context, since time.Time) ([]domain.InboundMessage, error) {
	c, err := client.DialTLS(m.addr, nil)
	if err != nil {
		return nil, fmt.Errorf("op=imap.dial %s: %w", m.addr, err)
	}
	c.Timeout = m.timeout
	defer func() { _ = c.Logout() }()

	if err := c.Login(m.username, m.password); err != nil {
		return nil, fmt.Errorf("op=imap.login: %w", err)
	}
	if _, err := c.Select("INBOX", false); err != nil {
		return nil, fmt.Errorf("op=imap.select: %w", err)
	}

	criteria := goimap.NewSearchCriteria()
	criteria.WithoutFlags = []string{goimap.SeenFlag}
	criteria.Since = since
	ids, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("op=imap.search: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	seqset := new(goimap.SeqSet)
	seqset.AddNum(ids...)
	section := &goimap.BodySectionName{}
	items := []goimap.FetchItem{section.FetchItem(), goimap.FetchEnvelope}

	messages := make(chan *goimap.Message, len(ids))
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, items, messages)
	}()

	var out []domain.InboundMessage
	for msg := range messages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		parsed, perr := parseMessage(msg.GetBody(section))
		if perr != nil {
			slog.Warn("inbound message unparseable",
				slog.Uint64("seq", uint64(msg.SeqNum)),
				slog.Any("error", perr))
			continue
		}
		out = append(out, parsed)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("op=imap.fetch: %w", err)
	}
	return out, nil
}

// parseMessage decodes one raw RFC 5322 message into the domain shape.
func parseMessage(body io.Reader) (domain.InboundMessage, error) {
	if body == nil {
		return domain.InboundMessage{}, fmt.Errorf("op=imap.parse: empty body section")
	}
	mr, err := mail.CreateReader(body)
	if err != nil {
		return domain.InboundMessage{}, fmt.Errorf("op=imap.parse: %w", err)
	}

	var out domain.InboundMessage
	if subject, err := mr.Header.Subject(); err == nil {
		out.Subject = subject
	}
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		out.From = from[0].Address
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return domain.InboundMessage{}, fmt.Errorf("op=imap.part: %w", err)
		}
		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			ct, _, _ := h.ContentType()
			data, rerr := io.ReadAll(part.Body)
			if rerr != nil {
				continue
			}
			switch {
			case strings.HasPrefix(ct, "text/plain") && out.Text == "":
				out.Text = string(data)
			case strings.HasPrefix(ct, "text/html") && out.HTML == "":
				out.HTML = string(data)
			}
		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			ct, _, _ := h.ContentType()
			data, rerr := io.ReadAll(part.Body)
			if rerr != nil {
				slog.Warn("attachment read failed",
					slog.String("filename", filename), slog.Any("error", rerr))
				continue
			}
			out.Attachments = append(out.Attachments, domain.Attachment{
				Filename:    filename,
				ContentType: ct,
				Data:        data,
			})
		}
	}
	return out, nil
}
