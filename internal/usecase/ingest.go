package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/procureflow/procureflow/internal/domain"
	"github.com/procureflow/procureflow/internal/observability"
)

// subjectRe resolves the RFP a reply belongs to from the subject line. It
// tolerates "Re:" prefixes and anything a mail client adds around the
// original "RFP: <title> - <id>" subject.
var subjectRe = regexp.MustCompile(`(?i)RFP.*?-\s*(\d+)`)

// defaultSummary is stored when the extraction returns no summary text.
const defaultSummary = "Proposal received and parsed"

// IngestService polls the shared mailbox and turns vendor replies into
// parsed proposals.
type IngestService struct {
	rfps      domain.RFPRepository
	vendors   domain.VendorRepository
	proposals domain.ProposalRepository
	oracle    domain.Oracle
	extractor domain.ContentExtractor
	mailbox   domain.Mailbox
}

// NewIngestService constructs an IngestService.
func NewIngestService(
	rfps domain.RFPRepository,
	vendors domain.VendorRepository,
	proposals domain.ProposalRepository,
	oracle domain.Oracle,
	extractor domain.ContentExtractor,
	mailbox domain.Mailbox,
) IngestService {
	return IngestService{
		rfps:      rfps,
		vendors:   vendors,
		proposals: proposals,
		oracle:    oracle,
		extractor: extractor,
		mailbox:   mailbox,
	}
}

// RunCycle fetches unseen messages received on/after since and processes each
// in isolation: one bad message is logged and skipped, never aborting its
// siblings. Returns the number of messages that produced a stored proposal.
func (s IngestService) RunCycle(ctx domain.Context, since time.Time) (int, error) {
	msgs, err := s.mailbox.FetchUnseen(ctx, since)
	if err != nil {
		observability.PollCyclesTotal.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("op=ingest.fetch: %w", err)
	}

	processed := 0
	for _, msg := range msgs {
		stored, err := s.processMessage(ctx, msg)
		switch {
		case err != nil:
			observability.MessagesProcessedTotal.WithLabelValues("error").Inc()
			slog.Error("message processing failed",
				slog.String("subject", msg.Subject),
				slog.String("from", msg.From),
				slog.Any("error", err))
		case stored:
			observability.MessagesProcessedTotal.WithLabelValues("stored").Inc()
			processed++
		default:
			observability.MessagesProcessedTotal.WithLabelValues("skipped").Inc()
		}
	}

	observability.PollCyclesTotal.WithLabelValues("ok").Inc()
	if len(msgs) > 0 {
		slog.Info("poll cycle finished",
			slog.Int("fetched", len(msgs)),
			slog.Int("stored", processed))
	}
	return processed, nil
}

// processMessage handles one inbound message end to end. (false, nil) means
// the message is not a proposal reply and was deliberately skipped.
func (s IngestService) processMessage(ctx domain.Context, msg domain.InboundMessage) (bool, error) {
	m := subjectRe.FindStringSubmatch(msg.Subject)
	if m == nil {
		slog.Debug("subject does not reference an rfp", slog.String("subject", msg.Subject))
		return false, nil
	}
	rfpID, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return false, nil
	}

	vendor, err := s.vendors.FindByAddress(ctx, msg.From)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			slog.Info("reply from unknown sender skipped",
				slog.String("from", msg.From), slog.Int64("rfp_id", rfpID))
			return false, nil
		}
		return false, fmt.Errorf("op=ingest.vendor: %w", err)
	}

	rfp, err := s.rfps.Get(ctx, rfpID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			slog.Info("reply references unknown rfp skipped",
				slog.Int64("rfp_id", rfpID), slog.String("from", msg.From))
			return false, nil
		}
		return false, fmt.Errorf("op=ingest.rfp: %w", err)
	}

	body := msg.Text
	if strings.TrimSpace(body) == "" {
		body = msg.HTML
	}

	texts := s.extractAttachments(msg)
	hash := contentHash(body, texts)

	// A reply whose content hash matches the stored proposal reuses the
	// previous parse instead of calling the oracle again. The row is still
	// rewritten and the comparison cache still invalidated below.
	var data domain.ProposalData
	existing, err := s.proposals.GetByRFPAndVendor(ctx, rfp.ID, vendor.ID)
	switch {
	case err == nil && existing.ContentHash == hash && existing.Parsed != nil:
		data = *existing.Parsed
		slog.Info("duplicate reply content, extraction skipped",
			slog.Int64("rfp_id", rfp.ID), slog.Int64("vendor_id", vendor.ID))
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return false, fmt.Errorf("op=ingest.lookup: %w", err)
	default:
		data, err = s.oracle.ParseProposal(ctx, body, texts, rfp.Requirements)
		if err != nil {
			return false, err
		}
	}
	if data.Summary == "" {
		data.Summary = defaultSummary
	}

	completeness := Completeness(data, rfp.Requirements)
	observability.ObserveCompleteness(completeness)

	p := domain.Proposal{
		RFPID:        rfp.ID,
		VendorID:     vendor.ID,
		EmailSubject: msg.Subject,
		EmailBody:    body,
		RawContent:   rawContent(body, texts),
		ContentHash:  hash,
		Parsed:       &data,
		TotalPrice:   data.TotalPrice,
		Currency:     data.Currency,
		PaymentTerms: data.PaymentTerms,
		Warranty:     data.Warranty,
		LineItems:    data.LineItems,
		Terms:        data.Terms,
		AISummary:    data.Summary,
		Completeness: completeness,
	}
	if data.DeliveryDate != nil {
		if d, perr := time.Parse("2006-01-02", *data.DeliveryDate); perr == nil {
			p.DeliveryDate = &d
		}
	}

	if err := s.proposals.SaveParsed(ctx, p); err != nil {
		return false, fmt.Errorf("op=ingest.save: %w", err)
	}
	// Every persisted reply invalidates the RFP's cached comparison, even
	// when the parse was reused for identical content.
	if err := s.rfps.ClearComparison(ctx, rfp.ID); err != nil {
		return false, fmt.Errorf("op=ingest.invalidate: %w", err)
	}

	slog.Info("proposal ingested",
		slog.Int64("rfp_id", rfp.ID),
		slog.Int64("vendor_id", vendor.ID),
		slog.Int("completeness", completeness),
		slog.Int("attachments", len(texts)))
	return true, nil
}

// extractAttachments converts each attachment independently; a failing or
// empty attachment is skipped without affecting the others.
func (s IngestService) extractAttachments(msg domain.InboundMessage) []domain.AttachmentText {
	var texts []domain.AttachmentText
	for _, att := range msg.Attachments {
		content, err := s.extractor.Extract(att.ContentType, att.Filename, att.Data)
		if err != nil {
			slog.Warn("attachment extraction failed",
				slog.String("filename", att.Filename),
				slog.String("content_type", att.ContentType),
				slog.Any("error", err))
			continue
		}
		if content == "" {
			continue
		}
		texts = append(texts, domain.AttachmentText{Filename: att.Filename, Content: content})
	}
	return texts
}

// contentHash fingerprints the reply body plus all extracted attachment
// texts. Two replies with the same hash carry the same proposal content.
func contentHash(body string, texts []domain.AttachmentText) string {
	h := sha256.New()
	h.Write([]byte(body))
	if len(texts) > 0 {
		b, _ := json.Marshal(texts)
		h.Write(b)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func rawContent(body string, texts []domain.AttachmentText) string {
	var sb strings.Builder
	sb.WriteString(body)
	for _, t := range texts {
		sb.WriteString("\n\n--- ")
		sb.WriteString(t.Filename)
		sb.WriteString(" ---\n")
		sb.WriteString(t.Content)
	}
	return sb.String()
}
