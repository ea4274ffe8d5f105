package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procureflow/procureflow/internal/domain"
	"github.com/procureflow/procureflow/internal/usecase"
)

func ingestFixture(t *testing.T) (*fakeRFPRepo, *fakeVendorRepo, *fakeProposalRepo, *fakeOracle, *fakeMailbox, *fakeExtractor) {
	t.Helper()
	rfps := newFakeRFPRepo()
	vendors := newFakeVendorRepo()
	proposals := newFakeProposalRepo()
	oracle := &fakeOracle{
		parse: func(string, []domain.AttachmentText, []domain.Requirement) (domain.ProposalData, error) {
			price := 900.0
			return domain.ProposalData{TotalPrice: &price, Currency: "USD", Summary: "Offer for chairs."}, nil
		},
	}
	mailbox := &fakeMailbox{}
	extractor := &fakeExtractor{byName: map[string]string{}, errOn: map[string]bool{}}

	_, err := rfps.Create(context.Background(), domain.RFP{
		Title:  "Office Chairs",
		Status: domain.RFPSent,
	})
	require.NoError(t, err)
	_, err = vendors.Create(context.Background(), domain.Vendor{Name: "Acme", Email: "sales@acme.test"})
	require.NoError(t, err)
	return rfps, vendors, proposals, oracle, mailbox, extractor
}

func reply(subject, from, body string) domain.InboundMessage {
	return domain.InboundMessage{Subject: subject, From: from, Text: body}
}

func TestRunCycle_StoresMatchingReply(t *testing.T) {
	rfps, vendors, proposals, oracle, mailbox, extractor := ingestFixture(t)
	mailbox.messages = []domain.InboundMessage{
		reply("Re: RFP: Office Chairs - 1", "sales@acme.test", "We offer $900 total."),
	}
	svc := usecase.NewIngestService(rfps, vendors, proposals, oracle, extractor, mailbox)

	n, err := svc.RunCycle(context.Background(), time.Now().AddDate(0, 0, -7))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	p, err := proposals.GetByRFPAndVendor(context.Background(), 1, 1)
	require.NoError(t, err)
	require.NotNil(t, p.Parsed)
	assert.Equal(t, "Offer for chairs.", p.AISummary)
	require.NotNil(t, p.TotalPrice)
	assert.InDelta(t, 900, *p.TotalPrice, 0.001)
	assert.NotEmpty(t, p.ContentHash)
}

func TestRunCycle_InvalidatesComparisonCache(t *testing.T) {
	rfps, vendors, proposals, oracle, mailbox, extractor := ingestFixture(t)
	at := time.Now()
	require.NoError(t, rfps.SaveComparison(context.Background(), 1, domain.ComparisonResult{Summary: "old"}, at))
	mailbox.messages = []domain.InboundMessage{
		reply("RFP: Office Chairs - 1", "sales@acme.test", "new offer"),
	}
	svc := usecase.NewIngestService(rfps, vendors, proposals, oracle, extractor, mailbox)

	_, err := svc.RunCycle(context.Background(), time.Now())
	require.NoError(t, err)

	got, err := rfps.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, got.Comparison)
	assert.Nil(t, got.ComparedAt)
	assert.Equal(t, []int64{1}, rfps.cleared)
}

func TestRunCycle_SkipsUnrelatedSubject(t *testing.T) {
	rfps, vendors, proposals, oracle, mailbox, extractor := ingestFixture(t)
	mailbox.messages = []domain.InboundMessage{
		reply("Weekly newsletter", "sales@acme.test", "hello"),
	}
	svc := usecase.NewIngestService(rfps, vendors, proposals, oracle, extractor, mailbox)

	n, err := svc.RunCycle(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, oracle.parseCalls)
}

func TestRunCycle_SkipsUnknownSender(t *testing.T) {
	rfps, vendors, proposals, oracle, mailbox, extractor := ingestFixture(t)
	mailbox.messages = []domain.InboundMessage{
		reply("RFP: Office Chairs - 1", "stranger@nowhere.test", "unsolicited"),
	}
	svc := usecase.NewIngestService(rfps, vendors, proposals, oracle, extractor, mailbox)

	n, err := svc.RunCycle(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, oracle.parseCalls)
}

func TestRunCycle_SkipsUnknownRFP(t *testing.T) {
	rfps, vendors, proposals, oracle, mailbox, extractor := ingestFixture(t)
	mailbox.messages = []domain.InboundMessage{
		reply("RFP: Something Else - 999", "sales@acme.test", "offer"),
	}
	svc := usecase.NewIngestService(rfps, vendors, proposals, oracle, extractor, mailbox)

	n, err := svc.RunCycle(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRunCycle_DuplicateContentSkipsExtraction(t *testing.T) {
	rfps, vendors, proposals, oracle, mailbox, extractor := ingestFixture(t)
	msg := reply("RFP: Office Chairs - 1", "sales@acme.test", "We offer $900 total.")
	mailbox.messages = []domain.InboundMessage{msg}
	svc := usecase.NewIngestService(rfps, vendors, proposals, oracle, extractor, mailbox)

	_, err := svc.RunCycle(context.Background(), time.Now())
	require.NoError(t, err)
	require.Equal(t, 1, oracle.parseCalls)

	// The identical reply arrives again in the next cycle. The row is
	// rewritten from the stored parse without another oracle call.
	n, err := svc.RunCycle(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, oracle.parseCalls)

	p, err := proposals.GetByRFPAndVendor(context.Background(), 1, 1)
	require.NoError(t, err)
	require.NotNil(t, p.Parsed)
	require.NotNil(t, p.TotalPrice)
	assert.InDelta(t, 900, *p.TotalPrice, 0.001)
}

func TestRunCycle_DuplicateContentStillInvalidatesCache(t *testing.T) {
	rfps, vendors, proposals, oracle, mailbox, extractor := ingestFixture(t)
	msg := reply("RFP: Office Chairs - 1", "sales@acme.test", "We offer $900 total.")
	mailbox.messages = []domain.InboundMessage{msg}
	svc := usecase.NewIngestService(rfps, vendors, proposals, oracle, extractor, mailbox)
	_, err := svc.RunCycle(context.Background(), time.Now())
	require.NoError(t, err)

	require.NoError(t, rfps.SaveComparison(context.Background(), 1, domain.ComparisonResult{Summary: "v1"}, time.Now()))

	// A byte-identical resend skips the oracle but must still drop the
	// cached comparison.
	_, err = svc.RunCycle(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, oracle.parseCalls)

	got, err := rfps.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, got.Comparison)
	assert.Nil(t, got.ComparedAt)
}

func TestRunCycle_ChangedContentReparses(t *testing.T) {
	rfps, vendors, proposals, oracle, mailbox, extractor := ingestFixture(t)
	mailbox.messages = []domain.InboundMessage{
		reply("RFP: Office Chairs - 1", "sales@acme.test", "first offer"),
	}
	svc := usecase.NewIngestService(rfps, vendors, proposals, oracle, extractor, mailbox)
	_, err := svc.RunCycle(context.Background(), time.Now())
	require.NoError(t, err)

	mailbox.messages = []domain.InboundMessage{
		reply("RFP: Office Chairs - 1", "sales@acme.test", "revised offer"),
	}
	n, err := svc.RunCycle(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, oracle.parseCalls)
}

func TestRunCycle_BrokenAttachmentDoesNotAbortMessage(t *testing.T) {
	rfps, vendors, proposals, oracle, mailbox, extractor := ingestFixture(t)
	extractor.byName["quote.txt"] = "grand total 900"
	extractor.errOn["corrupt.pdf"] = true

	var gotAtts []domain.AttachmentText
	oracle.parse = func(_ string, atts []domain.AttachmentText, _ []domain.Requirement) (domain.ProposalData, error) {
		gotAtts = atts
		return domain.ProposalData{Currency: "USD"}, nil
	}
	msg := reply("RFP: Office Chairs - 1", "sales@acme.test", "see attachments")
	msg.Attachments = []domain.Attachment{
		{Filename: "corrupt.pdf", ContentType: "application/pdf", Data: []byte("x")},
		{Filename: "quote.txt", ContentType: "text/plain", Data: []byte("grand total 900")},
	}
	mailbox.messages = []domain.InboundMessage{msg}
	svc := usecase.NewIngestService(rfps, vendors, proposals, oracle, extractor, mailbox)

	n, err := svc.RunCycle(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, gotAtts, 1)
	assert.Equal(t, "quote.txt", gotAtts[0].Filename)
}

func TestRunCycle_OneBadMessageDoesNotAbortOthers(t *testing.T) {
	rfps, vendors, proposals, oracle, mailbox, extractor := ingestFixture(t)
	calls := 0
	oracle.parse = func(body string, _ []domain.AttachmentText, _ []domain.Requirement) (domain.ProposalData, error) {
		calls++
		if body == "poisoned" {
			return domain.ProposalData{}, domain.ErrAIResponse
		}
		return domain.ProposalData{Currency: "USD"}, nil
	}
	_, err := vendors.Create(context.Background(), domain.Vendor{Name: "Globex", Email: "bids@globex.test"})
	require.NoError(t, err)
	mailbox.messages = []domain.InboundMessage{
		reply("RFP: Office Chairs - 1", "sales@acme.test", "poisoned"),
		reply("RFP: Office Chairs - 1", "bids@globex.test", "good offer"),
	}
	svc := usecase.NewIngestService(rfps, vendors, proposals, oracle, extractor, mailbox)

	n, err := svc.RunCycle(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, calls)
}

func TestRunCycle_HTMLBodyWhenTextEmpty(t *testing.T) {
	rfps, vendors, proposals, oracle, mailbox, extractor := ingestFixture(t)
	var gotBody string
	oracle.parse = func(body string, _ []domain.AttachmentText, _ []domain.Requirement) (domain.ProposalData, error) {
		gotBody = body
		return domain.ProposalData{Currency: "USD"}, nil
	}
	msg := domain.InboundMessage{
		Subject: "RFP: Office Chairs - 1",
		From:    "sales@acme.test",
		HTML:    "<p>offer inside</p>",
	}
	mailbox.messages = []domain.InboundMessage{msg}
	svc := usecase.NewIngestService(rfps, vendors, proposals, oracle, extractor, mailbox)

	_, err := svc.RunCycle(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Contains(t, gotBody, "offer inside")
}

func TestRunCycle_DefaultSummaryWhenOracleSilent(t *testing.T) {
	rfps, vendors, proposals, oracle, mailbox, extractor := ingestFixture(t)
	oracle.parse = func(string, []domain.AttachmentText, []domain.Requirement) (domain.ProposalData, error) {
		return domain.ProposalData{Currency: "USD"}, nil
	}
	mailbox.messages = []domain.InboundMessage{
		reply("RFP: Office Chairs - 1", "sales@acme.test", "offer"),
	}
	svc := usecase.NewIngestService(rfps, vendors, proposals, oracle, extractor, mailbox)

	_, err := svc.RunCycle(context.Background(), time.Now())
	require.NoError(t, err)
	p, err := proposals.GetByRFPAndVendor(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "Proposal received and parsed", p.AISummary)
}

func TestRunCycle_MailboxErrorPropagates(t *testing.T) {
	rfps, vendors, proposals, oracle, mailbox, extractor := ingestFixture(t)
	mailbox.err = assert.AnError
	svc := usecase.NewIngestService(rfps, vendors, proposals, oracle, extractor, mailbox)

	_, err := svc.RunCycle(context.Background(), time.Now())
	assert.Error(t, err)
}
