// Package domain holds the core entities, error taxonomy and ports of the
// procurement service. It has no dependencies on adapters or frameworks.
package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	// ErrAIUnavailable means the extraction backend could not be reached at all.
	ErrAIUnavailable = errors.New("ai backend unavailable")
	// ErrAIResponse means the backend answered but no JSON object could be recovered.
	ErrAIResponse = errors.New("ai response unusable")
	// ErrSchemaInvalid means recovered JSON did not match the expected schema.
	ErrSchemaInvalid = errors.New("schema invalid")
	ErrInternal      = errors.New("internal error")
)

// RFPStatus enumerates the RFP lifecycle.
type RFPStatus string

const (
	RFPDraft  RFPStatus = "draft"
	RFPSent   RFPStatus = "sent"
	RFPClosed RFPStatus = "closed"
)

// Requirement is a single requested item within an RFP.
type Requirement struct {
	Item           string         `json:"item"`
	Quantity       *float64       `json:"quantity,omitempty"`
	Specifications map[string]any `json:"specifications,omitempty"`
}

// RFP is a structured procurement request.
// Invariants: Status in {draft, sent, closed}; Comparison and ComparedAt are
// set/cleared together.
type RFP struct {
	ID            int64
	Title         string
	Description   string
	Budget        *float64
	Deadline      *time.Time
	Requirements  []Requirement
	PaymentTerms  *string
	WarrantyReq   *string
	DeliveryTerms *string
	Status        RFPStatus
	Comparison    *ComparisonResult
	ComparedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SubjectLine is the outbound email subject for this RFP. The inbound
// matcher resolves replies by the trailing numeric ID, so the format is a
// wire contract between sender and poller.
func (r RFP) SubjectLine() string {
	return fmt.Sprintf("RFP: %s - %d", r.Title, r.ID)
}

// Vendor is a supplier the buyer can send RFPs to. Email is unique.
type Vendor struct {
	ID        int64
	Name      string
	Email     string
	Company   *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LineItem is one priced row inside a vendor proposal.
type LineItem struct {
	Item           string         `json:"item"`
	Quantity       *float64       `json:"quantity,omitempty"`
	UnitPrice      *float64       `json:"unitPrice,omitempty"`
	TotalPrice     *float64       `json:"totalPrice,omitempty"`
	Specifications map[string]any `json:"specifications,omitempty"`
}

// ProposalData is the structured output of the proposal extraction contract.
// Missing fields stay nil; the oracle must not invent values.
type ProposalData struct {
	TotalPrice   *float64       `json:"totalPrice"`
	Currency     string         `json:"currency,omitempty"`
	DeliveryDate *string        `json:"deliveryDate"`
	PaymentTerms *string        `json:"paymentTerms"`
	Warranty     *string        `json:"warranty"`
	LineItems    []LineItem     `json:"lineItems,omitempty"`
	Terms        map[string]any `json:"terms,omitempty"`
	Summary      string         `json:"summary,omitempty"`
}

// Proposal associates exactly one vendor reply with one RFP.
// Invariant: at most one row per (RFPID, VendorID); rows are created as
// stubs when the RFP is sent and filled in by the ingestion pipeline.
type Proposal struct {
	ID           int64
	RFPID        int64
	VendorID     int64
	EmailSubject string
	EmailBody    string
	RawContent   string
	ContentHash  string
	Parsed       *ProposalData
	TotalPrice   *float64
	Currency     string
	DeliveryDate *time.Time
	PaymentTerms *string
	Warranty     *string
	LineItems    []LineItem
	Terms        map[string]any
	AISummary    string
	Completeness int
	AIScore      *float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ProposalWithVendor is a proposal joined with its vendor for listings and
// comparison input.
type ProposalWithVendor struct {
	Proposal
	Vendor Vendor
}

// RFPExtraction is the structured output of the RFP extraction contract.
type RFPExtraction struct {
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	Budget        *float64      `json:"budget"`
	Deadline      *string       `json:"deadline"`
	Requirements  []Requirement `json:"requirements"`
	PaymentTerms  *string       `json:"paymentTerms"`
	WarrantyReq   *string       `json:"warrantyReq"`
	DeliveryTerms *string       `json:"deliveryTerms"`
}

// VendorScore is one vendor's four-dimension score within a comparison.
type VendorScore struct {
	VendorID          int64   `json:"vendorId"`
	VendorName        string  `json:"vendorName"`
	TotalScore        float64 `json:"totalScore"`
	PriceScore        float64 `json:"priceScore"`
	TermsScore        float64 `json:"termsScore"`
	CompletenessScore float64 `json:"completenessScore"`
	ComplianceScore   float64 `json:"complianceScore"`
}

// Recommendation names the winning vendor with reasoning.
type Recommendation struct {
	VendorID   int64  `json:"vendorId"`
	VendorName string `json:"vendorName"`
	Reasoning  string `json:"reasoning"`
}

// ComparisonResult is the structured output of the comparison contract.
type ComparisonResult struct {
	Scores             []VendorScore  `json:"scores"`
	Recommendation     Recommendation `json:"recommendation"`
	Summary            string         `json:"summary"`
	DetailedComparison string         `json:"detailedComparison"`
}

// Attachment carries one raw inbound attachment.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// AttachmentText is one successfully extracted attachment.
type AttachmentText struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// InboundMessage is a parsed mailbox message handed to the ingestion pipeline.
type InboundMessage struct {
	Subject     string
	From        string
	Text        string
	HTML        string
	Attachments []Attachment
}

// Repositories (ports)

// RFPRepository persists RFPs and their cached comparison.
type RFPRepository interface {
	Create(ctx Context, r RFP) (RFP, error)
	List(ctx Context) ([]RFP, error)
	Get(ctx Context, id int64) (RFP, error)
	Update(ctx Context, r RFP) (RFP, error)
	Delete(ctx Context, id int64) error
	SetStatus(ctx Context, id int64, status RFPStatus) error
	SaveComparison(ctx Context, id int64, res ComparisonResult, at time.Time) error
	ClearComparison(ctx Context, id int64) error
}

// VendorRepository persists vendors. Create and Update surface ErrConflict
// on a duplicate email.
type VendorRepository interface {
	Create(ctx Context, v Vendor) (Vendor, error)
	List(ctx Context) ([]Vendor, error)
	Get(ctx Context, id int64) (Vendor, error)
	Update(ctx Context, v Vendor) (Vendor, error)
	Delete(ctx Context, id int64) error
	// FindByAddress resolves a vendor whose stored email case-insensitively
	// contains the given address.
	FindByAddress(ctx Context, address string) (Vendor, error)
}

// ProposalRepository persists proposals, one row per (RFP, vendor).
type ProposalRepository interface {
	// UpsertStub creates the proposal row for a freshly sent RFP, or refreshes
	// the subject when the RFP is re-sent to the same vendor.
	UpsertStub(ctx Context, rfpID, vendorID int64, emailSubject string) error
	GetByRFPAndVendor(ctx Context, rfpID, vendorID int64) (Proposal, error)
	ListByRFP(ctx Context, rfpID int64) ([]ProposalWithVendor, error)
	// SaveParsed stores a freshly ingested reply: raw content, parsed data,
	// derived fields and the content hash, bumping updated_at.
	SaveParsed(ctx Context, p Proposal) error
	SetAIScore(ctx Context, rfpID, vendorID int64, score float64) error
}

// Oracle (port) wraps the text-completion backend behind the three fixed
// extraction contracts. Implementations must distinguish transport failure
// (ErrAIUnavailable) from response failures (ErrAIResponse, ErrSchemaInvalid).
type Oracle interface {
	ExtractRFP(ctx Context, description string) (RFPExtraction, error)
	ParseProposal(ctx Context, body string, attachments []AttachmentText, requirements []Requirement) (ProposalData, error)
	CompareProposals(ctx Context, rfp RFP, proposals []ProposalWithVendor) (ComparisonResult, error)
}

// Mailbox (port) fetches unseen messages received on/after since.
type Mailbox interface {
	FetchUnseen(ctx Context, since time.Time) ([]InboundMessage, error)
}

// MailSender (port) delivers RFP emails and verifies transport connectivity.
type MailSender interface {
	SendRFP(ctx Context, rfp RFP, vendor Vendor) error
	Verify(ctx Context) error
}

// ContentExtractor (port) converts one attachment into plain text.
// A "no content" outcome is (empty string, nil); errors are per-attachment
// and never abort sibling extractions.
type ContentExtractor interface {
	Extract(contentType, filename string, data []byte) (string, error)
}

// Context aliases context.Context so the domain stays import-light in
// signatures while adapters pass standard contexts through.
type Context = context.Context
