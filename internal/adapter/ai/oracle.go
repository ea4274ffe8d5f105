package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/procureflow/procureflow/internal/domain"
	"github.com/procureflow/procureflow/internal/observability"
	"github.com/procureflow/procureflow/pkg/textx"
)

// maxPromptRunes caps aggregated body+attachment text fed into one prompt.
const maxPromptRunes = 48_000

// Oracle implements domain.Oracle over a ChatClient. Responses pass through
// JSON recovery and per-contract schema validation before being trusted.
type Oracle struct {
	chat ChatClient
	now  func() time.Time
}

// NewOracle constructs an Oracle. The clock is injectable for tests.
func NewOracle(chat ChatClient) *Oracle {
	return &Oracle{chat: chat, now: time.Now}
}

// NewOracleWithClock constructs an Oracle with a fixed clock.
func NewOracleWithClock(chat ChatClient, now func() time.Time) *Oracle {
	return &Oracle{chat: chat, now: now}
}

var relativeDayPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)within\s+(\d+)\s+days?`),
	regexp.MustCompile(`(?i)in\s+(\d+)\s+days?`),
	regexp.MustCompile(`(?i)(\d+)\s+days?\s+(?:from|after)`),
}

// relativeDays extracts "within N days"-style spans from free text.
func relativeDays(text string) (int, bool) {
	for _, re := range relativeDayPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			n, err := strconv.Atoi(m[1])
			if err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

// ExtractRFP turns a free-text procurement description into structured RFP
// fields. Relative deadlines ("within N days") are computed deterministically
// from the current date and override whatever date the model produced.
func (o *Oracle) ExtractRFP(ctx domain.Context, description string) (domain.RFPExtraction, error) {
	today := o.now().Format("2006-01-02")
	user := fmt.Sprintf(`Analyze the procurement request below and extract structured data.

Current date: %s

Request:
%s

Extract with precision:
- title: concise title for the procurement
- description: the full requirement text
- budget: total budget as a NUMBER without currency symbols, or null
- deadline: ISO date (YYYY-MM-DD); for "within X days" add X days to the current date; null when no deadline is mentioned
- requirements: array of {item, quantity (number, optional), specifications (object, optional)}
- paymentTerms: exactly as stated (e.g. "net 30"), or null
- warrantyReq: warranty requirement as stated, or null
- deliveryTerms: delivery timeline as stated, or null

Return ONLY a JSON object with exactly these keys.`, today, textx.Truncate(description, maxPromptRunes))

	start := time.Now()
	content, err := o.chat.ChatJSON(ctx, "You are a precise procurement data extraction assistant. Return ONLY valid JSON, no markdown, no explanations.", user)
	if err != nil {
		observability.ObserveOracleCall("extract_rfp", "error", time.Since(start))
		return domain.RFPExtraction{}, err
	}

	var ex domain.RFPExtraction
	if err := o.decode(content, &ex); err != nil {
		observability.ObserveOracleCall("extract_rfp", "invalid", time.Since(start))
		return domain.RFPExtraction{}, err
	}
	if ex.Title == "" {
		observability.ObserveOracleCall("extract_rfp", "invalid", time.Since(start))
		return domain.RFPExtraction{}, fmt.Errorf("%w: rfp extraction missing title", domain.ErrSchemaInvalid)
	}

	o.overrideRelativeDeadline(&ex, description)
	observability.ObserveOracleCall("extract_rfp", "ok", time.Since(start))
	return ex, nil
}

// overrideRelativeDeadline recomputes the deadline from any relative-day
// signal in the delivery terms or the original description. The computed date
// wins over the model's own answer; no signal and no model date means nil.
func (o *Oracle) overrideRelativeDeadline(ex *domain.RFPExtraction, description string) {
	days, ok := 0, false
	if ex.DeliveryTerms != nil {
		days, ok = relativeDays(*ex.DeliveryTerms)
	}
	if !ok {
		days, ok = relativeDays(description)
	}
	if !ok {
		return
	}
	computed := o.now().AddDate(0, 0, days).Format("2006-01-02")
	ex.Deadline = &computed
}

// ParseProposal extracts structured proposal fields from a vendor reply body
// plus any extracted attachment texts. Missing fields stay null.
func (o *Oracle) ParseProposal(ctx domain.Context, body string, attachments []domain.AttachmentText, requirements []domain.Requirement) (domain.ProposalData, error) {
	var sb strings.Builder
	sb.WriteString("Email Body:\n")
	sb.WriteString(body)
	sb.WriteString("\n")
	for i, att := range attachments {
		fmt.Fprintf(&sb, "\n--- Attachment %d: %s ---\n%s\n", i+1, att.Filename, att.Content)
	}
	content := textx.Truncate(sb.String(), maxPromptRunes)

	reqJSON := ""
	if len(requirements) > 0 {
		b, _ := json.Marshal(requirements)
		reqJSON = fmt.Sprintf("\nOriginal RFP requirements:\n%s\n", string(b))
	}

	user := fmt.Sprintf(`Analyze the vendor response below (email and attachments) and extract the proposal details.

%s
%s
Extract with precision:
- totalPrice: total quoted price as a NUMBER without currency symbols, or null
- currency: currency code, default "USD" when unstated
- deliveryDate: ISO date (YYYY-MM-DD); compute relative dates ("in 30 days") from today (%s); null when not mentioned
- paymentTerms: exactly as stated, or null
- warranty: warranty information as stated, or null
- lineItems: array of {item, quantity, unitPrice, totalPrice, specifications}, or null
- terms: object of any additional terms, or null
- summary: 2-3 sentence summary of the proposal

Never invent values for missing fields; use null. Return ONLY a JSON object with exactly these keys.`,
		content, reqJSON, o.now().Format("2006-01-02"))

	start := time.Now()
	raw, err := o.chat.ChatJSON(ctx, "You extract structured proposal data from vendor responses. Return ONLY valid JSON, no additional text.", user)
	if err != nil {
		observability.ObserveOracleCall("parse_proposal", "error", time.Since(start))
		return domain.ProposalData{}, err
	}

	var data domain.ProposalData
	if err := o.decode(raw, &data); err != nil {
		observability.ObserveOracleCall("parse_proposal", "invalid", time.Since(start))
		return domain.ProposalData{}, err
	}
	if data.Currency == "" {
		data.Currency = "USD"
	}
	observability.ObserveOracleCall("parse_proposal", "ok", time.Since(start))
	return data, nil
}

// CompareProposals scores every proposal on price, terms, completeness and
// compliance (0-100 each) and names a recommended vendor. The weighted total
// (price 40%, terms 20%, completeness 25%, compliance 15%) is computed by
// the model and trusted verbatim.
func (o *Oracle) CompareProposals(ctx domain.Context, rfp domain.RFP, proposals []domain.ProposalWithVendor) (domain.ComparisonResult, error) {
	type proposalInput struct {
		VendorID   int64                `json:"vendorId"`
		VendorName string               `json:"vendorName"`
		ProposalID int64                `json:"proposalId"`
		Data       *domain.ProposalData `json:"data"`
		TotalPrice *float64             `json:"totalPrice"`
		LineItems  []domain.LineItem    `json:"lineItems"`
		Terms      map[string]any       `json:"terms"`
	}
	inputs := make([]proposalInput, 0, len(proposals))
	for _, p := range proposals {
		inputs = append(inputs, proposalInput{
			VendorID:   p.Vendor.ID,
			VendorName: p.Vendor.Name,
			ProposalID: p.ID,
			Data:       p.Parsed,
			TotalPrice: p.TotalPrice,
			LineItems:  p.LineItems,
			Terms:      p.Terms,
		})
	}
	rfpJSON, _ := json.Marshal(struct {
		Title        string               `json:"title"`
		Description  string               `json:"description"`
		Budget       *float64             `json:"budget"`
		Deadline     *time.Time           `json:"deadline"`
		Requirements []domain.Requirement `json:"requirements"`
		PaymentTerms *string              `json:"paymentTerms"`
		WarrantyReq  *string              `json:"warrantyReq"`
	}{rfp.Title, rfp.Description, rfp.Budget, rfp.Deadline, rfp.Requirements, rfp.PaymentTerms, rfp.WarrantyReq})
	propJSON, _ := json.Marshal(inputs)

	user := fmt.Sprintf(`Compare the vendor proposals below against the RFP and score each vendor.

RFP:
%s

Proposals:
%s

Score each proposal on a 0-100 scale per dimension:
1. priceScore: lowest price gets 100, others scaled proportionally
2. termsScore: favorable payment and delivery terms
3. completenessScore: how fully the proposal covers the RFP requirements
4. complianceScore: adherence to warranty, delivery and payment requirements

Compute totalScore as a weighted sum (price 40%%, terms 20%%, completeness 25%%, compliance 15%%).

Return ONLY a JSON object:
{"scores":[{"vendorId":number,"vendorName":string,"totalScore":number,"priceScore":number,"termsScore":number,"completenessScore":number,"complianceScore":number}],
"recommendation":{"vendorId":number,"vendorName":string,"reasoning":string},
"summary":string,"detailedComparison":string}`, string(rfpJSON), textx.Truncate(string(propJSON), maxPromptRunes))

	start := time.Now()
	raw, err := o.chat.ChatJSON(ctx, "You are a precise procurement analyst. Evaluate and compare proposals, then return ONLY valid JSON, no markdown, no explanations.", user)
	if err != nil {
		observability.ObserveOracleCall("compare_proposals", "error", time.Since(start))
		return domain.ComparisonResult{}, err
	}

	var res domain.ComparisonResult
	if err := o.decode(raw, &res); err != nil {
		observability.ObserveOracleCall("compare_proposals", "invalid", time.Since(start))
		return domain.ComparisonResult{}, err
	}
	if len(res.Scores) == 0 {
		observability.ObserveOracleCall("compare_proposals", "invalid", time.Since(start))
		return domain.ComparisonResult{}, fmt.Errorf("%w: comparison result has no vendor scores", domain.ErrSchemaInvalid)
	}
	if res.Recommendation.VendorName == "" && res.Recommendation.VendorID == 0 {
		observability.ObserveOracleCall("compare_proposals", "invalid", time.Since(start))
		return domain.ComparisonResult{}, fmt.Errorf("%w: comparison result has no recommendation", domain.ErrSchemaInvalid)
	}
	observability.ObserveOracleCall("compare_proposals", "ok", time.Since(start))
	return res, nil
}

// decode runs JSON recovery then strict unmarshalling into the contract type.
// Recovery exhaustion keeps its ErrAIResponse kind; a type mismatch against
// the schema becomes ErrSchemaInvalid.
func (o *Oracle) decode(content string, dst any) error {
	raw, err := RecoverJSON(content)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSchemaInvalid, err)
	}
	return nil
}
