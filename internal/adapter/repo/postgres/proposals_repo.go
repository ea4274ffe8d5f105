package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/procureflow/procureflow/internal/domain"
)

// ProposalRepo persists proposals, one row per (RFP, vendor).
type ProposalRepo struct{ Pool PgxPool }

// NewProposalRepo constructs a ProposalRepo with the given pool.
func NewProposalRepo(p PgxPool) *ProposalRepo { return &ProposalRepo{Pool: p} }

const proposalColumns = `id, rfp_id, vendor_id, email_subject, email_body, raw_content,
content_hash, parsed_data, total_price, currency, delivery_date, payment_terms,
warranty, line_items, terms, ai_summary, completeness, ai_score, created_at, updated_at`

// UpsertStub records that the RFP went out to a vendor. Re-sending refreshes
// the stored subject without touching any ingested content.
func (r *ProposalRepo) UpsertStub(ctx domain.Context, rfpID, vendorID int64, emailSubject string) error {
	tracer := otel.Tracer("repo.proposals")
	ctx, span := tracer.Start(ctx, "proposals.UpsertStub")
	defer span.End()

	q := `INSERT INTO proposals (rfp_id, vendor_id, email_subject)
VALUES ($1,$2,$3)
ON CONFLICT (rfp_id, vendor_id) DO UPDATE SET email_subject=EXCLUDED.email_subject, updated_at=now()`
	if _, err := r.Pool.Exec(ctx, q, rfpID, vendorID, emailSubject); err != nil {
		return fmt.Errorf("op=proposal.upsert_stub: %w", err)
	}
	return nil
}

// GetByRFPAndVendor loads the single proposal row for one RFP/vendor pair.
func (r *ProposalRepo) GetByRFPAndVendor(ctx domain.Context, rfpID, vendorID int64) (domain.Proposal, error) {
	tracer := otel.Tracer("repo.proposals")
	ctx, span := tracer.Start(ctx, "proposals.GetByRFPAndVendor")
	defer span.End()

	row := r.Pool.QueryRow(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE rfp_id=$1 AND vendor_id=$2`, rfpID, vendorID)
	out, err := scanProposal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Proposal{}, fmt.Errorf("op=proposal.get: %w", domain.ErrNotFound)
		}
		return domain.Proposal{}, fmt.Errorf("op=proposal.get: %w", err)
	}
	return out, nil
}

// ListByRFP returns an RFP's proposals joined with their vendors.
func (r *ProposalRepo) ListByRFP(ctx domain.Context, rfpID int64) ([]domain.ProposalWithVendor, error) {
	tracer := otel.Tracer("repo.proposals")
	ctx, span := tracer.Start(ctx, "proposals.ListByRFP")
	defer span.End()

	q := `SELECT p.id, p.rfp_id, p.vendor_id, p.email_subject, p.email_body, p.raw_content,
p.content_hash, p.parsed_data, p.total_price, p.currency, p.delivery_date, p.payment_terms,
p.warranty, p.line_items, p.terms, p.ai_summary, p.completeness, p.ai_score, p.created_at, p.updated_at,
v.id, v.name, v.email, v.company, v.created_at, v.updated_at
FROM proposals p
JOIN vendors v ON v.id = p.vendor_id
WHERE p.rfp_id = $1
ORDER BY p.created_at`
	rows, err := r.Pool.Query(ctx, q, rfpID)
	if err != nil {
		return nil, fmt.Errorf("op=proposal.list: %w", err)
	}
	defer rows.Close()

	var out []domain.ProposalWithVendor
	for rows.Next() {
		var (
			pv        domain.ProposalWithVendor
			parsedRaw []byte
			itemsRaw  []byte
			termsRaw  []byte
		)
		if err := rows.Scan(
			&pv.ID, &pv.RFPID, &pv.VendorID, &pv.EmailSubject, &pv.EmailBody, &pv.RawContent,
			&pv.ContentHash, &parsedRaw, &pv.TotalPrice, &pv.Currency, &pv.DeliveryDate, &pv.PaymentTerms,
			&pv.Warranty, &itemsRaw, &termsRaw, &pv.AISummary, &pv.Completeness, &pv.AIScore, &pv.CreatedAt, &pv.UpdatedAt,
			&pv.Vendor.ID, &pv.Vendor.Name, &pv.Vendor.Email, &pv.Vendor.Company, &pv.Vendor.CreatedAt, &pv.Vendor.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("op=proposal.list scan: %w", err)
		}
		if err := unpackProposalJSON(&pv.Proposal, parsedRaw, itemsRaw, termsRaw); err != nil {
			return nil, err
		}
		out = append(out, pv)
	}
	return out, rows.Err()
}

// SaveParsed stores a freshly ingested reply over the stub (or creates the
// row when the vendor replied without a recorded send).
func (r *ProposalRepo) SaveParsed(ctx domain.Context, p domain.Proposal) error {
	tracer := otel.Tracer("repo.proposals")
	ctx, span := tracer.Start(ctx, "proposals.SaveParsed")
	defer span.End()

	parsed, err := jsonParam(p.Parsed)
	if err != nil {
		return err
	}
	items, err := jsonParam(p.LineItems)
	if err != nil {
		return err
	}
	terms, err := jsonParam(p.Terms)
	if err != nil {
		return err
	}

	q := `INSERT INTO proposals (rfp_id, vendor_id, email_subject, email_body, raw_content, content_hash,
parsed_data, total_price, currency, delivery_date, payment_terms, warranty, line_items, terms,
ai_summary, completeness)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
ON CONFLICT (rfp_id, vendor_id) DO UPDATE SET
email_subject=EXCLUDED.email_subject, email_body=EXCLUDED.email_body, raw_content=EXCLUDED.raw_content,
content_hash=EXCLUDED.content_hash, parsed_data=EXCLUDED.parsed_data, total_price=EXCLUDED.total_price,
currency=EXCLUDED.currency, delivery_date=EXCLUDED.delivery_date, payment_terms=EXCLUDED.payment_terms,
warranty=EXCLUDED.warranty, line_items=EXCLUDED.line_items, terms=EXCLUDED.terms,
ai_summary=EXCLUDED.ai_summary, completeness=EXCLUDED.completeness, updated_at=now()`
	if _, err := r.Pool.Exec(ctx, q,
		p.RFPID, p.VendorID, p.EmailSubject, p.EmailBody, p.RawContent, p.ContentHash,
		parsed, p.TotalPrice, p.Currency, p.DeliveryDate, p.PaymentTerms, p.Warranty, items, terms,
		p.AISummary, p.Completeness,
	); err != nil {
		return fmt.Errorf("op=proposal.save_parsed: %w", err)
	}
	return nil
}

// SetAIScore writes one vendor's comparison score back onto its proposal.
func (r *ProposalRepo) SetAIScore(ctx domain.Context, rfpID, vendorID int64, score float64) error {
	tracer := otel.Tracer("repo.proposals")
	ctx, span := tracer.Start(ctx, "proposals.SetAIScore")
	defer span.End()

	tag, err := r.Pool.Exec(ctx, `UPDATE proposals SET ai_score=$3 WHERE rfp_id=$1 AND vendor_id=$2`, rfpID, vendorID, score)
	if err != nil {
		return fmt.Errorf("op=proposal.set_score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=proposal.set_score: %w", domain.ErrNotFound)
	}
	return nil
}

func scanProposal(row pgx.Row) (domain.Proposal, error) {
	var (
		out       domain.Proposal
		parsedRaw []byte
		itemsRaw  []byte
		termsRaw  []byte
	)
	if err := row.Scan(
		&out.ID, &out.RFPID, &out.VendorID, &out.EmailSubject, &out.EmailBody, &out.RawContent,
		&out.ContentHash, &parsedRaw, &out.TotalPrice, &out.Currency, &out.DeliveryDate, &out.PaymentTerms,
		&out.Warranty, &itemsRaw, &termsRaw, &out.AISummary, &out.Completeness, &out.AIScore, &out.CreatedAt, &out.UpdatedAt,
	); err != nil {
		return domain.Proposal{}, err
	}
	if err := unpackProposalJSON(&out, parsedRaw, itemsRaw, termsRaw); err != nil {
		return domain.Proposal{}, err
	}
	return out, nil
}

func unpackProposalJSON(p *domain.Proposal, parsedRaw, itemsRaw, termsRaw []byte) error {
	if len(parsedRaw) > 0 {
		var data domain.ProposalData
		if err := jsonScan(parsedRaw, &data); err != nil {
			return err
		}
		p.Parsed = &data
	}
	if err := jsonScan(itemsRaw, &p.LineItems); err != nil {
		return err
	}
	return jsonScan(termsRaw, &p.Terms)
}
