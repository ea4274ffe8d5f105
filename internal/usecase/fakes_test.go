package usecase_test

import (
	"fmt"
	"strings"
	"time"

	"github.com/procureflow/procureflow/internal/domain"
)

// In-memory port implementations shared by the service tests.

type fakeRFPRepo struct {
	rfps    map[int64]domain.RFP
	nextID  int64
	cleared []int64
}

func newFakeRFPRepo() *fakeRFPRepo {
	return &fakeRFPRepo{rfps: map[int64]domain.RFP{}, nextID: 1}
}

func (r *fakeRFPRepo) Create(_ domain.Context, in domain.RFP) (domain.RFP, error) {
	in.ID = r.nextID
	r.nextID++
	in.CreatedAt = time.Now()
	in.UpdatedAt = in.CreatedAt
	r.rfps[in.ID] = in
	return in, nil
}

func (r *fakeRFPRepo) List(_ domain.Context) ([]domain.RFP, error) {
	out := make([]domain.RFP, 0, len(r.rfps))
	for _, v := range r.rfps {
		out = append(out, v)
	}
	return out, nil
}

func (r *fakeRFPRepo) Get(_ domain.Context, id int64) (domain.RFP, error) {
	v, ok := r.rfps[id]
	if !ok {
		return domain.RFP{}, fmt.Errorf("%w: rfp %d", domain.ErrNotFound, id)
	}
	return v, nil
}

func (r *fakeRFPRepo) Update(_ domain.Context, in domain.RFP) (domain.RFP, error) {
	if _, ok := r.rfps[in.ID]; !ok {
		return domain.RFP{}, fmt.Errorf("%w: rfp %d", domain.ErrNotFound, in.ID)
	}
	in.UpdatedAt = time.Now()
	r.rfps[in.ID] = in
	return in, nil
}

func (r *fakeRFPRepo) Delete(_ domain.Context, id int64) error {
	if _, ok := r.rfps[id]; !ok {
		return fmt.Errorf("%w: rfp %d", domain.ErrNotFound, id)
	}
	delete(r.rfps, id)
	return nil
}

func (r *fakeRFPRepo) SetStatus(_ domain.Context, id int64, status domain.RFPStatus) error {
	v, ok := r.rfps[id]
	if !ok {
		return fmt.Errorf("%w: rfp %d", domain.ErrNotFound, id)
	}
	v.Status = status
	r.rfps[id] = v
	return nil
}

func (r *fakeRFPRepo) SaveComparison(_ domain.Context, id int64, res domain.ComparisonResult, at time.Time) error {
	v, ok := r.rfps[id]
	if !ok {
		return fmt.Errorf("%w: rfp %d", domain.ErrNotFound, id)
	}
	v.Comparison = &res
	v.ComparedAt = &at
	r.rfps[id] = v
	return nil
}

func (r *fakeRFPRepo) ClearComparison(_ domain.Context, id int64) error {
	v, ok := r.rfps[id]
	if !ok {
		return fmt.Errorf("%w: rfp %d", domain.ErrNotFound, id)
	}
	v.Comparison = nil
	v.ComparedAt = nil
	r.rfps[id] = v
	r.cleared = append(r.cleared, id)
	return nil
}

type fakeVendorRepo struct {
	vendors map[int64]domain.Vendor
	nextID  int64
}

func newFakeVendorRepo() *fakeVendorRepo {
	return &fakeVendorRepo{vendors: map[int64]domain.Vendor{}, nextID: 1}
}

func (r *fakeVendorRepo) Create(_ domain.Context, in domain.Vendor) (domain.Vendor, error) {
	for _, v := range r.vendors {
		if strings.EqualFold(v.Email, in.Email) {
			return domain.Vendor{}, fmt.Errorf("%w: email taken", domain.ErrConflict)
		}
	}
	in.ID = r.nextID
	r.nextID++
	r.vendors[in.ID] = in
	return in, nil
}

func (r *fakeVendorRepo) List(_ domain.Context) ([]domain.Vendor, error) {
	out := make([]domain.Vendor, 0, len(r.vendors))
	for _, v := range r.vendors {
		out = append(out, v)
	}
	return out, nil
}

func (r *fakeVendorRepo) Get(_ domain.Context, id int64) (domain.Vendor, error) {
	v, ok := r.vendors[id]
	if !ok {
		return domain.Vendor{}, fmt.Errorf("%w: vendor %d", domain.ErrNotFound, id)
	}
	return v, nil
}

func (r *fakeVendorRepo) Update(_ domain.Context, in domain.Vendor) (domain.Vendor, error) {
	if _, ok := r.vendors[in.ID]; !ok {
		return domain.Vendor{}, fmt.Errorf("%w: vendor %d", domain.ErrNotFound, in.ID)
	}
	r.vendors[in.ID] = in
	return in, nil
}

func (r *fakeVendorRepo) Delete(_ domain.Context, id int64) error {
	delete(r.vendors, id)
	return nil
}

func (r *fakeVendorRepo) FindByAddress(_ domain.Context, address string) (domain.Vendor, error) {
	needle := strings.ToLower(address)
	for _, v := range r.vendors {
		if strings.Contains(strings.ToLower(v.Email), needle) {
			return v, nil
		}
	}
	return domain.Vendor{}, fmt.Errorf("%w: no vendor for %s", domain.ErrNotFound, address)
}

type proposalKey struct{ rfpID, vendorID int64 }

type fakeProposalRepo struct {
	rows   map[proposalKey]domain.Proposal
	nextID int64
	scores map[proposalKey]float64
}

func newFakeProposalRepo() *fakeProposalRepo {
	return &fakeProposalRepo{rows: map[proposalKey]domain.Proposal{}, nextID: 1, scores: map[proposalKey]float64{}}
}

func (r *fakeProposalRepo) UpsertStub(_ domain.Context, rfpID, vendorID int64, subject string) error {
	k := proposalKey{rfpID, vendorID}
	if p, ok := r.rows[k]; ok {
		p.EmailSubject = subject
		r.rows[k] = p
		return nil
	}
	r.rows[k] = domain.Proposal{ID: r.nextID, RFPID: rfpID, VendorID: vendorID, EmailSubject: subject}
	r.nextID++
	return nil
}

func (r *fakeProposalRepo) GetByRFPAndVendor(_ domain.Context, rfpID, vendorID int64) (domain.Proposal, error) {
	p, ok := r.rows[proposalKey{rfpID, vendorID}]
	if !ok {
		return domain.Proposal{}, fmt.Errorf("%w: proposal", domain.ErrNotFound)
	}
	return p, nil
}

func (r *fakeProposalRepo) ListByRFP(_ domain.Context, rfpID int64) ([]domain.ProposalWithVendor, error) {
	var out []domain.ProposalWithVendor
	for k, p := range r.rows {
		if k.rfpID == rfpID {
			out = append(out, domain.ProposalWithVendor{
				Proposal: p,
				Vendor:   domain.Vendor{ID: k.vendorID, Name: fmt.Sprintf("vendor-%d", k.vendorID)},
			})
		}
	}
	return out, nil
}

func (r *fakeProposalRepo) SaveParsed(_ domain.Context, p domain.Proposal) error {
	k := proposalKey{p.RFPID, p.VendorID}
	if existing, ok := r.rows[k]; ok {
		p.ID = existing.ID
	} else {
		p.ID = r.nextID
		r.nextID++
	}
	p.UpdatedAt = time.Now()
	r.rows[k] = p
	return nil
}

func (r *fakeProposalRepo) SetAIScore(_ domain.Context, rfpID, vendorID int64, score float64) error {
	k := proposalKey{rfpID, vendorID}
	p, ok := r.rows[k]
	if !ok {
		return fmt.Errorf("%w: proposal", domain.ErrNotFound)
	}
	p.AIScore = &score
	r.rows[k] = p
	r.scores[k] = score
	return nil
}

type fakeOracle struct {
	extract    func(description string) (domain.RFPExtraction, error)
	parse      func(body string, atts []domain.AttachmentText, reqs []domain.Requirement) (domain.ProposalData, error)
	compare    func(rfp domain.RFP, proposals []domain.ProposalWithVendor) (domain.ComparisonResult, error)
	parseCalls int
	compCalls  int
}

func (o *fakeOracle) ExtractRFP(_ domain.Context, description string) (domain.RFPExtraction, error) {
	return o.extract(description)
}

func (o *fakeOracle) ParseProposal(_ domain.Context, body string, atts []domain.AttachmentText, reqs []domain.Requirement) (domain.ProposalData, error) {
	o.parseCalls++
	return o.parse(body, atts, reqs)
}

func (o *fakeOracle) CompareProposals(_ domain.Context, rfp domain.RFP, proposals []domain.ProposalWithVendor) (domain.ComparisonResult, error) {
	o.compCalls++
	return o.compare(rfp, proposals)
}

type fakeMailbox struct {
	messages []domain.InboundMessage
	err      error
	since    time.Time
}

func (m *fakeMailbox) FetchUnseen(_ domain.Context, since time.Time) ([]domain.InboundMessage, error) {
	m.since = since
	return m.messages, m.err
}

type fakeSender struct {
	sent      []string
	failEmail map[string]bool
	verifyErr error
}

func (s *fakeSender) SendRFP(_ domain.Context, _ domain.RFP, vendor domain.Vendor) error {
	if s.failEmail[vendor.Email] {
		return fmt.Errorf("smtp refused")
	}
	s.sent = append(s.sent, vendor.Email)
	return nil
}

func (s *fakeSender) Verify(_ domain.Context) error { return s.verifyErr }

type fakeExtractor struct {
	byName map[string]string
	errOn  map[string]bool
}

func (e *fakeExtractor) Extract(_, filename string, _ []byte) (string, error) {
	if e.errOn[filename] {
		return "", fmt.Errorf("unreadable attachment")
	}
	return e.byName[filename], nil
}
