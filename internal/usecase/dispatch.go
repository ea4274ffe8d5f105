package usecase

import (
	"fmt"
	"log/slog"

	"github.com/procureflow/procureflow/internal/domain"
)

// DispatchService sends an RFP to selected vendors over email and records a
// proposal stub per recipient so inbound replies have a row to land on.
type DispatchService struct {
	rfps      domain.RFPRepository
	vendors   domain.VendorRepository
	proposals domain.ProposalRepository
	sender    domain.MailSender
}

// NewDispatchService constructs a DispatchService.
func NewDispatchService(
	rfps domain.RFPRepository,
	vendors domain.VendorRepository,
	proposals domain.ProposalRepository,
	sender domain.MailSender,
) DispatchService {
	return DispatchService{rfps: rfps, vendors: vendors, proposals: proposals, sender: sender}
}

// DispatchResult reports per-vendor delivery outcomes of one send.
type DispatchResult struct {
	SentTo []string `json:"sentTo"`
	Failed []string `json:"failed,omitempty"`
}

// SendRFP delivers the RFP to each vendor in turn. A failure for one vendor
// never aborts the rest. When at least one delivery succeeds the RFP moves
// to status sent.
func (s DispatchService) SendRFP(ctx domain.Context, rfpID int64, vendorIDs []int64) (DispatchResult, error) {
	if len(vendorIDs) == 0 {
		return DispatchResult{}, fmt.Errorf("%w: vendorIds is required", domain.ErrInvalidArgument)
	}
	rfp, err := s.rfps.Get(ctx, rfpID)
	if err != nil {
		return DispatchResult{}, err
	}

	var res DispatchResult
	for _, vid := range vendorIDs {
		vendor, err := s.vendors.Get(ctx, vid)
		if err != nil {
			slog.Warn("skipping unknown vendor", slog.Int64("vendor_id", vid), slog.Any("error", err))
			res.Failed = append(res.Failed, fmt.Sprintf("vendor %d", vid))
			continue
		}
		if err := s.sender.SendRFP(ctx, rfp, vendor); err != nil {
			slog.Error("rfp delivery failed",
				slog.Int64("rfp_id", rfp.ID),
				slog.String("vendor_email", vendor.Email),
				slog.Any("error", err))
			res.Failed = append(res.Failed, vendor.Email)
			continue
		}
		if err := s.proposals.UpsertStub(ctx, rfp.ID, vendor.ID, rfp.SubjectLine()); err != nil {
			return res, fmt.Errorf("op=dispatch.stub: %w", err)
		}
		res.SentTo = append(res.SentTo, vendor.Email)
	}

	if len(res.SentTo) > 0 {
		if err := s.rfps.SetStatus(ctx, rfp.ID, domain.RFPSent); err != nil {
			return res, fmt.Errorf("op=dispatch.status: %w", err)
		}
		slog.Info("rfp dispatched",
			slog.Int64("rfp_id", rfp.ID),
			slog.Int("sent", len(res.SentTo)),
			slog.Int("failed", len(res.Failed)))
	}
	return res, nil
}

// VerifyTransport checks outbound mail connectivity without sending anything.
func (s DispatchService) VerifyTransport(ctx domain.Context) error {
	return s.sender.Verify(ctx)
}
