package usecase

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/procureflow/procureflow/internal/domain"
	"github.com/procureflow/procureflow/internal/observability"
)

// ComparisonService computes and caches AI comparisons across an RFP's
// parsed proposals.
type ComparisonService struct {
	rfps      domain.RFPRepository
	proposals domain.ProposalRepository
	oracle    domain.Oracle
	now       func() time.Time
}

// NewComparisonService constructs a ComparisonService.
func NewComparisonService(rfps domain.RFPRepository, proposals domain.ProposalRepository, oracle domain.Oracle) ComparisonService {
	return ComparisonService{rfps: rfps, proposals: proposals, oracle: oracle, now: time.Now}
}

// NewComparisonServiceWithClock constructs a ComparisonService with a fixed clock.
func NewComparisonServiceWithClock(rfps domain.RFPRepository, proposals domain.ProposalRepository, oracle domain.Oracle, now func() time.Time) ComparisonService {
	return ComparisonService{rfps: rfps, proposals: proposals, oracle: oracle, now: now}
}

// Compare returns the comparison for an RFP, serving the cached result when
// it is still valid. The cache is valid when it exists, refresh was not
// requested, no proposal changed after it was computed, and it covers the
// current number of parsed proposals. On recompute, the cache is saved
// before the per-vendor score write-back so a partial failure never leaves
// scores without a matching comparison.
func (s ComparisonService) Compare(ctx domain.Context, rfpID int64, refresh bool) (domain.ComparisonResult, bool, error) {
	rfp, err := s.rfps.Get(ctx, rfpID)
	if err != nil {
		return domain.ComparisonResult{}, false, err
	}

	all, err := s.proposals.ListByRFP(ctx, rfpID)
	if err != nil {
		return domain.ComparisonResult{}, false, fmt.Errorf("op=compare.list: %w", err)
	}
	parsed := make([]domain.ProposalWithVendor, 0, len(all))
	for _, p := range all {
		if p.Parsed != nil {
			parsed = append(parsed, p)
		}
	}
	if len(parsed) < 2 {
		return domain.ComparisonResult{}, false,
			fmt.Errorf("%w: at least 2 parsed proposals are required, have %d", domain.ErrInvalidArgument, len(parsed))
	}

	if s.cacheValid(rfp, parsed, refresh) {
		observability.ComparisonRequestsTotal.WithLabelValues("cached").Inc()
		return *rfp.Comparison, true, nil
	}

	res, err := s.oracle.CompareProposals(ctx, rfp, parsed)
	if err != nil {
		observability.ComparisonRequestsTotal.WithLabelValues("error").Inc()
		return domain.ComparisonResult{}, false, err
	}

	at := s.now()
	if err := s.rfps.SaveComparison(ctx, rfp.ID, res, at); err != nil {
		return domain.ComparisonResult{}, false, fmt.Errorf("op=compare.cache: %w", err)
	}
	for _, score := range res.Scores {
		if err := s.proposals.SetAIScore(ctx, rfp.ID, score.VendorID, score.TotalScore); err != nil {
			slog.Warn("ai score write-back failed",
				slog.Int64("rfp_id", rfp.ID),
				slog.Int64("vendor_id", score.VendorID),
				slog.Any("error", err))
		}
	}

	observability.ComparisonRequestsTotal.WithLabelValues("computed").Inc()
	slog.Info("comparison computed",
		slog.Int64("rfp_id", rfp.ID),
		slog.Int("proposals", len(parsed)),
		slog.String("recommended", res.Recommendation.VendorName))
	return res, false, nil
}

func (s ComparisonService) cacheValid(rfp domain.RFP, parsed []domain.ProposalWithVendor, refresh bool) bool {
	if refresh || rfp.Comparison == nil || rfp.ComparedAt == nil {
		return false
	}
	if len(rfp.Comparison.Scores) != len(parsed) {
		return false
	}
	for _, p := range parsed {
		if p.UpdatedAt.After(*rfp.ComparedAt) {
			return false
		}
	}
	return true
}

// ListProposals returns an RFP's proposals joined with their vendors.
func (s ComparisonService) ListProposals(ctx domain.Context, rfpID int64) ([]domain.ProposalWithVendor, error) {
	if _, err := s.rfps.Get(ctx, rfpID); err != nil {
		return nil, err
	}
	return s.proposals.ListByRFP(ctx, rfpID)
}
