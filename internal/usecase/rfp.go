package usecase

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/procureflow/procureflow/internal/domain"
)

// RFPService manages the RFP lifecycle, including AI-backed drafting from
// free text.
type RFPService struct {
	rfps   domain.RFPRepository
	oracle domain.Oracle
}

// NewRFPService constructs an RFPService.
func NewRFPService(rfps domain.RFPRepository, oracle domain.Oracle) RFPService {
	return RFPService{rfps: rfps, oracle: oracle}
}

// CreateFromDescription drafts a structured RFP from a free-text procurement
// request and persists it with status draft. The full original text is kept
// as the description regardless of what the extraction returns.
func (s RFPService) CreateFromDescription(ctx domain.Context, description string) (domain.RFP, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return domain.RFP{}, fmt.Errorf("%w: description is required", domain.ErrInvalidArgument)
	}

	ex, err := s.oracle.ExtractRFP(ctx, description)
	if err != nil {
		return domain.RFP{}, err
	}

	rfp := domain.RFP{
		Title:         ex.Title,
		Description:   description,
		Budget:        ex.Budget,
		Requirements:  ex.Requirements,
		PaymentTerms:  ex.PaymentTerms,
		WarrantyReq:   ex.WarrantyReq,
		DeliveryTerms: ex.DeliveryTerms,
		Status:        domain.RFPDraft,
	}
	if ex.Deadline != nil {
		if d, perr := time.Parse("2006-01-02", *ex.Deadline); perr == nil {
			rfp.Deadline = &d
		} else {
			slog.Warn("discarding unparseable extracted deadline",
				slog.String("deadline", *ex.Deadline), slog.Any("error", perr))
		}
	}

	created, err := s.rfps.Create(ctx, rfp)
	if err != nil {
		return domain.RFP{}, fmt.Errorf("op=rfp.create: %w", err)
	}
	slog.Info("rfp drafted", slog.Int64("rfp_id", created.ID), slog.String("title", created.Title))
	return created, nil
}

// List returns all RFPs, newest first.
func (s RFPService) List(ctx domain.Context) ([]domain.RFP, error) {
	return s.rfps.List(ctx)
}

// Get returns one RFP by ID.
func (s RFPService) Get(ctx domain.Context, id int64) (domain.RFP, error) {
	return s.rfps.Get(ctx, id)
}

// Update applies field changes to an existing RFP. Status transitions are
// restricted to the known lifecycle values.
func (s RFPService) Update(ctx domain.Context, r domain.RFP) (domain.RFP, error) {
	switch r.Status {
	case domain.RFPDraft, domain.RFPSent, domain.RFPClosed:
	default:
		return domain.RFP{}, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidArgument, r.Status)
	}
	if strings.TrimSpace(r.Title) == "" {
		return domain.RFP{}, fmt.Errorf("%w: title is required", domain.ErrInvalidArgument)
	}
	return s.rfps.Update(ctx, r)
}

// Delete removes an RFP and, via cascade, its proposals.
func (s RFPService) Delete(ctx domain.Context, id int64) error {
	return s.rfps.Delete(ctx, id)
}
