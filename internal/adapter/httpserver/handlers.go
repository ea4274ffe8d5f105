package httpserver

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/procureflow/procureflow/internal/domain"
	"github.com/procureflow/procureflow/internal/usecase"
)

// Server bundles the application services behind HTTP handlers.
type Server struct {
	RFPs        usecase.RFPService
	Vendors     usecase.VendorService
	Dispatch    usecase.DispatchService
	Comparisons usecase.ComparisonService
}

// NewServer constructs a Server.
func NewServer(rfps usecase.RFPService, vendors usecase.VendorService, dispatch usecase.DispatchService, comparisons usecase.ComparisonService) *Server {
	return &Server{RFPs: rfps, Vendors: vendors, Dispatch: dispatch, Comparisons: comparisons}
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", domain.ErrInvalidArgument, name)
	}
	return id, nil
}

// RFPs

type createRFPRequest struct {
	Description string `json:"description" validate:"required"`
}

// CreateRFP drafts a structured RFP from free text.
func (s *Server) CreateRFP(w http.ResponseWriter, r *http.Request) {
	var req createRFPRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	rfp, err := s.RFPs.CreateFromDescription(r.Context(), req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]any{"rfp": toRFPDTO(rfp)})
}

// ListRFPs returns all RFPs.
func (s *Server) ListRFPs(w http.ResponseWriter, r *http.Request) {
	rfps, err := s.RFPs.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"rfps": toRFPDTOs(rfps)})
}

// GetRFP returns one RFP.
func (s *Server) GetRFP(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	rfp, err := s.RFPs.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"rfp": toRFPDTO(rfp)})
}

type updateRFPRequest struct {
	Title         *string              `json:"title" validate:"omitempty,min=1"`
	Description   *string              `json:"description"`
	Budget        *float64             `json:"budget"`
	Deadline      *string              `json:"deadline" validate:"omitempty,datetime=2006-01-02"`
	Requirements  []domain.Requirement `json:"requirements"`
	PaymentTerms  *string              `json:"paymentTerms"`
	WarrantyReq   *string              `json:"warrantyReq"`
	DeliveryTerms *string              `json:"deliveryTerms"`
	Status        *string              `json:"status" validate:"omitempty,oneof=draft sent closed"`
}

// UpdateRFP overlays provided fields onto the stored RFP.
func (s *Server) UpdateRFP(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req updateRFPRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	rfp, err := s.RFPs.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	if req.Title != nil {
		rfp.Title = *req.Title
	}
	if req.Description != nil {
		rfp.Description = *req.Description
	}
	if req.Budget != nil {
		rfp.Budget = req.Budget
	}
	if req.Deadline != nil {
		d, _ := time.Parse("2006-01-02", *req.Deadline)
		rfp.Deadline = &d
	}
	if req.Requirements != nil {
		rfp.Requirements = req.Requirements
	}
	if req.PaymentTerms != nil {
		rfp.PaymentTerms = req.PaymentTerms
	}
	if req.WarrantyReq != nil {
		rfp.WarrantyReq = req.WarrantyReq
	}
	if req.DeliveryTerms != nil {
		rfp.DeliveryTerms = req.DeliveryTerms
	}
	if req.Status != nil {
		rfp.Status = domain.RFPStatus(*req.Status)
	}

	updated, err := s.RFPs.Update(r.Context(), rfp)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"rfp": toRFPDTO(updated)})
}

// DeleteRFP removes one RFP and its proposals.
func (s *Server) DeleteRFP(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.RFPs.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}

// ListRFPProposals returns an RFP's proposals with their vendors.
func (s *Server) ListRFPProposals(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	proposals, err := s.Comparisons.ListProposals(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"proposals": toProposalDTOs(proposals)})
}

// GetComparison returns the (possibly cached) AI comparison for an RFP.
// ?refresh=true forces a recompute.
func (s *Server) GetComparison(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	refresh := r.URL.Query().Get("refresh") == "true"
	res, cached, err := s.Comparisons.Compare(r.Context(), id, refresh)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"cached":     cached,
		"comparison": res,
	})
}

// Vendors

type vendorRequest struct {
	Name    string  `json:"name" validate:"required"`
	Email   string  `json:"email" validate:"required,email"`
	Company *string `json:"company"`
}

// CreateVendor registers a vendor.
func (s *Server) CreateVendor(w http.ResponseWriter, r *http.Request) {
	var req vendorRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	v, err := s.Vendors.Create(r.Context(), domain.Vendor{Name: req.Name, Email: req.Email, Company: req.Company})
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]any{"vendor": toVendorDTO(v)})
}

// ListVendors returns all vendors.
func (s *Server) ListVendors(w http.ResponseWriter, r *http.Request) {
	vendors, err := s.Vendors.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"vendors": toVendorDTOs(vendors)})
}

// GetVendor returns one vendor.
func (s *Server) GetVendor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	v, err := s.Vendors.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"vendor": toVendorDTO(v)})
}

// UpdateVendor rewrites a vendor's fields.
func (s *Server) UpdateVendor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req vendorRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	v, err := s.Vendors.Update(r.Context(), domain.Vendor{ID: id, Name: req.Name, Email: req.Email, Company: req.Company})
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"vendor": toVendorDTO(v)})
}

// DeleteVendor removes a vendor.
func (s *Server) DeleteVendor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.Vendors.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}

// Email

type sendRFPRequest struct {
	VendorIDs []int64 `json:"vendorIds" validate:"required,min=1,dive,gt=0"`
}

// SendRFP emails an RFP to the selected vendors.
func (s *Server) SendRFP(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req sendRFPRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := s.Dispatch.SendRFP(r.Context(), id, req.VendorIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"sentTo": res.SentTo,
		"failed": res.Failed,
	})
}

// VerifyEmail checks outbound mail connectivity.
func (s *Server) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	if err := s.Dispatch.VerifyTransport(r.Context()); err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "connected": false, "error": err.Error()})
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"connected": true})
}
