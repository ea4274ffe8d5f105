package httpserver

import (
	"time"

	"github.com/procureflow/procureflow/internal/domain"
)

// Wire shapes. Domain entities stay tag-free; the API owns its JSON.

type rfpDTO struct {
	ID            int64                    `json:"id"`
	Title         string                   `json:"title"`
	Description   string                   `json:"description"`
	Budget        *float64                 `json:"budget"`
	Deadline      *string                  `json:"deadline"`
	Requirements  []domain.Requirement     `json:"requirements"`
	PaymentTerms  *string                  `json:"paymentTerms"`
	WarrantyReq   *string                  `json:"warrantyReq"`
	DeliveryTerms *string                  `json:"deliveryTerms"`
	Status        domain.RFPStatus         `json:"status"`
	Comparison    *domain.ComparisonResult `json:"comparison,omitempty"`
	ComparedAt    *time.Time               `json:"comparedAt,omitempty"`
	CreatedAt     time.Time                `json:"createdAt"`
	UpdatedAt     time.Time                `json:"updatedAt"`
}

func toRFPDTO(r domain.RFP) rfpDTO {
	dto := rfpDTO{
		ID:            r.ID,
		Title:         r.Title,
		Description:   r.Description,
		Budget:        r.Budget,
		Requirements:  r.Requirements,
		PaymentTerms:  r.PaymentTerms,
		WarrantyReq:   r.WarrantyReq,
		DeliveryTerms: r.DeliveryTerms,
		Status:        r.Status,
		Comparison:    r.Comparison,
		ComparedAt:    r.ComparedAt,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.Deadline != nil {
		d := r.Deadline.Format("2006-01-02")
		dto.Deadline = &d
	}
	return dto
}

func toRFPDTOs(rs []domain.RFP) []rfpDTO {
	out := make([]rfpDTO, 0, len(rs))
	for _, r := range rs {
		out = append(out, toRFPDTO(r))
	}
	return out
}

type vendorDTO struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Company   *string   `json:"company"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toVendorDTO(v domain.Vendor) vendorDTO {
	return vendorDTO{
		ID:        v.ID,
		Name:      v.Name,
		Email:     v.Email,
		Company:   v.Company,
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
}

func toVendorDTOs(vs []domain.Vendor) []vendorDTO {
	out := make([]vendorDTO, 0, len(vs))
	for _, v := range vs {
		out = append(out, toVendorDTO(v))
	}
	return out
}

type proposalDTO struct {
	ID           int64                `json:"id"`
	RFPID        int64                `json:"rfpId"`
	VendorID     int64                `json:"vendorId"`
	Vendor       vendorDTO            `json:"vendor"`
	EmailSubject string               `json:"emailSubject"`
	TotalPrice   *float64             `json:"totalPrice"`
	Currency     string               `json:"currency"`
	DeliveryDate *string              `json:"deliveryDate"`
	PaymentTerms *string              `json:"paymentTerms"`
	Warranty     *string              `json:"warranty"`
	LineItems    []domain.LineItem    `json:"lineItems,omitempty"`
	Terms        map[string]any       `json:"terms,omitempty"`
	Parsed       *domain.ProposalData `json:"parsedData,omitempty"`
	AISummary    string               `json:"aiSummary"`
	Completeness int                  `json:"completeness"`
	AIScore      *float64             `json:"aiScore"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

func toProposalDTO(p domain.ProposalWithVendor) proposalDTO {
	dto := proposalDTO{
		ID:           p.ID,
		RFPID:        p.RFPID,
		VendorID:     p.VendorID,
		Vendor:       toVendorDTO(p.Vendor),
		EmailSubject: p.EmailSubject,
		TotalPrice:   p.TotalPrice,
		Currency:     p.Currency,
		PaymentTerms: p.PaymentTerms,
		Warranty:     p.Warranty,
		LineItems:    p.LineItems,
		Terms:        p.Terms,
		Parsed:       p.Parsed,
		AISummary:    p.AISummary,
		Completeness: p.Completeness,
		AIScore:      p.AIScore,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if p.DeliveryDate != nil {
		d := p.DeliveryDate.Format("2006-01-02")
		dto.DeliveryDate = &d
	}
	return dto
}

func toProposalDTOs(ps []domain.ProposalWithVendor) []proposalDTO {
	out := make([]proposalDTO, 0, len(ps))
	for _, p := range ps {
		out = append(out, toProposalDTO(p))
	}
	return out
}
