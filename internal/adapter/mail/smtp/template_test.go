package smtp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procureflow/procureflow/internal/domain"
)

func TestRenderRFP_FullFields(t *testing.T) {
	budget := 5000.0
	qty := 20.0
	deadline := time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC)
	terms := "net 30"
	warranty := "1 year minimum"
	delivery := "within 30 days"
	rfp := domain.RFP{
		ID:            7,
		Title:         "Office Chairs",
		Description:   "20 ergonomic office chairs for the new floor.",
		Budget:        &budget,
		Deadline:      &deadline,
		Requirements:  []domain.Requirement{{Item: "ergonomic chairs", Quantity: &qty}},
		PaymentTerms:  &terms,
		WarrantyReq:   &warranty,
		DeliveryTerms: &delivery,
	}
	vendor := domain.Vendor{Name: "Acme", Email: "sales@acme.test"}

	text, html, err := renderRFP(rfp, vendor)
	require.NoError(t, err)

	assert.Contains(t, text, "Dear Acme")
	assert.Contains(t, text, "Office Chairs")
	assert.Contains(t, text, "ergonomic chairs (quantity: 20)")
	assert.Contains(t, text, "Budget: $5000")
	assert.Contains(t, text, "Deadline: April 15, 2025")
	assert.Contains(t, text, "net 30")
	assert.Contains(t, text, "Keep the subject line intact")

	assert.Contains(t, html, "<h2>Office Chairs</h2>")
	assert.Contains(t, html, "ergonomic chairs")
	assert.Contains(t, html, "$5000")
	assert.Contains(t, html, "1 year minimum")
}

func TestRenderRFP_OptionalFieldsOmitted(t *testing.T) {
	rfp := domain.RFP{ID: 3, Title: "Desks", Description: "standing desks"}
	text, html, err := renderRFP(rfp, domain.Vendor{Name: "Globex"})
	require.NoError(t, err)

	assert.NotContains(t, text, "Budget:")
	assert.NotContains(t, text, "Deadline:")
	assert.NotContains(t, text, "Requirements:")
	assert.NotContains(t, html, "<b>Budget</b>")
}

func TestRenderRFP_HTMLEscapesDescription(t *testing.T) {
	rfp := domain.RFP{Title: "Desks", Description: `<script>alert("x")</script>`}
	text, html, err := renderRFP(rfp, domain.Vendor{Name: "Globex"})
	require.NoError(t, err)

	assert.Contains(t, text, "<script>")
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestSubjectLineMatchesInboundConvention(t *testing.T) {
	rfp := domain.RFP{ID: 42, Title: "Laptops"}
	assert.Equal(t, "RFP: Laptops - 42", rfp.SubjectLine())
}
