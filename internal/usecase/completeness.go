// Package usecase contains the application services of the procurement
// system: RFP and vendor management, RFP dispatch, reply ingestion and
// proposal comparison. Services depend only on domain ports.
package usecase

import (
	"math"
	"strings"

	"github.com/procureflow/procureflow/internal/domain"
)

// Completeness scores how fully a parsed proposal answers the RFP on a 0-100
// scale. The weights are fixed: price 20 (10 when there is no total price but
// at least one line item), delivery date 20, payment terms 15, warranty 15,
// requirement coverage 30. An RFP with no requirements grants the coverage
// block in full. Identical inputs always produce the identical score.
func Completeness(data domain.ProposalData, requirements []domain.Requirement) int {
	score := 0.0
	switch {
	case data.TotalPrice != nil:
		score += 20
	case len(data.LineItems) > 0:
		score += 10
	}
	if data.DeliveryDate != nil && *data.DeliveryDate != "" {
		score += 20
	}
	if data.PaymentTerms != nil && *data.PaymentTerms != "" {
		score += 15
	}
	if data.Warranty != nil && *data.Warranty != "" {
		score += 15
	}
	if len(requirements) == 0 {
		score += 30
	} else {
		covered := 0
		for _, req := range requirements {
			if requirementCovered(req, data.LineItems) {
				covered++
			}
		}
		score += float64(covered) / float64(len(requirements)) * 30
	}

	n := int(math.Round(score))
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

// requirementCovered reports whether any line-item name contains the
// requirement's item name, case-insensitive. Containment is one way only:
// a line item "office chair" covers the requirement "chair", but a line
// item "chair" does not cover "ergonomic chair".
func requirementCovered(req domain.Requirement, items []domain.LineItem) bool {
	want := strings.ToLower(strings.TrimSpace(req.Item))
	if want == "" {
		return false
	}
	for _, li := range items {
		have := strings.ToLower(strings.TrimSpace(li.Item))
		if have == "" {
			continue
		}
		if strings.Contains(have, want) {
			return true
		}
	}
	return false
}
