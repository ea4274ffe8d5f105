package smtp

import (
	htmltemplate "html/template"
	"strconv"
	"strings"
	texttemplate "text/template"

	"github.com/procureflow/procureflow/internal/domain"
)

// rfpView flattens an RFP for the templates; optional fields become
// display-ready strings so the templates stay free of pointer logic.
type rfpView struct {
	VendorName    string
	Title         string
	Description   string
	Budget        string
	Deadline      string
	Requirements  []reqView
	PaymentTerms  string
	WarrantyReq   string
	DeliveryTerms string
}

type reqView struct {
	Item     string
	Quantity string
}

func newRFPView(rfp domain.RFP, vendor domain.Vendor) rfpView {
	v := rfpView{
		VendorName:  vendor.Name,
		Title:       rfp.Title,
		Description: rfp.Description,
	}
	if rfp.Budget != nil {
		v.Budget = formatAmount(*rfp.Budget)
	}
	if rfp.Deadline != nil {
		v.Deadline = rfp.Deadline.Format("January 2, 2006")
	}
	if rfp.PaymentTerms != nil {
		v.PaymentTerms = *rfp.PaymentTerms
	}
	if rfp.WarrantyReq != nil {
		v.WarrantyReq = *rfp.WarrantyReq
	}
	if rfp.DeliveryTerms != nil {
		v.DeliveryTerms = *rfp.DeliveryTerms
	}
	for _, r := range rfp.Requirements {
		rv := reqView{Item: r.Item}
		if r.Quantity != nil {
			rv.Quantity = formatAmount(*r.Quantity)
		}
		v.Requirements = append(v.Requirements, rv)
	}
	return v
}

func formatAmount(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

var textTmpl = texttemplate.Must(texttemplate.New("rfp").Parse(`Dear {{.VendorName}},

We invite you to submit a proposal for the following procurement request.

{{.Title}}

{{.Description}}
{{if .Requirements}}
Requirements:
{{- range .Requirements}}
- {{.Item}}{{if .Quantity}} (quantity: {{.Quantity}}){{end}}
{{- end}}
{{end}}{{if .Budget}}Budget: ${{.Budget}}
{{end}}{{if .Deadline}}Deadline: {{.Deadline}}
{{end}}{{if .PaymentTerms}}Payment terms: {{.PaymentTerms}}
{{end}}{{if .WarrantyReq}}Warranty requirement: {{.WarrantyReq}}
{{end}}{{if .DeliveryTerms}}Delivery terms: {{.DeliveryTerms}}
{{end}}
Please reply to this email with your proposal. Keep the subject line intact
so your response is routed correctly. You may attach supporting documents
(PDF, Word, or plain text).

Best regards,
Procurement Team
`))

var htmlTmpl = htmltemplate.Must(htmltemplate.New("rfp").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
<p>Dear {{.VendorName}},</p>
<p>We invite you to submit a proposal for the following procurement request.</p>
<h2>{{.Title}}</h2>
<p>{{.Description}}</p>
{{if .Requirements}}<h3>Requirements</h3>
<ul>
{{- range .Requirements}}
<li>{{.Item}}{{if .Quantity}} (quantity: {{.Quantity}}){{end}}</li>
{{- end}}
</ul>{{end}}
<table cellpadding="4">
{{if .Budget}}<tr><td><b>Budget</b></td><td>${{.Budget}}</td></tr>{{end}}
{{if .Deadline}}<tr><td><b>Deadline</b></td><td>{{.Deadline}}</td></tr>{{end}}
{{if .PaymentTerms}}<tr><td><b>Payment terms</b></td><td>{{.PaymentTerms}}</td></tr>{{end}}
{{if .WarrantyReq}}<tr><td><b>Warranty</b></td><td>{{.WarrantyReq}}</td></tr>{{end}}
{{if .DeliveryTerms}}<tr><td><b>Delivery terms</b></td><td>{{.DeliveryTerms}}</td></tr>{{end}}
</table>
<p>Please reply to this email with your proposal. Keep the subject line intact
so your response is routed correctly. You may attach supporting documents
(PDF, Word, or plain text).</p>
<p>Best regards,<br>Procurement Team</p>
</body>
</html>
`))

// renderRFP produces the text and HTML bodies for one vendor invitation.
func renderRFP(rfp domain.RFP, vendor domain.Vendor) (string, string, error) {
	view := newRFPView(rfp, vendor)
	var text, html strings.Builder
	if err := textTmpl.Execute(&text, view); err != nil {
		return "", "", err
	}
	if err := htmlTmpl.Execute(&html, view); err != nil {
		return "", "", err
	}
	return text.String(), html.String(), nil
}
