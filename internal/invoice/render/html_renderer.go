package render

import (
	"bytes"
	"html/template"
	"regexp"
	"strings"
	"time"

	invoicedomain "github.com/smallbiznis/freshwall/internal/invoice/domain"
	invoiceformat "github.com/smallbiznis/freshwall/internal/invoice/format"
	templatedomain "github.com/smallbiznis/freshwall/internal/invoicetemplate/domain"
)

const invoiceHTMLTemplate = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Invoice {{.Number}}</title>
  <style>
    :root {
      --primary: {{.PrimaryColor}};
      --font: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
    }
    * { box-sizing: border-box; }
    body { margin: 0; padding: 40px; font-family: var(--font); color: #1a1f36; background: #f7f9fc; }
    .invoice-card { background: #ffffff; max-width: 860px; margin: 0 auto; padding: 56px; border-radius: 4px; border-top: 6px solid var(--primary); }
    .header { display: flex; justify-content: space-between; margin-bottom: 36px; }
    .header h1 { margin: 0; font-size: 24px; color: var(--primary); }
    .draft { display: inline-block; margin-left: 8px; font-size: 11px; padding: 2px 6px; border: 1px solid #c0392b; color: #c0392b; }
    .company { text-align: right; font-size: 13px; line-height: 1.5; color: #697386; }
    .company strong { color: #1a1f36; font-size: 16px; }
    .meta-grid { display: flex; justify-content: space-between; margin-bottom: 32px; }
    .label { font-size: 11px; text-transform: uppercase; color: #8792a2; margin-bottom: 6px; font-weight: 600; }
    .value { font-size: 14px; line-height: 1.5; }
    table { width: 100%; border-collapse: collapse; margin-bottom: 30px; }
    th { text-align: left; text-transform: uppercase; font-size: 11px; color: #8792a2; border-bottom: 1px solid #e3e8ee; padding: 10px 6px; }
    td { padding: 12px 6px; border-bottom: 1px solid #e3e8ee; font-size: 13px; vertical-align: top; }
    .num { text-align: right; }
    tr.failed td { color: #c0392b; }
    .totals { display: flex; flex-direction: column; align-items: flex-end; }
    .total-row { display: flex; justify-content: space-between; width: 260px; padding: 6px 0; font-size: 14px; }
    .total-final { border-top: 1px solid #e3e8ee; margin-top: 8px; padding-top: 10px; font-weight: 700; font-size: 16px; }
    .footer { margin-top: 48px; font-size: 12px; color: #8792a2; border-top: 1px solid #e3e8ee; padding-top: 20px; }
  </style>
</head>
<body>
  <div class="invoice-card">
    <div class="header">
      <div>
        <h1>Invoice{{if .Draft}}<span class="draft">DRAFT</span>{{end}}</h1>
        <div class="label" style="margin-top: 12px;">Invoice number</div>
        <div class="value">{{.Number}}</div>
      </div>
      {{if .ShowCompany}}
      <div class="company">
        {{if .LogoURL}}<img src="{{.LogoURL}}" style="max-height: 40px;" alt="{{.CompanyName}}"><br>{{end}}
        <strong>{{.CompanyName}}</strong>
        {{if .CompanyAddress}}<br>{{.CompanyAddress}}{{end}}
        {{if .CompanyPhone}}<br>{{.CompanyPhone}}{{end}}
        {{if .CompanyEmail}}<br>{{.CompanyEmail}}{{end}}
      </div>
      {{end}}
    </div>

    <div class="meta-grid">
      <div>
        <div class="label">Bill to</div>
        <div class="value"><strong>{{.ClientName}}</strong>{{if .ClientEmail}}<br>{{.ClientEmail}}{{end}}</div>
      </div>
      <div>
        <div class="label">Service period</div>
        <div class="value">{{formatDate .PeriodFrom}} to {{formatDate .PeriodTo}}</div>
      </div>
      <div>
        <div class="label">Date issued</div>
        <div class="value">{{formatDate .IssuedAt}}</div>
        <div class="label" style="margin-top: 12px;">Date due</div>
        <div class="value">{{formatDate .DueAt}}</div>
        {{if .ShowTerms}}<div class="value" style="color: #697386;">{{.PaymentTerms}}</div>{{end}}
      </div>
    </div>

    <table>
      <thead>
        <tr>{{range .Headers}}<th{{if .Numeric}} class="num"{{end}}>{{.Label}}</th>{{end}}</tr>
      </thead>
      <tbody>
        {{range .Rows}}
        <tr{{if .Failed}} class="failed" title="{{.Message}}"{{end}}>
          {{range $i, $cell := .Cells}}<td{{if (index $.Headers $i).Numeric}} class="num"{{end}}>{{$cell}}</td>{{end}}
        </tr>
        {{end}}
      </tbody>
    </table>

    <div class="totals">
      <div class="total-row"><span>Subtotal</span><span>{{.Subtotal}}</span></div>
      {{if .ShowTax}}<div class="total-row"><span>{{.TaxLabel}}</span><span>{{.TaxAmount}}</span></div>{{end}}
      <div class="total-row total-final"><span>Total</span><span>{{.Total}}</span></div>
    </div>

    {{if or .FooterNotes .ShowThankYou}}
    <div class="footer">
      {{if .FooterNotes}}{{.FooterNotes}}{{end}}
      {{if .ShowThankYou}}<p>Thank you for your business.</p>{{end}}
    </div>
    {{end}}
  </div>
</body>
</html>
`

const defaultPrimaryColor = "#111827"

var hexColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

type HTMLRenderer struct {
	tpl *template.Template
}

func NewRenderer() Renderer {
	funcs := template.FuncMap{
		"formatDate": invoiceformat.FormatDate,
	}
	return &HTMLRenderer{
		tpl: template.Must(template.New("invoice").Funcs(funcs).Parse(invoiceHTMLTemplate)),
	}
}

func (r *HTMLRenderer) RenderHTML(doc *invoicedomain.InvoiceDocument) (string, error) {
	if doc == nil {
		return "", invoicedomain.ErrInvalidRequest
	}

	var buf bytes.Buffer
	if err := r.tpl.Execute(&buf, BuildView(doc)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// BuildView flattens a document into the strings every renderer prints.
func BuildView(doc *invoicedomain.InvoiceDocument) DocumentView {
	tmpl := doc.Template
	companyName := strings.TrimSpace(tmpl.CompanyName)
	if companyName == "" {
		companyName = "Invoice"
	}
	taxLabel := strings.TrimSpace(tmpl.TaxLabel)
	if taxLabel == "" {
		taxLabel = "Tax"
	}

	view := DocumentView{
		Number:          doc.InvoiceNumber,
		Draft:           doc.Draft,
		CompanyName:     companyName,
		CompanyAddress:  tmpl.CompanyAddress,
		CompanyPhone:    tmpl.CompanyPhone,
		CompanyEmail:    tmpl.CompanyEmail,
		LogoURL:         tmpl.LogoURL,
		PrimaryColor:    sanitizeColor(tmpl.PrimaryColor),
		ShowCompany:     tmpl.ShowCompanyDetails,
		ClientName:      doc.Client.Name,
		ClientEmail:     doc.Client.Email,
		IssuedAt:        doc.IssuedAt,
		DueAt:           doc.DueAt,
		PeriodFrom:      doc.Period.From,
		PeriodTo:        lastCoveredDay(doc.Period),
		PaymentTerms:    tmpl.PaymentTerms.Label(),
		ShowTerms:       tmpl.ShowPaymentTerms,
		Subtotal:        invoiceformat.FormatMoney(doc.Subtotal, doc.Currency),
		ShowTax:         tmpl.ShowTax,
		TaxLabel:        taxLabel,
		TaxAmount:       invoiceformat.FormatMoney(doc.TaxAmount, doc.Currency),
		Total:           invoiceformat.FormatMoney(doc.Total, doc.Currency),
		FooterNotes:     tmpl.FooterNotes,
		ShowThankYou:    tmpl.ShowThankYou,
		FailedLineCount: doc.FailedLines,
	}

	for _, column := range doc.Columns {
		view.Headers = append(view.Headers, HeaderView{Label: column.Label, Numeric: isNumeric(column.Type)})
	}
	for _, item := range doc.LineItems {
		row := RowView{Failed: item.Failed()}
		if item.Failure != nil {
			row.Message = item.Failure.Message
		}
		for _, column := range doc.Columns {
			value, _ := item.Value(column.Type)
			row.Cells = append(row.Cells, value)
		}
		view.Rows = append(view.Rows, row)
	}
	return view
}

func isNumeric(column templatedomain.ColumnType) bool {
	switch column {
	case templatedomain.ColumnQuantity, templatedomain.ColumnRate, templatedomain.ColumnAmount,
		templatedomain.ColumnArea, templatedomain.ColumnDuration:
		return true
	default:
		return false
	}
}

func sanitizeColor(value string) string {
	trimmed := strings.TrimSpace(value)
	if hexColorPattern.MatchString(trimmed) {
		return trimmed
	}
	return defaultPrimaryColor
}

// lastCoveredDay turns the exclusive period end into the last instant it covers.
func lastCoveredDay(period invoicedomain.Period) time.Time {
	if period.To.IsZero() || !period.To.After(period.From) {
		return period.To
	}
	return period.To.Add(-time.Nanosecond)
}
