package render

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	billingdomain "github.com/smallbiznis/freshwall/internal/billing/domain"
	invoicedomain "github.com/smallbiznis/freshwall/internal/invoice/domain"
	templatedomain "github.com/smallbiznis/freshwall/internal/invoicetemplate/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() *invoicedomain.InvoiceDocument {
	issued := time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC)
	columns := []templatedomain.LineItemColumn{
		{Type: templatedomain.ColumnDescription, Label: "Description", IsVisible: true},
		{Type: templatedomain.ColumnAmount, Label: "Amount", Order: 1, IsVisible: true},
	}
	return &invoicedomain.InvoiceDocument{
		InvoiceNumber: "20250109-007",
		Client:        billingdomain.Client{Name: "Acme <Holdings>", Email: "ap@acme.test"},
		IssuedAt:      issued,
		DueAt:         issued.AddDate(0, 0, 30),
		Currency:      "USD",
		Template: templatedomain.InvoiceTemplate{
			CompanyName:        "FreshWall",
			PrimaryColor:       "red;}</style><script>",
			PaymentTerms:       templatedomain.TermsNet30,
			ShowTax:            true,
			TaxLabel:           "GST",
			ShowPaymentTerms:   true,
			ShowCompanyDetails: true,
			ShowThankYou:       true,
		},
		Columns: columns,
		LineItems: []invoicedomain.ResolvedLineItem{
			{
				Values: []invoicedomain.ColumnValue{
					{Type: templatedomain.ColumnDescription, Value: "Graffiti removal 12 Main St"},
					{Type: templatedomain.ColumnAmount, Value: "$80.00"},
				},
			},
			{
				Failure: &invoicedomain.LineFailure{Reason: "unsupported_billing_method", Message: "unsupported"},
				Values: []invoicedomain.ColumnValue{
					{Type: templatedomain.ColumnDescription, Value: "Graffiti removal"},
					{Type: templatedomain.ColumnAmount, Value: "-"},
				},
			},
		},
		Subtotal:    decimal.NewFromInt(80),
		TaxAmount:   decimal.NewFromInt(8),
		Total:       decimal.NewFromInt(88),
		FailedLines: 1,
	}
}

func TestRenderHTML_RendersColumnsAndTotals(t *testing.T) {
	html, err := NewRenderer().RenderHTML(sampleDocument())
	require.NoError(t, err)

	assert.Contains(t, html, "20250109-007")
	assert.Contains(t, html, "Graffiti removal 12 Main St")
	assert.Contains(t, html, "$88.00")
	assert.Contains(t, html, "GST")
	assert.Contains(t, html, "Net 30")
	assert.Contains(t, html, `class="failed"`)
	assert.Contains(t, html, "Acme &lt;Holdings&gt;")
	assert.Contains(t, html, "Thank you for your business.")
}

func TestRenderHTML_SanitizesColor(t *testing.T) {
	html, err := NewRenderer().RenderHTML(sampleDocument())
	require.NoError(t, err)

	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "--primary: "+defaultPrimaryColor)
}

func TestRenderHTML_NilDocument(t *testing.T) {
	_, err := NewRenderer().RenderHTML(nil)
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidRequest)
}

func TestBuildView_Defaults(t *testing.T) {
	doc := sampleDocument()
	doc.Template.CompanyName = ""
	doc.Template.TaxLabel = ""
	doc.Template.PrimaryColor = "#0a0"

	view := BuildView(doc)
	assert.Equal(t, "Invoice", view.CompanyName)
	assert.Equal(t, "Tax", view.TaxLabel)
	assert.Equal(t, "#0a0", view.PrimaryColor)
	require.Len(t, view.Headers, 2)
	assert.True(t, view.Headers[1].Numeric)
	require.Len(t, view.Rows, 2)
	assert.True(t, view.Rows[1].Failed)
	assert.Equal(t, []string{"Graffiti removal", "-"}, view.Rows[1].Cells)
}

func TestRenderHTML_PeriodEndsOnLastCoveredDay(t *testing.T) {
	doc := sampleDocument()
	doc.Period = invoicedomain.Period{
		From: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
	}

	view := BuildView(doc)
	assert.Equal(t, time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), view.PeriodTo.Truncate(24*time.Hour))

	html, err := NewRenderer().RenderHTML(doc)
	require.NoError(t, err)
	assert.Contains(t, html, "Mar 1, 2025 to Mar 31, 2025")
	assert.NotContains(t, html, "Apr 1, 2025")
}
