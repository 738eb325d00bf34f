package compose

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	billingdomain "github.com/smallbiznis/freshwall/internal/billing/domain"
	invoicedomain "github.com/smallbiznis/freshwall/internal/invoice/domain"
	invoiceformat "github.com/smallbiznis/freshwall/internal/invoice/format"
	templatedomain "github.com/smallbiznis/freshwall/internal/invoicetemplate/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

var jobDay = time.Date(2025, 1, 9, 9, 0, 0, 0, time.UTC)

func testTemplate() templatedomain.InvoiceTemplate {
	return templatedomain.InvoiceTemplate{
		Name:                "Default",
		Currency:            "USD",
		InvoiceNumberFormat: invoiceformat.SchemeDateSequential,
		PaymentTerms:        templatedomain.TermsNet30,
		DescriptionPrefix:   "Graffiti removal",
		Columns:             datatypes.NewJSONType(templatedomain.DefaultColumns()),
	}
}

func timeConfig(minimum, rate int64, roundingMinutes int) *billingdomain.BillingConfiguration {
	cfg := &billingdomain.BillingConfiguration{
		BillingMethod:           billingdomain.BillingMethodTime,
		MinimumBillableQuantity: decimal.NewFromInt(minimum),
		AmountPerUnit:           decimal.NewFromInt(rate),
	}
	if roundingMinutes > 0 {
		cfg.TimeRounding = &billingdomain.TimeRounding{IncrementMinutes: roundingMinutes}
	}
	return cfg
}

func job(minutes int) billingdomain.Incident {
	return billingdomain.Incident{
		StartTime: jobDay,
		EndTime:   jobDay.Add(time.Duration(minutes) * time.Minute),
		Status:    "completed",
	}
}

func strPtr(v string) *string { return &v }

func TestCompose_TimeBillingWithRounding(t *testing.T) {
	client := billingdomain.Client{Name: "Acme", Defaults: timeConfig(1, 80, 30)}

	doc, err := Compose(Request{
		Client:    client,
		Incidents: []billingdomain.Incident{job(42), job(95)},
		Template:  testTemplate(),
		Sequence:  7,
		IssuedAt:  jobDay,
	})
	require.NoError(t, err)
	require.Len(t, doc.LineItems, 2)

	first := doc.LineItems[0].Billing
	assert.True(t, first.Quantity.Equal(decimal.NewFromInt(1)))
	assert.True(t, first.TotalAmount.Equal(decimal.NewFromInt(80)))
	assert.True(t, first.IsMinimumApplied)
	assert.Equal(t, billingdomain.SourceClient, first.Source)

	second := doc.LineItems[1].Billing
	assert.True(t, second.Quantity.Equal(decimal.NewFromInt(2)))
	assert.True(t, second.TotalAmount.Equal(decimal.NewFromInt(160)))
	assert.False(t, second.IsMinimumApplied)

	assert.Equal(t, "20250109-007", doc.InvoiceNumber)
	assert.Equal(t, "240.00", doc.Subtotal.StringFixed(2))
	assert.True(t, doc.TaxAmount.IsZero())
	assert.True(t, doc.Total.Equal(doc.Subtotal))
	assert.Equal(t, jobDay.AddDate(0, 0, 30), doc.DueAt)
	assert.Equal(t, "USD", doc.Currency)
}

func TestCompose_EmptyIncidents(t *testing.T) {
	doc, err := Compose(Request{
		Client:   billingdomain.Client{Name: "Acme"},
		Template: testTemplate(),
		Sequence: 1,
		IssuedAt: jobDay,
	})
	require.NoError(t, err)
	assert.Empty(t, doc.LineItems)
	assert.True(t, doc.Subtotal.IsZero())
	assert.True(t, doc.TaxAmount.IsZero())
	assert.True(t, doc.Total.IsZero())
	assert.Equal(t, "20250109-001", doc.InvoiceNumber)
}

func TestCompose_AppliesTax(t *testing.T) {
	tmpl := testTemplate()
	tmpl.ShowTax = true
	tmpl.TaxRate = decimal.RequireFromString("0.1")

	doc, err := Compose(Request{
		Client:    billingdomain.Client{Name: "Acme", Defaults: timeConfig(1, 80, 30)},
		Incidents: []billingdomain.Incident{job(95)},
		Template:  tmpl,
		Sequence:  1,
		IssuedAt:  jobDay,
	})
	require.NoError(t, err)
	assert.Equal(t, "160.00", doc.Subtotal.StringFixed(2))
	assert.Equal(t, "16.00", doc.TaxAmount.StringFixed(2))
	assert.Equal(t, "176.00", doc.Total.StringFixed(2))
}

func TestCompose_FailedLineDoesNotAbort(t *testing.T) {
	broken := job(60)
	broken.Billing = &billingdomain.BillingConfiguration{BillingMethod: "perVisit"}

	doc, err := Compose(Request{
		Client:    billingdomain.Client{Name: "Acme", Defaults: timeConfig(1, 80, 0)},
		Incidents: []billingdomain.Incident{job(60), broken},
		Template:  testTemplate(),
		Sequence:  2,
		IssuedAt:  jobDay,
	})
	require.NoError(t, err)
	require.Len(t, doc.LineItems, 2)

	assert.False(t, doc.LineItems[0].Failed())
	require.True(t, doc.LineItems[1].Failed())
	assert.Equal(t, ReasonUnsupportedMethod, doc.LineItems[1].Failure.Reason)
	assert.Equal(t, 1, doc.FailedLines)
	assert.Equal(t, "80.00", doc.Subtotal.StringFixed(2))

	amount, ok := doc.LineItems[1].Value(templatedomain.ColumnAmount)
	require.True(t, ok)
	assert.Equal(t, "-", amount)
}

func TestCompose_FallbackRate(t *testing.T) {
	tmpl := testTemplate()
	tmpl.FallbackRate = decimal.NewNullDecimal(decimal.NewFromInt(80))

	doc, err := Compose(Request{
		Client:    billingdomain.Client{Name: "Unconfigured"},
		Incidents: []billingdomain.Incident{job(90)},
		Template:  tmpl,
		Sequence:  1,
		IssuedAt:  jobDay,
	})
	require.NoError(t, err)

	billing := doc.LineItems[0].Billing
	assert.Equal(t, billingdomain.SourceTemplate, billing.Source)
	assert.Equal(t, "1.5", billing.Quantity.String())
	assert.True(t, billing.TotalAmount.Equal(billing.Quantity.Mul(billing.Rate)))
	assert.Equal(t, "120.00", doc.Total.StringFixed(2))
}

func TestCompose_NoConfigurationWithoutFallback(t *testing.T) {
	doc, err := Compose(Request{
		Client:    billingdomain.Client{Name: "Unconfigured"},
		Incidents: []billingdomain.Incident{job(90)},
		Template:  testTemplate(),
		Sequence:  1,
		IssuedAt:  jobDay,
	})
	require.NoError(t, err)
	assert.Equal(t, billingdomain.SourceNone, doc.LineItems[0].Billing.Source)
	assert.True(t, doc.Total.IsZero())
}

func TestCompose_ColumnValues(t *testing.T) {
	incident := job(95)
	incident.SurfaceType = strPtr("Brick")
	incident.EnhancedLocation = &billingdomain.Location{Address: "12 Main St"}
	incident.Area = 40

	tmpl := testTemplate()
	tmpl.Columns = datatypes.NewJSONType([]templatedomain.LineItemColumn{
		{Type: templatedomain.ColumnAmount, Label: "Amount", Order: 3, IsVisible: true},
		{Type: templatedomain.ColumnDescription, Label: "Description", Order: 1, IsVisible: true},
		{Type: templatedomain.ColumnDuration, Label: "Duration", Order: 2, IsVisible: true},
		{Type: templatedomain.ColumnNotes, Label: "Notes", Order: 4, IsVisible: false},
	})

	doc, err := Compose(Request{
		Client:    billingdomain.Client{Name: "Acme", Defaults: timeConfig(1, 80, 30)},
		Incidents: []billingdomain.Incident{incident},
		Template:  tmpl,
		Sequence:  1,
		IssuedAt:  jobDay,
	})
	require.NoError(t, err)

	values := doc.LineItems[0].Values
	require.Len(t, values, 3)
	assert.Equal(t, invoicedomain.ColumnValue{Type: templatedomain.ColumnDescription, Label: "Description", Value: "Graffiti removal 12 Main St, Brick"}, values[0])
	assert.Equal(t, "1h 35m", values[1].Value)
	assert.Equal(t, "$160.00", values[2].Value)
}

func TestDescribe_Degrades(t *testing.T) {
	located := billingdomain.Incident{EnhancedLocation: &billingdomain.Location{Address: "12 Main St"}}
	surfaced := billingdomain.Incident{SurfaceType: strPtr("Brick")}

	assert.Equal(t, "Removal 12 Main St", Describe("Removal", located))
	assert.Equal(t, "Removal, Brick", Describe("Removal", surfaced))
	assert.Equal(t, "Brick", Describe("", surfaced))
	assert.Equal(t, "Removal", Describe(" Removal ", billingdomain.Incident{}))
	assert.Equal(t, "", Describe("", billingdomain.Incident{}))
}

func TestCompose_StableSort(t *testing.T) {
	short := job(30)
	short.Status = "first"
	tie := job(30)
	tie.Status = "second"
	long := job(120)
	long.Status = "third"

	tmpl := testTemplate()
	tmpl.SortBy = templatedomain.ColumnAmount
	tmpl.SortOrder = templatedomain.SortDescending

	doc, err := Compose(Request{
		Client:    billingdomain.Client{Name: "Acme", Defaults: timeConfig(0, 80, 0)},
		Incidents: []billingdomain.Incident{short, long, tie},
		Template:  tmpl,
		Sequence:  1,
		IssuedAt:  jobDay,
	})
	require.NoError(t, err)

	var order []string
	for _, item := range doc.LineItems {
		order = append(order, item.Incident.Status)
	}
	assert.Equal(t, []string{"third", "first", "second"}, order)
}

func TestCompose_KeepsInputOrderWithoutSort(t *testing.T) {
	later := job(30)
	later.StartTime = jobDay.Add(48 * time.Hour)
	later.EndTime = later.StartTime.Add(30 * time.Minute)
	later.Status = "later"
	earlier := job(30)
	earlier.Status = "earlier"

	doc, err := Compose(Request{
		Client:    billingdomain.Client{Name: "Acme"},
		Incidents: []billingdomain.Incident{later, earlier},
		Template:  testTemplate(),
		Sequence:  1,
		IssuedAt:  jobDay,
	})
	require.NoError(t, err)
	assert.Equal(t, "later", doc.LineItems[0].Incident.Status)
	assert.Equal(t, "earlier", doc.LineItems[1].Incident.Status)
}

func TestCompose_Errors(t *testing.T) {
	_, err := Compose(Request{Template: testTemplate(), Sequence: 0, IssuedAt: jobDay})
	assert.True(t, errors.Is(err, invoicedomain.ErrInvalidSequence))

	tmpl := testTemplate()
	tmpl.InvoiceNumberFormat = "weekly"
	_, err = Compose(Request{Template: tmpl, Sequence: 1, IssuedAt: jobDay})
	assert.True(t, errors.Is(err, invoiceformat.ErrUnknownNumberScheme))
}

func TestCompose_Deterministic(t *testing.T) {
	req := Request{
		Client:    billingdomain.Client{Name: "Acme", Defaults: timeConfig(1, 80, 15)},
		Incidents: []billingdomain.Incident{job(42), job(95), job(7)},
		Template:  testTemplate(),
		Sequence:  3,
		IssuedAt:  jobDay,
	}
	first, err := Compose(req)
	require.NoError(t, err)
	second, err := Compose(req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCompose_AreaColumnMatchesClampedBilling(t *testing.T) {
	incident := job(30)
	incident.Area = -5

	tmpl := testTemplate()
	tmpl.Columns = datatypes.NewJSONType([]templatedomain.LineItemColumn{
		{Type: templatedomain.ColumnArea, Label: "Area", Order: 1, IsVisible: true},
		{Type: templatedomain.ColumnAmount, Label: "Amount", Order: 2, IsVisible: true},
	})

	doc, err := Compose(Request{
		Client: billingdomain.Client{Name: "Acme", Defaults: &billingdomain.BillingConfiguration{
			BillingMethod: billingdomain.BillingMethodSquareFootage,
			AmountPerUnit: decimal.NewFromInt(2),
		}},
		Incidents: []billingdomain.Incident{incident},
		Template:  tmpl,
		Sequence:  1,
		IssuedAt:  jobDay,
	})
	require.NoError(t, err)

	values := doc.LineItems[0].Values
	require.Len(t, values, 2)
	assert.Equal(t, "0 sq ft", values[0].Value)
	assert.Equal(t, "$0.00", values[1].Value)
}
