// Package compose turns incidents into an invoice document.
//
// Everything in this package is pure and safe for concurrent use. Sequence numbers are
// supplied by the caller.
package compose

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	billingdomain "github.com/smallbiznis/freshwall/internal/billing/domain"
	"github.com/smallbiznis/freshwall/internal/billing/resolver"
	invoicedomain "github.com/smallbiznis/freshwall/internal/invoice/domain"
	invoiceformat "github.com/smallbiznis/freshwall/internal/invoice/format"
	templatedomain "github.com/smallbiznis/freshwall/internal/invoicetemplate/domain"
	"gorm.io/datatypes"
)

const (
	defaultCurrency = "USD"
	placeholder     = "-"

	ReasonUnsupportedMethod = "unsupported_billing_method"
	ReasonUnknown           = "unknown"
)

var defaultColumns = datatypes.NewJSONType(templatedomain.DefaultColumns())

type Request struct {
	Client    billingdomain.Client
	Incidents []billingdomain.Incident
	Period    invoicedomain.Period
	Template  templatedomain.InvoiceTemplate
	Sequence  int64
	IssuedAt  time.Time
	Draft     bool
}

// Compose resolves every incident and builds the invoice document. A resolver failure
// on one incident becomes a failure marker on that line. Only an unusable number
// scheme or sequence fails the whole invoice.
func Compose(req Request) (*invoicedomain.InvoiceDocument, error) {
	if req.Sequence <= 0 {
		return nil, fmt.Errorf("%w: %d", invoicedomain.ErrInvalidSequence, req.Sequence)
	}
	tmpl := req.Template
	number, err := invoiceformat.FormatNumber(tmpl.InvoiceNumberFormat, req.Sequence, req.IssuedAt)
	if err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(tmpl.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	columns := visibleColumns(tmpl)

	items := make([]invoicedomain.ResolvedLineItem, 0, len(req.Incidents))
	subtotal := decimal.Zero
	failed := 0
	for _, incident := range req.Incidents {
		item := composeLine(incident, req.Client, tmpl, columns, currency)
		if item.Failed() {
			failed++
		} else {
			subtotal = subtotal.Add(item.Billing.TotalAmount)
		}
		items = append(items, item)
	}
	SortLineItems(items, tmpl.SortBy, tmpl.SortOrder)

	taxAmount := decimal.Zero
	if tmpl.ShowTax {
		taxAmount = subtotal.Mul(tmpl.TaxRate)
	}

	days, ok := tmpl.PaymentTerms.Days()
	if !ok {
		days = 0
	}

	return &invoicedomain.InvoiceDocument{
		InvoiceNumber: number,
		Sequence:      req.Sequence,
		Draft:         req.Draft,
		Client:        req.Client,
		Period:        req.Period,
		IssuedAt:      req.IssuedAt,
		DueAt:         req.IssuedAt.AddDate(0, 0, days),
		Currency:      currency,
		Template:      tmpl,
		Columns:       columns,
		LineItems:     items,
		Subtotal:      subtotal,
		TaxAmount:     taxAmount,
		Total:         subtotal.Add(taxAmount),
		FailedLines:   failed,
	}, nil
}

func composeLine(
	incident billingdomain.Incident,
	client billingdomain.Client,
	tmpl templatedomain.InvoiceTemplate,
	columns []templatedomain.LineItemColumn,
	currency string,
) invoicedomain.ResolvedLineItem {
	item := invoicedomain.ResolvedLineItem{Incident: incident}

	billing, err := resolver.Resolve(incident, client)
	if err != nil {
		item.Billing = billingdomain.NoBilling()
		item.Failure = &invoicedomain.LineFailure{
			Reason:  failureReason(err),
			Message: err.Error(),
		}
	} else {
		if billing.Source == billingdomain.SourceNone && tmpl.FallbackRate.Valid {
			billing = fallbackBilling(incident, tmpl.FallbackRate.Decimal)
		}
		item.Billing = billing
	}

	item.Values = make([]invoicedomain.ColumnValue, 0, len(columns))
	for _, column := range columns {
		item.Values = append(item.Values, invoicedomain.ColumnValue{
			Type:  column.Type,
			Label: column.Label,
			Value: columnValue(column.Type, item, tmpl.DescriptionPrefix, currency),
		})
	}
	return item
}

// fallbackBilling bills the raw job duration at the template's fallback rate.
func fallbackBilling(incident billingdomain.Incident, rate decimal.Decimal) billingdomain.ResolvedBilling {
	hours := resolver.Hours(incident.Duration())
	name, _ := resolver.MethodName(billingdomain.BillingMethodTime)
	return billingdomain.ResolvedBilling{
		MethodName:  name,
		UnitLabel:   billingdomain.UnitLabelHours,
		Quantity:    hours,
		Rate:        rate,
		TotalAmount: hours.Mul(rate),
		Source:      billingdomain.SourceTemplate,
		RawHours:    &hours,
	}
}

func columnValue(column templatedomain.ColumnType, item invoicedomain.ResolvedLineItem, prefix, currency string) string {
	incident := item.Incident
	billing := item.Billing

	switch column {
	case templatedomain.ColumnDate:
		return invoiceformat.FormatDate(incident.StartTime)
	case templatedomain.ColumnDescription:
		return Describe(prefix, incident)
	case templatedomain.ColumnLocation:
		return orPlaceholder(incident.Address())
	case templatedomain.ColumnSurfaceType:
		return orPlaceholder(deref(incident.SurfaceType))
	case templatedomain.ColumnArea:
		return invoiceformat.FormatQuantity(resolver.BillableArea(incident.Area)) + " " + billingdomain.UnitLabelSqFt
	case templatedomain.ColumnDuration:
		return invoiceformat.FormatDuration(incident.Duration())
	case templatedomain.ColumnStatus:
		return orPlaceholder(incident.Status)
	case templatedomain.ColumnNotes:
		return orPlaceholder(deref(incident.MaterialsUsed))
	}

	if item.Failed() {
		return placeholder
	}
	switch column {
	case templatedomain.ColumnQuantity:
		return invoiceformat.FormatQuantity(billing.Quantity) + " " + billing.UnitLabel
	case templatedomain.ColumnRate:
		return invoiceformat.FormatMoney(billing.Rate, currency)
	case templatedomain.ColumnAmount:
		return invoiceformat.FormatMoney(billing.TotalAmount, currency)
	default:
		return placeholder
	}
}

// Describe builds "<prefix> <location>, <surface>" and drops the separators of
// missing parts.
func Describe(prefix string, incident billingdomain.Incident) string {
	head := strings.TrimSpace(strings.Join(nonEmpty(prefix, incident.Address()), " "))
	surface := strings.TrimSpace(deref(incident.SurfaceType))
	switch {
	case head == "":
		return surface
	case surface == "":
		return head
	default:
		return head + ", " + surface
	}
}

// SortLineItems sorts in place by the given column. Ties, and an empty column, keep
// the input order.
func SortLineItems(items []invoicedomain.ResolvedLineItem, by templatedomain.ColumnType, order templatedomain.SortOrder) {
	if by == "" || !by.Valid() {
		return
	}
	desc := order == templatedomain.SortDescending
	sort.SliceStable(items, func(i, j int) bool {
		c := compareBy(by, items[i], items[j])
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func compareBy(by templatedomain.ColumnType, a, b invoicedomain.ResolvedLineItem) int {
	switch by {
	case templatedomain.ColumnDate:
		return a.Incident.StartTime.Compare(b.Incident.StartTime)
	case templatedomain.ColumnArea:
		return resolver.BillableArea(a.Incident.Area).Cmp(resolver.BillableArea(b.Incident.Area))
	case templatedomain.ColumnDuration:
		return compareDuration(a.Incident.Duration(), b.Incident.Duration())
	case templatedomain.ColumnQuantity:
		return a.Billing.Quantity.Cmp(b.Billing.Quantity)
	case templatedomain.ColumnRate:
		return a.Billing.Rate.Cmp(b.Billing.Rate)
	case templatedomain.ColumnAmount:
		return a.Billing.TotalAmount.Cmp(b.Billing.TotalAmount)
	case templatedomain.ColumnDescription:
		return strings.Compare(strings.ToLower(Describe("", a.Incident)), strings.ToLower(Describe("", b.Incident)))
	case templatedomain.ColumnLocation:
		return strings.Compare(strings.ToLower(a.Incident.Address()), strings.ToLower(b.Incident.Address()))
	case templatedomain.ColumnSurfaceType:
		return strings.Compare(strings.ToLower(deref(a.Incident.SurfaceType)), strings.ToLower(deref(b.Incident.SurfaceType)))
	case templatedomain.ColumnStatus:
		return strings.Compare(strings.ToLower(a.Incident.Status), strings.ToLower(b.Incident.Status))
	case templatedomain.ColumnNotes:
		return strings.Compare(strings.ToLower(deref(a.Incident.MaterialsUsed)), strings.ToLower(deref(b.Incident.MaterialsUsed)))
	default:
		return 0
	}
}

func compareDuration(a, b time.Duration) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func visibleColumns(tmpl templatedomain.InvoiceTemplate) []templatedomain.LineItemColumn {
	if len(tmpl.Columns.Data()) == 0 {
		return templatedomain.InvoiceTemplate{Columns: defaultColumns}.VisibleColumns()
	}
	return tmpl.VisibleColumns()
}

func failureReason(err error) string {
	if errors.Is(err, billingdomain.ErrUnsupportedBillingMethod) {
		return ReasonUnsupportedMethod
	}
	return ReasonUnknown
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func orPlaceholder(value string) string {
	if strings.TrimSpace(value) == "" {
		return placeholder
	}
	return value
}
