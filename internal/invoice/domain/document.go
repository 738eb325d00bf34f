// Package domain contains the composed invoice document and the invoice service contract.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
	billingdomain "github.com/smallbiznis/freshwall/internal/billing/domain"
	fieldworkdomain "github.com/smallbiznis/freshwall/internal/fieldwork/domain"
	templatedomain "github.com/smallbiznis/freshwall/internal/invoicetemplate/domain"
)

// Period is the billed interval; From is inclusive, To exclusive.
type Period = fieldworkdomain.Period

// ColumnValue is the formatted value of one visible column.
type ColumnValue struct {
	Type  templatedomain.ColumnType `json:"type"`
	Label string                    `json:"label"`
	Value string                    `json:"value"`
}

// LineFailure marks a line whose billing could not be resolved. Failed lines are
// listed on the document but never counted in its totals.
type LineFailure struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// ResolvedLineItem pairs an incident with its billing and its formatted columns.
type ResolvedLineItem struct {
	Incident billingdomain.Incident        `json:"incident"`
	Billing  billingdomain.ResolvedBilling `json:"billing"`
	Values   []ColumnValue                 `json:"values"`
	Failure  *LineFailure                  `json:"failure,omitempty"`
}

// Failed reports whether the line carries a failure marker.
func (l ResolvedLineItem) Failed() bool { return l.Failure != nil }

// Value returns the formatted value for a column type.
func (l ResolvedLineItem) Value(column templatedomain.ColumnType) (string, bool) {
	for _, v := range l.Values {
		if v.Type == column {
			return v.Value, true
		}
	}
	return "", false
}

// InvoiceDocument is a composed invoice, ready to be rendered.
type InvoiceDocument struct {
	InvoiceNumber string                          `json:"invoice_number"`
	Sequence      int64                           `json:"sequence"`
	Draft         bool                            `json:"draft"`
	Client        billingdomain.Client            `json:"client"`
	Period        Period                          `json:"period"`
	IssuedAt      time.Time                       `json:"issued_at"`
	DueAt         time.Time                       `json:"due_at"`
	Currency      string                          `json:"currency"`
	Template      templatedomain.InvoiceTemplate  `json:"template"`
	Columns       []templatedomain.LineItemColumn `json:"columns"`
	LineItems     []ResolvedLineItem              `json:"line_items"`
	Subtotal      decimal.Decimal                 `json:"subtotal"`
	TaxAmount     decimal.Decimal                 `json:"tax_amount"`
	Total         decimal.Decimal                 `json:"total"`
	FailedLines   int                             `json:"failed_lines"`
}
