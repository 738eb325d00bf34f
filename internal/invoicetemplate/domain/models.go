package domain

import (
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	invoiceformat "github.com/smallbiznis/freshwall/internal/invoice/format"
	"gorm.io/datatypes"
)

// ColumnType selects the value rendered in a line item column.
type ColumnType string

const (
	ColumnDate        ColumnType = "date"
	ColumnDescription ColumnType = "description"
	ColumnLocation    ColumnType = "location"
	ColumnSurfaceType ColumnType = "surfaceType"
	ColumnArea        ColumnType = "area"
	ColumnQuantity    ColumnType = "quantity"
	ColumnRate        ColumnType = "rate"
	ColumnAmount      ColumnType = "amount"
	ColumnDuration    ColumnType = "duration"
	ColumnStatus      ColumnType = "status"
	ColumnNotes       ColumnType = "notes"
)

var columnTypes = map[ColumnType]struct{}{
	ColumnDate: {}, ColumnDescription: {}, ColumnLocation: {}, ColumnSurfaceType: {},
	ColumnArea: {}, ColumnQuantity: {}, ColumnRate: {}, ColumnAmount: {},
	ColumnDuration: {}, ColumnStatus: {}, ColumnNotes: {},
}

// Valid reports whether the column type is known.
func (c ColumnType) Valid() bool {
	_, ok := columnTypes[c]
	return ok
}

// SortOrder is the direction of a line item sort.
type SortOrder string

const (
	SortAscending  SortOrder = "asc"
	SortDescending SortOrder = "desc"
)

// PaymentTerms controls the invoice due date.
type PaymentTerms string

const (
	TermsDueOnReceipt PaymentTerms = "dueOnReceipt"
	TermsNet15        PaymentTerms = "net15"
	TermsNet30        PaymentTerms = "net30"
	TermsNet45        PaymentTerms = "net45"
	TermsNet60        PaymentTerms = "net60"
)

var termDays = map[PaymentTerms]int{
	TermsDueOnReceipt: 0,
	TermsNet15:        15,
	TermsNet30:        30,
	TermsNet45:        45,
	TermsNet60:        60,
}

// Days returns the number of days until payment is due.
func (p PaymentTerms) Days() (int, bool) {
	days, ok := termDays[p]
	return days, ok
}

// Label is the text printed on the invoice.
func (p PaymentTerms) Label() string {
	switch p {
	case TermsDueOnReceipt:
		return "Due on receipt"
	case TermsNet15:
		return "Net 15"
	case TermsNet30:
		return "Net 30"
	case TermsNet45:
		return "Net 45"
	case TermsNet60:
		return "Net 60"
	default:
		return string(p)
	}
}

// LineItemColumn is one configurable column of the line item table.
type LineItemColumn struct {
	Type      ColumnType `json:"type" validate:"required"`
	Label     string     `json:"label"`
	Order     int        `json:"order"`
	IsVisible bool       `json:"is_visible"`
}

// InvoiceTemplate defines the layout and numbering configuration used to compose invoices.
type InvoiceTemplate struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	IsDefault bool         `gorm:"not null" json:"is_default"`
	Currency  string       `gorm:"type:text;not null" json:"currency"`

	CompanyName    string `gorm:"type:text" json:"company_name"`
	CompanyAddress string `gorm:"type:text" json:"company_address"`
	CompanyPhone   string `gorm:"type:text" json:"company_phone"`
	CompanyEmail   string `gorm:"type:text" json:"company_email"`
	LogoURL        string `gorm:"type:text" json:"logo_url"`
	PrimaryColor   string `gorm:"type:text" json:"primary_color"`

	InvoiceNumberFormat invoiceformat.NumberScheme `gorm:"type:text;not null" json:"invoice_number_format"`
	PaymentTerms        PaymentTerms               `gorm:"type:text;not null" json:"payment_terms"`

	ShowTax  bool            `gorm:"not null" json:"show_tax"`
	TaxRate  decimal.Decimal `gorm:"type:decimal(9,6);not null" json:"tax_rate"`
	TaxLabel string          `gorm:"type:text" json:"tax_label"`

	FallbackRate decimal.NullDecimal `gorm:"type:decimal(18,4)" json:"fallback_rate"`

	DescriptionPrefix string                               `gorm:"type:text" json:"description_prefix"`
	Columns           datatypes.JSONType[[]LineItemColumn] `gorm:"type:json" json:"columns"`
	SortBy            ColumnType                           `gorm:"type:text" json:"sort_by"`
	SortOrder         SortOrder                            `gorm:"type:text" json:"sort_order"`

	FooterNotes        string `gorm:"type:text" json:"footer_notes"`
	ShowPaymentTerms   bool   `gorm:"not null" json:"show_payment_terms"`
	ShowThankYou       bool   `gorm:"not null" json:"show_thank_you"`
	ShowCompanyDetails bool   `gorm:"not null" json:"show_company_details"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (InvoiceTemplate) TableName() string { return "invoice_templates" }

// VisibleColumns returns the visible columns sorted by Order. Equal orders keep
// their configured position.
func (t InvoiceTemplate) VisibleColumns() []LineItemColumn {
	all := t.Columns.Data()
	out := make([]LineItemColumn, 0, len(all))
	for _, c := range all {
		if c.IsVisible {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// DefaultColumns is the column layout used when a template does not define one.
func DefaultColumns() []LineItemColumn {
	return []LineItemColumn{
		{Type: ColumnDate, Label: "Date", Order: 0, IsVisible: true},
		{Type: ColumnDescription, Label: "Description", Order: 1, IsVisible: true},
		{Type: ColumnLocation, Label: "Location", Order: 2, IsVisible: false},
		{Type: ColumnSurfaceType, Label: "Surface", Order: 3, IsVisible: false},
		{Type: ColumnArea, Label: "Area", Order: 4, IsVisible: false},
		{Type: ColumnDuration, Label: "Duration", Order: 5, IsVisible: false},
		{Type: ColumnQuantity, Label: "Qty", Order: 6, IsVisible: true},
		{Type: ColumnRate, Label: "Rate", Order: 7, IsVisible: true},
		{Type: ColumnAmount, Label: "Amount", Order: 8, IsVisible: true},
		{Type: ColumnStatus, Label: "Status", Order: 9, IsVisible: false},
		{Type: ColumnNotes, Label: "Notes", Order: 10, IsVisible: false},
	}
}
