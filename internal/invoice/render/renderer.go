package render

import (
	"time"

	invoicedomain "github.com/smallbiznis/freshwall/internal/invoice/domain"
)

const (
	FormatHTML = "html"
	FormatPDF  = "pdf"
)

// Renderer turns a composed document into HTML.
type Renderer interface {
	RenderHTML(doc *invoicedomain.InvoiceDocument) (string, error)
}

// DocumentView is the flattened, display-ready form of a document.
type DocumentView struct {
	Number         string
	Draft          bool
	CompanyName    string
	CompanyAddress string
	CompanyPhone   string
	CompanyEmail   string
	LogoURL        string
	PrimaryColor   string
	ShowCompany    bool
	ClientName     string
	ClientEmail    string
	IssuedAt       time.Time
	DueAt          time.Time
	PeriodFrom     time.Time
	// PeriodTo is the last covered day; the document period end is exclusive.
	PeriodTo        time.Time
	PaymentTerms    string
	ShowTerms       bool
	Headers         []HeaderView
	Rows            []RowView
	Subtotal        string
	ShowTax         bool
	TaxLabel        string
	TaxAmount       string
	Total           string
	FooterNotes     string
	ShowThankYou    bool
	FailedLineCount int
}

type HeaderView struct {
	Label   string
	Numeric bool
}

type RowView struct {
	Cells   []string
	Failed  bool
	Message string
}
