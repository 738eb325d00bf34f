package pdf

import (
	"context"
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	invoiceformat "github.com/smallbiznis/freshwall/internal/invoice/format"
	"github.com/smallbiznis/freshwall/internal/invoice/render"
)

const gridSize = 12

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateInvoice(ctx context.Context, view render.DocumentView) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(view.Headers) > gridSize {
		return nil, fmt.Errorf("too many invoice columns: %d", len(view.Headers))
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	title := "Invoice"
	if view.Draft {
		title = "Invoice (draft)"
	}
	m.AddRow(12,
		text.NewCol(8, title, props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, view.CompanyName, props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	company := col.New(6)
	if view.ShowCompany {
		company.Add(
			text.New(view.CompanyAddress, props.Text{Size: 9, Align: align.Right}),
			text.New(view.CompanyPhone, props.Text{Size: 9, Top: 4, Align: align.Right}),
			text.New(view.CompanyEmail, props.Text{Size: 9, Top: 8, Align: align.Right}),
		)
	}
	meta := col.New(6).Add(
		text.New("Invoice number: "+view.Number, props.Text{Size: 9}),
		text.New("Date issued: "+invoiceformat.FormatDate(view.IssuedAt), props.Text{Size: 9, Top: 4}),
		text.New("Date due: "+invoiceformat.FormatDate(view.DueAt), props.Text{Size: 9, Top: 8}),
		text.New("Service period: "+invoiceformat.FormatDate(view.PeriodFrom)+" to "+invoiceformat.FormatDate(view.PeriodTo), props.Text{Size: 9, Top: 12}),
	)
	if view.ShowTerms {
		meta.Add(text.New("Terms: "+view.PaymentTerms, props.Text{Size: 9, Top: 16}))
	}
	m.AddRow(24, meta, company)

	m.AddRow(16,
		col.New(12).Add(
			text.New("Bill to", props.Text{Size: 9, Style: fontstyle.Bold}),
			text.New(view.ClientName, props.Text{Size: 9, Top: 5}),
			text.New(view.ClientEmail, props.Text{Size: 9, Top: 9}),
		),
	)

	widths := columnWidths(len(view.Headers))
	header := make([]core.Col, 0, len(view.Headers))
	for i, h := range view.Headers {
		header = append(header, text.NewCol(widths[i], h.Label, props.Text{Style: fontstyle.Bold, Size: 9, Align: cellAlign(h)}))
	}
	if len(header) > 0 {
		m.AddRow(10, header...)
	}

	for _, row := range view.Rows {
		cells := make([]core.Col, 0, len(row.Cells))
		for i, value := range row.Cells {
			style := props.Text{Size: 9, Align: cellAlign(view.Headers[i])}
			if row.Failed {
				style.Style = fontstyle.Italic
			}
			cells = append(cells, text.NewCol(widths[i], value, style))
		}
		if len(cells) > 0 {
			m.AddRow(10, cells...)
		}
	}

	m.AddRow(8,
		col.New(8),
		text.NewCol(2, "Subtotal", props.Text{Size: 9}),
		text.NewCol(2, view.Subtotal, props.Text{Size: 9, Align: align.Right}),
	)
	if view.ShowTax {
		m.AddRow(8,
			col.New(8),
			text.NewCol(2, view.TaxLabel, props.Text{Size: 9}),
			text.NewCol(2, view.TaxAmount, props.Text{Size: 9, Align: align.Right}),
		)
	}
	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Total", props.Text{Style: fontstyle.Bold, Size: 10}),
		text.NewCol(2, view.Total, props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right}),
	)

	if view.FooterNotes != "" {
		m.AddRow(12, text.NewCol(12, view.FooterNotes, props.Text{Size: 8, Top: 4}))
	}
	if view.ShowThankYou {
		m.AddRow(8, text.NewCol(12, "Thank you for your business.", props.Text{Size: 8, Style: fontstyle.Italic}))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

// columnWidths splits the 12-unit grid evenly and gives the remainder to the first column.
func columnWidths(n int) []int {
	if n == 0 {
		return nil
	}
	widths := make([]int, n)
	base := gridSize / n
	for i := range widths {
		widths[i] = base
	}
	widths[0] += gridSize - base*n
	return widths
}

func cellAlign(h render.HeaderView) align.Type {
	if h.Numeric {
		return align.Right
	}
	return align.Left
}
