package pdf

import (
	"context"

	"github.com/smallbiznis/freshwall/internal/invoice/render"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.pdf",
	fx.Provide(New),
)

// Provider lays out an invoice as a PDF document.
type Provider interface {
	GenerateInvoice(ctx context.Context, view render.DocumentView) ([]byte, error)
}
