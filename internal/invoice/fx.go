package invoice

import (
	"github.com/smallbiznis/freshwall/internal/invoice/render"
	"github.com/smallbiznis/freshwall/internal/invoice/service"
	"github.com/smallbiznis/freshwall/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	pdf.Module,
	fx.Provide(render.NewRenderer),
	fx.Provide(service.NewService),
)
