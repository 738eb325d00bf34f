package fieldwork

import (
	"github.com/smallbiznis/freshwall/internal/fieldwork/repository"
	"github.com/smallbiznis/freshwall/internal/fieldwork/service"
	"go.uber.org/fx"
)

var Module = fx.Module("fieldwork.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
