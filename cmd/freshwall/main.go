package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/freshwall/internal/clock"
	"github.com/smallbiznis/freshwall/internal/config"
	"github.com/smallbiznis/freshwall/internal/fieldwork"
	"github.com/smallbiznis/freshwall/internal/invoice"
	"github.com/smallbiznis/freshwall/internal/invoicetemplate"
	"github.com/smallbiznis/freshwall/internal/logger"
	"github.com/smallbiznis/freshwall/internal/migration"
	"github.com/smallbiznis/freshwall/internal/observability"
	"github.com/smallbiznis/freshwall/internal/sequence"
	"github.com/smallbiznis/freshwall/internal/server"
	"github.com/smallbiznis/freshwall/internal/validation"
	"github.com/smallbiznis/freshwall/pkg/db"
	"github.com/smallbiznis/freshwall/pkg/telemetry"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		fx.WithLogger(logger.FxEventLogger),

		// Core Infrastructure
		config.Module,
		logger.Module,
		observability.Module,
		telemetry.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		validation.Module,

		// Functional Domains
		fieldwork.Module,
		sequence.Module,
		invoicetemplate.Module,
		invoice.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
