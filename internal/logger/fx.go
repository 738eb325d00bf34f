package logger

import (
	"context"

	"github.com/smallbiznis/freshwall/internal/config"
	"github.com/smallbiznis/freshwall/pkg/log/ctxlogger"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFromConfig creates a zap logger from Config and replaces globals.
func NewFromConfig(appCfg config.Config) (*zap.Logger, error) {
	log, err := New(appCfg.Logger.Level)
	if err != nil {
		return nil, err
	}
	ctxlogger.SetServiceName(appCfg.AppName)
	return log.With(zap.String("env", appCfg.Environment)), nil
}

// FxEventLogger routes fx lifecycle events through zap.
func FxEventLogger(log *zap.Logger) fxevent.Logger {
	return &fxevent.ZapLogger{Logger: log.Named("fx")}
}

func registerHooks(lc fx.Lifecycle, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			_ = ctx
			_ = log.Sync()
			return nil
		},
	})
}

// Module wires the global zap logger for the application.
var Module = fx.Module("logger",
	fx.Provide(
		NewFromConfig,
	),
	fx.Invoke(registerHooks),
)
