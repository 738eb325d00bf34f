package logger

import (
	"context"

	obscontext "github.com/smallbiznis/freshwall/internal/observability/context"
	"github.com/smallbiznis/freshwall/pkg/log/ctxlogger"
	"go.uber.org/zap"
)

// FromContext returns the global logger enriched with request, correlation and trace fields.
func FromContext(ctx context.Context) *zap.Logger {
	return WithContext(ctx, zap.L())
}

// WithContext enriches base with request-scoped fields.
func WithContext(ctx context.Context, base *zap.Logger) *zap.Logger {
	if ctx == nil {
		return base
	}
	log := ctxlogger.WithContext(ctx, base)
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		log = log.With(zap.String("request_id", requestID))
	}
	return log
}
