package ctxlogger

import (
	"context"
	"testing"

	"github.com/smallbiznis/freshwall/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContextAddsCorrelationAndOperation(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	SetServiceName("freshwall-test")

	ctx := correlation.ContextWithCorrelationID(context.Background(), "cid-1")
	ctx = ContextWithOperation(ctx, "invoice.generate")

	WithContext(ctx, zap.New(core)).Info("hello")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "cid-1", fields["correlation_id"])
		assert.Equal(t, "invoice.generate", fields["operation"])
		assert.Equal(t, "freshwall-test", fields["service"])
		assert.Equal(t, "", fields["trace_id"])
	}
}
