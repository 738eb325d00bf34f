package tracing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsSensitiveKeys(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/invoices"),
		attribute.String("client.email", "ops@example.com"),
		attribute.String("Authorization", "Bearer x"),
	)
	assert.Len(t, attrs, 1)
	assert.Equal(t, attribute.Key("http.route"), attrs[0].Key)
}

func TestSafeErrorHidesMessage(t *testing.T) {
	err := SafeError(errors.New("client ops@example.com missing"))
	assert.NotContains(t, err.Error(), "example.com")
	assert.Nil(t, SafeError(nil))
}
