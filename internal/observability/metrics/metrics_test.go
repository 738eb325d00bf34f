package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("currency", "USD"),
		attribute.String("client_id", "456"),
		attribute.String("billing_method", "time"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "currency" && attrs[1].Key != "currency" {
		t.Fatalf("expected currency to be retained")
	}
	if attrs[0].Key != "billing_method" && attrs[1].Key != "billing_method" {
		t.Fatalf("expected billing_method to be retained")
	}
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "freshwall"}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	m.RecordInvoiceIssued(context.Background(), "usd", 160)
	m.RecordBillingResolved(context.Background(), "time", "client")
	m.RecordTemplateChange(context.Background(), "create")
}
