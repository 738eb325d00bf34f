package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"gorm.io/gorm"
)

func TestClassifyReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: ReasonDeadlineExceeded},
		{name: "db_lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: ReasonDBLockTimeout},
		{name: "serialization_failure", err: &pgconn.PgError{Code: "40001"}, want: ReasonSerializationFailure},
		{name: "unique_violation", err: gorm.ErrDuplicatedKey, want: ReasonUniqueViolation},
		{name: "unsupported_method", err: fmt.Errorf("%w: %q", errors.New("unsupported_billing_method"), "weekly"), want: ReasonUnsupportedMethod},
		{name: "unknown", err: errors.New("boom"), want: ReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestSequenceAllocationCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewInvoiceMetricsWithRegistry(registry)

	metrics.IncSequenceAllocation("sql", nil)
	metrics.IncSequenceAllocation("sql", nil)
	metrics.IncSequenceAllocation("sql", errors.New("contention"))
	metrics.AddSequenceRetries("sql", 3)

	if got := testutil.ToFloat64(metrics.sequenceAllocations.WithLabelValues("sql", OutcomeSuccess)); got != 2 {
		t.Fatalf("expected 2 successful allocations, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.sequenceAllocations.WithLabelValues("sql", OutcomeFailure)); got != 1 {
		t.Fatalf("expected 1 failed allocation, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.sequenceRetries.WithLabelValues("sql")); got != 3 {
		t.Fatalf("expected 3 retries, got %v", got)
	}
}

func TestObserveCompositionHistogram(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewInvoiceMetricsWithRegistry(registry)

	metrics.ObserveComposition(ModeGenerate, 20*time.Millisecond)
	metrics.ObserveComposition(ModeGenerate, 40*time.Millisecond)

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	var histogram *dto.Histogram
	for _, family := range families {
		if family.GetName() != "freshwall_invoice_composition_duration_seconds" {
			continue
		}
		for _, metric := range family.GetMetric() {
			histogram = metric.GetHistogram()
		}
	}
	if histogram == nil {
		t.Fatalf("composition histogram not gathered")
	}
	if histogram.GetSampleCount() != 2 {
		t.Fatalf("expected 2 samples, got %d", histogram.GetSampleCount())
	}
	if got := testutil.ToFloat64(metrics.compositions.WithLabelValues(ModeGenerate)); got != 2 {
		t.Fatalf("expected 2 compositions, got %v", got)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var metrics *InvoiceMetrics
	metrics.ObserveComposition(ModePreview, time.Second)
	metrics.IncLineFailure("")
	metrics.IncRender("pdf", nil)
	metrics.IncBatchClient(errors.New("x"))
}
