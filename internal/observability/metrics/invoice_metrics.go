package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	ModePreview  = "preview"
	ModeGenerate = "generate"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

const (
	ReasonDeadlineExceeded     = "deadline_exceeded"
	ReasonDBLockTimeout        = "db_lock_timeout"
	ReasonSerializationFailure = "serialization_failure"
	ReasonUniqueViolation      = "unique_violation"
	ReasonUnsupportedMethod    = "unsupported_billing_method"
	ReasonUnknown              = "unknown"
)

// InvoiceMetrics tracks invoice composition, sequence allocation and rendering.
type InvoiceMetrics struct {
	compositions        *prometheus.CounterVec
	compositionDuration *prometheus.HistogramVec
	lineItems           *prometheus.CounterVec
	lineFailures        *prometheus.CounterVec
	sequenceAllocations *prometheus.CounterVec
	sequenceRetries     *prometheus.CounterVec
	renders             *prometheus.CounterVec
	batchClients        *prometheus.CounterVec
}

var (
	invoiceMetricsOnce sync.Once
	invoiceMetrics     *InvoiceMetrics
)

// Invoice returns the singleton invoice metrics registry.
func Invoice() *InvoiceMetrics {
	return InvoiceWithConfig(Config{})
}

// InvoiceWithConfig returns the singleton invoice metrics registry using config labels.
func InvoiceWithConfig(cfg Config) *InvoiceMetrics {
	invoiceMetricsOnce.Do(func() {
		invoiceMetrics = newInvoiceMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return invoiceMetrics
}

// ResetInvoiceMetricsForTest resets the invoice metrics singleton for tests.
func ResetInvoiceMetricsForTest() {
	invoiceMetricsOnce = sync.Once{}
	invoiceMetrics = nil
}

// NewInvoiceMetricsWithRegistry builds an unshared instance, for tests.
func NewInvoiceMetricsWithRegistry(registerer prometheus.Registerer) *InvoiceMetrics {
	return newInvoiceMetrics(registerer, Config{ServiceName: "freshwall", Environment: "test"})
}

func newInvoiceMetrics(registerer prometheus.Registerer, cfg Config) *InvoiceMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "freshwall"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	compositions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "freshwall_invoice_compositions_total",
		Help:        "Invoice documents composed by mode.",
		ConstLabels: constLabels,
	}, []string{"mode"})
	compositionDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "freshwall_invoice_composition_duration_seconds",
		Help:        "Latency of loading, numbering and composing one invoice.",
		Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		ConstLabels: constLabels,
	}, []string{"mode"})
	lineItems := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "freshwall_invoice_line_items_total",
		Help:        "Resolved invoice line items by billing source.",
		ConstLabels: constLabels,
	}, []string{"source"})
	lineFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "freshwall_invoice_line_failures_total",
		Help:        "Line items that could not be resolved, by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"reason"})
	sequenceAllocations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "freshwall_invoice_sequence_allocations_total",
		Help:        "Invoice sequence allocations by backend and outcome.",
		ConstLabels: constLabels,
	}, []string{"backend", "outcome"})
	sequenceRetries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "freshwall_invoice_sequence_retries_total",
		Help:        "Compare-and-swap retries while allocating invoice sequences.",
		ConstLabels: constLabels,
	}, []string{"backend"})
	renders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "freshwall_invoice_renders_total",
		Help:        "Rendered invoice documents by format and outcome.",
		ConstLabels: constLabels,
	}, []string{"format", "outcome"})
	batchClients := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "freshwall_invoice_batch_clients_total",
		Help:        "Clients processed by batch generation, by outcome.",
		ConstLabels: constLabels,
	}, []string{"outcome"})

	registerer.MustRegister(
		compositions,
		compositionDuration,
		lineItems,
		lineFailures,
		sequenceAllocations,
		sequenceRetries,
		renders,
		batchClients,
	)

	return &InvoiceMetrics{
		compositions:        compositions,
		compositionDuration: compositionDuration,
		lineItems:           lineItems,
		lineFailures:        lineFailures,
		sequenceAllocations: sequenceAllocations,
		sequenceRetries:     sequenceRetries,
		renders:             renders,
		batchClients:        batchClients,
	}
}

// ObserveComposition records one composed invoice.
func (m *InvoiceMetrics) ObserveComposition(mode string, duration time.Duration) {
	if m == nil {
		return
	}
	m.compositions.WithLabelValues(mode).Inc()
	m.compositionDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// IncLineItem counts a resolved line item by its billing source.
func (m *InvoiceMetrics) IncLineItem(source string) {
	if m == nil {
		return
	}
	if source == "" {
		source = "none"
	}
	m.lineItems.WithLabelValues(source).Inc()
}

// IncLineFailure counts a line item excluded from the subtotal.
func (m *InvoiceMetrics) IncLineFailure(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = ReasonUnknown
	}
	m.lineFailures.WithLabelValues(reason).Inc()
}

// IncSequenceAllocation records a sequence allocation attempt.
func (m *InvoiceMetrics) IncSequenceAllocation(backend string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.sequenceAllocations.WithLabelValues(backend, outcome).Inc()
}

// AddSequenceRetries records compare-and-swap conflicts.
func (m *InvoiceMetrics) AddSequenceRetries(backend string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.sequenceRetries.WithLabelValues(backend).Add(float64(count))
}

// IncRender records a rendered document.
func (m *InvoiceMetrics) IncRender(format string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.renders.WithLabelValues(format, outcome).Inc()
}

// IncBatchClient records the outcome of one client in a batch run.
func (m *InvoiceMetrics) IncBatchClient(err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.batchClients.WithLabelValues(outcome).Inc()
}

// ClassifyReason maps errors to low-cardinality metric reasons.
func ClassifyReason(err error) string {
	if err == nil {
		return ReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ReasonDeadlineExceeded
	}
	if isDBLockTimeout(err) {
		return ReasonDBLockTimeout
	}
	if isSerializationFailure(err) {
		return ReasonSerializationFailure
	}
	if isUniqueViolation(err) {
		return ReasonUniqueViolation
	}
	if strings.Contains(err.Error(), ReasonUnsupportedMethod) {
		return ReasonUnsupportedMethod
	}
	return ReasonUnknown
}

func isDBLockTimeout(err error) bool {
	return hasPGCode(err, "55P03")
}

func isSerializationFailure(err error) bool {
	return hasPGCode(err, "40001")
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return hasPGCode(err, "23505")
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}
