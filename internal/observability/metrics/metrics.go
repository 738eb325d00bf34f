package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level OTLP instruments.
type Metrics struct {
	invoicesIssued   metric.Int64Counter
	invoiceTotal     metric.Float64Histogram
	billingResolved  metric.Int64Counter
	templatesChanged metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "freshwall"
	}
	meter := provider.Meter(name)

	invoicesIssued, err := meter.Int64Counter("freshwall_invoices_issued_total")
	if err != nil {
		return nil, err
	}
	invoiceTotal, err := meter.Float64Histogram("freshwall_invoice_total_amount")
	if err != nil {
		return nil, err
	}
	billingResolved, err := meter.Int64Counter("freshwall_billing_resolved_total")
	if err != nil {
		return nil, err
	}
	templatesChanged, err := meter.Int64Counter("freshwall_invoice_templates_changed_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		invoicesIssued:   invoicesIssued,
		invoiceTotal:     invoiceTotal,
		billingResolved:  billingResolved,
		templatesChanged: templatesChanged,
	}, nil
}

// RecordInvoiceIssued counts an invoice that consumed a sequence number.
func (m *Metrics) RecordInvoiceIssued(ctx context.Context, currency string, total float64) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("currency", strings.ToUpper(strings.TrimSpace(currency))))
	m.invoicesIssued.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.invoiceTotal.Record(ctx, total, metric.WithAttributes(attrs...))
}

// RecordBillingResolved counts standalone resolver calls.
func (m *Metrics) RecordBillingResolved(ctx context.Context, method, source string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("billing_method", strings.TrimSpace(method)),
		attribute.String("source", strings.TrimSpace(source)),
	)
	m.billingResolved.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordTemplateChange counts template writes.
func (m *Metrics) RecordTemplateChange(ctx context.Context, action string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("action", strings.TrimSpace(action)))
	m.templatesChanged.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"currency":       {},
	"billing_method": {},
	"source":         {},
	"action":         {},
	"status_code":    {},
	"reason":         {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
