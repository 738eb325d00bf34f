package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"
	billingdomain "github.com/smallbiznis/freshwall/internal/billing/domain"
	"github.com/smallbiznis/freshwall/internal/billing/resolver"
	"github.com/smallbiznis/freshwall/internal/clock"
	"github.com/smallbiznis/freshwall/internal/config"
	fieldworkdomain "github.com/smallbiznis/freshwall/internal/fieldwork/domain"
	"github.com/smallbiznis/freshwall/internal/invoice/compose"
	invoicedomain "github.com/smallbiznis/freshwall/internal/invoice/domain"
	"github.com/smallbiznis/freshwall/internal/invoice/render"
	templatedomain "github.com/smallbiznis/freshwall/internal/invoicetemplate/domain"
	"github.com/smallbiznis/freshwall/internal/observability/metrics"
	"github.com/smallbiznis/freshwall/internal/observability/tracing"
	"github.com/smallbiznis/freshwall/internal/providers/pdf"
	sequencedomain "github.com/smallbiznis/freshwall/internal/sequence/domain"
	"github.com/smallbiznis/freshwall/pkg/log/ctxlogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultBatchConcurrency = 4

type ServiceParam struct {
	fx.In

	Cfg            config.Config
	Log            *zap.Logger
	Clock          clock.Clock
	Fieldwork      fieldworkdomain.Service
	Templates      templatedomain.Service
	Sequences      sequencedomain.Allocator
	Renderer       render.Renderer
	PDF            pdf.Provider
	Validator      *validator.Validate
	InvoiceMetrics *metrics.InvoiceMetrics
	Metrics        *metrics.Metrics `optional:"true"`
}

type Service struct {
	log *zap.Logger

	clock          clock.Clock
	fieldwork      fieldworkdomain.Service
	templates      templatedomain.Service
	sequences      sequencedomain.Allocator
	renderer       render.Renderer
	pdf            pdf.Provider
	validate       *validator.Validate
	invoiceMetrics *metrics.InvoiceMetrics
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	concurrency    int
}

func NewService(p ServiceParam) invoicedomain.Service {
	concurrency := p.Cfg.InvoiceBatchConcurrency
	if concurrency <= 0 {
		concurrency = defaultBatchConcurrency
	}
	validate := p.Validator
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}
	return &Service{
		log: p.Log.Named("invoice.service"),

		clock:          p.Clock,
		fieldwork:      p.Fieldwork,
		templates:      p.Templates,
		sequences:      p.Sequences,
		renderer:       p.Renderer,
		pdf:            p.PDF,
		validate:       validate,
		invoiceMetrics: p.InvoiceMetrics,
		metrics:        p.Metrics,
		tracer:         otel.Tracer("freshwall/invoice"),
		concurrency:    concurrency,
	}
}

func (s *Service) Preview(ctx context.Context, req invoicedomain.GenerateRequest) (*invoicedomain.InvoiceDocument, error) {
	return s.build(ctx, req, metrics.ModePreview)
}

func (s *Service) Generate(ctx context.Context, req invoicedomain.GenerateRequest) (*invoicedomain.InvoiceDocument, error) {
	return s.build(ctx, req, metrics.ModeGenerate)
}

func (s *Service) GenerateBatch(ctx context.Context, req invoicedomain.BatchRequest) ([]invoicedomain.BatchResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, invalidRequest(err)
	}

	clientIDs := uniqueIDs(req.ClientIDs)
	if len(clientIDs) == 0 {
		return nil, invoicedomain.ErrEmptyBatch
	}

	ctx = ctxlogger.ContextWithOperation(ctx, "invoice.batch")
	results := make([]invoicedomain.BatchResult, len(clientIDs))

	// Per-client failures are reported in the results, so the group never cancels.
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, clientID := range clientIDs {
		g.Go(func() error {
			doc, err := s.build(ctx, invoicedomain.GenerateRequest{
				ClientID:   clientID,
				TemplateID: req.TemplateID,
				From:       req.From,
				To:         req.To,
			}, metrics.ModeGenerate)
			s.invoiceMetrics.IncBatchClient(err)

			result := invoicedomain.BatchResult{ClientID: clientID, Invoice: doc}
			if err != nil {
				result.Error = err.Error()
			}
			results[i] = result
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, result := range results {
		if result.Error != "" {
			failed++
		}
	}
	ctxlogger.WithContext(ctx, s.log).Info("invoice batch completed",
		zap.Int("clients", len(clientIDs)),
		zap.Int("failed", failed),
	)
	return results, nil
}

func (s *Service) RenderHTML(ctx context.Context, req invoicedomain.GenerateRequest) (*invoicedomain.RenderedDocument, error) {
	if s.renderer == nil {
		return nil, invoicedomain.ErrRendererNotFound
	}
	doc, err := s.buildForRender(ctx, req)
	if err != nil {
		return nil, err
	}

	html, err := s.renderer.RenderHTML(doc)
	s.invoiceMetrics.IncRender(render.FormatHTML, err)
	if err != nil {
		return nil, err
	}
	return &invoicedomain.RenderedDocument{
		FileName:    FileName(doc, render.FormatHTML),
		ContentType: "text/html; charset=utf-8",
		Body:        []byte(html),
		Document:    doc,
	}, nil
}

func (s *Service) RenderPDF(ctx context.Context, req invoicedomain.GenerateRequest) (*invoicedomain.RenderedDocument, error) {
	if s.pdf == nil {
		return nil, invoicedomain.ErrRendererNotFound
	}
	doc, err := s.buildForRender(ctx, req)
	if err != nil {
		return nil, err
	}

	body, err := s.pdf.GenerateInvoice(ctx, render.BuildView(doc))
	s.invoiceMetrics.IncRender(render.FormatPDF, err)
	if err != nil {
		return nil, err
	}
	return &invoicedomain.RenderedDocument{
		FileName:    FileName(doc, render.FormatPDF),
		ContentType: "application/pdf",
		Body:        body,
		Document:    doc,
	}, nil
}

func (s *Service) Resolve(ctx context.Context, req invoicedomain.ResolveRequest) (billingdomain.ResolvedBilling, error) {
	result, err := resolver.Resolve(req.Incident, req.Client)
	if err != nil {
		return billingdomain.ResolvedBilling{}, err
	}
	s.metrics.RecordBillingResolved(ctx, result.MethodName, string(result.Source))
	return result, nil
}

func (s *Service) buildForRender(ctx context.Context, req invoicedomain.GenerateRequest) (*invoicedomain.InvoiceDocument, error) {
	if req.Draft {
		return s.build(ctx, req, metrics.ModePreview)
	}
	return s.build(ctx, req, metrics.ModeGenerate)
}

func (s *Service) build(ctx context.Context, req invoicedomain.GenerateRequest, mode string) (doc *invoicedomain.InvoiceDocument, err error) {
	operation := "invoice." + mode
	ctx, span := s.tracer.Start(ctx, operation,
		trace.WithAttributes(tracing.SafeAttributes(
			attribute.String("invoice.client_id", req.ClientID),
			attribute.String("invoice.mode", mode),
		)...),
	)
	defer func() {
		if err != nil {
			span.RecordError(tracing.SafeError(err))
			span.SetStatus(codes.Error, metrics.ClassifyReason(err))
		}
		span.End()
	}()
	ctx = ctxlogger.ContextWithOperation(ctx, operation)
	log := ctxlogger.WithContext(ctx, s.log)
	start := time.Now()

	if err := s.validate.Struct(req); err != nil {
		return nil, invalidRequest(err)
	}

	period := invoicedomain.Period{From: req.From.UTC(), To: req.To.UTC()}
	client, incidents, err := s.fieldwork.LoadForInvoice(ctx, req.ClientID, period)
	if err != nil {
		return nil, err
	}

	tmpl, err := s.templates.Resolve(ctx, req.TemplateID)
	if err != nil {
		return nil, err
	}

	key := sequencedomain.KeyForTemplate(tmpl.ID.String())
	seq, err := s.sequence(ctx, key, mode)
	if err != nil {
		log.Warn("invoice sequence unavailable", zap.String("sequence_key", key), zap.Error(err))
		return nil, err
	}

	doc, err = compose.Compose(compose.Request{
		Client:    client,
		Incidents: incidents,
		Period:    period,
		Template:  *tmpl,
		Sequence:  seq,
		IssuedAt:  s.clock.Now(),
		Draft:     mode == metrics.ModePreview,
	})
	if err != nil {
		return nil, err
	}

	for _, item := range doc.LineItems {
		if item.Failure != nil {
			s.invoiceMetrics.IncLineFailure(item.Failure.Reason)
			log.Warn("invoice line not billed",
				zap.String("incident_id", item.Incident.ID),
				zap.String("reason", item.Failure.Reason),
			)
			continue
		}
		s.invoiceMetrics.IncLineItem(string(item.Billing.Source))
	}
	s.invoiceMetrics.ObserveComposition(mode, time.Since(start))
	if mode == metrics.ModeGenerate {
		total, _ := doc.Total.Float64()
		s.metrics.RecordInvoiceIssued(ctx, doc.Currency, total)
	}

	span.SetAttributes(
		attribute.String("invoice.number", doc.InvoiceNumber),
		attribute.Int("invoice.line_items", len(doc.LineItems)),
		attribute.Int("invoice.failed_lines", doc.FailedLines),
	)
	log.Info("invoice composed",
		zap.String("invoice_number", doc.InvoiceNumber),
		zap.String("client_id", req.ClientID),
		zap.Int("line_items", len(doc.LineItems)),
		zap.Int("failed_lines", doc.FailedLines),
		zap.String("total", doc.Total.StringFixed(2)),
	)
	return doc, nil
}

// sequence consumes a number for generated invoices. Previews show the number the
// next generated invoice would get.
func (s *Service) sequence(ctx context.Context, key, mode string) (int64, error) {
	if mode == metrics.ModePreview {
		current, err := s.sequences.Current(ctx, key)
		if err != nil {
			return 0, err
		}
		return current + 1, nil
	}
	return s.sequences.Next(ctx, key)
}

// FileName returns the download name "invoice-<client>-<number>.<ext>".
func FileName(doc *invoicedomain.InvoiceDocument, ext string) string {
	client := slug.Make(doc.Client.Name)
	if client == "" {
		client = "client"
	}
	number := slug.Make(doc.InvoiceNumber)
	if number == "" {
		number = "draft"
	}
	return fmt.Sprintf("invoice-%s-%s.%s", client, number, ext)
}

func invalidRequest(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return fmt.Errorf("%w: %s", invoicedomain.ErrInvalidRequest, strings.ToLower(verrs[0].Field()))
	}
	return fmt.Errorf("%w: %v", invoicedomain.ErrInvalidRequest, err)
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
