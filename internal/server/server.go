package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/freshwall/internal/config"
	fieldworkdomain "github.com/smallbiznis/freshwall/internal/fieldwork/domain"
	invoicedomain "github.com/smallbiznis/freshwall/internal/invoice/domain"
	invoicetemplatedomain "github.com/smallbiznis/freshwall/internal/invoicetemplate/domain"
	"github.com/smallbiznis/freshwall/internal/observability"
	obsmiddleware "github.com/smallbiznis/freshwall/internal/observability/logger"
	obstracing "github.com/smallbiznis/freshwall/internal/observability/tracing"
	"github.com/smallbiznis/freshwall/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, apiMetrics *telemetry.Metrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(apiMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, apiMetrics *telemetry.Metrics) *gin.Engine {
	return NewEngine(obsCfg, apiMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine             *gin.Engine
	cfg                config.Config
	fieldworkSvc       fieldworkdomain.Service
	invoiceSvc         invoicedomain.Service
	invoiceTemplateSvc invoicetemplatedomain.Service
}

type ServerParams struct {
	fx.In

	Gin                *gin.Engine
	Cfg                config.Config
	FieldworkSvc       fieldworkdomain.Service
	InvoiceSvc         invoicedomain.Service
	InvoiceTemplateSvc invoicetemplatedomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:             p.Gin,
		cfg:                p.Cfg,
		fieldworkSvc:       p.FieldworkSvc,
		invoiceSvc:         p.InvoiceSvc,
		invoiceTemplateSvc: p.InvoiceTemplateSvc,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Billing --------
	api.POST("/billing/resolve", s.ResolveBilling)

	// -------- Invoices --------
	api.POST("/invoices", s.GenerateInvoice)
	api.POST("/invoices/preview", s.PreviewInvoice)
	api.POST("/invoices/batch", s.GenerateInvoiceBatch)
	api.POST("/invoices/html", s.RenderInvoiceHTML)
	api.POST("/invoices/pdf", s.RenderInvoicePDF)

	// -------- Invoice Templates --------
	api.GET("/invoice-templates", s.ListInvoiceTemplates)
	api.POST("/invoice-templates", s.CreateInvoiceTemplate)
	api.GET("/invoice-templates/:id", s.GetInvoiceTemplateByID)
	api.PATCH("/invoice-templates/:id", s.UpdateInvoiceTemplate)
	api.POST("/invoice-templates/:id/default", s.SetDefaultInvoiceTemplate)

	// -------- Field work --------
	api.POST("/clients", s.CreateClient)
	api.DELETE("/clients/:id", s.DeleteClient)
	api.POST("/clients/:id/incidents", s.CreateIncident)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
