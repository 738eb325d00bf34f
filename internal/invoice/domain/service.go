package domain

import (
	"context"
	"errors"
	"time"

	billingdomain "github.com/smallbiznis/freshwall/internal/billing/domain"
)

type GenerateRequest struct {
	ClientID   string    `json:"client_id" validate:"required"`
	TemplateID string    `json:"template_id"`
	From       time.Time `json:"from" validate:"required"`
	To         time.Time `json:"to" validate:"required,gtfield=From"`

	// Draft renders without consuming a sequence number. Only render calls honor it.
	Draft bool `json:"draft"`
}

type BatchRequest struct {
	ClientIDs  []string  `json:"client_ids" validate:"required,min=1,dive,required"`
	TemplateID string    `json:"template_id"`
	From       time.Time `json:"from" validate:"required"`
	To         time.Time `json:"to" validate:"required,gtfield=From"`
}

// BatchResult is the outcome for one client of a batch run.
type BatchResult struct {
	ClientID string           `json:"client_id"`
	Invoice  *InvoiceDocument `json:"invoice,omitempty"`
	Error    string           `json:"error,omitempty"`
}

type ResolveRequest struct {
	Incident billingdomain.Incident `json:"incident"`
	Client   billingdomain.Client   `json:"client"`
}

// RenderedDocument is a rendered invoice ready for download.
type RenderedDocument struct {
	FileName    string
	ContentType string
	Body        []byte
	Document    *InvoiceDocument
}

type Service interface {
	// Preview composes an invoice numbered with the next sequence without consuming it.
	Preview(ctx context.Context, req GenerateRequest) (*InvoiceDocument, error)
	Generate(ctx context.Context, req GenerateRequest) (*InvoiceDocument, error)
	GenerateBatch(ctx context.Context, req BatchRequest) ([]BatchResult, error)
	RenderHTML(ctx context.Context, req GenerateRequest) (*RenderedDocument, error)
	RenderPDF(ctx context.Context, req GenerateRequest) (*RenderedDocument, error)
	Resolve(ctx context.Context, req ResolveRequest) (billingdomain.ResolvedBilling, error)
}

var (
	ErrInvalidRequest   = errors.New("invalid_request")
	ErrInvalidSequence  = errors.New("invalid_sequence")
	ErrRendererNotFound = errors.New("renderer_not_configured")
	ErrEmptyBatch       = errors.New("empty_batch")
)
