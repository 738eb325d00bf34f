package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/smallbiznis/freshwall/internal/billing/domain"
)

type CreateClientRequest struct {
	Name     string                              `json:"name" validate:"required,max=200"`
	Email    string                              `json:"email" validate:"omitempty,email"`
	Defaults *billingdomain.BillingConfiguration `json:"defaults"`
}

type CreateIncidentRequest struct {
	ClientID      string                              `json:"client_id" validate:"required"`
	Area          float64                             `json:"area" validate:"gte=0"`
	StartTime     time.Time                           `json:"start_time" validate:"required"`
	EndTime       time.Time                           `json:"end_time" validate:"required"`
	Billing       *billingdomain.BillingConfiguration `json:"billing"`
	SurfaceType   *string                             `json:"surface_type"`
	Address       *string                             `json:"address"`
	MaterialsUsed *string                             `json:"materials_used"`
	Status        string                              `json:"status"`
}

// Period bounds the incidents billed on one invoice; From is inclusive, To exclusive.
type Period struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Valid reports whether the period is non-empty.
func (p Period) Valid() bool {
	return !p.From.IsZero() && !p.To.IsZero() && p.To.After(p.From)
}

type Service interface {
	CreateClient(ctx context.Context, req CreateClientRequest) (*ClientRecord, error)
	DeleteClient(ctx context.Context, id string) error
	CreateIncident(ctx context.Context, req CreateIncidentRequest) (*IncidentRecord, error)

	// LoadForInvoice returns the client snapshot and its incidents in the period.
	LoadForInvoice(ctx context.Context, clientID string, period Period) (billingdomain.Client, []billingdomain.Incident, error)
}

func ParseID(raw string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(raw))
}

var (
	ErrInvalidClientID      = errors.New("invalid_client_id")
	ErrInvalidName          = errors.New("invalid_name")
	ErrInvalidPeriod        = errors.New("invalid_period")
	ErrInvalidBillingConfig = errors.New("invalid_billing_configuration")
	ErrInvalidTimeRange     = errors.New("invalid_time_range")
	ErrClientNotFound       = errors.New("client_not_found")
)
