package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/smallbiznis/freshwall/internal/billing/domain"
	"github.com/smallbiznis/freshwall/internal/billing/resolver"
	"github.com/smallbiznis/freshwall/internal/clock"
	"github.com/smallbiznis/freshwall/internal/fieldwork/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("fieldwork.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) CreateClient(ctx context.Context, req domain.CreateClientRequest) (*domain.ClientRecord, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if err := validateConfiguration(req.Defaults); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	client := domain.ClientRecord{
		ID:        s.genID.Generate(),
		Name:      name,
		Email:     strings.TrimSpace(req.Email),
		Defaults:  datatypes.NewJSONType(req.Defaults),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.InsertClient(ctx, s.db, &client); err != nil {
		return nil, err
	}
	return &client, nil
}

func (s *Service) DeleteClient(ctx context.Context, id string) error {
	clientID, err := parseClientID(id)
	if err != nil {
		return err
	}
	return s.repo.DeleteClient(ctx, s.db, clientID)
}

func (s *Service) CreateIncident(ctx context.Context, req domain.CreateIncidentRequest) (*domain.IncidentRecord, error) {
	clientID, err := parseClientID(req.ClientID)
	if err != nil {
		return nil, err
	}
	if req.StartTime.IsZero() || req.EndTime.IsZero() || req.EndTime.Before(req.StartTime) {
		return nil, domain.ErrInvalidTimeRange
	}
	if err := validateConfiguration(req.Billing); err != nil {
		return nil, err
	}

	client, err := s.repo.FindClient(ctx, s.db, clientID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, domain.ErrClientNotFound
	}

	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = "open"
	}

	now := s.clock.Now()
	incident := domain.IncidentRecord{
		ID:            s.genID.Generate(),
		ClientID:      clientID,
		Area:          req.Area,
		StartTime:     req.StartTime.UTC(),
		EndTime:       req.EndTime.UTC(),
		Billing:       datatypes.NewJSONType(req.Billing),
		SurfaceType:   req.SurfaceType,
		Address:       req.Address,
		MaterialsUsed: req.MaterialsUsed,
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.InsertIncident(ctx, s.db, &incident); err != nil {
		return nil, err
	}
	return &incident, nil
}

func (s *Service) LoadForInvoice(ctx context.Context, clientID string, period domain.Period) (billingdomain.Client, []billingdomain.Incident, error) {
	id, err := parseClientID(clientID)
	if err != nil {
		return billingdomain.Client{}, nil, err
	}
	if !period.Valid() {
		return billingdomain.Client{}, nil, domain.ErrInvalidPeriod
	}

	client, err := s.repo.FindClient(ctx, s.db, id)
	if err != nil {
		return billingdomain.Client{}, nil, err
	}
	if client == nil {
		return billingdomain.Client{}, nil, domain.ErrClientNotFound
	}

	rows, err := s.repo.ListIncidents(ctx, s.db, id, period.From, period.To)
	if err != nil {
		return billingdomain.Client{}, nil, err
	}

	incidents := make([]billingdomain.Incident, 0, len(rows))
	for _, row := range rows {
		incidents = append(incidents, row.Snapshot())
	}

	s.log.Debug("loaded incidents for invoice",
		zap.String("client_id", clientID),
		zap.Int("incidents", len(incidents)),
	)
	return client.Snapshot(), incidents, nil
}

// parseClientID rejects malformed IDs and the zero ID, which no client row carries.
func parseClientID(raw string) (snowflake.ID, error) {
	id, err := domain.ParseID(raw)
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidClientID
	}
	return id, nil
}

func validateConfiguration(cfg *billingdomain.BillingConfiguration) error {
	if cfg == nil {
		return nil
	}
	if _, err := resolver.MethodName(cfg.BillingMethod); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidBillingConfig, err)
	}
	if cfg.MinimumBillableQuantity.IsNegative() || cfg.AmountPerUnit.IsNegative() {
		return fmt.Errorf("%w: negative quantity or rate", domain.ErrInvalidBillingConfig)
	}
	if cfg.TimeRounding != nil {
		minutes := cfg.TimeRounding.IncrementMinutes
		if minutes <= 0 || minutes > billingdomain.MaxIncrementMinutes {
			return fmt.Errorf("%w: rounding increment must be between 1 and %d minutes",
				domain.ErrInvalidBillingConfig, billingdomain.MaxIncrementMinutes)
		}
	}
	return nil
}
