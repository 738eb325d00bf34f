package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/freshwall/internal/clock"
	"github.com/smallbiznis/freshwall/internal/config"
	invoiceformat "github.com/smallbiznis/freshwall/internal/invoice/format"
	templatedomain "github.com/smallbiznis/freshwall/internal/invoicetemplate/domain"
	"github.com/smallbiznis/freshwall/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const cacheSize = 256

// defaultCacheKey caches the stored default template. Snowflake IDs are never zero.
const defaultCacheKey snowflake.ID = 0

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      templatedomain.Repository
	Defaults  *config.InvoicingDefaultsHolder
	Validator *validator.Validate
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     templatedomain.Repository
	defaults *config.InvoicingDefaultsHolder
	validate *validator.Validate
	metrics  *metrics.Metrics
	cache    *lru.Cache[snowflake.ID, templatedomain.InvoiceTemplate]
}

func NewService(p Params) (templatedomain.Service, error) {
	cache, err := lru.New[snowflake.ID, templatedomain.InvoiceTemplate](cacheSize)
	if err != nil {
		return nil, err
	}
	validate := p.Validator
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("invoicetemplate.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		defaults: p.Defaults,
		validate: validate,
		metrics:  p.Metrics,
		cache:    cache,
	}, nil
}

func (s *Service) Create(ctx context.Context, req templatedomain.CreateRequest) (*templatedomain.InvoiceTemplate, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, mapValidationError(err)
	}

	builtIn := BuiltInTemplate(s.defaults.Get())
	now := s.clock.Now()
	tmpl := &templatedomain.InvoiceTemplate{
		ID:                  s.genID.Generate(),
		Name:                strings.TrimSpace(req.Name),
		IsDefault:           req.IsDefault,
		Currency:            strings.ToUpper(strings.TrimSpace(req.Currency)),
		CompanyName:         strings.TrimSpace(req.CompanyName),
		CompanyAddress:      strings.TrimSpace(req.CompanyAddress),
		CompanyPhone:        strings.TrimSpace(req.CompanyPhone),
		CompanyEmail:        strings.TrimSpace(req.CompanyEmail),
		LogoURL:             strings.TrimSpace(req.LogoURL),
		PrimaryColor:        strings.TrimSpace(req.PrimaryColor),
		InvoiceNumberFormat: req.InvoiceNumberFormat,
		PaymentTerms:        req.PaymentTerms,
		ShowTax:             req.ShowTax,
		TaxRate:             req.TaxRate,
		TaxLabel:            strings.TrimSpace(req.TaxLabel),
		FallbackRate:        req.FallbackRate,
		DescriptionPrefix:   strings.TrimSpace(req.DescriptionPrefix),
		Columns:             datatypes.NewJSONType(req.Columns),
		SortBy:              req.SortBy,
		SortOrder:           req.SortOrder,
		FooterNotes:         strings.TrimSpace(req.FooterNotes),
		ShowPaymentTerms:    boolOr(req.ShowPaymentTerms, true),
		ShowThankYou:        boolOr(req.ShowThankYou, true),
		ShowCompanyDetails:  boolOr(req.ShowCompanyDetails, true),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if tmpl.InvoiceNumberFormat == "" {
		tmpl.InvoiceNumberFormat = builtIn.InvoiceNumberFormat
	}
	if tmpl.PaymentTerms == "" {
		tmpl.PaymentTerms = builtIn.PaymentTerms
	}
	if tmpl.TaxLabel == "" {
		tmpl.TaxLabel = builtIn.TaxLabel
	}
	if len(req.Columns) == 0 {
		tmpl.Columns = datatypes.NewJSONType(templatedomain.DefaultColumns())
	}

	if err := validateTemplate(s.validate, tmpl); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.IsDefault {
			if err := s.repo.UnsetDefault(ctx, tx); err != nil {
				return err
			}
		}
		return s.repo.Insert(ctx, tx, tmpl)
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, "create", tmpl)
	return tmpl, nil
}

func (s *Service) List(ctx context.Context, req templatedomain.ListRequest) ([]templatedomain.InvoiceTemplate, error) {
	filter := templatedomain.ListRequest{
		Name:      strings.TrimSpace(req.Name),
		IsDefault: req.IsDefault,
	}
	return s.repo.List(ctx, s.db, filter)
}

func (s *Service) GetByID(ctx context.Context, id string) (*templatedomain.InvoiceTemplate, error) {
	templateID, err := templatedomain.ParseID(id)
	if err != nil || templateID == 0 {
		return nil, templatedomain.ErrInvalidID
	}
	return s.load(ctx, templateID)
}

func (s *Service) Update(ctx context.Context, req templatedomain.UpdateRequest) (*templatedomain.InvoiceTemplate, error) {
	templateID, err := templatedomain.ParseID(req.ID)
	if err != nil || templateID == 0 {
		return nil, templatedomain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, templateID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, templatedomain.ErrNotFound
	}

	applyUpdate(item, req)
	item.UpdatedAt = s.clock.Now()

	if err := validateTemplate(s.validate, item); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}

	s.afterWrite(ctx, "update", item)
	return item, nil
}

func (s *Service) SetDefault(ctx context.Context, id string) (*templatedomain.InvoiceTemplate, error) {
	templateID, err := templatedomain.ParseID(id)
	if err != nil || templateID == 0 {
		return nil, templatedomain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, templateID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, templatedomain.ErrNotFound
	}

	now := s.clock.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.UnsetDefault(ctx, tx); err != nil {
			return err
		}
		item.IsDefault = true
		item.UpdatedAt = now
		return s.repo.Update(ctx, tx, item)
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, "set_default", item)
	return item, nil
}

func (s *Service) Resolve(ctx context.Context, id string) (*templatedomain.InvoiceTemplate, error) {
	if strings.TrimSpace(id) != "" {
		return s.GetByID(ctx, id)
	}

	if cached, ok := s.cache.Get(defaultCacheKey); ok {
		return &cached, nil
	}

	item, err := s.repo.FindDefault(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if item == nil {
		// The built-in template follows the hot-reloaded defaults, so it is never cached.
		return BuiltInTemplate(s.defaults.Get()), nil
	}
	s.cache.Add(defaultCacheKey, *item)
	return item, nil
}

func (s *Service) load(ctx context.Context, id snowflake.ID) (*templatedomain.InvoiceTemplate, error) {
	if cached, ok := s.cache.Get(id); ok {
		return &cached, nil
	}
	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, templatedomain.ErrNotFound
	}
	s.cache.Add(id, *item)
	return item, nil
}

// afterWrite drops the whole cache: set-default touches rows other than tmpl.
func (s *Service) afterWrite(ctx context.Context, action string, tmpl *templatedomain.InvoiceTemplate) {
	s.cache.Purge()
	s.metrics.RecordTemplateChange(ctx, action)
	s.log.Info("invoice template saved",
		zap.String("action", action),
		zap.String("template_id", tmpl.ID.String()),
		zap.Bool("is_default", tmpl.IsDefault),
	)
}

// BuiltInTemplate is used when no template has been stored yet.
func BuiltInTemplate(d config.InvoicingDefaults) *templatedomain.InvoiceTemplate {
	tmpl := &templatedomain.InvoiceTemplate{
		Name:                "Default",
		IsDefault:           true,
		Currency:            strings.ToUpper(strings.TrimSpace(d.Currency)),
		CompanyName:         d.CompanyName,
		InvoiceNumberFormat: invoiceformat.NumberScheme(d.NumberFormat),
		PaymentTerms:        templatedomain.PaymentTerms(d.PaymentTerms),
		ShowTax:             d.ShowTax,
		TaxRate:             decimal.NewFromFloat(d.TaxRate),
		TaxLabel:            d.TaxLabel,
		DescriptionPrefix:   d.DescriptionPrefix,
		Columns:             datatypes.NewJSONType(templatedomain.DefaultColumns()),
		FooterNotes:         d.FooterNotes,
		ShowPaymentTerms:    true,
		ShowThankYou:        true,
		ShowCompanyDetails:  true,
	}
	if !tmpl.InvoiceNumberFormat.Valid() {
		tmpl.InvoiceNumberFormat = invoiceformat.SchemeDateSequential
	}
	if _, ok := tmpl.PaymentTerms.Days(); !ok {
		tmpl.PaymentTerms = templatedomain.TermsNet30
	}
	if d.FallbackRate > 0 {
		tmpl.FallbackRate = decimal.NewNullDecimal(decimal.NewFromFloat(d.FallbackRate))
	}
	return tmpl
}

func applyUpdate(item *templatedomain.InvoiceTemplate, req templatedomain.UpdateRequest) {
	if req.Name != nil {
		item.Name = strings.TrimSpace(*req.Name)
	}
	if req.Currency != nil {
		item.Currency = strings.ToUpper(strings.TrimSpace(*req.Currency))
	}
	if req.CompanyName != nil {
		item.CompanyName = strings.TrimSpace(*req.CompanyName)
	}
	if req.CompanyAddress != nil {
		item.CompanyAddress = strings.TrimSpace(*req.CompanyAddress)
	}
	if req.CompanyPhone != nil {
		item.CompanyPhone = strings.TrimSpace(*req.CompanyPhone)
	}
	if req.CompanyEmail != nil {
		item.CompanyEmail = strings.TrimSpace(*req.CompanyEmail)
	}
	if req.LogoURL != nil {
		item.LogoURL = strings.TrimSpace(*req.LogoURL)
	}
	if req.PrimaryColor != nil {
		item.PrimaryColor = strings.TrimSpace(*req.PrimaryColor)
	}
	if req.InvoiceNumberFormat != nil {
		item.InvoiceNumberFormat = *req.InvoiceNumberFormat
	}
	if req.PaymentTerms != nil {
		item.PaymentTerms = *req.PaymentTerms
	}
	if req.ShowTax != nil {
		item.ShowTax = *req.ShowTax
	}
	if req.TaxRate != nil {
		item.TaxRate = *req.TaxRate
	}
	if req.TaxLabel != nil {
		item.TaxLabel = strings.TrimSpace(*req.TaxLabel)
	}
	if req.FallbackRate != nil {
		item.FallbackRate = *req.FallbackRate
	}
	if req.DescriptionPrefix != nil {
		item.DescriptionPrefix = strings.TrimSpace(*req.DescriptionPrefix)
	}
	if req.Columns != nil {
		item.Columns = datatypes.NewJSONType(req.Columns)
	}
	if req.SortBy != nil {
		item.SortBy = *req.SortBy
	}
	if req.SortOrder != nil {
		item.SortOrder = *req.SortOrder
	}
	if req.FooterNotes != nil {
		item.FooterNotes = strings.TrimSpace(*req.FooterNotes)
	}
	if req.ShowPaymentTerms != nil {
		item.ShowPaymentTerms = *req.ShowPaymentTerms
	}
	if req.ShowThankYou != nil {
		item.ShowThankYou = *req.ShowThankYou
	}
	if req.ShowCompanyDetails != nil {
		item.ShowCompanyDetails = *req.ShowCompanyDetails
	}
}

// validateTemplate checks the invariants of a fully-built template.
func validateTemplate(validate *validator.Validate, tmpl *templatedomain.InvoiceTemplate) error {
	if tmpl.Name == "" || len(tmpl.Name) > 120 {
		return templatedomain.ErrInvalidName
	}
	if len(tmpl.Currency) != 3 {
		return templatedomain.ErrInvalidCurrency
	}
	if !tmpl.InvoiceNumberFormat.Valid() {
		return templatedomain.ErrInvalidNumberFormat
	}
	if _, ok := tmpl.PaymentTerms.Days(); !ok {
		return templatedomain.ErrInvalidPaymentTerms
	}
	if tmpl.TaxRate.IsNegative() || tmpl.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return templatedomain.ErrInvalidTaxRate
	}
	if tmpl.FallbackRate.Valid && tmpl.FallbackRate.Decimal.IsNegative() {
		return templatedomain.ErrInvalidFallbackRate
	}

	seen := map[templatedomain.ColumnType]struct{}{}
	for _, column := range tmpl.Columns.Data() {
		if !column.Type.Valid() {
			return templatedomain.ErrInvalidColumns
		}
		if _, dup := seen[column.Type]; dup {
			return templatedomain.ErrInvalidColumns
		}
		seen[column.Type] = struct{}{}
	}

	if tmpl.SortBy != "" && !tmpl.SortBy.Valid() {
		return templatedomain.ErrInvalidSort
	}
	switch tmpl.SortOrder {
	case "", templatedomain.SortAscending, templatedomain.SortDescending:
	default:
		return templatedomain.ErrInvalidSort
	}

	if tmpl.CompanyEmail != "" && validate.Var(tmpl.CompanyEmail, "email") != nil {
		return templatedomain.ErrInvalidCompany
	}
	if tmpl.LogoURL != "" && validate.Var(tmpl.LogoURL, "url") != nil {
		return templatedomain.ErrInvalidCompany
	}
	if tmpl.PrimaryColor != "" && validate.Var(tmpl.PrimaryColor, "hexcolor") != nil {
		return templatedomain.ErrInvalidCompany
	}
	return nil
}

// mapValidationError converts struct tag failures to the domain errors handlers expect.
func mapValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	switch verrs[0].StructField() {
	case "Name":
		return templatedomain.ErrInvalidName
	case "Currency":
		return templatedomain.ErrInvalidCurrency
	case "Columns", "Type":
		return templatedomain.ErrInvalidColumns
	case "SortOrder":
		return templatedomain.ErrInvalidSort
	default:
		return templatedomain.ErrInvalidCompany
	}
}

func boolOr(value *bool, def bool) bool {
	if value == nil {
		return def
	}
	return *value
}
