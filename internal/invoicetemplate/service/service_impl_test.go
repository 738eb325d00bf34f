package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/freshwall/internal/clock"
	"github.com/smallbiznis/freshwall/internal/config"
	invoiceformat "github.com/smallbiznis/freshwall/internal/invoice/format"
	templatedomain "github.com/smallbiznis/freshwall/internal/invoicetemplate/domain"
	"github.com/smallbiznis/freshwall/internal/invoicetemplate/repository"
	"github.com/smallbiznis/freshwall/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupService(t *testing.T, defaults config.InvoicingDefaults) (*Service, *clock.FakeClock) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&templatedomain.InvoiceTemplate{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	svc, err := NewService(Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clk,
		Repo:      repository.Provide(),
		Defaults:  config.NewStaticInvoicingDefaults(defaults),
		Validator: validation.New(),
	})
	require.NoError(t, err)
	return svc.(*Service), clk
}

func validRequest(name string) templatedomain.CreateRequest {
	return templatedomain.CreateRequest{
		Name:                name,
		Currency:            "usd",
		CompanyName:         "FreshWall",
		CompanyEmail:        "billing@freshwall.test",
		PrimaryColor:        "#1d4ed8",
		InvoiceNumberFormat: invoiceformat.SchemeYearMonthSequential,
		PaymentTerms:        templatedomain.TermsNet15,
		ShowTax:             true,
		TaxRate:             decimal.RequireFromString("0.0825"),
	}
}

func TestResolve_BuiltInWhenNoTemplates(t *testing.T) {
	defaults := config.DefaultInvoicingDefaults()
	defaults.FallbackRate = 80
	svc, _ := setupService(t, defaults)

	tmpl, err := svc.Resolve(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, snowflake.ID(0), tmpl.ID)
	assert.Equal(t, "USD", tmpl.Currency)
	assert.Equal(t, invoiceformat.SchemeDateSequential, tmpl.InvoiceNumberFormat)
	assert.Equal(t, templatedomain.TermsNet30, tmpl.PaymentTerms)
	require.True(t, tmpl.FallbackRate.Valid)
	assert.True(t, tmpl.FallbackRate.Decimal.Equal(decimal.NewFromInt(80)))
	assert.NotEmpty(t, tmpl.VisibleColumns())
}

func TestBuiltInTemplate_InvalidDefaultsFallBack(t *testing.T) {
	tmpl := BuiltInTemplate(config.InvoicingDefaults{Currency: "eur", NumberFormat: "weekly", PaymentTerms: "net7"})
	assert.Equal(t, "EUR", tmpl.Currency)
	assert.Equal(t, invoiceformat.SchemeDateSequential, tmpl.InvoiceNumberFormat)
	assert.Equal(t, templatedomain.TermsNet30, tmpl.PaymentTerms)
	assert.False(t, tmpl.FallbackRate.Valid)
}

func TestCreate_DefaultsAndNormalization(t *testing.T) {
	svc, _ := setupService(t, config.DefaultInvoicingDefaults())
	ctx := context.Background()

	created, err := svc.Create(ctx, validRequest(" Standard "))
	require.NoError(t, err)

	assert.NotZero(t, created.ID)
	assert.Equal(t, "Standard", created.Name)
	assert.Equal(t, "USD", created.Currency)
	assert.Equal(t, "Tax", created.TaxLabel)
	assert.True(t, created.ShowPaymentTerms)
	assert.True(t, created.ShowThankYou)
	assert.True(t, created.ShowCompanyDetails)
	assert.Len(t, created.Columns.Data(), len(templatedomain.DefaultColumns()))

	loaded, err := svc.GetByID(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, created.Name, loaded.Name)
	assert.True(t, loaded.TaxRate.Equal(decimal.RequireFromString("0.0825")))
	assert.Equal(t, invoiceformat.SchemeYearMonthSequential, loaded.InvoiceNumberFormat)
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := setupService(t, config.DefaultInvoicingDefaults())
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*templatedomain.CreateRequest)
		want   error
	}{
		{"blank name", func(r *templatedomain.CreateRequest) { r.Name = "" }, templatedomain.ErrInvalidName},
		{"currency", func(r *templatedomain.CreateRequest) { r.Currency = "dollars" }, templatedomain.ErrInvalidCurrency},
		{"number format", func(r *templatedomain.CreateRequest) { r.InvoiceNumberFormat = "weekly" }, templatedomain.ErrInvalidNumberFormat},
		{"payment terms", func(r *templatedomain.CreateRequest) { r.PaymentTerms = "net7" }, templatedomain.ErrInvalidPaymentTerms},
		{"tax rate", func(r *templatedomain.CreateRequest) { r.TaxRate = decimal.NewFromInt(-1) }, templatedomain.ErrInvalidTaxRate},
		{"fallback rate", func(r *templatedomain.CreateRequest) {
			r.FallbackRate = decimal.NewNullDecimal(decimal.NewFromInt(-5))
		}, templatedomain.ErrInvalidFallbackRate},
		{"email", func(r *templatedomain.CreateRequest) { r.CompanyEmail = "not-an-email" }, templatedomain.ErrInvalidCompany},
		{"color", func(r *templatedomain.CreateRequest) { r.PrimaryColor = "blue" }, templatedomain.ErrInvalidCompany},
		{"duplicate columns", func(r *templatedomain.CreateRequest) {
			r.Columns = []templatedomain.LineItemColumn{
				{Type: templatedomain.ColumnDate, IsVisible: true},
				{Type: templatedomain.ColumnDate, IsVisible: true},
			}
		}, templatedomain.ErrInvalidColumns},
		{"unknown column", func(r *templatedomain.CreateRequest) {
			r.Columns = []templatedomain.LineItemColumn{{Type: "photo", IsVisible: true}}
		}, templatedomain.ErrInvalidColumns},
		{"sort column", func(r *templatedomain.CreateRequest) { r.SortBy = "photo" }, templatedomain.ErrInvalidSort},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest("Standard")
			tc.mutate(&req)
			_, err := svc.Create(ctx, req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCreate_SingleDefault(t *testing.T) {
	svc, _ := setupService(t, config.DefaultInvoicingDefaults())
	ctx := context.Background()

	first := validRequest("First")
	first.IsDefault = true
	firstTmpl, err := svc.Create(ctx, first)
	require.NoError(t, err)

	resolved, err := svc.Resolve(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, firstTmpl.ID, resolved.ID)

	second := validRequest("Second")
	second.IsDefault = true
	secondTmpl, err := svc.Create(ctx, second)
	require.NoError(t, err)

	resolved, err = svc.Resolve(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, secondTmpl.ID, resolved.ID)

	isDefault := true
	defaults, err := svc.List(ctx, templatedomain.ListRequest{IsDefault: &isDefault})
	require.NoError(t, err)
	require.Len(t, defaults, 1)
	assert.Equal(t, secondTmpl.ID, defaults[0].ID)
}

func TestSetDefault(t *testing.T) {
	svc, _ := setupService(t, config.DefaultInvoicingDefaults())
	ctx := context.Background()

	req := validRequest("Default")
	req.IsDefault = true
	_, err := svc.Create(ctx, req)
	require.NoError(t, err)

	other, err := svc.Create(ctx, validRequest("Other"))
	require.NoError(t, err)
	assert.False(t, other.IsDefault)

	updated, err := svc.SetDefault(ctx, other.ID.String())
	require.NoError(t, err)
	assert.True(t, updated.IsDefault)

	resolved, err := svc.Resolve(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, other.ID, resolved.ID)

	all, err := svc.List(ctx, templatedomain.ListRequest{})
	require.NoError(t, err)
	defaults := 0
	for _, item := range all {
		if item.IsDefault {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestUpdate_AppliesFieldsAndRefreshesCache(t *testing.T) {
	svc, clk := setupService(t, config.DefaultInvoicingDefaults())
	ctx := context.Background()

	created, err := svc.Create(ctx, validRequest("Standard"))
	require.NoError(t, err)

	// Warm the cache.
	_, err = svc.GetByID(ctx, created.ID.String())
	require.NoError(t, err)

	clk.Advance(time.Hour)
	name := "Renamed"
	terms := templatedomain.TermsDueOnReceipt
	fallback := decimal.NewNullDecimal(decimal.NewFromInt(95))
	_, err = svc.Update(ctx, templatedomain.UpdateRequest{
		ID:           created.ID.String(),
		Name:         &name,
		PaymentTerms: &terms,
		FallbackRate: &fallback,
	})
	require.NoError(t, err)

	loaded, err := svc.GetByID(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Renamed", loaded.Name)
	assert.Equal(t, templatedomain.TermsDueOnReceipt, loaded.PaymentTerms)
	require.True(t, loaded.FallbackRate.Valid)
	assert.True(t, loaded.FallbackRate.Decimal.Equal(decimal.NewFromInt(95)))
	assert.Equal(t, "USD", loaded.Currency)

	bad := "dollars"
	_, err = svc.Update(ctx, templatedomain.UpdateRequest{ID: created.ID.String(), Currency: &bad})
	assert.ErrorIs(t, err, templatedomain.ErrInvalidCurrency)
}

func TestGetByID_Errors(t *testing.T) {
	svc, _ := setupService(t, config.DefaultInvoicingDefaults())
	ctx := context.Background()

	_, err := svc.GetByID(ctx, "abc")
	assert.ErrorIs(t, err, templatedomain.ErrInvalidID)

	_, err = svc.GetByID(ctx, "123456789")
	assert.ErrorIs(t, err, templatedomain.ErrNotFound)

	_, err = svc.SetDefault(ctx, "123456789")
	assert.ErrorIs(t, err, templatedomain.ErrNotFound)
}
