package domain

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	invoiceformat "github.com/smallbiznis/freshwall/internal/invoice/format"
)

type ListRequest struct {
	Name      string `form:"name"`
	IsDefault *bool  `form:"is_default"`
}

type CreateRequest struct {
	Name                string                     `json:"name" validate:"required,max=120"`
	IsDefault           bool                       `json:"is_default"`
	Currency            string                     `json:"currency" validate:"required,len=3"`
	CompanyName         string                     `json:"company_name"`
	CompanyAddress      string                     `json:"company_address"`
	CompanyPhone        string                     `json:"company_phone"`
	CompanyEmail        string                     `json:"company_email" validate:"omitempty,email"`
	LogoURL             string                     `json:"logo_url" validate:"omitempty,url"`
	PrimaryColor        string                     `json:"primary_color" validate:"omitempty,hexcolor"`
	InvoiceNumberFormat invoiceformat.NumberScheme `json:"invoice_number_format"`
	PaymentTerms        PaymentTerms               `json:"payment_terms"`
	ShowTax             bool                       `json:"show_tax"`
	TaxRate             decimal.Decimal            `json:"tax_rate"`
	TaxLabel            string                     `json:"tax_label"`
	FallbackRate        decimal.NullDecimal        `json:"fallback_rate"`
	DescriptionPrefix   string                     `json:"description_prefix"`
	Columns             []LineItemColumn           `json:"columns" validate:"omitempty,dive"`
	SortBy              ColumnType                 `json:"sort_by"`
	SortOrder           SortOrder                  `json:"sort_order" validate:"omitempty,oneof=asc desc"`
	FooterNotes         string                     `json:"footer_notes"`
	ShowPaymentTerms    *bool                      `json:"show_payment_terms"`
	ShowThankYou        *bool                      `json:"show_thank_you"`
	ShowCompanyDetails  *bool                      `json:"show_company_details"`
}

type UpdateRequest struct {
	ID                  string                      `json:"id"`
	Name                *string                     `json:"name"`
	Currency            *string                     `json:"currency"`
	CompanyName         *string                     `json:"company_name"`
	CompanyAddress      *string                     `json:"company_address"`
	CompanyPhone        *string                     `json:"company_phone"`
	CompanyEmail        *string                     `json:"company_email"`
	LogoURL             *string                     `json:"logo_url"`
	PrimaryColor        *string                     `json:"primary_color"`
	InvoiceNumberFormat *invoiceformat.NumberScheme `json:"invoice_number_format"`
	PaymentTerms        *PaymentTerms               `json:"payment_terms"`
	ShowTax             *bool                       `json:"show_tax"`
	TaxRate             *decimal.Decimal            `json:"tax_rate"`
	TaxLabel            *string                     `json:"tax_label"`
	FallbackRate        *decimal.NullDecimal        `json:"fallback_rate"`
	DescriptionPrefix   *string                     `json:"description_prefix"`
	Columns             []LineItemColumn            `json:"columns"`
	SortBy              *ColumnType                 `json:"sort_by"`
	SortOrder           *SortOrder                  `json:"sort_order"`
	FooterNotes         *string                     `json:"footer_notes"`
	ShowPaymentTerms    *bool                       `json:"show_payment_terms"`
	ShowThankYou        *bool                       `json:"show_thank_you"`
	ShowCompanyDetails  *bool                       `json:"show_company_details"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*InvoiceTemplate, error)
	List(ctx context.Context, req ListRequest) ([]InvoiceTemplate, error)
	GetByID(ctx context.Context, id string) (*InvoiceTemplate, error)
	Update(ctx context.Context, req UpdateRequest) (*InvoiceTemplate, error)
	SetDefault(ctx context.Context, id string) (*InvoiceTemplate, error)

	// Resolve returns the template with the given ID, or the default template when
	// id is empty. Without any stored default a built-in template is returned.
	Resolve(ctx context.Context, id string) (*InvoiceTemplate, error)
}

func ParseID(raw string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(raw))
}

var (
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidCurrency     = errors.New("invalid_currency")
	ErrInvalidNumberFormat = errors.New("invalid_invoice_number_format")
	ErrInvalidPaymentTerms = errors.New("invalid_payment_terms")
	ErrInvalidTaxRate      = errors.New("invalid_tax_rate")
	ErrInvalidColumns      = errors.New("invalid_columns")
	ErrInvalidSort         = errors.New("invalid_sort")
	ErrInvalidCompany      = errors.New("invalid_company_details")
	ErrInvalidFallbackRate = errors.New("invalid_fallback_rate")
	ErrNotFound            = errors.New("not_found")
)
