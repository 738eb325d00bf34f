package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	templatedomain "github.com/smallbiznis/freshwall/internal/invoicetemplate/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() templatedomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, tmpl *templatedomain.InvoiceTemplate) error {
	return db.WithContext(ctx).Create(tmpl).Error
}

// Update rewrites every column so that explicit false and zero values persist.
func (r *repo) Update(ctx context.Context, db *gorm.DB, tmpl *templatedomain.InvoiceTemplate) error {
	return db.WithContext(ctx).
		Model(&templatedomain.InvoiceTemplate{}).
		Where("id = ?", tmpl.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(tmpl).Error
}

func (r *repo) UnsetDefault(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoice_templates SET is_default = ? WHERE is_default = ?`,
		false,
		true,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*templatedomain.InvoiceTemplate, error) {
	var tmpl templatedomain.InvoiceTemplate
	err := db.WithContext(ctx).Where("id = ?", id).Take(&tmpl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tmpl, nil
}

func (r *repo) FindDefault(ctx context.Context, db *gorm.DB) (*templatedomain.InvoiceTemplate, error) {
	var tmpl templatedomain.InvoiceTemplate
	err := db.WithContext(ctx).
		Where("is_default = ?", true).
		Order("updated_at DESC").
		Take(&tmpl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tmpl, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter templatedomain.ListRequest) ([]templatedomain.InvoiceTemplate, error) {
	var items []templatedomain.InvoiceTemplate
	stmt := db.WithContext(ctx).Model(&templatedomain.InvoiceTemplate{})

	if filter.Name != "" {
		stmt = stmt.Where("name = ?", filter.Name)
	}
	if filter.IsDefault != nil {
		stmt = stmt.Where("is_default = ?", *filter.IsDefault)
	}

	stmt = stmt.Order("created_at DESC").Order("id DESC")

	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
