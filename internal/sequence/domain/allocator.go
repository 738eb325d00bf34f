package domain

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Allocator hands out strictly increasing, gap-free-per-success invoice sequence numbers.
type Allocator interface {
	// Next consumes and returns the next sequence number for key.
	Next(ctx context.Context, key string) (int64, error)
	// Current returns the last issued number, or 0 when key has never been used.
	Current(ctx context.Context, key string) (int64, error)
	// Backend names the storage used, for logs and metrics.
	Backend() string
}

// Sequence is the persisted counter row of the SQL backend.
type Sequence struct {
	Key       string    `gorm:"column:seq_key;primaryKey;type:varchar(191)"`
	LastValue int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Sequence) TableName() string { return "invoice_sequences" }

const DefaultKey = "invoice:default"

// KeyForTemplate returns the counter key for invoices numbered by a template.
func KeyForTemplate(templateID string) string {
	templateID = strings.TrimSpace(templateID)
	if templateID == "" || templateID == "0" {
		return DefaultKey
	}
	return "invoice:" + templateID
}

var (
	ErrSequenceContention = errors.New("sequence_contention")
	ErrInvalidKey         = errors.New("invalid_sequence_key")
)
