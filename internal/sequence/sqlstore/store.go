package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smallbiznis/freshwall/internal/clock"
	"github.com/smallbiznis/freshwall/internal/observability/metrics"
	"github.com/smallbiznis/freshwall/internal/sequence/domain"
	"github.com/smallbiznis/freshwall/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const Backend = "sql"

const defaultMaxAttempts = 8

// Store allocates sequences with an optimistic compare-and-swap on invoice_sequences.
type Store struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	metrics     *metrics.InvoiceMetrics
	maxAttempts int
}

func New(conn *gorm.DB, log *zap.Logger, clk clock.Clock, m *metrics.InvoiceMetrics, maxAttempts int) *Store {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &Store{
		db:          conn,
		log:         log.Named("sequence.sql"),
		clock:       clk,
		metrics:     m,
		maxAttempts: maxAttempts,
	}
}

func (s *Store) Backend() string { return Backend }

func (s *Store) Current(ctx context.Context, key string) (int64, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return 0, domain.ErrInvalidKey
	}
	row, err := s.find(ctx, key)
	if err != nil {
		return 0, err
	}
	if row == nil {
		return 0, nil
	}
	return row.LastValue, nil
}

func (s *Store) Next(ctx context.Context, key string) (int64, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return 0, domain.ErrInvalidKey
	}

	value, retries, err := s.next(ctx, key)
	s.metrics.AddSequenceRetries(Backend, retries)
	s.metrics.IncSequenceAllocation(Backend, err)
	if err != nil {
		s.log.Warn("sequence allocation failed",
			zap.String("key", key),
			zap.Int("retries", retries),
			zap.Error(err),
		)
		return 0, err
	}
	return value, nil
}

func (s *Store) next(ctx context.Context, key string) (int64, int, error) {
	retries := 0
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, retries, err
		}

		row, err := s.find(ctx, key)
		if err != nil {
			return 0, retries, err
		}

		if row == nil {
			created, err := s.insertFirst(ctx, key)
			if err != nil {
				return 0, retries, err
			}
			if created {
				return 1, retries, nil
			}
			retries++
			continue
		}

		swapped, err := s.compareAndSwap(ctx, key, row.LastValue, row.LastValue+1)
		if err != nil {
			return 0, retries, err
		}
		if swapped {
			return row.LastValue + 1, retries, nil
		}
		retries++
	}
	return 0, retries, fmt.Errorf("%w: key %s after %d attempts", domain.ErrSequenceContention, key, s.maxAttempts)
}

func (s *Store) find(ctx context.Context, key string) (*domain.Sequence, error) {
	var row domain.Sequence
	err := s.db.WithContext(ctx).
		Where("seq_key = ?", key).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// insertFirst creates the counter at 1. A concurrent creator wins the primary key
// and this call reports false so the caller retries through the CAS path.
func (s *Store) insertFirst(ctx context.Context, key string) (bool, error) {
	err := s.db.WithContext(ctx).Create(&domain.Sequence{
		Key:       key,
		LastValue: 1,
		UpdatedAt: s.clock.Now(),
	}).Error
	if err == nil {
		return true, nil
	}
	if db.IsDuplicateKeyErr(err) {
		return false, nil
	}
	return false, err
}

func (s *Store) compareAndSwap(ctx context.Context, key string, expected, next int64) (bool, error) {
	result := s.db.WithContext(ctx).Exec(
		`UPDATE invoice_sequences SET last_value = ?, updated_at = ? WHERE seq_key = ? AND last_value = ?`,
		next,
		s.clock.Now(),
		key,
		expected,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

var _ domain.Allocator = (*Store)(nil)
