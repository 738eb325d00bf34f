package redisstore

import (
	"context"
	"errors"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/freshwall/internal/observability/metrics"
	"github.com/smallbiznis/freshwall/internal/sequence/domain"
	"go.uber.org/zap"
)

const Backend = "redis"

const keyPrefix = "freshwall:invoice_seq:"

// Store allocates sequences with Redis INCR, which is atomic across processes.
type Store struct {
	client  *redis.Client
	log     *zap.Logger
	metrics *metrics.InvoiceMetrics
}

func New(client *redis.Client, log *zap.Logger, m *metrics.InvoiceMetrics) *Store {
	return &Store{
		client:  client,
		log:     log.Named("sequence.redis"),
		metrics: m,
	}
}

func (s *Store) Backend() string { return Backend }

func (s *Store) Next(ctx context.Context, key string) (int64, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return 0, domain.ErrInvalidKey
	}
	value, err := s.client.Incr(ctx, keyPrefix+key).Result()
	s.metrics.IncSequenceAllocation(Backend, err)
	if err != nil {
		s.log.Warn("sequence allocation failed", zap.String("key", key), zap.Error(err))
		return 0, err
	}
	return value, nil
}

func (s *Store) Current(ctx context.Context, key string) (int64, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return 0, domain.ErrInvalidKey
	}
	value, err := s.client.Get(ctx, keyPrefix+key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return value, nil
}

var _ domain.Allocator = (*Store)(nil)
