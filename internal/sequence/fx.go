package sequence

import (
	"context"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/freshwall/internal/clock"
	"github.com/smallbiznis/freshwall/internal/config"
	"github.com/smallbiznis/freshwall/internal/observability/metrics"
	"github.com/smallbiznis/freshwall/internal/sequence/domain"
	"github.com/smallbiznis/freshwall/internal/sequence/redisstore"
	"github.com/smallbiznis/freshwall/internal/sequence/sqlstore"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("sequence",
	fx.Provide(NewAllocator),
)

type Params struct {
	fx.In

	Lc      fx.Lifecycle
	Cfg     config.Config
	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Metrics *metrics.InvoiceMetrics
}

// NewAllocator selects the sequence backend from configuration.
func NewAllocator(p Params) domain.Allocator {
	seqCfg := p.Cfg.Sequence
	if seqCfg.Backend != config.SequenceBackendRedis {
		p.Log.Info("invoice sequence backend selected", zap.String("backend", sqlstore.Backend))
		return sqlstore.New(p.DB, p.Log, p.Clock, p.Metrics, seqCfg.MaxAttempts)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     strings.TrimSpace(seqCfg.RedisAddr),
		Password: strings.TrimSpace(seqCfg.RedisPassword),
		DB:       seqCfg.RedisDB,
	})
	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	p.Log.Info("invoice sequence backend selected",
		zap.String("backend", redisstore.Backend),
		zap.String("addr", seqCfg.RedisAddr),
	)
	return redisstore.New(client, p.Log, p.Metrics)
}
