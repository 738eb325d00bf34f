package sqlstore

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/freshwall/internal/clock"
	"github.com/smallbiznis/freshwall/internal/observability/metrics"
	"github.com/smallbiznis/freshwall/internal/sequence/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupStore(t *testing.T, maxAttempts int) (*Store, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Sequence{}))

	m := metrics.NewInvoiceMetricsWithRegistry(prometheus.NewRegistry())
	clk := clock.NewFakeClock(time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC))
	return New(conn, zap.NewNop(), clk, m, maxAttempts), conn
}

func TestNextStartsAtOneAndIncrements(t *testing.T) {
	store, _ := setupStore(t, 0)
	ctx := context.Background()

	current, err := store.Current(ctx, domain.DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, int64(0), current)

	for want := int64(1); want <= 5; want++ {
		got, err := store.Next(ctx, domain.DefaultKey)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	current, err = store.Current(ctx, domain.DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, int64(5), current)
}

func TestKeysAreIndependent(t *testing.T) {
	store, _ := setupStore(t, 0)
	ctx := context.Background()

	_, err := store.Next(ctx, "invoice:1")
	require.NoError(t, err)
	_, err = store.Next(ctx, "invoice:1")
	require.NoError(t, err)

	got, err := store.Next(ctx, "invoice:2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

func TestNextReportsContentionWhenCASNeverWins(t *testing.T) {
	store, conn := setupStore(t, 3)
	ctx := context.Background()

	_, err := store.Next(ctx, domain.DefaultKey)
	require.NoError(t, err)

	// A competing writer bumps the counter before every CAS attempt.
	var bumping atomic.Bool
	var bumps atomic.Int32
	require.NoError(t, conn.Callback().Raw().Before("gorm:raw").Register("test:compete", func(tx *gorm.DB) {
		if bumping.Load() {
			return
		}
		bumping.Store(true)
		defer bumping.Store(false)
		bumps.Add(1)
		conn.Session(&gorm.Session{NewDB: true}).Exec(
			`UPDATE invoice_sequences SET last_value = last_value + 1 WHERE seq_key = ?`, domain.DefaultKey)
	}))

	_, err = store.Next(ctx, domain.DefaultKey)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSequenceContention)
	assert.Equal(t, int32(3), bumps.Load())
}

func TestInvalidKey(t *testing.T) {
	store, _ := setupStore(t, 0)
	_, err := store.Next(context.Background(), " ")
	assert.ErrorIs(t, err, domain.ErrInvalidKey)
	_, err = store.Current(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidKey)
}

func TestNextHonoursCancelledContext(t *testing.T) {
	store, _ := setupStore(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := store.Next(ctx, domain.DefaultKey)
	assert.ErrorIs(t, err, context.Canceled)
}
