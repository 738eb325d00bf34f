package redisstore

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/freshwall/internal/observability/metrics"
	"github.com/smallbiznis/freshwall/internal/sequence/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	m := metrics.NewInvoiceMetricsWithRegistry(prometheus.NewRegistry())
	return New(client, zap.NewNop(), m), mr
}

func TestNextAndCurrent(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	current, err := store.Current(ctx, domain.DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, int64(0), current)

	first, err := store.Next(ctx, domain.DefaultKey)
	require.NoError(t, err)
	second, err := store.Next(ctx, domain.DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)

	current, err = store.Current(ctx, domain.DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, int64(2), current)

	stored, err := mr.Get("freshwall:invoice_seq:invoice:default")
	require.NoError(t, err)
	assert.Equal(t, "2", stored)
}

func TestConcurrentNextYieldsUniqueNumbers(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	const workers = 50
	var (
		mu   sync.Mutex
		got  []int64
		wg   sync.WaitGroup
		errs []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := store.Next(ctx, "invoice:42")
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			got = append(got, v)
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	for i, v := range got {
		assert.Equal(t, int64(i+1), v)
	}
}

func TestNextFailsWhenRedisIsDown(t *testing.T) {
	store, mr := setupStore(t)
	mr.Close()
	_, err := store.Next(context.Background(), domain.DefaultKey)
	assert.Error(t, err)
}
