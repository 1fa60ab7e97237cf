package gascache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/errs"
	"go.uber.org/zap/zaptest"

	"github.com/evmrelay/gas-price-cache/pkg/gas"
)

var testWindows = NetworkConfig{
	Enabled:     true,
	StaleAfter:  20 * time.Second,
	ExpireAfter: 45 * time.Second,
}

func newTestCache(t *testing.T, source gas.Source, clock *testClock, networks map[uint64]NetworkConfig, observer Observer) *Cache {
	cache, err := New(Config{
		Log:      zaptest.NewLogger(t),
		Source:   source,
		Networks: networks,
		Observer: observer,
		now:      clock.Now,
	})
	require.NoError(t, err)
	return cache
}

func TestNewCacheValidation(t *testing.T) {
	source := newTestSource(returning(pricesWei(1)))
	log := zaptest.NewLogger(t)

	_, err := New(Config{Source: source})
	require.EqualError(t, err, "log is required")

	_, err = New(Config{Log: log})
	require.EqualError(t, err, "source is required")

	_, err = New(Config{
		Log:    log,
		Source: source,
		Networks: map[uint64]NetworkConfig{
			1: {Enabled: true, StaleAfter: 45 * time.Second, ExpireAfter: 20 * time.Second},
		},
	})
	require.EqualError(t, err, "network 1: expire_after must be greater than stale_after")

	// Disabled networks skip window validation: they never classify.
	_, err = New(Config{
		Log:    log,
		Source: source,
		Networks: map[uint64]NetworkConfig{
			1: {Enabled: false},
		},
	})
	require.NoError(t, err)
}

func TestCacheFreshReadSkipsUpstream(t *testing.T) {
	clock := newTestClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	source := newTestSource(returning(pricesWei(100)))
	observer := newCountingObserver()
	cache := newTestCache(t, source, clock, map[uint64]NetworkConfig{1: testWindows}, observer)

	// First read has nothing cached and fetches synchronously.
	prices, err := cache.GasPrice(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(100), prices.GasPrice.Int64())
	assert.Equal(t, 1, source.callCount())

	// Within the fresh window reads never touch the upstream.
	clock.Advance(5 * time.Second)
	prices, err = cache.GasPrice(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(100), prices.GasPrice.Int64())
	assert.Equal(t, 1, source.callCount())

	assert.Equal(t, 1, observer.hitCount(Fresh))
	_, syncFetches, _ := observer.counts()
	assert.Equal(t, 1, syncFetches)
}

func TestCacheStaleWhileRevalidate(t *testing.T) {
	// Snapshot captured at t=0 with V1; a read at t=25s serves V1
	// stale and triggers one background fetch; the fetch lands V2,
	// and a read at t=30s serves V2 fresh.
	clock := newTestClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	source := newTestSource(returning(pricesWei(100)))
	observer := newCountingObserver()
	cache := newTestCache(t, source, clock, map[uint64]NetworkConfig{1: testWindows}, observer)

	_, err := cache.GasPrice(context.Background(), 1)
	require.NoError(t, err)

	clock.Advance(25 * time.Second)
	source.setHandler(returning(pricesWei(200)))

	prices, err := cache.GasPrice(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(100), prices.GasPrice.Int64(), "stale read must serve the old value")
	assert.Equal(t, 1, observer.hitCount(Stale))

	require.Eventually(t, func() bool {
		snapshot, freshness := cache.Inspect(1)
		return freshness == Fresh && snapshot.Prices.GasPrice.Int64() == 200
	}, 5*time.Second, time.Millisecond)
	assert.Equal(t, 2, source.callCount())

	// The refreshed snapshot is classified against its own capture
	// time.
	clock.Advance(5 * time.Second)
	prices, err = cache.GasPrice(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(200), prices.GasPrice.Int64())
	assert.Equal(t, 2, source.callCount())
	assert.Equal(t, 1, observer.hitCount(Fresh))

	triggered, syncFetches, _ := observer.counts()
	assert.Equal(t, 1, triggered)
	assert.Equal(t, 1, syncFetches)
}

func TestCacheStaleReadDoesNotWaitOnUpstream(t *testing.T) {
	clock := newTestClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	source := newTestSource(returning(pricesWei(100)))
	cache := newTestCache(t, source, clock, map[uint64]NetworkConfig{1: testWindows}, newCountingObserver())

	_, err := cache.GasPrice(context.Background(), 1)
	require.NoError(t, err)

	// The background refresh hangs until released; the stale read must
	// return anyway.
	release := make(chan struct{})
	source.setHandler(func(uint64) (gas.Prices, error) {
		<-release
		return pricesWei(200), nil
	})

	clock.Advance(25 * time.Second)
	prices, err := cache.GasPrice(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(100), prices.GasPrice.Int64())

	close(release)
	require.Eventually(t, func() bool {
		snapshot, _ := cache.Inspect(1)
		return snapshot.Prices.GasPrice.Int64() == 200
	}, 5*time.Second, time.Millisecond)
}

func TestCacheExpiredBoundaryForcesSyncFetch(t *testing.T) {
	// An age of exactly expire_after is expired, not stale.
	clock := newTestClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	source := newTestSource(returning(pricesWei(100)))
	observer := newCountingObserver()
	cache := newTestCache(t, source, clock, map[uint64]NetworkConfig{1: testWindows}, observer)

	_, err := cache.GasPrice(context.Background(), 1)
	require.NoError(t, err)

	clock.Advance(45 * time.Second)
	source.setHandler(returning(pricesWei(200)))

	prices, err := cache.GasPrice(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(200), prices.GasPrice.Int64())
	assert.Equal(t, 2, source.callCount())

	_, syncFetches, _ := observer.counts()
	assert.Equal(t, 2, syncFetches)
}

func TestCacheFailedBackgroundRefreshKeepsServingStale(t *testing.T) {
	clock := newTestClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	source := newTestSource(returning(pricesWei(100)))
	observer := newCountingObserver()
	cache := newTestCache(t, source, clock, map[uint64]NetworkConfig{1: testWindows}, observer)

	_, err := cache.GasPrice(context.Background(), 1)
	require.NoError(t, err)

	clock.Advance(25 * time.Second)
	source.setHandler(failingWith(errs.New("upstream down")))

	prices, err := cache.GasPrice(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(100), prices.GasPrice.Int64())

	require.Eventually(t, func() bool {
		return observer.refreshResults(false) == 1
	}, 5*time.Second, time.Millisecond)

	// The failure did not evict the snapshot; it is just older now.
	clock.Advance(time.Second)
	snapshot, freshness := cache.Inspect(1)
	assert.Equal(t, Stale, freshness)
	assert.Equal(t, int64(100), snapshot.Prices.GasPrice.Int64())

	// And the coordinator is not poisoned: the next stale read triggers
	// another refresh that can succeed.
	source.setHandler(returning(pricesWei(300)))
	prices, err = cache.GasPrice(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(100), prices.GasPrice.Int64())

	require.Eventually(t, func() bool {
		snapshot, _ := cache.Inspect(1)
		return snapshot.Prices.GasPrice.Int64() == 300
	}, 5*time.Second, time.Millisecond)
	assert.Equal(t, 3, source.callCount())
}

func TestCacheSyncFetchErrorPropagates(t *testing.T) {
	clock := newTestClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	boom := errs.New("malformed response")
	source := newTestSource(failingWith(boom))
	cache := newTestCache(t, source, clock, map[uint64]NetworkConfig{1: testWindows}, newCountingObserver())

	_, err := cache.GasPrice(context.Background(), 1)
	require.ErrorIs(t, err, boom)
}

func TestCacheDisabledNetworkBypasses(t *testing.T) {
	// With caching disabled every call is a direct upstream fetch, with
	// no background task and no coalescing.
	clock := newTestClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	source := newTestSource(returning(pricesWei(100)))
	observer := newCountingObserver()
	cache := newTestCache(t, source, clock, map[uint64]NetworkConfig{
		1: {Enabled: false},
	}, observer)

	for i := 0; i < 3; i++ {
		prices, err := cache.GasPrice(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, int64(100), prices.GasPrice.Int64())
	}
	assert.Equal(t, 3, source.callCount())

	triggered, syncFetches, bypasses := observer.counts()
	assert.Equal(t, 0, triggered)
	assert.Equal(t, 0, syncFetches)
	assert.Equal(t, 3, bypasses)

	_, freshness := cache.Inspect(1)
	assert.Equal(t, Absent, freshness)
	assert.Equal(t, 0, cache.Len())
}

func TestCacheUnknownChainBypasses(t *testing.T) {
	clock := newTestClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	source := newTestSource(returning(pricesWei(100)))
	observer := newCountingObserver()
	cache := newTestCache(t, source, clock, nil, observer)

	_, err := cache.GasPrice(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 1, source.callCount())

	_, _, bypasses := observer.counts()
	assert.Equal(t, 1, bypasses)
}

func TestCacheLen(t *testing.T) {
	clock := newTestClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	source := newTestSource(returning(pricesWei(100)))
	cache := newTestCache(t, source, clock, map[uint64]NetworkConfig{
		1: testWindows,
		5: testWindows,
	}, newCountingObserver())

	assert.Equal(t, 0, cache.Len())

	_, err := cache.GasPrice(context.Background(), 1)
	require.NoError(t, err)
	_, err = cache.GasPrice(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, 2, cache.Len())
}
