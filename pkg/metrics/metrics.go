// Package metrics records gas price cache events as prometheus
// counters.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/evmrelay/gas-price-cache/pkg/gascache"
)

var (
	// cardinality: chains × 2
	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gas_price_cache_hits_total",
		Help: "Requests served from the gas price cache",
	}, []string{"chain_id", "freshness"})

	cacheRefreshTriggers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gas_price_cache_background_refreshes_total",
		Help: "Background refreshes started for stale snapshots",
	}, []string{"chain_id"})

	// cardinality: chains × 2
	cacheRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gas_price_cache_refreshes_total",
		Help: "Completed upstream gas price fetches",
	}, []string{"chain_id", "result"})

	cacheSyncFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gas_price_cache_sync_fetches_total",
		Help: "Requests that had to wait on an upstream fetch",
	}, []string{"chain_id"})

	cacheBypasses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gas_price_cache_bypasses_total",
		Help: "Requests on cache-disabled chains going straight upstream",
	}, []string{"chain_id"})
)

// Observer implements gascache.Observer on the prometheus default
// registry.
type Observer struct{}

var _ gascache.Observer = Observer{}

func (Observer) Hit(chainID uint64, freshness gascache.Freshness) {
	cacheHits.WithLabelValues(chainLabel(chainID), freshness.String()).Inc()
}

func (Observer) RefreshTriggered(chainID uint64) {
	cacheRefreshTriggers.WithLabelValues(chainLabel(chainID)).Inc()
}

func (Observer) RefreshCompleted(chainID uint64, ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	cacheRefreshes.WithLabelValues(chainLabel(chainID), result).Inc()
}

func (Observer) SyncFetch(chainID uint64) {
	cacheSyncFetches.WithLabelValues(chainLabel(chainID)).Inc()
}

func (Observer) Bypass(chainID uint64) {
	cacheBypasses.WithLabelValues(chainLabel(chainID)).Inc()
}

func chainLabel(chainID uint64) string {
	return strconv.FormatUint(chainID, 10)
}
