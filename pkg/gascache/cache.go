package gascache

import (
	"context"
	"errors"
	"time"

	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"github.com/evmrelay/gas-price-cache/pkg/gas"
)

// Config configures a Cache.
type Config struct {
	// Log is the logger for cache activity.
	Log *zap.Logger

	// Source performs the upstream gas price fetches.
	Source gas.Source

	// Networks maps chain IDs to their cache windows. Chains missing
	// from the map are treated as caching-disabled: every request goes
	// straight upstream.
	Networks map[uint64]NetworkConfig

	// Observer receives cache events. Defaults to NopObserver.
	Observer Observer

	// FetchTimeout bounds each coordinated upstream fetch. Defaults to
	// DefaultFetchTimeout.
	FetchTimeout time.Duration

	// test hook for the clock
	now func() time.Time
}

// Cache serves gas price quotes per chain with a stale-while-revalidate
// policy. It owns a Store and a Coordinator; multiple independent
// caches can coexist in one process.
type Cache struct {
	log         *zap.Logger
	source      gas.Source
	networks    map[uint64]NetworkConfig
	observer    Observer
	store       *Store
	coordinator *Coordinator
	now         func() time.Time
}

func New(config Config) (*Cache, error) {
	switch {
	case config.Log == nil:
		return nil, errors.New("log is required")
	case config.Source == nil:
		return nil, errors.New("source is required")
	}
	if config.Observer == nil {
		config.Observer = NopObserver{}
	}
	if config.now == nil {
		config.now = time.Now
	}

	for chainID, network := range config.Networks {
		if !network.Enabled {
			continue
		}
		if err := network.Validate(); err != nil {
			return nil, errs.New("network %d: %v", chainID, err)
		}
	}

	store := NewStore()
	coordinator, err := NewCoordinator(CoordinatorConfig{
		Log:          config.Log,
		Source:       config.Source,
		Store:        store,
		Observer:     config.Observer,
		FetchTimeout: config.FetchTimeout,
		now:          config.now,
	})
	if err != nil {
		return nil, err
	}

	return &Cache{
		log:         config.Log,
		source:      config.Source,
		networks:    config.Networks,
		observer:    config.Observer,
		store:       store,
		coordinator: coordinator,
		now:         config.now,
	}, nil
}

// GasPrice returns a gas price quote for the chain.
//
// Fresh and stale snapshots are returned without waiting on the
// network; a stale read also triggers a background refresh. Expired or
// missing snapshots make the caller wait on a coordinated upstream
// fetch, sharing it with any concurrent callers for the same chain. A
// chain with caching disabled goes straight upstream on every call.
func (c *Cache) GasPrice(ctx context.Context, chainID uint64) (gas.Prices, error) {
	network, ok := c.networks[chainID]
	if !ok || !network.Enabled {
		c.observer.Bypass(chainID)
		return c.source.FetchPrices(ctx, chainID)
	}

	snapshot, ok := c.store.Get(chainID)
	if !ok {
		return c.fetchSync(ctx, chainID)
	}

	switch freshness := Classify(snapshot.Age(c.now()), network); freshness {
	case Fresh:
		c.observer.Hit(chainID, Fresh)
		return snapshot.Prices, nil
	case Stale:
		c.observer.Hit(chainID, Stale)
		c.coordinator.TriggerBackground(chainID)
		return snapshot.Prices, nil
	default:
		return c.fetchSync(ctx, chainID)
	}
}

func (c *Cache) fetchSync(ctx context.Context, chainID uint64) (gas.Prices, error) {
	c.observer.SyncFetch(chainID)
	c.log.Debug("No servable gas price snapshot; fetching synchronously",
		zap.Uint64("chain-id", chainID),
	)
	return c.coordinator.FetchSync(ctx, chainID)
}

// Inspect reports the cached snapshot and its current freshness for a
// chain without touching the upstream.
func (c *Cache) Inspect(chainID uint64) (Snapshot, Freshness) {
	network, ok := c.networks[chainID]
	if !ok || !network.Enabled {
		return Snapshot{}, Absent
	}
	snapshot, ok := c.store.Get(chainID)
	if !ok {
		return Snapshot{}, Absent
	}
	return snapshot, Classify(snapshot.Age(c.now()), network)
}

// Len returns the number of chains holding a snapshot.
func (c *Cache) Len() int {
	return c.store.Len()
}
