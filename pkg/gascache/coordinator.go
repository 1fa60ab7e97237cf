package gascache

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/evmrelay/gas-price-cache/pkg/gas"
)

const (
	// DefaultFetchTimeout bounds a single upstream fetch. The fetch
	// runs under its own context so that a caller giving up early does
	// not abandon an update other readers are waiting on.
	DefaultFetchTimeout = 30 * time.Second
)

// CoordinatorConfig configures a Coordinator.
type CoordinatorConfig struct {
	// Log is the logger for refresh activity.
	Log *zap.Logger

	// Source performs the upstream fetches.
	Source gas.Source

	// Store receives the snapshots captured by completed fetches.
	Store *Store

	// Observer receives refresh events. Defaults to NopObserver.
	Observer Observer

	// FetchTimeout bounds each upstream fetch. Defaults to
	// DefaultFetchTimeout.
	FetchTimeout time.Duration

	// test hook for the clock used to stamp snapshots
	now func() time.Time
}

// Coordinator serializes upstream fetches per chain. For any one chain
// there is at most one fetch in flight at a time; everyone who needs a
// result while it runs shares it. A failed fetch leaves the previous
// snapshot in place and the chain immediately retryable.
type Coordinator struct {
	log          *zap.Logger
	source       gas.Source
	store        *Store
	observer     Observer
	fetchTimeout time.Duration
	now          func() time.Time

	mu     sync.Mutex
	chains map[uint64]*chainState
}

// chainState is the per-chain refresh state machine: flight is nil when
// idle and non-nil while a fetch is in flight. Transitions happen under
// the per-chain mutex so two racing callers can never start two
// fetches.
type chainState struct {
	mu     sync.Mutex
	flight *flight
}

// flight is one in-flight upstream fetch. The result fields are written
// exactly once, before done is closed; everyone waiting on done reads
// them afterwards.
type flight struct {
	done    chan struct{}
	joiners int

	prices gas.Prices
	err    error
}

func NewCoordinator(config CoordinatorConfig) (*Coordinator, error) {
	switch {
	case config.Log == nil:
		return nil, errors.New("log is required")
	case config.Source == nil:
		return nil, errors.New("source is required")
	case config.Store == nil:
		return nil, errors.New("store is required")
	}
	if config.Observer == nil {
		config.Observer = NopObserver{}
	}
	if config.FetchTimeout == 0 {
		config.FetchTimeout = DefaultFetchTimeout
	}
	if config.now == nil {
		config.now = time.Now
	}

	return &Coordinator{
		log:          config.Log,
		source:       config.Source,
		store:        config.Store,
		observer:     config.Observer,
		fetchTimeout: config.FetchTimeout,
		now:          config.now,
		chains:       make(map[uint64]*chainState),
	}, nil
}

func (c *Coordinator) chain(chainID uint64) *chainState {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.chains[chainID]
	if !ok {
		state = new(chainState)
		c.chains[chainID] = state
	}
	return state
}

// TriggerBackground starts a refresh for the chain unless one is
// already in flight. It never waits on the fetch. Reports whether a new
// fetch was started.
func (c *Coordinator) TriggerBackground(chainID uint64) bool {
	state := c.chain(chainID)

	state.mu.Lock()
	if state.flight != nil {
		// The in-flight fetch will satisfy the freshness need once it
		// lands.
		state.mu.Unlock()
		return false
	}
	f := newFlight()
	state.flight = f
	state.mu.Unlock()

	c.observer.RefreshTriggered(chainID)
	c.log.Debug("Background gas price refresh triggered",
		zap.Uint64("chain-id", chainID),
	)
	go c.run(chainID, state, f)
	return true
}

// FetchSync returns the result of the in-flight fetch for the chain,
// starting one if none is running. Concurrent callers share one
// upstream call. If ctx ends before the fetch does, the caller gets the
// context error; the fetch keeps running and still updates the store
// for future readers.
func (c *Coordinator) FetchSync(ctx context.Context, chainID uint64) (gas.Prices, error) {
	state := c.chain(chainID)

	state.mu.Lock()
	f := state.flight
	joined := f != nil
	if !joined {
		f = newFlight()
		state.flight = f
	} else {
		f.joiners++
		joiners := f.joiners
		state.mu.Unlock()
		c.log.Debug("Joining in-flight gas price fetch",
			zap.Uint64("chain-id", chainID),
			zap.Int("joiners", joiners),
		)
		return c.wait(ctx, f)
	}
	state.mu.Unlock()

	go c.run(chainID, state, f)
	return c.wait(ctx, f)
}

func (c *Coordinator) wait(ctx context.Context, f *flight) (gas.Prices, error) {
	select {
	case <-f.done:
		return f.prices, f.err
	case <-ctx.Done():
		return gas.Prices{}, ctx.Err()
	}
}

// run performs the upstream fetch for a flight and publishes its
// result. On success the snapshot is installed before the chain goes
// back to idle, so a fetch started afterwards can never be overwritten
// by this one.
func (c *Coordinator) run(chainID uint64, state *chainState, f *flight) {
	ctx, cancel := context.WithTimeout(context.Background(), c.fetchTimeout)
	defer cancel()

	prices, err := c.source.FetchPrices(ctx, chainID)

	if err == nil {
		c.store.Put(chainID, Snapshot{
			Prices:     prices,
			CapturedAt: c.now(),
		})
	}

	state.mu.Lock()
	state.flight = nil
	state.mu.Unlock()

	f.prices, f.err = prices, err
	close(f.done)

	if err != nil {
		c.observer.RefreshCompleted(chainID, false)
		c.log.Warn("Gas price fetch failed; any previous snapshot stays served until it expires",
			zap.Uint64("chain-id", chainID),
			zap.Error(err),
		)
		return
	}
	c.observer.RefreshCompleted(chainID, true)
	c.log.Debug("Gas price snapshot updated",
		zap.Uint64("chain-id", chainID),
	)
}

// inFlightJoiners reports how many callers joined the current flight
// for the chain. Used by tests to sequence concurrent callers.
func (c *Coordinator) inFlightJoiners(chainID uint64) int {
	state := c.chain(chainID)
	state.mu.Lock()
	defer state.mu.Unlock()
	if state.flight == nil {
		return 0
	}
	return state.flight.joiners
}

func newFlight() *flight {
	return &flight{
		done: make(chan struct{}),
	}
}
