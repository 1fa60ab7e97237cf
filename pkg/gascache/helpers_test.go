package gascache

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/evmrelay/gas-price-cache/pkg/gas"
)

type fetchHandler func(chainID uint64) (gas.Prices, error)

// testSource is a gas.Source with a swappable handler and call
// accounting.
type testSource struct {
	mu      sync.Mutex
	calls   int
	handler fetchHandler
}

func newTestSource(handler fetchHandler) *testSource {
	return &testSource{handler: handler}
}

func (s *testSource) FetchPrices(ctx context.Context, chainID uint64) (gas.Prices, error) {
	s.mu.Lock()
	s.calls++
	handler := s.handler
	s.mu.Unlock()
	return handler(chainID)
}

func (s *testSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *testSource) setHandler(handler fetchHandler) {
	s.mu.Lock()
	s.handler = handler
	s.mu.Unlock()
}

func pricesWei(gasPrice int64) gas.Prices {
	return gas.Prices{
		GasPrice: big.NewInt(gasPrice),
		TipCap:   big.NewInt(gasPrice / 10),
		BaseFee:  big.NewInt(gasPrice / 2),
	}
}

func returning(prices gas.Prices) fetchHandler {
	return func(uint64) (gas.Prices, error) {
		return prices, nil
	}
}

func failingWith(err error) fetchHandler {
	return func(uint64) (gas.Prices, error) {
		return gas.Prices{}, err
	}
}

// testClock is a manually advanced clock plugged into the now hooks.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock(start time.Time) *testClock {
	return &testClock{t: start}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// countingObserver records how often each cache event fired.
type countingObserver struct {
	mu               sync.Mutex
	hits             map[Freshness]int
	refreshTriggered int
	refreshCompleted map[bool]int
	syncFetches      int
	bypasses         int
}

var _ Observer = (*countingObserver)(nil)

func newCountingObserver() *countingObserver {
	return &countingObserver{
		hits:             make(map[Freshness]int),
		refreshCompleted: make(map[bool]int),
	}
}

func (o *countingObserver) Hit(chainID uint64, freshness Freshness) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hits[freshness]++
}

func (o *countingObserver) RefreshTriggered(chainID uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.refreshTriggered++
}

func (o *countingObserver) RefreshCompleted(chainID uint64, ok bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.refreshCompleted[ok]++
}

func (o *countingObserver) SyncFetch(chainID uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.syncFetches++
}

func (o *countingObserver) Bypass(chainID uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.bypasses++
}

func (o *countingObserver) hitCount(freshness Freshness) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.hits[freshness]
}

func (o *countingObserver) refreshResults(ok bool) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.refreshCompleted[ok]
}

func (o *countingObserver) counts() (triggered, syncFetches, bypasses int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.refreshTriggered, o.syncFetches, o.bypasses
}
