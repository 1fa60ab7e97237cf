package gascache

// Observer receives cache events. Implementations must be safe for
// concurrent use and must not block: events fire on the read path.
type Observer interface {
	// Hit fires when a request is served from the cache. Freshness is
	// Fresh or Stale.
	Hit(chainID uint64, freshness Freshness)

	// RefreshTriggered fires when a background refresh is started for a
	// stale snapshot.
	RefreshTriggered(chainID uint64)

	// RefreshCompleted fires when any coordinated fetch finishes,
	// background or synchronous.
	RefreshCompleted(chainID uint64, ok bool)

	// SyncFetch fires when a request has no servable snapshot and must
	// wait on an upstream fetch.
	SyncFetch(chainID uint64)

	// Bypass fires when caching is disabled for the chain and the
	// request goes straight upstream.
	Bypass(chainID uint64)
}

// NopObserver discards all events.
type NopObserver struct{}

var _ Observer = NopObserver{}

func (NopObserver) Hit(uint64, Freshness)         {}
func (NopObserver) RefreshTriggered(uint64)       {}
func (NopObserver) RefreshCompleted(uint64, bool) {}
func (NopObserver) SyncFetch(uint64)              {}
func (NopObserver) Bypass(uint64)                 {}
