// Package gascache caches gas price quotes per network with a
// stale-while-revalidate policy: fresh and stale snapshots are served
// without touching the upstream node, stale reads kick off a background
// refresh, and expired or missing snapshots force a synchronous fetch
// that concurrent callers share.
package gascache

import (
	"time"

	"github.com/zeebo/errs"

	"github.com/evmrelay/gas-price-cache/pkg/gas"
)

// Freshness classifies the age of a cached snapshot against a network's
// cache windows.
type Freshness int

const (
	// Absent means there is no usable snapshot: none has been captured
	// yet, or caching is disabled for the network.
	Absent Freshness = iota

	// Fresh means the snapshot is younger than the stale window and may
	// be served as is.
	Fresh

	// Stale means the snapshot may still be served but should be
	// revalidated in the background.
	Stale

	// Expired means the snapshot is too old to serve.
	Expired
)

func (f Freshness) String() string {
	switch f {
	case Absent:
		return "absent"
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	case Expired:
		return "expired"
	}
	return "unknown"
}

// NetworkConfig holds the per-network cache windows. A snapshot younger
// than StaleAfter is fresh, one at least ExpireAfter old is expired,
// and anything in between is stale.
type NetworkConfig struct {
	Enabled     bool
	StaleAfter  time.Duration
	ExpireAfter time.Duration
}

// Validate rejects window combinations that would make classification
// ambiguous. Violations are configuration errors and never reach the
// serving path.
func (c NetworkConfig) Validate() error {
	switch {
	case c.StaleAfter <= 0:
		return errs.New("stale_after must be greater than zero")
	case c.ExpireAfter <= 0:
		return errs.New("expire_after must be greater than zero")
	case c.StaleAfter >= c.ExpireAfter:
		return errs.New("expire_after must be greater than stale_after")
	}
	return nil
}

// Snapshot is one captured gas price quote. Snapshots are immutable;
// refreshing a network installs a new snapshot rather than mutating the
// old one.
type Snapshot struct {
	Prices     gas.Prices
	CapturedAt time.Time
}

// Age returns how old the snapshot is at the given instant.
func (s Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.CapturedAt)
}

// Classify buckets a snapshot age against the network's windows. An age
// exactly on a boundary belongs to the staler bucket, so the buckets
// never overlap. A disabled network always classifies as Absent,
// regardless of what is cached.
func Classify(age time.Duration, config NetworkConfig) Freshness {
	switch {
	case !config.Enabled:
		return Absent
	case age < config.StaleAfter:
		return Fresh
	case age < config.ExpireAfter:
		return Stale
	default:
		return Expired
	}
}
