// Package gas defines the gas price quote types shared between the
// cache and the upstream node clients.
package gas

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
)

// Prices is one gas price quote for a network. The cache treats it as
// an opaque value: it is captured whole from the upstream node and
// replaced whole, never mutated in place.
type Prices struct {
	// GasPrice is the legacy (pre-EIP-1559) suggested gas price in wei.
	GasPrice *big.Int

	// TipCap is the suggested EIP-1559 priority fee in wei.
	TipCap *big.Int

	// BaseFee is the base fee of the latest block in wei. Nil on
	// networks that predate EIP-1559.
	BaseFee *big.Int

	// FeeHistory is a recent fee history window for downstream fee
	// estimators.
	FeeHistory *ethereum.FeeHistory
}

// Source fetches a live gas price quote for a chain. Implementations
// perform a single upstream round per call: no retries, no caching.
// Errors are returned unchanged to the caller.
type Source interface {
	FetchPrices(ctx context.Context, chainID uint64) (Prices, error)
}
