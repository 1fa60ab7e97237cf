// Package eth implements the gas price source backed by go-ethereum
// JSON-RPC node clients.
package eth

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/zeebo/errs"

	"github.com/evmrelay/gas-price-cache/pkg/gas"
)

const (
	// feeHistoryBlocks is how many recent blocks of fee history are
	// captured with each quote.
	feeHistoryBlocks = 4
)

// rewardPercentiles are the priority fee percentiles requested from
// eth_feeHistory.
var rewardPercentiles = []float64{25, 50, 75}

// FeeReader is the subset of ethclient.Client the source needs.
type FeeReader interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	FeeHistory(ctx context.Context, blockCount uint64, lastBlock *big.Int, rewardPercentiles []float64) (*ethereum.FeeHistory, error)
}

var _ FeeReader = (*ethclient.Client)(nil)

// Source fetches gas price quotes from one node client per chain.
type Source struct {
	mu      sync.Mutex
	readers map[uint64]FeeReader
}

var _ gas.Source = (*Source)(nil)

func NewSource() *Source {
	return &Source{
		readers: make(map[uint64]FeeReader),
	}
}

// AddChain registers the node client serving a chain. Registering the
// same chain again replaces the previous client.
func (s *Source) AddChain(chainID uint64, reader FeeReader) {
	s.mu.Lock()
	s.readers[chainID] = reader
	s.mu.Unlock()
}

// FetchPrices performs one round of quote calls against the chain's
// node and returns the assembled quote. No retries; the first failing
// call fails the fetch.
func (s *Source) FetchPrices(ctx context.Context, chainID uint64) (gas.Prices, error) {
	s.mu.Lock()
	reader, ok := s.readers[chainID]
	s.mu.Unlock()
	if !ok {
		return gas.Prices{}, errs.New("no node registered for chain %d", chainID)
	}

	gasPrice, err := reader.SuggestGasPrice(ctx)
	if err != nil {
		return gas.Prices{}, errs.Wrap(err)
	}

	tipCap, err := reader.SuggestGasTipCap(ctx)
	if err != nil {
		return gas.Prices{}, errs.Wrap(err)
	}

	header, err := reader.HeaderByNumber(ctx, nil)
	if err != nil {
		return gas.Prices{}, errs.Wrap(err)
	}

	feeHistory, err := reader.FeeHistory(ctx, feeHistoryBlocks, nil, rewardPercentiles)
	if err != nil {
		return gas.Prices{}, errs.Wrap(err)
	}

	return gas.Prices{
		GasPrice:   gasPrice,
		TipCap:     tipCap,
		BaseFee:    header.BaseFee,
		FeeHistory: feeHistory,
	}, nil
}
