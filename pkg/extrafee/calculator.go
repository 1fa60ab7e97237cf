package extrafee

import (
	"context"
	"math/big"
)

// opStackChains are the chains whose transactions carry an L1 data fee
// priced by the gas price oracle predeploy.
var opStackChains = map[uint64]bool{
	10:       true, // OP Mainnet
	420:      true, // OP Goerli
	11155420: true, // OP Sepolia
	8453:     true, // Base
	84532:    true, // Base Sepolia
}

// Calculator estimates the extra fee component a chain charges per
// transaction on top of execution gas. Chains without one report zero.
type Calculator struct {
	optimism *Optimism
}

// NewCalculator returns the extra fee calculator for a chain. The
// caller is only consulted on chains that have an extra fee component.
func NewCalculator(chainID uint64, caller ContractCaller) Calculator {
	if opStackChains[chainID] {
		return Calculator{optimism: NewOptimism(caller)}
	}
	return Calculator{}
}

// HasExtraFee reports whether the chain charges an extra fee at all.
func (c Calculator) HasExtraFee() bool {
	return c.optimism != nil
}

// ExtraFee estimates the extra fee for a transaction payload.
func (c Calculator) ExtraFee(ctx context.Context, payload []byte) (*big.Int, error) {
	if c.optimism == nil {
		return big.NewInt(0), nil
	}
	data, err := c.optimism.FetchFeeData(ctx)
	if err != nil {
		return nil, err
	}
	return c.optimism.Fee(data, payload), nil
}
