// Package extrafee computes network specific fee components charged on
// top of standard execution gas, such as the L1 data availability fee
// on OP-stack networks.
package extrafee

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/zeebo/errs"
)

// OracleAddress is the predeploy address of the OP-stack gas price
// oracle contract.
var OracleAddress = common.HexToAddress("0x420000000000000000000000000000000000000F")

// Function selectors on the gas price oracle.
var (
	selL1BaseFee         = []byte{0x51, 0x9b, 0x4b, 0xd3} // l1BaseFee()
	selBaseFee           = []byte{0x6e, 0xf2, 0x5c, 0x3a} // baseFee()
	selDecimals          = []byte{0x31, 0x3c, 0xe5, 0x67} // decimals()
	selBlobBaseFee       = []byte{0xf8, 0x20, 0x61, 0x40} // blobBaseFee()
	selBaseFeeScalar     = []byte{0xc5, 0x98, 0x59, 0x18} // baseFeeScalar()
	selBlobBaseFeeScalar = []byte{0x68, 0xd5, 0xdc, 0xa6} // blobBaseFeeScalar()
)

// ContractCaller is the subset of ethclient.Client the oracle reads
// need.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// FeeData holds one reading of the oracle parameters.
type FeeData struct {
	L1BaseFee         *big.Int
	BaseFee           *big.Int
	Decimals          *big.Int
	BlobBaseFee       *big.Int
	BaseFeeScalar     *big.Int
	BlobBaseFeeScalar *big.Int
}

// Optimism reads the gas price oracle and prices transaction payloads
// by their estimated compressed size.
type Optimism struct {
	caller ContractCaller
	oracle common.Address
}

func NewOptimism(caller ContractCaller) *Optimism {
	return &Optimism{
		caller: caller,
		oracle: OracleAddress,
	}
}

// FetchFeeData reads the current oracle parameters.
func (o *Optimism) FetchFeeData(ctx context.Context) (FeeData, error) {
	var data FeeData
	for _, read := range []struct {
		selector []byte
		into     **big.Int
	}{
		{selL1BaseFee, &data.L1BaseFee},
		{selBaseFee, &data.BaseFee},
		{selDecimals, &data.Decimals},
		{selBlobBaseFee, &data.BlobBaseFee},
		{selBaseFeeScalar, &data.BaseFeeScalar},
		{selBlobBaseFeeScalar, &data.BlobBaseFeeScalar},
	} {
		value, err := o.readUint(ctx, read.selector)
		if err != nil {
			return FeeData{}, err
		}
		*read.into = value
	}
	return data, nil
}

func (o *Optimism) readUint(ctx context.Context, selector []byte) (*big.Int, error) {
	out, err := o.caller.CallContract(ctx, ethereum.CallMsg{
		To:   &o.oracle,
		Data: selector,
	}, nil)
	if err != nil {
		return nil, errs.Wrap(err)
	}
	return new(big.Int).SetBytes(out), nil
}

// Fee estimates the L1 data fee for a transaction payload against a
// fee data reading. The payload is priced by its estimated compressed
// size: zero bytes count 4 gas, non-zero bytes 16, scaled down by 16.
func (o *Optimism) Fee(data FeeData, payload []byte) *big.Int {
	size := compressedSize(payload)

	weighted := new(big.Int).Mul(big.NewInt(16), data.BaseFeeScalar)
	weighted.Mul(weighted, data.L1BaseFee)
	weighted.Add(weighted, new(big.Int).Mul(data.BlobBaseFeeScalar, data.BlobBaseFee))

	return size.Mul(size, weighted)
}

func compressedSize(payload []byte) *big.Int {
	var zeros, nonZeros int64
	for _, b := range payload {
		if b == 0 {
			zeros++
		} else {
			nonZeros++
		}
	}
	return big.NewInt((zeros*4 + nonZeros*16) / 16)
}
