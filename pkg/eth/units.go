package eth

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Denom is a denomination of ether, expressed as the decimal shift from
// wei.
type Denom int32

const (
	WEI  Denom = 0
	GWEI Denom = 9
	ETH  Denom = 18
)

func (d Denom) String() string {
	switch d {
	case WEI:
		return "wei"
	case GWEI:
		return "gwei"
	case ETH:
		return "eth"
	}
	return ""
}

// Unit is an amount of ether carried in wei with a preferred display
// denomination.
type Unit struct {
	wei   decimal.Decimal
	denom Denom
}

func UnitFromBigInt(value *big.Int, denom Denom) Unit {
	return UnitFromDecimal(decimal.NewFromBigInt(value, 0), denom)
}

func UnitFromDecimal(value decimal.Decimal, denom Denom) Unit {
	if denom.String() == "" {
		panic("denom is not one of WEI, GWEI, ETH")
	}
	wei := value.Shift(int32(denom))
	return Unit{wei: wei, denom: denom}
}

func (u Unit) WEI() Unit {
	return Unit{wei: u.wei, denom: WEI}
}

func (u Unit) GWEI() Unit {
	return Unit{wei: u.wei, denom: GWEI}
}

func (u Unit) ETH() Unit {
	return Unit{wei: u.wei, denom: ETH}
}

func (u Unit) IsZero() bool {
	return u.wei.IsZero()
}

func (u Unit) String() string {
	return fmt.Sprintf("%s%s", u.wei.Shift(-int32(u.denom)), u.denom)
}

func (u Unit) Decimal(denom Denom) decimal.Decimal {
	return u.wei.Shift(-int32(denom))
}

// GweiString formats a wei amount in gwei for display. Nil values print
// as "unset" (networks without EIP-1559 report no base fee).
func GweiString(value *big.Int) string {
	if value == nil {
		return "unset"
	}
	return UnitFromBigInt(value, WEI).GWEI().String()
}
