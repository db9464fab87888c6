package types

import (
	"strings"

	sdkmath "cosmossdk.io/math"
)

// Amount is a non-negative integer quantity in base units.
type Amount = sdkmath.Int

// ZeroAmount returns a zero Amount.
func ZeroAmount() Amount {
	return sdkmath.ZeroInt()
}

// NewAmount returns an Amount from a uint64.
func NewAmount(v uint64) Amount {
	return sdkmath.NewIntFromUint64(v)
}

// CoinType is the fully-qualified type path of a fungible asset,
// e.g. "0x2::sui::SUI". It is used as a map key and never mutated.
type CoinType string

// GasCoinType is the network's native gas coin.
const GasCoinType CoinType = "0x2::sui::SUI"

var gasCoinAddr = MustParseAddress("0x2")

// IsGas reports whether t is the native gas coin. The package address may be
// given in short ("0x2") or long (64 hex characters) form.
func (t CoinType) IsGas() bool {
	parts := strings.SplitN(string(t), "::", 2)
	if len(parts) != 2 || parts[1] != "sui::SUI" {
		return false
	}
	addr, err := ParseAddress(parts[0])
	if err != nil {
		return false
	}
	return addr == gasCoinAddr
}

// Name returns the trailing path segment with any generic arguments
// stripped ("0x..::usdc::USDC" -> "USDC").
func (t CoinType) Name() string {
	s := string(t)
	if i := strings.IndexByte(s, '<'); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndex(s, "::"); i >= 0 {
		s = s[i+2:]
	}
	return s
}

// Short returns an abbreviated coin type for display.
func (t CoinType) Short() string {
	return shorten(string(t))
}

// String implements fmt.Stringer.
func (t CoinType) String() string {
	return string(t)
}

// Coin is one discrete on-chain unit of value. A wallet's balance for a
// coin type is the sum over potentially many such objects.
type Coin struct {
	ObjectID ObjectID `json:"objectId"`
	CoinType CoinType `json:"coinType"`
	Balance  Amount   `json:"balance"`
}

// CoinMeta is the per-type aggregate derived on every inventory refresh.
type CoinMeta struct {
	CoinType     CoinType `json:"coinType"`
	Symbol       string   `json:"symbol"`
	Name         string   `json:"name"`
	Decimals     uint8    `json:"decimals"`
	IconURL      string   `json:"iconUrl,omitempty"` // Empty when absent.
	TotalBalance Amount   `json:"totalBalance"`
	ObjectCount  int      `json:"objectCount"`
	Verified     bool     `json:"verified"`
}

// SumBalances returns the sum of all coin balances.
func SumBalances(coins []Coin) Amount {
	total := sdkmath.ZeroInt()
	for _, c := range coins {
		total = total.Add(c.Balance)
	}
	return total
}
