// Package units converts between human-readable decimal amounts and integer
// base units for a given number of decimals.
//
// Scaling is exact: the decimal string is shifted by 10^decimals and rounded
// to the nearest integer, ties away from zero. No floating point is involved.
package units

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	sdkmath "cosmossdk.io/math"
	"github.com/shopspring/decimal"

	"github.com/Klingon-tech/coinforge/pkg/types"
)

// ErrInvalidAmount is returned for empty, non-numeric or out-of-range input.
var ErrInvalidAmount = errors.New("invalid amount")

// MaxDecimals is the largest decimals value accepted by the converters.
const MaxDecimals = 38

var (
	// Optional sign, optional leading '.', at least one digit.
	amountPattern = regexp.MustCompile(`^-?(\d+\.?\d*|\.\d+)$`)

	bareFraction = regexp.MustCompile(`^-?\.\d+$`)
	numericParts = regexp.MustCompile(`^(-?)(0*)(\d*)(\.?\d*)$`)
)

// ToBaseUnits parses a decimal string and scales it by 10^decimals.
// "1.5" with 9 decimals is 1500000000; "0.0000000005" with 9 decimals rounds to 1.
func ToBaseUnits(human string, decimals uint8) (types.Amount, error) {
	s := strings.TrimSpace(human)
	if s == "" {
		return types.Amount{}, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	if !amountPattern.MatchString(s) {
		return types.Amount{}, fmt.Errorf("%w: %q is not a decimal number", ErrInvalidAmount, human)
	}
	if decimals > MaxDecimals {
		return types.Amount{}, fmt.Errorf("%w: decimals %d exceeds %d", ErrInvalidAmount, decimals, MaxDecimals)
	}

	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac, _ := strings.Cut(s, ".")
	whole = strings.TrimLeft(whole, "0")
	if whole == "" {
		whole = "0"
	}
	canonical := whole
	if frac != "" {
		canonical += "." + frac
	}

	d, err := decimal.NewFromString(canonical)
	if err != nil {
		return types.Amount{}, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	scaled := d.Shift(int32(decimals)).Round(0)
	if negative {
		scaled = scaled.Neg()
	}

	bi := scaled.BigInt()
	if bi.BitLen() > sdkmath.MaxBitLen {
		return types.Amount{}, fmt.Errorf("%w: %q is too large", ErrInvalidAmount, human)
	}
	return sdkmath.NewIntFromBigInt(bi), nil
}

// ToHuman renders base units as a decimal string. The fractional part is the
// remainder zero-padded to decimals digits and then truncated (not rounded)
// to precision digits. With zero decimals or zero precision no fractional part
// is printed.
func ToHuman(base types.Amount, decimals uint8, precision int) string {
	if base.IsNil() {
		return "0"
	}
	negative := base.IsNegative()
	abs := base.Abs()

	divisor := Pow10(decimals)
	whole := abs.Quo(divisor)
	frac := abs.Mod(divisor)

	var fracStr string
	if decimals > 0 && precision > 0 {
		fracStr = frac.String()
		if len(fracStr) < int(decimals) {
			fracStr = strings.Repeat("0", int(decimals)-len(fracStr)) + fracStr
		}
		if precision < len(fracStr) {
			fracStr = fracStr[:precision]
		}
	}

	out := whole.String()
	if fracStr != "" {
		out += "." + fracStr
	}
	if negative && !(whole.IsZero() && strings.Trim(fracStr, "0") == "") {
		out = "-" + out
	}
	return out
}

// Pow10 returns 10^decimals as an Amount.
func Pow10(decimals uint8) types.Amount {
	p := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return sdkmath.NewIntFromBigInt(p)
}

// NormalizeNumericInput tidies interactive numeric input without parsing it:
// a bare leading "." becomes "0.", superfluous leading zeros of the integer
// part are dropped, and the sign and any decimal tail are kept verbatim.
// Input that does not look numeric is returned unchanged.
func NormalizeNumericInput(raw string) string {
	if raw == "" {
		return ""
	}
	if bareFraction.MatchString(raw) {
		return strings.Replace(raw, ".", "0.", 1)
	}
	m := numericParts.FindStringSubmatch(raw)
	if m == nil {
		return raw
	}
	sign, digits, tail := m[1], m[3], m[4]
	if digits == "" {
		digits = "0"
	}
	return sign + digits + tail
}
