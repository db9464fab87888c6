package units

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/Klingon-tech/coinforge/pkg/types"
)

func TestToBaseUnits(t *testing.T) {
	tests := []struct {
		in       string
		decimals uint8
		want     string
	}{
		{"1.5", 9, "1500000000"},
		{"100", 9, "100000000000"},
		{".5", 9, "500000000"},
		{"0.5", 0, "1"},    // tie rounds away from zero
		{"-0.5", 0, "-1"},  // tie rounds away from zero
		{"2.4", 0, "2"},
		{"2.6", 0, "3"},
		{"007.10", 2, "710"},
		{"1.", 3, "1000"},
		{"0.0000000005", 9, "1"},
		{"0.0000000004", 9, "0"},
		{"123456789.123456789", 9, "123456789123456789"},
		{"18446744073709551615", 0, "18446744073709551615"},
		{"0.1", 18, "100000000000000000"},
		{"  3  ", 1, "30"},
		{"-2", 2, "-200"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_d%d", tt.in, tt.decimals), func(t *testing.T) {
			got, err := ToBaseUnits(tt.in, tt.decimals)
			if err != nil {
				t.Fatalf("ToBaseUnits(%q, %d): %v", tt.in, tt.decimals, err)
			}
			if got.String() != tt.want {
				t.Errorf("ToBaseUnits(%q, %d) = %s, want %s", tt.in, tt.decimals, got, tt.want)
			}
		})
	}
}

func TestToBaseUnits_Invalid(t *testing.T) {
	for _, in := range []string{"", "   ", "abc", "1e5", "1.2.3", "--1", ".", "-", "0x10", "1,000", "+1"} {
		_, err := ToBaseUnits(in, 9)
		if !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("ToBaseUnits(%q) error = %v, want ErrInvalidAmount", in, err)
		}
	}
}

func TestToBaseUnits_TooLarge(t *testing.T) {
	huge := "1" + strings.Repeat("0", 80)
	if _, err := ToBaseUnits(huge, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount for huge input, got %v", err)
	}
}

func TestToHuman(t *testing.T) {
	tests := []struct {
		base      uint64
		decimals  uint8
		precision int
		want      string
	}{
		{1500000000, 9, 4, "1.5000"},
		{1999999999, 9, 4, "1.9999"}, // truncation, not rounding
		{1, 9, 4, "0.0000"},
		{1, 9, 9, "0.000000001"},
		{100000000000, 9, 9, "100.000000000"},
		{42, 0, 4, "42"},
		{42, 2, 0, "0"},
		{0, 6, 2, "0.00"},
		{123456, 3, 6, "123.456"},
	}
	for _, tt := range tests {
		got := ToHuman(types.NewAmount(tt.base), tt.decimals, tt.precision)
		if got != tt.want {
			t.Errorf("ToHuman(%d, %d, %d) = %q, want %q", tt.base, tt.decimals, tt.precision, got, tt.want)
		}
	}
}

func TestToHuman_Negative(t *testing.T) {
	neg, _ := ToBaseUnits("-1.25", 2)
	if got := ToHuman(neg, 2, 2); got != "-1.25" {
		t.Errorf("ToHuman(-125) = %q, want -1.25", got)
	}
	tiny, _ := ToBaseUnits("-0.001", 3)
	if got := ToHuman(tiny, 3, 2); got != "0.00" {
		t.Errorf("ToHuman(-1, 3, 2) = %q, want 0.00", got)
	}
}

// canonical strips leading integer zeros, trailing fractional zeros and a
// dangling decimal point.
func canonical(s string) string {
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	whole, frac, _ := strings.Cut(s, ".")
	whole = strings.TrimLeft(whole, "0")
	if whole == "" {
		whole = "0"
	}
	frac = strings.TrimRight(frac, "0")
	out := whole
	if frac != "" {
		out += "." + frac
	}
	if neg && out != "0" {
		out = "-" + out
	}
	return out
}

func TestConversionRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for d := 0; d <= 18; d++ {
		for i := 0; i < 200; i++ {
			whole := fmt.Sprintf("%d", rng.Int63n(1_000_000_000))
			s := whole
			if d > 0 {
				n := rng.Intn(d + 1)
				if n > 0 {
					var b strings.Builder
					for j := 0; j < n; j++ {
						b.WriteByte(byte('0' + rng.Intn(10)))
					}
					s += "." + b.String()
				}
			}
			base, err := ToBaseUnits(s, uint8(d))
			if err != nil {
				t.Fatalf("ToBaseUnits(%q, %d): %v", s, d, err)
			}
			back := ToHuman(base, uint8(d), d)
			if canonical(back) != canonical(s) {
				t.Fatalf("round trip d=%d: %q -> %s -> %q", d, s, base, back)
			}
		}
	}
}

func TestNormalizeNumericInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{".5", "0.5"},
		{"007.10", "7.10"},
		{"-.25", "-0.25"},
		{"-007", "-7"},
		{"000", "0"},
		{"0", "0"},
		{"10", "10"},
		{".", "0."},
		{"12.", "12."},
		{"", ""},
		{"abc", "abc"},
		{"1.2.3", "1.2.3"},
		{"00000000000000000000123456789012345678901234567890", "123456789012345678901234567890"},
	}
	for _, tt := range tests {
		if got := NormalizeNumericInput(tt.in); got != tt.want {
			t.Errorf("NormalizeNumericInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPow10(t *testing.T) {
	if got := Pow10(0); got.String() != "1" {
		t.Errorf("Pow10(0) = %s", got)
	}
	if got := Pow10(9); got.String() != "1000000000" {
		t.Errorf("Pow10(9) = %s", got)
	}
}
