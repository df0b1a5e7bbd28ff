// Copyright (c) 2024 Neomantra Corp
//
// Decimal-string to 10^8 fixed-point conversion for CEX feeds. Venue
// payloads carry prices as decimal strings; parsing digit-by-digit avoids
// the float64 round trip that would break bit-exactness at the eighth
// decimal.

package venue

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/dawsh2/alphapulse/pkg/wire"
)

// ParseFixed8 converts a decimal string like "45123.50" to 10^8
// fixed-point. Fractional digits beyond the eighth are truncated, never
// rounded, so repeated parses of a venue's own rounding stay stable.
func ParseFixed8(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("fixed8: empty input")
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	intPart := s
	fracPart := ""
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		intPart, fracPart = s[:dot], s[dot+1:]
	}
	if intPart == "" && fracPart == "" {
		return 0, fmt.Errorf("fixed8: malformed %q", s)
	}
	if len(fracPart) > 8 {
		fracPart = fracPart[:8]
	}

	var v int64
	for _, c := range []byte(intPart) {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("fixed8: malformed %q", s)
		}
		v = v*10 + int64(c-'0')
		if v > (1<<62)/wire.FixedPointScale {
			return 0, fmt.Errorf("fixed8: overflow %q", s)
		}
	}
	v *= wire.FixedPointScale

	scale := wire.FixedPointScale / 10
	for _, c := range []byte(fracPart) {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("fixed8: malformed %q", s)
		}
		v += int64(c-'0') * scale
		scale /= 10
	}

	if neg {
		v = -v
	}
	return v, nil
}

// FormatFixed8 renders a 10^8 fixed-point value as a decimal string with
// trailing zeros trimmed.
func FormatFixed8(v int64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	whole := v / wire.FixedPointScale
	frac := v % wire.FixedPointScale
	s := fmt.Sprintf("%d", whole)
	if frac != 0 {
		f := strings.TrimRight(fmt.Sprintf("%08d", frac), "0")
		s = s + "." + f
	}
	if neg {
		s = "-" + s
	}
	return s
}

// NativeToFixed8 projects a native-precision token amount onto the
// 10^8 fixed-point domain: amount / 10^decimals * 10^8, truncating. The
// conversion is one-way and lossy on purpose; SwapEvent/PoolUpdate keep
// the native amount.
func NativeToFixed8(amount *big.Int, decimals uint8) int64 {
	v := new(big.Int).Abs(amount)
	v.Mul(v, big.NewInt(wire.FixedPointScale))
	div := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	v.Div(v, div)
	if !v.IsInt64() {
		// Saturate rather than wrap; the native-precision record is the
		// authoritative one.
		if amount.Sign() < 0 {
			return -(1<<63 - 1)
		}
		return 1<<63 - 1
	}
	out := v.Int64()
	if amount.Sign() < 0 {
		out = -out
	}
	return out
}
