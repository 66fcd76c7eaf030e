// Package atof parses decimal float literals into float64, the way the
// CLI (cmd/tagpackctl) needs when rendering untyped Any values read back
// from JSON input. Most literals go through a fast table-driven path
// (Clinger's algorithm: an exact integer mantissa under 2^53 scaled by an
// exact power of ten is already the correctly-rounded float64); the rare
// literal outside that range falls back to math/big.Float, which performs
// a correctly-rounded decimal-to-binary conversion without this package
// needing its own arbitrary-precision digit arithmetic.
package atof

import (
	"errors"
	"math/big"
)

var errSyntax = errors.New("atof: invalid number syntax")

// pow10 holds the exact float64 value of 10^0 .. 10^22: every integer in
// this range has an exact float64 representation, so multiplying or
// dividing by one of these introduces no rounding error of its own
// (the mantissa-fits-in-53-bits fast path of Clinger's algorithm).
var pow10 = [23]float64{
	1e0, 1e1, 1e2, 1e3, 1e4, 1e5, 1e6, 1e7, 1e8, 1e9, 1e10,
	1e11, 1e12, 1e13, 1e14, 1e15, 1e16, 1e17, 1e18, 1e19, 1e20, 1e21, 1e22,
}

const maxFastMantissa = uint64(1) << 53

// Parse parses s as a decimal float64 literal (optional sign, integer part,
// optional fractional part, optional exponent), matching the grammar JSON
// uses for numbers.
func Parse(s string) (float64, error) {
	neg, digits, exp10, ok := parseLiteral(s)
	if !ok {
		return 0, errSyntax
	}
	if len(digits) == 0 {
		digits = "0"
	}

	if f, ok := tryFastPath(digits, exp10); ok {
		if neg {
			f = -f
		}
		return f, nil
	}

	f, err := parseExact(digits, exp10)
	if err != nil {
		return 0, err
	}
	if neg {
		f = -f
	}
	return f, nil
}

// parseLiteral splits s into a sign, a significant-digit string with
// leading/trailing zeros trimmed, and a base-10 exponent such that the
// literal's value is (digits as integer) * 10^exp10.
func parseLiteral(s string) (neg bool, digits string, exp10 int, ok bool) {
	i, n := 0, len(s)
	if n == 0 {
		return false, "", 0, false
	}

	if s[i] == '+' || s[i] == '-' {
		neg = s[i] == '-'
		i++
	}

	intStart := i
	for i < n && isDigit(s[i]) {
		i++
	}
	intPart := s[intStart:i]

	var fracPart string
	if i < n && s[i] == '.' {
		i++
		fracStart := i
		for i < n && isDigit(s[i]) {
			i++
		}
		fracPart = s[fracStart:i]
	}

	if len(intPart) == 0 && len(fracPart) == 0 {
		return false, "", 0, false
	}

	exp := 0
	if i < n && (s[i] == 'e' || s[i] == 'E') {
		i++
		expNeg := false
		if i < n && (s[i] == '+' || s[i] == '-') {
			expNeg = s[i] == '-'
			i++
		}
		expStart := i
		for i < n && isDigit(s[i]) {
			i++
		}
		if i == expStart {
			return false, "", 0, false
		}
		for _, c := range s[expStart:i] {
			exp = exp*10 + int(c-'0')
			if exp > 1_000_000 {
				exp = 1_000_000 // clamp; result under/overflows regardless
			}
		}
		if expNeg {
			exp = -exp
		}
	}

	if i != n {
		return false, "", 0, false
	}

	all := intPart + fracPart
	exp10 = exp - len(fracPart)

	// trim leading zeros (they don't affect value or exponent)
	lead := 0
	for lead < len(all)-1 && all[lead] == '0' {
		lead++
	}
	all = all[lead:]

	// trim trailing zeros, folding them into the exponent
	trail := len(all)
	for trail > 1 && all[trail-1] == '0' {
		trail--
		exp10++
	}
	all = all[:trail]

	if all == "0" {
		exp10 = 0
	}

	return neg, all, exp10, true
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// tryFastPath implements Clinger's fast path: if digits fits exactly in a
// uint64 mantissa under 2^53 and exp10 lands in the exactly-representable
// power-of-ten table, the float64 division/multiplication is already
// correctly rounded.
func tryFastPath(digits string, exp10 int) (float64, bool) {
	if len(digits) > 19 {
		return 0, false
	}

	var mantissa uint64
	for i := 0; i < len(digits); i++ {
		mantissa = mantissa*10 + uint64(digits[i]-'0')
	}
	if mantissa >= maxFastMantissa {
		return 0, false
	}

	if exp10 >= 0 {
		if exp10 > 22 {
			return 0, false
		}
		return float64(mantissa) * pow10[exp10], true
	}

	if -exp10 > 22 {
		return 0, false
	}
	return float64(mantissa) / pow10[-exp10], true
}

// parseExact handles literals the fast path declines: arbitrarily long
// digit strings or extreme exponents. big.Float's SetString performs a
// correctly-rounded decimal parse at high working precision, and Float64
// then rounds that to the nearest float64 — the same end result the
// Eisel-Lemire/HPD pipeline is built to guarantee, without this package
// needing its own bignum digit arithmetic.
func parseExact(digits string, exp10 int) (float64, error) {
	lit := digits
	if exp10 != 0 {
		lit += "e" + itoaInt(exp10)
	}

	const workingPrecision = 256
	f, _, err := big.ParseFloat(lit, 10, workingPrecision, big.ToNearestEven)
	if err != nil {
		return 0, errSyntax
	}
	v, _ := f.Float64()
	return v, nil
}

func itoaInt(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
