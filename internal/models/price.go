package models

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ParsePrice turns a currency string such as "$123.45" into a number.
// The first "$" is dropped and the longest numeric prefix is parsed, so "12.5 USD" is 12.5.
// Anything without a numeric prefix yields NaN; callers check with math.IsNaN.
func ParsePrice(s string) float64 {
	s = strings.TrimSpace(strings.Replace(s, "$", "", 1))
	n := numericPrefix(s)
	if n == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(n, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// numericPrefix returns the longest prefix of s shaped like [+-]digits[.digits][e[+-]digits].
func numericPrefix(s string) string {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		j := i + 1
		frac := 0
		for j < len(s) && isDigit(s[j]) {
			j++
			frac++
		}
		if digits > 0 || frac > 0 {
			i = j
			digits += frac
		}
	}
	if digits == 0 {
		return ""
	}
	// Exponent only counts when it is complete.
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < len(s) && isDigit(s[k]) {
			k++
		}
		if k > j {
			i = k
		}
	}
	return s[:i]
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// ParsePriceDecimal is ParsePrice for callers that need exact arithmetic.
// ok is false where ParsePrice would return NaN.
func ParsePriceDecimal(s string) (decimal.Decimal, bool) {
	f := ParsePrice(s)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(f), true
}

// FormatMoney renders an amount the way the backend formats prices: "$1234.50".
// Negative amounts render as "-$12.00".
func FormatMoney(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

// FormatSignedMoney renders profit/loss with an explicit sign: "+$12.34", "-$3.10".
// Zero is rendered as "+$0.00".
func FormatSignedMoney(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "+$" + d.StringFixed(2)
}

// FormatPercent renders a signed percentage with two decimals: "+4.20%".
func FormatPercent(d decimal.Decimal) string {
	if d.IsNegative() {
		return d.StringFixed(2) + "%"
	}
	return "+" + d.StringFixed(2) + "%"
}
