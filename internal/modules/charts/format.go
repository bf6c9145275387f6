package charts

import (
	"math"
	"math/big"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var countPrinter = message.NewPrinter(language.English)

// FormatCurrency collapses a loss amount into a short dollar label:
// millions get two decimals and an "M", thousands one decimal and a "K",
// everything else (including negatives) is shown as whole dollars.
func FormatCurrency(value float64) string {
	if value >= 1_000_000 {
		return "$" + toFixed(value/1_000_000, 2) + "M"
	}
	if value >= 1_000 {
		return "$" + toFixed(value/1_000, 1) + "K"
	}
	return "$" + toFixed(value, 0)
}

// FormatCount renders an integer with English thousands grouping (1000 -> "1,000").
func FormatCount(n int) string {
	return countPrinter.Sprintf("%d", n)
}

// FormatAmount renders a full-precision dollar amount with grouping and cents.
func FormatAmount(value float64) string {
	return countPrinter.Sprintf("$%.2f", value)
}

// toFixed formats value with a fixed number of decimals. Exact binary halves
// round away from zero, everything else rounds to the nearest representable
// decimal, so labels match what a browser's Number.toFixed would print.
func toFixed(value float64, digits int) string {
	if value == 0 {
		// -0 prints as 0
		return strconv.FormatFloat(0, 'f', digits, 64)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return strconv.FormatFloat(value, 'f', digits, 64)
	}

	scaled := new(big.Float).SetPrec(128).SetFloat64(value)
	scaled.Mul(scaled, new(big.Float).SetPrec(128).SetFloat64(math.Pow10(digits)))

	whole, _ := scaled.Int(nil)
	frac := new(big.Float).SetPrec(128).Sub(scaled, new(big.Float).SetPrec(128).SetInt(whole))
	if frac.Sign() < 0 {
		frac.Neg(frac)
	}
	if frac.Cmp(big.NewFloat(0.5)) != 0 {
		return strconv.FormatFloat(value, 'f', digits, 64)
	}

	// Exact tie: step one unit away from zero.
	if scaled.Sign() > 0 {
		whole.Add(whole, big.NewInt(1))
	} else {
		whole.Sub(whole, big.NewInt(1))
	}
	rounded, _ := new(big.Float).SetPrec(128).Quo(
		new(big.Float).SetPrec(128).SetInt(whole),
		new(big.Float).SetPrec(128).SetFloat64(math.Pow10(digits)),
	).Float64()
	return strconv.FormatFloat(rounded, 'f', digits, 64)
}
