package chart

import "github.com/shopspring/decimal"

const (
	axisDecimals   = 4
	axisTickAmount = 5
	axisTitle      = "Price"
)

var (
	// minSpread replaces a zero spread so a flat book still gets a visible axis.
	minSpread    = decimal.RequireFromString("0.01")
	paddingRatio = decimal.RequireFromString("0.2")
)

// Bounds y-axis range of a frame.
type Bounds struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// AxisBounds computes the padded y-axis range over the present values.
// Absent (nil) values are excluded; with nothing present the range is centered on zero.
func AxisBounds(values []*decimal.Decimal) Bounds {
	var (
		lo, hi decimal.Decimal
		seen   bool
	)
	for _, v := range values {
		if v == nil {
			continue
		}
		if !seen {
			lo, hi, seen = *v, *v, true
			continue
		}
		lo = decimal.Min(lo, *v)
		hi = decimal.Max(hi, *v)
	}

	spread := hi.Sub(lo)
	if spread.IsZero() {
		spread = minSpread
	}
	padding := spread.Mul(paddingRatio)

	return Bounds{
		Min: lo.Sub(padding).Round(axisDecimals),
		Max: hi.Add(padding).Round(axisDecimals),
	}
}
