package domain

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// TimeKey is the row field holding the snapshot timestamp.
const TimeKey = "Time"

// Row is one raw input record as decoded from JSON: Time, Bid1..Bid10,
// Bid1Size..Bid10Size, Ask1..Ask10, Ask1Size..Ask10Size.
// Rows are consumed as-is, nothing is validated.
type Row map[string]any

// TruncateTime drops the sub-second suffix of a timestamp ("12:00:01.250" -> "12:00:01").
func TruncateTime(raw string) string {
	head, _, _ := strings.Cut(raw, ".")
	return head
}

// numeric converts a decoded JSON value to a decimal. Anything that is not a number is absent.
func numeric(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case float64:
		return decimal.NewFromFloat(n), true
	case float32:
		return decimal.NewFromFloat32(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case decimal.Decimal:
		return n, true
	default:
		return decimal.Zero, false
	}
}
