package domain

import "github.com/shopspring/decimal"

// Snapshot one timestamped set of bid/ask levels. Identity is Time.
type Snapshot struct {
	// Time canonical timestamp with sub-second precision removed.
	Time   string
	values map[string]decimal.Decimal
}

// NewSnapshot transforms a raw row. Non-numeric fields are dropped and later read as absent.
func NewSnapshot(row Row) Snapshot {
	s := Snapshot{values: make(map[string]decimal.Decimal, len(row))}
	for key, raw := range row {
		if key == TimeKey {
			if t, ok := raw.(string); ok {
				s.Time = TruncateTime(t)
			}
			continue
		}
		if d, ok := numeric(raw); ok {
			s.values[key] = d
		}
	}
	return s
}

// Field returns the numeric field stored under key.
func (s Snapshot) Field(key string) (decimal.Decimal, bool) {
	d, ok := s.values[key]
	return d, ok
}

// Price returns the price of a level (1-based).
func (s Snapshot) Price(side Side, level int) (decimal.Decimal, bool) {
	return s.Field(side.PriceKey(level))
}

// Size returns the size of a level (1-based).
func (s Snapshot) Size(side Side, level int) (decimal.Decimal, bool) {
	return s.Field(side.SizeKey(level))
}

// Prices returns the Levels prices of one side; absent levels are nil.
func (s Snapshot) Prices(side Side) []*decimal.Decimal {
	out := make([]*decimal.Decimal, Levels)
	for i := range out {
		if d, ok := s.Price(side, i+1); ok {
			out[i] = &d
		}
	}
	return out
}
