// Package domain defines the order-book snapshot structures shared by the chart service.
package domain

import "fmt"

// Levels is the number of price levels kept per book side.
const Levels = 10

// Side book side.
type Side string

const (
	SideBid Side = "Bid"
	SideAsk Side = "Ask"
)

// SideForSeries maps a chart series index to a book side: 0 is bids, anything else asks.
func SideForSeries(seriesIndex int) Side {
	if seriesIndex == 0 {
		return SideBid
	}
	return SideAsk
}

// PriceKey returns the row field holding the price of the given level, e.g. "Bid3".
func (s Side) PriceKey(level int) string {
	return fmt.Sprintf("%s%d", s, level)
}

// SizeKey returns the row field holding the size of the given level, e.g. "Bid3Size".
func (s Side) SizeKey(level int) string {
	return fmt.Sprintf("%s%dSize", s, level)
}
