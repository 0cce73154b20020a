// Package chart derives the bar chart of one order-book snapshot and hands it to a render surface.
package chart

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/obchart/internal/domain"
)

const titleFormat = "Order Book Snapshot at %s"

// Series one named data series. Absent points are null.
type Series struct {
	Name   string     `json:"name"`
	Data   []*float64 `json:"data"`
	Labels []string   `json:"labels"`
}

// AxisTitle axis caption.
type AxisTitle struct {
	Text string `json:"text"`
}

// YAxis value axis settings.
type YAxis struct {
	Min             float64   `json:"min"`
	Max             float64   `json:"max"`
	TickAmount      int       `json:"tickAmount"`
	Title           AxisTitle `json:"title"`
	DecimalsInFloat int       `json:"decimalsInFloat"`
}

// Title chart caption.
type Title struct {
	Text  string `json:"text"`
	Align string `json:"align"`
}

// Frame is the derived chart state of a single snapshot.
type Frame struct {
	Time   string
	Bids   []*decimal.Decimal
	Asks   []*decimal.Decimal
	Bounds Bounds
	Title  Title
}

// BuildFrame derives bid/ask series, axis bounds and title from a snapshot.
func BuildFrame(snap domain.Snapshot) Frame {
	bids := snap.Prices(domain.SideBid)
	asks := snap.Prices(domain.SideAsk)

	all := make([]*decimal.Decimal, 0, len(bids)+len(asks))
	all = append(all, bids...)
	all = append(all, asks...)

	return Frame{
		Time:   snap.Time,
		Bids:   bids,
		Asks:   asks,
		Bounds: AxisBounds(all),
		Title: Title{
			Text:  fmt.Sprintf(titleFormat, snap.Time),
			Align: "center",
		},
	}
}

// Series returns the wire series: bids first, then asks.
func (f Frame) Series() []Series {
	return []Series{
		newSeries(string(domain.SideBid), f.Bids),
		newSeries(string(domain.SideAsk), f.Asks),
	}
}

// YAxis returns the wire y-axis.
func (f Frame) YAxis() YAxis {
	return YAxis{
		Min:             f.Bounds.Min.InexactFloat64(),
		Max:             f.Bounds.Max.InexactFloat64(),
		TickAmount:      axisTickAmount,
		Title:           AxisTitle{Text: axisTitle},
		DecimalsInFloat: axisDecimals,
	}
}

func newSeries(name string, values []*decimal.Decimal) Series {
	s := Series{
		Name:   name,
		Data:   make([]*float64, len(values)),
		Labels: make([]string, len(values)),
	}
	for i, v := range values {
		if v == nil {
			s.Labels[i] = missingValue
			continue
		}
		f := v.InexactFloat64()
		s.Data[i] = &f
		s.Labels[i] = v.StringFixed(axisDecimals)
	}
	return s
}
