package chart

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/vadiminshakov/obchart/internal/domain"
)

const (
	// TooltipEndpoint is where the page fetches tooltip fragments.
	TooltipEndpoint = "/api/tooltip"

	missingValue  = "-"
	fallbackColor = "#ccc"
	sizeDecimals  = 3
)

const tooltipFormat = `<div class="apexcharts-tooltip-title">Level %d</div>
<div class="apexcharts-tooltip-series-group" style="display: flex; align-items: start;">
  <span class="apexcharts-tooltip-marker" style="background-color: %s; margin-top: 4px;"></span>
  <div class="apexcharts-tooltip-text" style="margin-left: 8px;">
    %s: <strong>%s</strong><br/>
    %s Size: <strong>%s</strong>
  </div>
</div>`

// SelectionFunc returns the selected time and the series it refers to, read together.
type SelectionFunc func() (selected string, ok bool, series domain.Series)

// Tooltip formats the hover fragment of a bar. It holds an accessor rather than
// values, so a tooltip built for an older frame still describes the current selection.
type Tooltip struct {
	selection SelectionFunc
	colors    []string
}

// NewTooltip binds a tooltip to the selection accessor.
func NewTooltip(selection SelectionFunc) *Tooltip {
	return &Tooltip{selection: selection, colors: DefaultColors}
}

// Config returns the wire descriptor of the tooltip.
func (t *Tooltip) Config() TooltipConfig {
	return TooltipConfig{Shared: false, Intersect: true, Endpoint: TooltipEndpoint}
}

// Render formats the fragment for a bar. It returns "" when nothing is selected
// or the selection has no snapshot.
func (t *Tooltip) Render(seriesIndex, dataPointIndex int) string {
	if t == nil || t.selection == nil {
		return ""
	}
	selected, ok, series := t.selection()
	if !ok {
		return ""
	}
	snap, ok := series.Find(selected)
	if !ok {
		return ""
	}

	level := dataPointIndex + 1
	side := domain.SideForSeries(seriesIndex)

	price := missingValue
	if p, ok := snap.Price(side, level); ok {
		price = p.StringFixed(axisDecimals)
	}
	size := missingValue
	if s, ok := snap.Size(side, level); ok {
		size = humanize.CommafWithDigits(s.Round(sizeDecimals).InexactFloat64(), sizeDecimals)
	}

	return fmt.Sprintf(tooltipFormat, level, t.color(seriesIndex), side, price, side, size)
}

func (t *Tooltip) color(seriesIndex int) string {
	if seriesIndex < 0 || seriesIndex >= len(t.colors) {
		return fallbackColor
	}
	return t.colors[seriesIndex]
}
