package chart

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/obchart/internal/domain"
)

func fullRow(time string, bid, ask float64) domain.Row {
	row := domain.Row{"Time": time}
	for level := 1; level <= domain.Levels; level++ {
		row[fmt.Sprintf("Bid%d", level)] = bid
		row[fmt.Sprintf("Ask%d", level)] = ask
		row[fmt.Sprintf("Bid%dSize", level)] = float64(level * 1000)
		row[fmt.Sprintf("Ask%dSize", level)] = float64(level * 10)
	}
	return row
}

func TestBuildFrame(t *testing.T) {
	frame := BuildFrame(domain.NewSnapshot(fullRow("2024-05-01T10:00:00.123", 10.0, 10.5)))

	assert.Equal(t, "2024-05-01T10:00:00", frame.Time)
	assert.Equal(t, "Order Book Snapshot at 2024-05-01T10:00:00", frame.Title.Text)
	assert.Equal(t, "center", frame.Title.Align)

	series := frame.Series()
	require.Len(t, series, 2)
	assert.Equal(t, "Bid", series[0].Name)
	assert.Equal(t, "Ask", series[1].Name)
	require.Len(t, series[0].Data, domain.Levels)
	require.Len(t, series[1].Data, domain.Levels)
	assert.Equal(t, 10.0, *series[0].Data[0])
	assert.Equal(t, 10.5, *series[1].Data[9])
	assert.Equal(t, "10.5000", series[1].Labels[0])

	y := frame.YAxis()
	assert.Equal(t, 9.9, y.Min)
	assert.Equal(t, 10.6, y.Max)
	assert.Equal(t, 5, y.TickAmount)
	assert.Equal(t, "Price", y.Title.Text)
	assert.Equal(t, 4, y.DecimalsInFloat)
}

func TestBuildFrame_MissingLevels(t *testing.T) {
	frame := BuildFrame(domain.NewSnapshot(domain.Row{"Time": "t", "Bid1": 5.0, "Ask1": 5.0}))
	series := frame.Series()

	assert.NotNil(t, series[0].Data[0])
	assert.Nil(t, series[0].Data[1])
	assert.Equal(t, "-", series[0].Labels[1])

	payload, err := json.Marshal(series[0])
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"data":[5,null,`)

	assert.Equal(t, 4.998, frame.YAxis().Min)
	assert.Equal(t, 5.002, frame.YAxis().Max)
}

func TestInitialOptions(t *testing.T) {
	frame := BuildFrame(domain.NewSnapshot(fullRow("t", 1, 2)))
	opts := InitialOptions(frame, NewTooltip(nil))

	assert.Equal(t, "bar", opts.Chart.Type)
	assert.False(t, opts.Chart.Stacked)
	assert.True(t, opts.Chart.Animations.Enabled)
	assert.Equal(t, "easeinout", opts.Chart.Animations.Easing)
	assert.Equal(t, "smooth", opts.Stroke.Curve)
	assert.True(t, opts.DataLabels.Enabled)
	assert.Equal(t, 4, opts.DataLabels.Decimals)
	require.Len(t, opts.XAxis.Categories, 10)
	assert.Equal(t, "Level 1", opts.XAxis.Categories[0])
	assert.Equal(t, "Level 10", opts.XAxis.Categories[9])
	assert.Equal(t, TooltipEndpoint, opts.Tooltip.Endpoint)
	assert.True(t, opts.Tooltip.Intersect)
	assert.False(t, opts.Tooltip.Shared)
}

func TestOptions_Apply(t *testing.T) {
	first := BuildFrame(domain.NewSnapshot(fullRow("t0", 1, 2)))
	second := BuildFrame(domain.NewSnapshot(fullRow("t1", 3, 4)))
	tooltip := NewTooltip(nil)

	merged := InitialOptions(first, tooltip).Apply(NewUpdate(second, tooltip))

	assert.Equal(t, "Order Book Snapshot at t1", merged.Title.Text)
	assert.Equal(t, 3.0, *merged.Series[0].Data[0])
	assert.Equal(t, "bar", merged.Chart.Type, "static settings survive updates")
}
