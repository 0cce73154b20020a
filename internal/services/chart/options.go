package chart

import (
	"fmt"

	"github.com/vadiminshakov/obchart/internal/domain"
)

const chartHeight = 400

// DefaultColors bid and ask series colours.
var DefaultColors = []string{"#00E396", "#FF4560"}

// Options full chart configuration handed to a surface that has no chart yet.
type Options struct {
	Series     []Series      `json:"series"`
	Chart      Settings      `json:"chart"`
	Colors     []string      `json:"colors"`
	DataLabels DataLabels    `json:"dataLabels"`
	Stroke     Stroke        `json:"stroke"`
	Title      Title         `json:"title"`
	XAxis      XAxis         `json:"xaxis"`
	YAxis      YAxis         `json:"yaxis"`
	Tooltip    TooltipConfig `json:"tooltip"`
}

// Settings chart type and animation.
type Settings struct {
	Height     int        `json:"height"`
	Type       string     `json:"type"`
	Stacked    bool       `json:"stacked"`
	Animations Animations `json:"animations"`
}

// Animations transition settings.
type Animations struct {
	Enabled          bool    `json:"enabled"`
	Easing           string  `json:"easing"`
	Speed            int     `json:"speed"`
	AnimateGradually Gradual `json:"animateGradually"`
	DynamicAnimation Dynamic `json:"dynamicAnimation"`
}

// Gradual per-point delay of the initial animation.
type Gradual struct {
	Enabled bool `json:"enabled"`
	Delay   int  `json:"delay"`
}

// Dynamic animation of in-place updates.
type Dynamic struct {
	Enabled bool `json:"enabled"`
	Speed   int  `json:"speed"`
}

// DataLabels bar labels; the page renders the series labels, Decimals is the fallback precision.
type DataLabels struct {
	Enabled  bool `json:"enabled"`
	Decimals int  `json:"decimals"`
}

// Stroke line style.
type Stroke struct {
	Curve string `json:"curve"`
}

// XAxis category axis.
type XAxis struct {
	Categories []string `json:"categories"`
}

// TooltipConfig tells the page where to fetch tooltip fragments at hover time.
type TooltipConfig struct {
	Shared    bool   `json:"shared"`
	Intersect bool   `json:"intersect"`
	Endpoint  string `json:"endpoint"`
}

// Update incremental change applied to a live chart.
type Update struct {
	Series  []Series      `json:"series"`
	YAxis   YAxis         `json:"yaxis"`
	Title   Title         `json:"title"`
	Tooltip TooltipConfig `json:"tooltip"`
	Redraw  bool          `json:"redraw"`
	Animate bool          `json:"animate"`
}

// InitialOptions builds the full configuration of a frame.
func InitialOptions(frame Frame, tooltip *Tooltip) Options {
	return Options{
		Series: frame.Series(),
		Chart: Settings{
			Height:  chartHeight,
			Type:    "bar",
			Stacked: false,
			Animations: Animations{
				Enabled:          true,
				Easing:           "easeinout",
				Speed:            500,
				AnimateGradually: Gradual{Enabled: true, Delay: 300},
				DynamicAnimation: Dynamic{Enabled: true, Speed: 700},
			},
		},
		Colors:     DefaultColors,
		DataLabels: DataLabels{Enabled: true, Decimals: axisDecimals},
		Stroke:     Stroke{Curve: "smooth"},
		Title:      frame.Title,
		XAxis:      XAxis{Categories: levelCategories()},
		YAxis:      frame.YAxis(),
		Tooltip:    tooltip.Config(),
	}
}

// NewUpdate builds the in-place update of a frame.
func NewUpdate(frame Frame, tooltip *Tooltip) Update {
	return Update{
		Series:  frame.Series(),
		YAxis:   frame.YAxis(),
		Title:   frame.Title,
		Tooltip: tooltip.Config(),
		Redraw:  true,
		Animate: true,
	}
}

// Apply merges an update into the configuration, the way the chart library does.
func (o Options) Apply(u Update) Options {
	o.Series = u.Series
	o.YAxis = u.YAxis
	o.Title = u.Title
	o.Tooltip = u.Tooltip
	return o
}

func levelCategories() []string {
	categories := make([]string, domain.Levels)
	for i := range categories {
		categories[i] = fmt.Sprintf("Level %d", i+1)
	}
	return categories
}
