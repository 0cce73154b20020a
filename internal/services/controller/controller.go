// Package controller keeps the selected order-book snapshot of a series and
// pushes its chart to a render surface whenever the data or the selection changes.
package controller

import (
	"sync"
	"time"

	"github.com/vadiminshakov/obchart/internal/domain"
	"github.com/vadiminshakov/obchart/internal/metrics"
	"github.com/vadiminshakov/obchart/internal/services/chart"
	"go.uber.org/zap"
)

// DefaultReplayInterval period between replay steps.
const DefaultReplayInterval = 5 * time.Second

// selection sources, used as metric labels.
const (
	sourceInit   = "init"
	sourceTime   = "time"
	sourceSlider = "slider"
	sourceReplay = "replay"
)

// Controller is the snapshot chart controller. All methods are safe for concurrent
// use; mutations are serialized so the controller behaves like a single event loop.
// A Surface must not call back into the controller while an emit is in progress.
type Controller struct {
	mu sync.Mutex

	logger    *zap.Logger
	surface   chart.Surface
	scheduler Scheduler
	interval  time.Duration

	series      domain.Series
	times       []string
	selected    string
	hasSelected bool

	frame    chart.Frame
	hasFrame bool

	replay   replayMachine
	onChange func(State)
}

// State is what the time-selection widgets need to render.
type State struct {
	Selected  string `json:"selected"`
	Index     int    `json:"index"`
	Count     int    `json:"count"`
	Replaying bool   `json:"replaying"`
}

// Option configures the Controller.
type Option func(*Controller)

// WithScheduler replaces the replay timer source.
func WithScheduler(s Scheduler) Option {
	return func(c *Controller) {
		c.scheduler = s
	}
}

// WithReplayInterval sets the period between replay steps.
func WithReplayInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithStateObserver registers fn to receive the state after every selection,
// data or replay change. fn runs inside the controller and must not call back into it.
func WithStateObserver(fn func(State)) Option {
	return func(c *Controller) {
		c.onChange = fn
	}
}

// New creates a controller drawing on surface.
func New(logger *zap.Logger, surface chart.Surface, opts ...Option) *Controller {
	c := &Controller{
		logger:    logger,
		surface:   surface,
		scheduler: TickerScheduler{},
		interval:  DefaultReplayInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetRawData replaces the series. When data arrives with nothing selected (or an
// empty time selected), the first snapshot becomes the selection.
func (c *Controller) SetRawData(rows []domain.Row) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.series = domain.NewSeries(rows)
	c.times = c.series.Times()
	metrics.SeriesLength.Set(float64(len(c.series)))
	c.logger.Info("series loaded", zap.Int("snapshots", len(c.series)))

	if len(c.times) > 0 && (!c.hasSelected || c.selected == "") {
		c.selected, c.hasSelected = c.times[0], true
		metrics.SelectionsTotal.WithLabelValues(sourceInit).Inc()
	}

	c.refreshLocked()
	c.notifyLocked()
}

// SelectTime selects a time directly. A running replay keeps running.
func (c *Controller) SelectTime(t string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.selectLocked(t, sourceTime)
}

// SelectByIndex selects the time at index i of AvailableTimes, stopping any replay first.
// An index out of range changes nothing.
func (c *Controller) SelectByIndex(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i < 0 || i >= len(c.times) {
		c.logger.Debug("slider index out of range", zap.Int("index", i), zap.Int("times", len(c.times)))
		return
	}

	c.stopReplayLocked()
	c.selectLocked(c.times[i], sourceSlider)
}

// StartReplay selects the first time and then steps through the series once per interval.
// It does nothing while a replay runs or with fewer than two times.
func (c *Controller) StartReplay() {
	c.mu.Lock()
	defer c.mu.Unlock()

	times := c.times
	started := c.replay.start(times, func(gen uint64) func() {
		return c.scheduler.Every(c.interval, func() { c.tick(gen) })
	})
	if !started {
		return
	}

	metrics.ReplayActive.Set(1)
	c.logger.Info("replay started", zap.Int("steps", len(times)), zap.Duration("interval", c.interval))
	c.selectLocked(times[0], sourceReplay)
	c.notifyLocked()
}

// StopReplay cancels a running replay. Stopping an idle replay does nothing.
func (c *Controller) StopReplay() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopReplayLocked()
}

// IsReplaying reports whether a replay is running.
func (c *Controller) IsReplaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.replay.state == ReplayPlaying
}

// ReplayState returns the state of the replay machine.
func (c *Controller) ReplayState() ReplayState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.replay.state
}

// AvailableTimes returns the canonical times in series order.
func (c *Controller) AvailableTimes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]string(nil), c.times...)
}

// Selected returns the selected time.
func (c *Controller) Selected() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.selected, c.hasSelected
}

// CurrentIndex returns the position of the selection in AvailableTimes, or -1.
func (c *Controller) CurrentIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.currentIndexLocked()
}

// State returns the current selection and replay state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stateLocked()
}

// Frame returns the last rendered frame.
func (c *Controller) Frame() (chart.Frame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.frame, c.hasFrame
}

// Series returns the loaded series.
func (c *Controller) Series() domain.Series {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.series
}

// Tooltip returns a tooltip bound to the live selection and data.
func (c *Controller) Tooltip() *chart.Tooltip {
	return chart.NewTooltip(c.selection)
}

// selection reads the selected time and the series under one lock, so a
// concurrent SetRawData cannot pair an old selection with a new series.
func (c *Controller) selection() (string, bool, domain.Series) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.selected, c.hasSelected, c.series
}

func (c *Controller) tick(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.replay.advance(gen)
	if !ok {
		return
	}
	c.selectLocked(t, sourceReplay)

	if c.replay.state == ReplayIdle {
		metrics.ReplayActive.Set(0)
		c.logger.Info("replay finished")
		c.notifyLocked()
	}
}

func (c *Controller) stopReplayLocked() {
	if c.replay.state == ReplayIdle {
		return
	}
	c.replay.stop()
	metrics.ReplayActive.Set(0)
	c.logger.Info("replay stopped")
	c.notifyLocked()
}

func (c *Controller) selectLocked(t, source string) {
	if c.hasSelected && c.selected == t {
		return
	}
	c.selected, c.hasSelected = t, true
	metrics.SelectionsTotal.WithLabelValues(source).Inc()

	c.refreshLocked()
	c.notifyLocked()
}

func (c *Controller) currentIndexLocked() int {
	if !c.hasSelected {
		return -1
	}
	for i, t := range c.times {
		if t == c.selected {
			return i
		}
	}
	return -1
}

func (c *Controller) stateLocked() State {
	return State{
		Selected:  c.selected,
		Index:     c.currentIndexLocked(),
		Count:     len(c.times),
		Replaying: c.replay.state == ReplayPlaying,
	}
}

func (c *Controller) notifyLocked() {
	if c.onChange != nil {
		c.onChange(c.stateLocked())
	}
}

// refreshLocked recomputes the frame of the selection and emits it. When the
// selection has no snapshot the previous frame stays on the surface.
func (c *Controller) refreshLocked() {
	if !c.hasSelected {
		return
	}
	snap, ok := c.series.Find(c.selected)
	if !ok {
		metrics.FramesSkippedTotal.Inc()
		c.logger.Debug("no snapshot for selection", zap.String("time", c.selected))
		return
	}

	c.frame = chart.BuildFrame(snap)
	c.hasFrame = true

	kind := chart.EmitterFor(c.surface).Emit(c.frame, c.Tooltip())
	metrics.FramesEmittedTotal.WithLabelValues(string(kind)).Inc()
	c.logger.Debug("frame emitted", zap.String("time", c.selected), zap.String("kind", string(kind)))
}
