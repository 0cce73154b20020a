package web

import (
	"encoding/json"
	"sync"

	"github.com/vadiminshakov/obchart/internal/events"
	"github.com/vadiminshakov/obchart/internal/services/chart"
	"github.com/vadiminshakov/obchart/internal/services/controller"
	"go.uber.org/zap"
)

// Surface is the render surface shared by all connected pages. It keeps the merged
// chart configuration so a page that connects late starts from the current chart.
type Surface struct {
	mu          sync.RWMutex
	current     *chart.Options
	state       controller.State
	seq         uint64
	broadcaster *events.Broadcaster
	logger      *zap.Logger
}

// NewSurface creates a surface publishing through broadcaster.
func NewSurface(broadcaster *events.Broadcaster, logger *zap.Logger) *Surface {
	return &Surface{
		state:       controller.State{Index: -1},
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// HasLiveHandle reports whether a chart has been initialized.
func (s *Surface) HasLiveHandle() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.current != nil
}

// SetInitialOptions stores and publishes the full configuration.
func (s *Surface) SetInitialOptions(o chart.Options) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = &o
	s.publishLocked(events.KindOptions, o)
}

// UpdateSeriesAndOptions merges the update into the stored configuration and publishes it.
func (s *Surface) UpdateSeriesAndOptions(u chart.Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		merged := s.current.Apply(u)
		s.current = &merged
	}
	s.publishLocked(events.KindUpdate, u)
}

// PublishState publishes the selection widgets state.
func (s *Surface) PublishState(state controller.State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = state
	s.publishLocked(events.KindState, state)
}

// Snapshot returns the events a new page needs before live events: the current
// configuration (if any) and the widgets state, stamped with the latest sequence.
func (s *Surface) Snapshot() []events.ChartEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]events.ChartEvent, 0, 2)
	if s.current != nil {
		if e, ok := s.encode(events.KindOptions, *s.current); ok {
			out = append(out, e)
		}
	}
	if e, ok := s.encode(events.KindState, s.state); ok {
		out = append(out, e)
	}
	return out
}

// Subscribe registers a page.
func (s *Surface) Subscribe() *events.Subscription {
	return s.broadcaster.Subscribe()
}

// Unsubscribe removes a page.
func (s *Surface) Unsubscribe(sub *events.Subscription) {
	s.broadcaster.Unsubscribe(sub)
}

func (s *Surface) publishLocked(kind events.Kind, v any) {
	s.seq++
	e, ok := s.encode(kind, v)
	if !ok {
		return
	}
	s.broadcaster.Publish(e)
}

func (s *Surface) encode(kind events.Kind, v any) (events.ChartEvent, bool) {
	payload, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("failed to encode chart event", zap.String("kind", string(kind)), zap.Error(err))
		return events.ChartEvent{}, false
	}
	return events.ChartEvent{Seq: s.seq, Kind: kind, Payload: payload}, true
}
