package web

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/obchart/internal/domain"
	"github.com/vadiminshakov/obchart/internal/events"
	"github.com/vadiminshakov/obchart/internal/services/chart"
	"github.com/vadiminshakov/obchart/internal/services/controller"
	"go.uber.org/zap"
)

func testFrame(t string, bid float64) chart.Frame {
	snap := domain.NewSnapshot(domain.Row{"Time": t, "Bid1": bid, "Ask1": bid + 1})
	return chart.BuildFrame(snap)
}

func TestSurface_InitialThenUpdate(t *testing.T) {
	s := NewSurface(events.NewBroadcaster(8), zap.NewNop())
	sub := s.Subscribe()
	defer s.Unsubscribe(sub)

	assert.False(t, s.HasLiveHandle())

	s.SetInitialOptions(chart.InitialOptions(testFrame("t0", 10), nil))
	assert.True(t, s.HasLiveHandle())

	e := <-sub.C
	assert.Equal(t, events.KindOptions, e.Kind)
	assert.Equal(t, uint64(1), e.Seq)

	s.UpdateSeriesAndOptions(chart.NewUpdate(testFrame("t1", 20), nil))

	e = <-sub.C
	assert.Equal(t, events.KindUpdate, e.Kind)
	assert.Equal(t, uint64(2), e.Seq)

	snapshot := s.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, events.KindOptions, snapshot[0].Kind)
	assert.Equal(t, uint64(2), snapshot[0].Seq)

	var merged chart.Options
	require.NoError(t, json.Unmarshal(snapshot[0].Payload, &merged))
	assert.Equal(t, "Order Book Snapshot at t1", merged.Title.Text)
	assert.Equal(t, "bar", merged.Chart.Type, "settings of the initial configuration are kept")
	require.NotNil(t, merged.Series[0].Data[0])
	assert.Equal(t, 20.0, *merged.Series[0].Data[0])
}

func TestSurface_UpdateWithoutChart(t *testing.T) {
	s := NewSurface(events.NewBroadcaster(8), zap.NewNop())

	s.UpdateSeriesAndOptions(chart.NewUpdate(testFrame("t0", 10), nil))

	assert.False(t, s.HasLiveHandle())
	snapshot := s.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, events.KindState, snapshot[0].Kind)
}

func TestSurface_State(t *testing.T) {
	s := NewSurface(events.NewBroadcaster(8), zap.NewNop())

	var state controller.State
	require.NoError(t, json.Unmarshal(s.Snapshot()[0].Payload, &state))
	assert.Equal(t, -1, state.Index)

	s.PublishState(controller.State{Selected: "t1", Index: 1, Count: 3, Replaying: true})

	snapshot := s.Snapshot()
	require.Len(t, snapshot, 1)
	require.NoError(t, json.Unmarshal(snapshot[0].Payload, &state))
	assert.Equal(t, controller.State{Selected: "t1", Index: 1, Count: 3, Replaying: true}, state)
}
