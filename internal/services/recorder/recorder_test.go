package recorder

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/obchart/internal/domain"
	"github.com/vadiminshakov/obchart/internal/services/loader"
	"github.com/vadiminshakov/obchart/pkg/retrier"
	"go.uber.org/zap"
)

type fakeSource struct {
	mu     sync.Mutex
	depths []Depth
	errs   []error
	calls  int
	symbol string
	limit  int
}

func (s *fakeSource) Depth(_ context.Context, symbol string, limit int) (Depth, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.calls
	s.calls++
	s.symbol, s.limit = symbol, limit
	if i < len(s.errs) && s.errs[i] != nil {
		return Depth{}, s.errs[i]
	}
	if len(s.depths) == 0 {
		return Depth{}, nil
	}
	return s.depths[i%len(s.depths)], nil
}

func level(price, qty string) Level {
	return Level{Price: decimal.RequireFromString(price), Quantity: decimal.RequireFromString(qty)}
}

func newTestRecorder(source DepthSource, sink Sink, cfg Config) *Recorder {
	r := New(zap.NewNop(), source, sink, cfg)
	r.retrier = retrier.New(retrier.WithMaxRetries(2), retrier.WithInitialInterval(time.Millisecond))
	clock := time.Date(2024, 1, 1, 12, 0, 0, 250*int(time.Millisecond), time.UTC)
	r.now = func() time.Time {
		t := clock
		clock = clock.Add(time.Second)
		return t
	}
	return r
}

func TestToRow(t *testing.T) {
	depth := Depth{
		Bids: []Level{level("100.5", "1.25"), level("100.4", "3")},
		Asks: []Level{level("100.7", "0.5")},
	}

	row := ToRow(time.Date(2024, 1, 1, 12, 0, 1, 250*int(time.Millisecond), time.UTC), depth)

	assert.Equal(t, "2024-01-01T12:00:01.250Z", row[domain.TimeKey])

	snap := domain.NewSnapshot(row)
	assert.Equal(t, "2024-01-01T12:00:01", snap.Time)

	p, ok := snap.Price(domain.SideBid, 2)
	require.True(t, ok)
	assert.True(t, p.Equal(decimal.RequireFromString("100.4")))

	s, ok := snap.Size(domain.SideAsk, 1)
	require.True(t, ok)
	assert.True(t, s.Equal(decimal.RequireFromString("0.5")))

	_, ok = snap.Price(domain.SideAsk, 2)
	assert.False(t, ok, "missing levels stay absent")
}

func TestToRow_IgnoresDeepLevels(t *testing.T) {
	var bids []Level
	for i := 0; i < domain.Levels+2; i++ {
		bids = append(bids, level("1", "1"))
	}

	row := ToRow(time.Now(), Depth{Bids: bids})

	assert.Contains(t, row, "Bid10")
	assert.NotContains(t, row, "Bid11")
}

func TestRecorder_PollKeepsLastRows(t *testing.T) {
	source := &fakeSource{depths: []Depth{{Bids: []Level{level("10", "1")}, Asks: []Level{level("11", "2")}}}}
	var got [][]domain.Row
	r := newTestRecorder(source, func(rows []domain.Row) { got = append(got, rows) }, Config{Symbol: "BTCUSDT", MaxRows: 2})

	for i := 0; i < 3; i++ {
		require.NoError(t, r.Poll(context.Background()))
	}

	assert.Equal(t, "BTCUSDT", source.symbol)
	assert.Equal(t, domain.Levels, source.limit)

	require.Len(t, got, 3)
	assert.Len(t, got[0], 1)
	require.Len(t, got[2], 2)
	assert.Equal(t, "2024-01-01T12:00:01.250Z", got[2][0][domain.TimeKey])
	assert.Equal(t, "2024-01-01T12:00:02.250Z", got[2][1][domain.TimeKey])
	assert.Len(t, r.Rows(), 2)
}

func TestRecorder_PollRetries(t *testing.T) {
	source := &fakeSource{
		depths: []Depth{{Bids: []Level{level("10", "1")}}},
		errs:   []error{errors.New("timeout")},
	}
	r := newTestRecorder(source, nil, Config{Symbol: "BTCUSDT", MaxRows: 10})

	require.NoError(t, r.Poll(context.Background()))
	assert.Equal(t, 2, source.calls)
	assert.Len(t, r.Rows(), 1)
}

func TestRecorder_PollFails(t *testing.T) {
	boom := errors.New("banned")
	source := &fakeSource{errs: []error{boom, boom, boom, boom}}
	called := false
	r := newTestRecorder(source, func([]domain.Row) { called = true }, Config{Symbol: "BTCUSDT", MaxRows: 10})

	err := r.Poll(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.False(t, called)
	assert.Empty(t, r.Rows())
}

func TestRecorder_DumpReadableByLoader(t *testing.T) {
	source := &fakeSource{depths: []Depth{{Bids: []Level{level("100.5", "1.25")}, Asks: []Level{level("100.7", "0.5")}}}}
	r := newTestRecorder(source, nil, Config{Symbol: "BTCUSDT", MaxRows: 10})
	require.NoError(t, r.Poll(context.Background()))
	require.NoError(t, r.Poll(context.Background()))

	path := filepath.Join(t.TempDir(), "rows.json")
	require.NoError(t, r.Dump(path))

	rows, err := loader.FromFile(path)
	require.NoError(t, err)

	series := domain.NewSeries(rows)
	assert.Equal(t, []string{"2024-01-01T12:00:00", "2024-01-01T12:00:01"}, series.Times())
	p, ok := series[0].Price(domain.SideBid, 1)
	require.True(t, ok)
	assert.Equal(t, "100.5", p.String())
}

func TestRecorder_RunDumpsOnShutdown(t *testing.T) {
	source := &fakeSource{depths: []Depth{{Bids: []Level{level("10", "1")}}}}
	path := filepath.Join(t.TempDir(), "rows.json")
	polled := make(chan struct{}, 1)
	r := New(zap.NewNop(), source, func([]domain.Row) {
		select {
		case polled <- struct{}{}:
		default:
		}
	}, Config{Symbol: "BTCUSDT", Interval: time.Hour, MaxRows: 10, Output: path})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	<-polled
	cancel()
	require.NoError(t, <-done)

	_, err := os.Stat(path)
	assert.NoError(t, err)
}
