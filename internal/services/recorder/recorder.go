// Package recorder turns live order-book depth into snapshot rows.
package recorder

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/obchart/internal/domain"
	"github.com/vadiminshakov/obchart/internal/metrics"
	"github.com/vadiminshakov/obchart/pkg/retrier"
	"go.uber.org/zap"
)

// timeLayout RFC3339 with milliseconds; the part after '.' is dropped by the chart.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// Level one price level of the book.
type Level struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// Depth top of the book, best level first.
type Depth struct {
	Bids []Level
	Asks []Level
}

// DepthSource fetches order-book depth.
type DepthSource interface {
	Depth(ctx context.Context, symbol string, limit int) (Depth, error)
}

// Sink receives the accumulated rows after every successful poll.
type Sink func(rows []domain.Row)

// Config of a Recorder.
type Config struct {
	Symbol   string
	Interval time.Duration
	MaxRows  int
	Output   string
}

// Recorder polls a depth source and keeps the last MaxRows snapshots.
type Recorder struct {
	source  DepthSource
	sink    Sink
	cfg     Config
	retrier *retrier.Retrier
	logger  *zap.Logger
	now     func() time.Time

	mu   sync.Mutex
	rows []domain.Row
}

// New creates a recorder. A nil sink only accumulates rows.
func New(logger *zap.Logger, source DepthSource, sink Sink, cfg Config) *Recorder {
	return &Recorder{
		source: source,
		sink:   sink,
		cfg:    cfg,
		retrier: retrier.New(
			retrier.WithMaxRetries(2),
			retrier.WithOnRetry(func(attempt int, err error) {
				logger.Warn("depth poll failed, retrying", zap.Int("attempt", attempt), zap.Error(err))
			}),
		),
		logger: logger.With(zap.String("symbol", cfg.Symbol)),
		now:    time.Now,
	}
}

// Run polls until ctx is cancelled, then dumps the rows if an output file is configured.
func (r *Recorder) Run(ctx context.Context) error {
	r.logger.Info("recorder started", zap.Duration("interval", r.cfg.Interval), zap.Int("max_rows", r.cfg.MaxRows))

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := r.Poll(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("depth poll failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			r.logger.Info("recorder stopped", zap.Int("rows", len(r.Rows())))
			if r.cfg.Output == "" {
				return nil
			}
			return r.Dump(r.cfg.Output)
		case <-ticker.C:
		}
	}
}

// Poll takes one snapshot and hands the accumulated rows to the sink.
func (r *Recorder) Poll(ctx context.Context) error {
	depth, err := retrier.DoWithData(ctx, r.retrier, func(ctx context.Context) (Depth, error) {
		return r.source.Depth(ctx, r.cfg.Symbol, domain.Levels)
	})
	if err != nil {
		metrics.RecorderPollsTotal.WithLabelValues("error").Inc()
		return errors.Wrap(err, "poll depth")
	}
	metrics.RecorderPollsTotal.WithLabelValues("ok").Inc()

	row := ToRow(r.now(), depth)

	r.mu.Lock()
	r.rows = append(r.rows, row)
	if r.cfg.MaxRows > 0 && len(r.rows) > r.cfg.MaxRows {
		r.rows = append([]domain.Row(nil), r.rows[len(r.rows)-r.cfg.MaxRows:]...)
	}
	rows := append([]domain.Row(nil), r.rows...)
	r.mu.Unlock()

	if r.sink != nil {
		r.sink(rows)
	}
	return nil
}

// Rows returns a copy of the accumulated rows.
func (r *Recorder) Rows() []domain.Row {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]domain.Row(nil), r.rows...)
}

// Dump writes the rows as a JSON array readable by the loader.
func (r *Recorder) Dump(path string) error {
	data, err := json.MarshalIndent(r.Rows(), "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode rows")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write rows to %s", path)
	}
	r.logger.Info("rows dumped", zap.String("path", path))
	return nil
}

// ToRow converts depth taken at t to a snapshot row. Levels beyond the chart's
// ten are ignored and missing levels stay absent.
func ToRow(t time.Time, depth Depth) domain.Row {
	row := domain.Row{domain.TimeKey: t.UTC().Format(timeLayout)}
	putLevels(row, domain.SideBid, depth.Bids)
	putLevels(row, domain.SideAsk, depth.Asks)
	return row
}

func putLevels(row domain.Row, side domain.Side, levels []Level) {
	for i, l := range levels {
		level := i + 1
		if level > domain.Levels {
			return
		}
		row[side.PriceKey(level)] = json.Number(l.Price.String())
		row[side.SizeKey(level)] = json.Number(l.Quantity.String())
	}
}
