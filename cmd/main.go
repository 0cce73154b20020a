// Command obchart serves an order-book snapshot dashboard: a bar chart of the
// ten bid and ask levels at a selected time, with a time picker, a slider and
// a replay that steps through the snapshots.
//
// Usage:
//
//	obchart --config config.yaml
//	obchart --data rows.json --addr :8080
//	obchart --setup (interactive configuration wizard)
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/obchart/config"
	"github.com/vadiminshakov/obchart/internal/events"
	"github.com/vadiminshakov/obchart/internal/logging"
	"github.com/vadiminshakov/obchart/internal/metrics"
	"github.com/vadiminshakov/obchart/internal/services/controller"
	"github.com/vadiminshakov/obchart/internal/services/firstuse"
	"github.com/vadiminshakov/obchart/internal/services/loader"
	"github.com/vadiminshakov/obchart/internal/services/recorder"
	"github.com/vadiminshakov/obchart/internal/setup"
	"github.com/vadiminshakov/obchart/internal/storage/flags"
	"github.com/vadiminshakov/obchart/internal/web"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const broadcastBuffer = 64

type flagStore interface {
	firstuse.KVStore
	Close() error
}

// openStore is swapped in tests.
var openStore = openFlagStore

func main() {
	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	if cfg.Setup {
		path, err := setup.RunTUI(cfg.ConfigPath)
		if err != nil {
			log.Fatal(err)
		}
		args := append(os.Args[1:], "--config", path)
		cfg, err = config.Parse(flag.NewFlagSet(os.Args[0], flag.ExitOnError), args)
		if err != nil {
			log.Fatal(err)
		}
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		log.Fatal(err)
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("stopped with error", zap.Error(err))
	}
	logger.Info("stopped")
	_ = logger.Sync()
}

// run serves the dashboard until a signal arrives. Resources opened here are
// released before it returns, whatever the outcome.
func run(cfg config.Config, logger *zap.Logger) error {
	store, err := openStore(cfg)
	if err != nil {
		return errors.Wrap(err, "open flag store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close flag store", zap.Error(err))
		}
	}()

	if first, err := firstuse.Check(store, firstuse.CLIKey); err != nil {
		logger.Warn("failed to check first run", zap.Error(err))
	} else if first {
		setup.Welcome(os.Stdout)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.Init(logger)
	surface := web.NewSurface(events.NewBroadcaster(broadcastBuffer), logger.With(zap.String("component", "surface")))
	ctrl := controller.New(logger.With(zap.String("component", "controller")), surface,
		controller.WithReplayInterval(cfg.ReplayInterval),
		controller.WithStateObserver(surface.PublishState),
	)

	if cfg.Data != "" {
		rows, err := loader.New(logger, nil, nil).Load(ctx, cfg.Data)
		if err != nil {
			return errors.Wrapf(err, "load snapshots from %s", cfg.Data)
		}
		ctrl.SetRawData(rows)
	}

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Recorder.Enabled {
		rec := recorder.New(logger.With(zap.String("component", "recorder")),
			recorder.NewBinanceDepthSource(nil), ctrl.SetRawData,
			recorder.Config{
				Symbol:   cfg.Recorder.Symbol,
				Interval: cfg.Recorder.Interval,
				MaxRows:  cfg.Recorder.MaxRows,
				Output:   cfg.Recorder.Output,
			})
		g.Go(func() error {
			return rec.Run(ctx)
		})
	}

	srv := web.NewServer(cfg.Addr, ctrl, surface, store, reg, logger.With(zap.String("component", "web")))
	g.Go(func() error {
		if len(cfg.TLS.Domains) > 0 {
			return srv.StartWithAutoTLS(ctx, cfg.TLS.Domains, cfg.TLS.CacheDir)
		}
		return srv.Start(ctx)
	})

	return g.Wait()
}

func openFlagStore(cfg config.Config) (flagStore, error) {
	if cfg.Ephemeral {
		return flags.NewMemoryStore(), nil
	}
	store, err := flags.NewWALStore(cfg.StateDir)
	if err != nil {
		return nil, err
	}
	return store, nil
}
