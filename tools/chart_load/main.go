// Command chart_load opens many chart streams against a running dashboard and
// optionally drives the slider, reporting how many events of each kind arrive.
package main

import (
	"bufio"
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type counters struct {
	connected   atomic.Int64
	connectErrs atomic.Int64
	streamErrs  atomic.Int64
	options     atomic.Int64
	updates     atomic.Int64
	states      atomic.Int64
	moves       atomic.Int64
}

func (c *counters) count(event string) {
	switch event {
	case "options":
		c.options.Add(1)
	case "update":
		c.updates.Add(1)
	case "state":
		c.states.Add(1)
	}
}

func (c *counters) fields() []zap.Field {
	return []zap.Field{
		zap.Int64("connected", c.connected.Load()),
		zap.Int64("connect_errs", c.connectErrs.Load()),
		zap.Int64("stream_errs", c.streamErrs.Load()),
		zap.Int64("options", c.options.Load()),
		zap.Int64("updates", c.updates.Load()),
		zap.Int64("states", c.states.Load()),
		zap.Int64("slider_moves", c.moves.Load()),
	}
}

func main() {
	var (
		baseURL      string
		connections  int
		testDuration time.Duration
		rampUp       time.Duration
		driveEvery   time.Duration
		steps        int
	)

	flag.StringVar(&baseURL, "url", "http://localhost:8080", "dashboard base URL")
	flag.IntVar(&connections, "conns", 500, "number of concurrent chart streams")
	flag.DurationVar(&testDuration, "dur", 60*time.Second, "test duration (0 for until interrupted)")
	flag.DurationVar(&rampUp, "ramp", time.Second, "spread stream starts across this window")
	flag.DurationVar(&driveEvery, "drive", 0, "move the slider this often (0 to only listen)")
	flag.IntVar(&steps, "steps", 2, "slider positions cycled by the driver")
	flag.Parse()

	if connections <= 0 {
		log.Fatalf("invalid conns: %d", connections)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if testDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, testDuration)
		defer cancel()
	}

	client := &http.Client{
		Transport: &http.Transport{
			MaxConnsPerHost:     connections + 100,
			MaxIdleConns:        connections + 100,
			MaxIdleConnsPerHost: connections + 100,
			DisableCompression:  true,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
		},
	}

	logger.Info("starting chart load",
		zap.String("url", baseURL), zap.Int("conns", connections),
		zap.Duration("duration", testDuration), zap.Duration("drive", driveEvery))

	var c counters
	start := time.Now()

	var wg sync.WaitGroup
	interval := rampUp / time.Duration(connections)
	for i := 0; i < connections && ctx.Err() == nil; i++ {
		if i > 0 && interval > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(interval):
			}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			stream(ctx, client, baseURL+"/chart/stream", &c)
		}()
	}

	g, gctx := errgroup.WithContext(ctx)
	if driveEvery > 0 {
		g.Go(func() error {
			return drive(gctx, client, baseURL, driveEvery, steps, &c)
		})
	}
	g.Go(func() error {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				logger.Info("status", append(c.fields(), zap.Duration("elapsed", time.Since(start).Truncate(time.Second)))...)
			}
		}
	})

	wg.Wait()
	if err := g.Wait(); err != nil {
		logger.Error("driver failed", zap.Error(err))
	}

	elapsed := time.Since(start)
	received := c.options.Load() + c.updates.Load() + c.states.Load()
	fmt.Printf("done: elapsed=%s events=%d events/s=%.2f\n",
		elapsed.Truncate(time.Millisecond), received, float64(received)/elapsed.Seconds())
	logger.Info("done", c.fields()...)
}

func stream(ctx context.Context, client *http.Client, url string, c *counters) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.connectErrs.Add(1)
		return
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := client.Do(req)
	if err != nil {
		c.connectErrs.Add(1)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.connectErrs.Add(1)
		return
	}
	c.connected.Add(1)

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 64*1024), 4<<20)
	for sc.Scan() {
		if event, ok := strings.CutPrefix(sc.Text(), "event: "); ok {
			c.count(event)
		}
	}
	if ctx.Err() == nil {
		c.streamErrs.Add(1)
	}
}

func drive(ctx context.Context, client *http.Client, baseURL string, every time.Duration, steps int, c *counters) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		body := fmt.Sprintf(`{"index":%d}`, i%steps)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/slider", bytes.NewBufferString(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("slider answered %s", resp.Status)
		}
		c.moves.Add(1)
	}
}
