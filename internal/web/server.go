// Package web serves the order-book dashboard: the static page, the chart event
// streams and the control API the page's widgets call.
package web

import (
	"compress/gzip"
	"context"
	"crypto/tls"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vadiminshakov/obchart/internal/domain"
	"github.com/vadiminshakov/obchart/internal/events"
	"github.com/vadiminshakov/obchart/internal/metrics"
	"github.com/vadiminshakov/obchart/internal/services/chart"
	"github.com/vadiminshakov/obchart/internal/services/controller"
	"github.com/vadiminshakov/obchart/internal/services/firstuse"
	"github.com/vadiminshakov/obchart/internal/services/loader"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"
)

const (
	heartbeatInterval = 20 * time.Second
	maxDataBytes      = 32 << 20

	clientCookie       = "obchart_client"
	clientCookieMaxAge = 10 * 365 * 24 * 60 * 60
)

//go:embed static
var staticFiles embed.FS

type chartController interface {
	SetRawData(rows []domain.Row)
	SelectTime(t string)
	SelectByIndex(i int)
	StartReplay()
	StopReplay()
	AvailableTimes() []string
	State() controller.State
	Tooltip() *chart.Tooltip
}

// Server exposes the dashboard over HTTP.
type Server struct {
	Addr       string
	Controller chartController
	Surface    *Surface
	Flags      firstuse.KVStore
	Registry   *prometheus.Registry

	logger *zap.Logger
}

// NewServer creates a new web server instance. A nil registry disables /metrics.
func NewServer(addr string, ctrl chartController, surface *Surface, flagStore firstuse.KVStore,
	reg *prometheus.Registry, logger *zap.Logger) *Server {
	return &Server{
		Addr:       addr,
		Controller: ctrl,
		Surface:    surface,
		Flags:      flagStore,
		Registry:   reg,
		logger:     logger,
	}
}

// Handler returns the routes of the dashboard.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /", s.staticHandler())
	mux.HandleFunc("GET /chart/stream", s.handleChartStream)
	mux.HandleFunc("GET /chart/ws", s.handleChartWS)
	mux.HandleFunc("GET /api/times", s.handleTimes)
	mux.HandleFunc("POST /api/select", s.handleSelect)
	mux.HandleFunc("POST /api/slider", s.handleSlider)
	mux.HandleFunc("POST /api/replay/start", s.handleReplayStart)
	mux.HandleFunc("POST /api/replay/stop", s.handleReplayStop)
	mux.HandleFunc("POST /api/data", s.handleData)
	mux.HandleFunc("GET "+chart.TooltipEndpoint, s.handleTooltip)
	mux.HandleFunc("GET /api/first-use", s.handleFirstUse)
	if s.Registry != nil {
		mux.Handle("GET /metrics", metrics.Handler(s.Registry))
	}
	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := s.newHTTPServer(s.Addr, s.Handler())

	go s.shutdownOnDone(ctx, server)

	s.logger.Info("dashboard listening", zap.String("addr", s.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "serve dashboard")
	}
	return nil
}

// StartWithAutoTLS runs an HTTPS server with automatic TLS certificates via ACME.
// It also starts an HTTP server on port 80 to handle ACME HTTP-01 challenges.
func (s *Server) StartWithAutoTLS(ctx context.Context, domains []string, cacheDir string) error {
	if len(domains) == 0 {
		return errors.New("no domains provided for automatic TLS")
	}
	if cacheDir == "" {
		cacheDir = "cert-cache"
	}

	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domains...),
		Cache:      autocert.DirCache(cacheDir),
	}

	httpSrv := s.newHTTPServer(":80", manager.HTTPHandler(nil))

	tlsConfig := manager.TLSConfig()
	tlsConfig.MinVersion = tls.VersionTLS12
	httpsSrv := s.newHTTPServer(s.Addr, s.Handler())
	httpsSrv.TLSConfig = tlsConfig

	go s.shutdownOnDone(ctx, httpSrv)
	go s.shutdownOnDone(ctx, httpsSrv)

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("acme http server failed", zap.Error(err))
		}
	}()

	s.logger.Info("dashboard listening with TLS", zap.String("addr", s.Addr), zap.Strings("domains", domains))
	if err := httpsSrv.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "serve dashboard over TLS")
	}
	return nil
}

func (s *Server) newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func (s *Server) shutdownOnDone(ctx context.Context, server *http.Server) {
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("server shutdown error", zap.String("addr", server.Addr), zap.Error(err))
	}
}

func (s *Server) handleChartStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	sub := s.Surface.Subscribe()
	defer s.Surface.Unsubscribe(sub)

	metrics.StreamClients.WithLabelValues("sse").Inc()
	defer metrics.StreamClients.WithLabelValues("sse").Dec()

	logger := s.logger.With(zap.String("subscriber", sub.ID.String()))
	logger.Debug("chart stream opened")
	defer logger.Debug("chart stream closed")

	var lastSeq uint64
	snapshot := s.Surface.Snapshot()
	for _, e := range snapshot {
		writeSSE(w, e)
		lastSeq = e.Seq
	}
	// let the page switch from 'loading' to 'no data yet'
	if len(snapshot) == 0 || snapshot[0].Kind != events.KindOptions {
		fmt.Fprintf(w, "event: no_data\ndata: {}\n\n")
	}
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case e, ok := <-sub.C:
			if !ok {
				return
			}
			if e.Seq <= lastSeq {
				continue
			}
			writeSSE(w, e)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, e events.ChartEvent) {
	fmt.Fprintf(w, "id: %d\n", e.Seq)
	fmt.Fprintf(w, "event: %s\n", e.Kind)
	fmt.Fprintf(w, "data: %s\n\n", e.Payload)
}

type timesResponse struct {
	Times []string `json:"times"`
	controller.State
}

func (s *Server) handleTimes(w http.ResponseWriter, r *http.Request) {
	times := s.Controller.AvailableTimes()
	if times == nil {
		times = []string{}
	}
	writeJSON(w, http.StatusOK, timesResponse{
		Times: times,
		State: s.Controller.State(),
	})
}

type selectRequest struct {
	Time string `json:"time"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.Time == "" {
		http.Error(w, "time is required", http.StatusBadRequest)
		return
	}
	s.Controller.SelectTime(req.Time)
	writeJSON(w, http.StatusOK, s.Controller.State())
}

type sliderRequest struct {
	Index *int `json:"index"`
}

func (s *Server) handleSlider(w http.ResponseWriter, r *http.Request) {
	var req sliderRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.Index == nil {
		http.Error(w, "index is required", http.StatusBadRequest)
		return
	}
	s.Controller.SelectByIndex(*req.Index)
	writeJSON(w, http.StatusOK, s.Controller.State())
}

func (s *Server) handleReplayStart(w http.ResponseWriter, r *http.Request) {
	s.Controller.StartReplay()
	writeJSON(w, http.StatusOK, s.Controller.State())
}

func (s *Server) handleReplayStop(w http.ResponseWriter, r *http.Request) {
	s.Controller.StopReplay()
	writeJSON(w, http.StatusOK, s.Controller.State())
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	rows, err := loader.DecodeRows(http.MaxBytesReader(w, r.Body, maxDataBytes))
	if err != nil {
		http.Error(w, "invalid snapshot rows", http.StatusBadRequest)
		s.logger.Warn("rejected data upload", zap.Error(err))
		return
	}
	s.Controller.SetRawData(rows)
	writeJSON(w, http.StatusOK, s.Controller.State())
}

func (s *Server) handleTooltip(w http.ResponseWriter, r *http.Request) {
	seriesIndex, err := strconv.Atoi(r.URL.Query().Get("series"))
	if err != nil {
		http.Error(w, "invalid series", http.StatusBadRequest)
		return
	}
	dataPointIndex, err := strconv.Atoi(r.URL.Query().Get("point"))
	if err != nil {
		http.Error(w, "invalid point", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	fmt.Fprint(w, s.Controller.Tooltip().Render(seriesIndex, dataPointIndex))
}

func (s *Server) handleFirstUse(w http.ResponseWriter, r *http.Request) {
	if s.Flags == nil {
		writeJSON(w, http.StatusOK, map[string]bool{"first": false})
		return
	}
	first, err := firstuse.IsFirstClientUse(s.Flags, clientID(w, r))
	if err != nil {
		s.logger.Error("first use check failed", zap.Error(err))
		http.Error(w, "first use flag unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"first": first})
}

// clientID returns the browser id kept in a cookie, issuing a new one when missing.
func clientID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(clientCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     clientCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   clientCookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) staticHandler() http.Handler {
	root, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	fileServer := http.FileServerFS(root)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assetPath := r.URL.Path
		if assetPath == "" || assetPath == "/" {
			assetPath = "/index.html"
		}

		if !shouldCompress(assetPath) || !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			fileServer.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Set("Vary", "Accept-Encoding")

		gz := gzip.NewWriter(w)
		defer gz.Close()

		fileServer.ServeHTTP(&gzipResponseWriter{ResponseWriter: w, writer: gz}, r)
	})
}

type gzipResponseWriter struct {
	http.ResponseWriter
	writer *gzip.Writer
}

func (w *gzipResponseWriter) WriteHeader(statusCode int) {
	w.Header().Del("Content-Length")
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *gzipResponseWriter) Write(b []byte) (int, error) {
	return w.writer.Write(b)
}

func shouldCompress(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ".html", ".css", ".js", ".json", ".svg":
		return true
	default:
		return false
	}
}
