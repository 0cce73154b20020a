// Package metrics holds the prometheus collectors of the chart service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	FramesEmittedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "obchart_frames_emitted_total", Help: "Chart frames pushed to the render surface by kind"}, []string{"kind"})
	FramesSkippedTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "obchart_frames_skipped_total", Help: "Recomputes skipped because the selection had no snapshot"})
	SelectionsTotal    = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "obchart_selections_total", Help: "Selection changes by source"}, []string{"source"})
	ReplayActive       = prometheus.NewGauge(prometheus.GaugeOpts{Name: "obchart_replay_active", Help: "1 while a replay is running"})
	SeriesLength       = prometheus.NewGauge(prometheus.GaugeOpts{Name: "obchart_series_length", Help: "Snapshots in the loaded series"})
	StreamClients      = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "obchart_stream_clients", Help: "Connected render surfaces by transport"}, []string{"transport"})
	RecorderPollsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "obchart_recorder_polls_total", Help: "Depth polls by outcome"}, []string{"outcome"})
)

// Init registers all collectors in a fresh registry.
func Init(logger *zap.Logger) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	toRegister := []prometheus.Collector{
		FramesEmittedTotal, FramesSkippedTotal, SelectionsTotal, ReplayActive,
		SeriesLength, StreamClients, RecorderPollsTotal,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range toRegister {
		_ = reg.Register(c)
	}
	logger.Info("prometheus metrics initialized")
	return reg
}

// Handler serves the registry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
