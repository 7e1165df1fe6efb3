// File: metrics/metrics.go
// Package metrics provides Prometheus instrumentation for wstream
// servers.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The stream adapter itself stays metrics-free; it only exposes a
// counter snapshot. This package folds those snapshots into Prometheus
// collectors at connection-lifecycle events.

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for a wstream server.
type Metrics struct {
	reg *prometheus.Registry

	ActiveStreams prometheus.Gauge
	StreamsTotal  prometheus.Counter
	FramesTotal   *prometheus.CounterVec
	BytesTotal    *prometheus.CounterVec
	PingsSent     prometheus.Counter
	PongsReceived prometheus.Counter
	StaleStreams  prometheus.Counter
}

// New creates a Metrics instance with its own registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "wstream"
	}
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		ActiveStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_streams",
			Help:      "Number of currently open WebSocket streams",
		}),
		StreamsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "streams_total",
			Help:      "Total number of WebSocket streams accepted",
		}),
		FramesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Total WebSocket frames transferred",
		}, []string{"direction"}),
		BytesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payload_bytes_total",
			Help:      "Total payload bytes transferred",
		}, []string{"direction"}),
		PingsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pings_sent_total",
			Help:      "Total heartbeat pings sent",
		}),
		PongsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pongs_received_total",
			Help:      "Total pongs received",
		}),
		StaleStreams: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_streams_total",
			Help:      "Streams that missed a pong deadline",
		}),
	}
	reg.MustRegister(
		m.ActiveStreams, m.StreamsTotal, m.FramesTotal, m.BytesTotal,
		m.PingsSent, m.PongsReceived, m.StaleStreams,
	)
	return m
}

// StreamOpened records a newly accepted stream.
func (m *Metrics) StreamOpened() {
	m.StreamsTotal.Inc()
	m.ActiveStreams.Inc()
}

// StreamClosed folds a stream's final counter snapshot (as returned by
// Stream.Stats) into the aggregate collectors.
func (m *Metrics) StreamClosed(stats map[string]int64, stale bool) {
	m.ActiveStreams.Dec()
	m.FramesTotal.WithLabelValues("in").Add(float64(stats["frames_received"]))
	m.FramesTotal.WithLabelValues("out").Add(float64(stats["frames_sent"]))
	m.BytesTotal.WithLabelValues("in").Add(float64(stats["bytes_received"]))
	m.BytesTotal.WithLabelValues("out").Add(float64(stats["bytes_sent"]))
	m.PingsSent.Add(float64(stats["pings_sent"]))
	m.PongsReceived.Add(float64(stats["pongs_received"]))
	if stale {
		m.StaleStreams.Inc()
	}
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
