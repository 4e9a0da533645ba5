// ABOUTME: Prometheus metrics for the LiveVoice pipeline
// ABOUTME: Exports session statistics from a per-instance registry
package metrics

import (
	"net/http"

	"github.com/livevoice/livevoice-go/pkg/livevoice"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatsSource provides a statistics snapshot at scrape time
type StatsSource interface {
	Stats() livevoice.Stats
}

// Metrics exports one session's statistics
type Metrics struct {
	registry *prometheus.Registry

	// Interval between UI stat refreshes, observed by the TUI
	RefreshLag prometheus.Histogram
}

// NewMetrics registers collectors reading from source on a fresh registry
func NewMetrics(source StatsSource) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	counter := func(name, help string, value func(livevoice.Stats) int64) {
		factory.NewCounterFunc(prometheus.CounterOpts{Name: name, Help: help}, func() float64 {
			return float64(value(source.Stats()))
		})
	}
	gauge := func(name, help string, value func(livevoice.Stats) float64) {
		factory.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, func() float64 {
			return value(source.Stats())
		})
	}

	// Capture metrics
	counter("livevoice_capture_frames_total", "Total number of capture frames read from the input device",
		func(s livevoice.Stats) int64 { return s.FramesCaptured })
	counter("livevoice_capture_frames_sent_total", "Total number of capture frames sent to the endpoint",
		func(s livevoice.Stats) int64 { return s.FramesSent })
	counter("livevoice_capture_frames_dropped_total", "Total number of capture frames dropped while disconnected",
		func(s livevoice.Stats) int64 { return s.FramesDropped })

	// Playback metrics
	counter("livevoice_playback_chunks_received_total", "Total number of audio chunks received from the endpoint",
		func(s livevoice.Stats) int64 { return s.ChunksReceived })
	counter("livevoice_playback_decode_errors_total", "Total number of received chunks that failed to decode",
		func(s livevoice.Stats) int64 { return s.DecodeErrors })
	counter("livevoice_playback_buffers_enqueued_total", "Total number of decoded buffers scheduled for playback",
		func(s livevoice.Stats) int64 { return s.Playback.Enqueued })
	counter("livevoice_playback_buffers_completed_total", "Total number of buffers that played to completion",
		func(s livevoice.Stats) int64 { return s.Playback.Completed })
	counter("livevoice_playback_buffers_interrupted_total", "Total number of buffers cut off by interruption",
		func(s livevoice.Stats) int64 { return s.Playback.Interrupted })
	counter("livevoice_playback_interruptions_total", "Total number of interruptions received",
		func(s livevoice.Stats) int64 { return s.Interruptions })
	gauge("livevoice_playback_active_sources", "Current number of scheduled playback sources",
		func(s livevoice.Stats) float64 { return float64(s.ActiveSources) })

	// Channel metrics
	counter("livevoice_channel_errors_total", "Total number of message channel errors",
		func(s livevoice.Stats) int64 { return s.ChannelErrors })
	gauge("livevoice_channel_connected", "Whether the message channel is open",
		func(s livevoice.Stats) float64 {
			if s.Connected {
				return 1
			}
			return 0
		})

	return &Metrics{
		registry: reg,
		RefreshLag: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "livevoice_ui_refresh_interval_seconds",
			Help:    "Interval between waveform frames delivered to the terminal UI",
			Buckets: prometheus.ExponentialBuckets(0.004, 2, 8), // 4ms to ~0.5s
		}),
	}
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
