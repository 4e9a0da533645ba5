// Package metrics exposes Prometheus counters and gauges for the voice
// pipeline and an HTTP handler serving them.
package metrics
