// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from the analytics build.
//
// It exposes a narrow Backend interface focused on counters and duration
// observations, with a global, pluggable backend defaulting to a no-op
// implementation so metric calls are always safe even when nothing is
// configured. Concrete systems (Prometheus Pushgateway, Datadog) live in
// subpackages and are installed by the binary at startup.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveDuration records a duration-style observation in seconds.
	ObserveDuration(name string, seconds float64, labels Labels)
	// Flush pushes metrics if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels) {}

func (nopBackend) ObserveDuration(string, float64, Labels) {}

func (nopBackend) Flush() error { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing one.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep measures latency plus success/failure for one pipeline step.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"job": job, "step": step, "status": status}
	backend.IncCounter("analytics_step_total", 1, lbls)
	backend.ObserveDuration("analytics_step_duration_seconds", d.Seconds(), lbls)
}

// RecordRows increments a row-level counter for the given job and kind.
// Typical kinds: "orders_in", "users_in", "parse_skipped", "analytics",
// "inserted".
func RecordRows(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("analytics_rows_total", float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}
