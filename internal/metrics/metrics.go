// Package metrics is a minimal facade between the cleaning pipeline and a
// metrics sink. The pipeline depends only on this package; concrete backends
// (Datadog, or a nop) are wired at startup.
package metrics

import "sync"

// Labels are free-form metric dimensions (e.g. {"stage": "deduplicator"}).
type Labels map[string]string

// Backend is the sink interface a metrics implementation provides.
//
// Implementations must be safe for concurrent use; the facade does not
// serialize calls.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Flush() error
}

// nopBackend drops everything. It is the default so pipeline code never has
// to nil-check.
type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs the process-wide backend. Call once at startup.
func SetBackend(b Backend) {
	if b == nil {
		b = nopBackend{}
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// IncCounter adds delta to a counter.
func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

// ObserveHistogram records one sample of a distribution.
func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Flush forwards to the active backend. Safe to call with the nop backend.
func Flush() error {
	return current().Flush()
}

// Metric names emitted by the pipeline. Kept here so backends and emitters
// agree on the contract.
const (
	StageTotal           = "propclean_stage_total"            // labels: stage, status
	StageDurationSeconds = "propclean_stage_duration_seconds" // labels: stage, status
	RowsTotal            = "propclean_rows_total"             // labels: kind (read|updated|deleted|malformed)
)
