// Package metrics defines the instruments a job pool records into.
//
// The pool only depends on the Provider interface. Three implementations ship with
// the package: NoopProvider (the default), BasicProvider (in-memory, handy in tests)
// and PrometheusProvider (registers collectors with a prometheus.Registerer).
package metrics

// Instrument names recorded by the pool.
const (
	JobsSubmitted  = "jobpool_jobs_submitted_total"
	JobsCompleted  = "jobpool_jobs_completed_total"
	JobsFailed     = "jobpool_jobs_failed_total"
	JobsRejected   = "jobpool_jobs_rejected_total"
	JobDuration    = "jobpool_job_duration_seconds"
	QueueDepth     = "jobpool_queue_depth"
	WorkersRunning = "jobpool_workers_running"
	WorkersBusy    = "jobpool_workers_busy"
)

// Provider constructs instruments used to record metrics.
// Implementations must be safe for concurrent use and must return the same
// instrument for repeated calls with the same name.
type Provider interface {
	Counter(name string, opts ...InstrumentOption) Counter
	UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter
	Histogram(name string, opts ...InstrumentOption) Histogram
}

// Counter records monotonic counts.
type Counter interface {
	Add(n int64)
}

// UpDownCounter records values that can move up or down (queue depth, busy workers).
type UpDownCounter interface {
	Add(n int64)
}

// Histogram records a distribution of float64 measurements, e.g. durations in seconds.
type Histogram interface {
	Record(v float64)
}

// InstrumentConfig carries optional instrument metadata.
type InstrumentConfig struct {
	Description string
	Unit        string
	// Attributes are static key-value pairs attached to the instrument.
	// Keep cardinality bounded.
	Attributes map[string]string
}

// InstrumentOption mutates InstrumentConfig.
type InstrumentOption func(*InstrumentConfig)

// WithDescription sets the instrument description (Prometheus help text).
func WithDescription(desc string) InstrumentOption {
	return func(c *InstrumentConfig) { c.Description = desc }
}

// WithUnit sets an advisory unit for the instrument (e.g., "1", "seconds").
func WithUnit(unit string) InstrumentOption {
	return func(c *InstrumentConfig) { c.Unit = unit }
}

// WithAttributes attaches static attributes to the instrument.
func WithAttributes(attrs map[string]string) InstrumentOption {
	return func(c *InstrumentConfig) {
		if len(attrs) == 0 {
			return
		}
		if c.Attributes == nil {
			c.Attributes = make(map[string]string, len(attrs))
		}
		for k, v := range attrs {
			c.Attributes[k] = v
		}
	}
}

func applyOptions(opts []InstrumentOption) InstrumentConfig {
	var cfg InstrumentConfig
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}
	return cfg
}
