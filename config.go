package jobpool

import (
	"github.com/sirupsen/logrus"
	"github.com/ygrebnov/errorc"

	"github.com/ygrebnov/jobpool/metrics"
)

// config holds Pool configuration.
type config struct {
	// Name identifies the pool in logs and metric labels.
	// Default: "jobpool"
	Name string

	// QueueCapacity bounds the number of queued jobs.
	// Zero means unbounded: Submit never waits for room.
	// Default: 0
	QueueCapacity uint

	// Logger receives worker and pool lifecycle events and job failures.
	// Default: logrus.StandardLogger()
	Logger logrus.FieldLogger

	// Metrics records job and worker instruments.
	// Default: metrics.NoopProvider
	Metrics metrics.Provider

	// FailureHandlers are called, in order, with a *JobError for every failed job.
	// They run on the worker goroutine that executed the job.
	FailureHandlers []func(error)
}

// defaultConfig centralizes default values for config.
func defaultConfig() config {
	return config{
		Name:          Namespace,
		QueueCapacity: 0,
		Logger:        logrus.StandardLogger(),
		Metrics:       metrics.NewNoopProvider(),
	}
}

// validateConfig checks the worker count against the assembled config.
// Size 0 is rejected, never coerced.
func validateConfig(size uint, _ *config) error {
	if size == 0 {
		return errorc.With(ErrInvalidConfig, errorc.String("", "New requires size > 0"))
	}
	return nil
}

// Option configures a Pool. Options return an error on invalid input.
type Option func(*config) error

// WithName sets the pool name used in logs and as the "pool" metric label.
func WithName(name string) Option {
	return func(cfg *config) error {
		if name == "" {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithName requires a non-empty name"))
		}
		cfg.Name = name
		return nil
	}
}

// WithQueueCapacity bounds the queue. With a bounded queue Submit blocks while the
// queue is full, SubmitContext bounds that wait and TrySubmit reports a full queue.
func WithQueueCapacity(n uint) Option {
	return func(cfg *config) error { cfg.QueueCapacity = n; return nil }
}

// WithLogger sets the logger. Any logrus.FieldLogger works, including *logrus.Entry.
func WithLogger(l logrus.FieldLogger) Option {
	return func(cfg *config) error {
		if l == nil {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithLogger requires a non-nil logger"))
		}
		cfg.Logger = l
		return nil
	}
}

// WithMetrics sets the metrics provider.
func WithMetrics(p metrics.Provider) Option {
	return func(cfg *config) error {
		if p == nil {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithMetrics requires a non-nil provider"))
		}
		cfg.Metrics = p
		return nil
	}
}

// WithFailureHandler registers fn to be called with a *JobError for every failed job.
// It may be given more than once; handlers run in registration order.
func WithFailureHandler(fn func(error)) Option {
	return func(cfg *config) error {
		if fn != nil {
			cfg.FailureHandlers = append(cfg.FailureHandlers, fn)
		}
		return nil
	}
}
