// Package jobpool provides a bounded worker pool: a fixed number of worker goroutines
// pulling jobs from one shared FIFO queue, with a deterministic shutdown.
//
// Constructors
//   - New(size, opts ...Option): starts size workers; size must be > 0.
//   - MustNew(size, opts ...Option): panics instead of returning an error.
//
// Defaults
// Unless overridden, the following defaults apply:
//   - Name: "jobpool"
//   - QueueCapacity: 0 (unbounded, Submit never blocks)
//   - Logger: logrus.StandardLogger()
//   - Metrics: metrics.NoopProvider
//
// Ordering
// Jobs are handed to workers in submission order across the whole pool. Jobs taken
// by different workers may finish in any order.
//
// Failures
// A job that panics, or a job submitted with SubmitFunc that returns an error, does not
// stop its worker. The failure is logged with the worker id, counted, and passed as a
// *JobError to every handler registered with WithFailureHandler.
//
// Shutdown
// Shutdown rejects new submissions with ErrPoolClosed, appends one shutdown marker per
// worker behind the jobs already queued, and waits for every worker to exit. Jobs
// submitted before Shutdown are never dropped. There is no cancellation of a running job.
//
// Helpers
//   - RunAll(ctx, size, jobs, opts...): run a batch on a temporary pool.
//   - ForEach(ctx, size, items, fn, opts...): apply fn to every item on a temporary pool.
package jobpool
