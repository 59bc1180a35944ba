package jobpool

import "github.com/ygrebnov/jobpool/metrics"

// instruments groups the metrics a pool and its workers record.
type instruments struct {
	submitted metrics.Counter
	completed metrics.Counter
	failed    metrics.Counter
	rejected  metrics.Counter
	duration  metrics.Histogram

	queueDepth metrics.UpDownCounter
	running    metrics.UpDownCounter
	busy       metrics.UpDownCounter
}

func newInstruments(p metrics.Provider, pool string) *instruments {
	labels := metrics.WithAttributes(map[string]string{"pool": pool})
	return &instruments{
		submitted: p.Counter(metrics.JobsSubmitted, labels,
			metrics.WithDescription("Total number of jobs accepted by the pool.")),
		completed: p.Counter(metrics.JobsCompleted, labels,
			metrics.WithDescription("Total number of jobs that ran to completion without failure.")),
		failed: p.Counter(metrics.JobsFailed, labels,
			metrics.WithDescription("Total number of jobs that returned an error or panicked.")),
		rejected: p.Counter(metrics.JobsRejected, labels,
			metrics.WithDescription("Total number of submissions rejected by the pool.")),
		duration: p.Histogram(metrics.JobDuration, labels, metrics.WithUnit("seconds"),
			metrics.WithDescription("Job execution time in seconds.")),
		queueDepth: p.UpDownCounter(metrics.QueueDepth, labels,
			metrics.WithDescription("Number of jobs waiting in the queue.")),
		running: p.UpDownCounter(metrics.WorkersRunning, labels,
			metrics.WithDescription("Number of live worker goroutines.")),
		busy: p.UpDownCounter(metrics.WorkersBusy, labels,
			metrics.WithDescription("Number of workers currently executing a job.")),
	}
}
