package jobpool

import (
	"context"
	"errors"
	"sync"
)

// RunAll executes jobs on a new pool of size workers configured by opts.
// It owns the lifecycle: New, submit every job, Shutdown.
//
// Semantics:
// - Every submitted job runs exactly once before RunAll returns.
// - If ctx is done before all jobs are submitted, the remaining jobs are skipped;
//   jobs already submitted still run.
// - The returned error is errors.Join of all job failures (each a *JobError, in
//   completion order) plus ctx.Err() when submission was cut short.
func RunAll(ctx context.Context, size uint, jobs []func() error, opts ...Option) error {
	c := &failureCollector{}
	p, err := New(size, append(opts, WithFailureHandler(c.add))...)
	if err != nil {
		return err
	}

	ctxErr := submitAll(ctx, p, jobs)
	p.Shutdown()

	return errors.Join(append(c.errors(), ctxErr)...)
}

// submitAll enqueues jobs until ctx is done. It returns ctx.Err() if it stopped early.
func submitAll(ctx context.Context, p *Pool, jobs []func() error) error {
	for _, fn := range jobs {
		if fn == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.send(ctx, funcTask(fn)); err != nil {
			return err
		}
	}
	return nil
}

// failureCollector gathers failures reported by workers.
type failureCollector struct {
	mu   sync.Mutex
	errs []error
}

func (c *failureCollector) add(err error) {
	c.mu.Lock()
	c.errs = append(c.errs, err)
	c.mu.Unlock()
}

func (c *failureCollector) errors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]error, len(c.errs))
	copy(out, c.errs)
	return out
}
