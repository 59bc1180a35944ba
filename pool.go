package jobpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/ygrebnov/jobpool/queue"
)

// Pool runs jobs on a fixed set of worker goroutines pulling from one shared FIFO queue.
// Pool is a concrete struct; methods are safe for concurrent use.
// Construct with New; the zero value is not usable.
type Pool struct {
	// noCopy prevents accidental copying of the pool.
	nc noCopy

	config *config
	size   int
	log    logrus.FieldLogger
	inst   *instruments

	queue *queue.Queue[task]

	// mu orders enqueues against shutdown: senders hold it shared while
	// enqueueing into reserved room, shutdown takes it exclusively to flip closing.
	// Waiting for room in a bounded queue happens outside mu.
	mu      sync.RWMutex
	closing bool

	// stopping is cancelled when shutdown begins, before mu is taken.
	// It aborts submitters waiting for room.
	stopping context.Context
	stop     context.CancelFunc

	workers   []*worker
	workersWG sync.WaitGroup
	running   atomic.Int32

	lifecycle *lifecycleCoordinator
	done      chan struct{}

	stats stats
}

// noCopy is a vet-recognized marker to discourage copying types with this field embedded.
// It works with the "-copylocks" analyzer via the presence of Lock/Unlock methods.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

type stats struct {
	submitted atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
}

// Stats is a point-in-time snapshot of pool counters.
type Stats struct {
	// Submitted counts accepted jobs.
	Submitted uint64
	// Completed counts jobs that returned without error or panic.
	Completed uint64
	// Failed counts jobs that returned an error or panicked.
	Failed uint64
}

// New creates a pool of size workers and starts them.
// It returns once every worker goroutine is running.
// size must be positive: New(0, ...) returns an error wrapping ErrInvalidConfig.
func New(size uint, opts ...Option) (*Pool, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := validateConfig(size, &cfg); err != nil {
		return nil, err
	}

	p := &Pool{}
	p.initialize(int(size), &cfg)
	p.start()
	return p, nil
}

// MustNew is like New but panics on a construction error.
func MustNew(size uint, opts ...Option) *Pool {
	p, err := New(size, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Pool) initialize(size int, cfg *config) {
	p.config = cfg
	p.size = size
	p.log = cfg.Logger.WithField("pool", cfg.Name)
	p.inst = newInstruments(cfg.Metrics, cfg.Name)
	p.queue = queue.New[task](int(cfg.QueueCapacity))
	p.done = make(chan struct{})
	p.stopping, p.stop = context.WithCancel(context.Background())
	p.lifecycle = newLifecycleCoordinator(
		func() {
			p.stop()
			p.mu.Lock()
			p.closing = true
			p.mu.Unlock()
		},
		func() error { return p.queue.Force(queue.Shutdown[task]()) },
		size,
		&p.workersWG,
		p.queue.Close,
		func(err error) { p.log.WithError(err).Warn("could not deliver shutdown marker") },
		func() {
			p.log.WithFields(logrus.Fields{
				"completed": p.stats.completed.Load(),
				"failed":    p.stats.failed.Load(),
			}).Info("pool stopped")
			close(p.done)
		},
	)
}

// start spawns the workers. Receivers are registered before any goroutine starts,
// so the queue is never observed without a receive side.
func (p *Pool) start() {
	var ready sync.WaitGroup
	ready.Add(p.size)
	p.workersWG.Add(p.size)

	p.workers = make([]*worker, p.size)
	for i := range p.workers {
		p.workers[i] = newWorker(i, p.queue.Receiver(), p.log, p.inst, &p.stats, p.config.FailureHandlers)
	}

	for _, w := range p.workers {
		go func(w *worker) {
			defer p.workersWG.Done()
			p.running.Add(1)
			p.inst.running.Add(1)
			defer func() {
				p.running.Add(-1)
				p.inst.running.Add(-1)
			}()
			ready.Done()
			w.run()
		}(w)
	}

	ready.Wait()
	p.log.WithFields(logrus.Fields{
		"workers":        p.size,
		"queue_capacity": p.queue.Capacity(),
	}).Info("pool started")
}

// Submit enqueues job for execution by some worker and returns without waiting for it to run.
//
// Semantics:
// - Safe for concurrent use by multiple goroutines.
// - Returns ErrPoolClosed once Shutdown has begun, without blocking.
// - With the default unbounded queue it never blocks. With WithQueueCapacity it blocks
//   while the queue is full; use SubmitContext or TrySubmit to bound or avoid that wait.
//   A Submit waiting for room returns ErrPoolClosed as soon as Shutdown begins.
func (p *Pool) Submit(job Job) error {
	if job == nil {
		return ErrNilJob
	}
	return p.send(context.Background(), jobTask(job))
}

// SubmitFunc is like Submit for a job that reports failure by returning an error.
// A non-nil error is handled like a panic: logged, counted and passed to failure handlers.
func (p *Pool) SubmitFunc(fn func() error) error {
	if fn == nil {
		return ErrNilJob
	}
	return p.send(context.Background(), funcTask(fn))
}

// SubmitContext enqueues job, giving up with ctx.Err() if ctx is done while waiting
// for room in a bounded queue. It returns ErrPoolClosed once Shutdown has begun.
func (p *Pool) SubmitContext(ctx context.Context, job Job) error {
	if job == nil {
		return ErrNilJob
	}
	return p.send(ctx, jobTask(job))
}

// TrySubmit attempts to enqueue job without blocking.
//
// Returns:
// - (true, nil) if the job was enqueued.
// - (false, nil) if the bounded queue is full.
// - (false, ErrPoolClosed) if Shutdown has begun.
func (p *Pool) TrySubmit(job Job) (bool, error) {
	if job == nil {
		return false, ErrNilJob
	}
	if p.stopping.Err() != nil {
		p.inst.rejected.Add(1)
		return false, ErrPoolClosed
	}

	r, ok, err := p.queue.TryReserve()
	if !ok || err != nil {
		p.inst.rejected.Add(1)
		return false, p.sendError(err)
	}
	if err := p.enqueue(&r, jobTask(job)); err != nil {
		return false, err
	}
	return true, nil
}

// send waits for room, then enqueues t. The wait ends early with ErrPoolClosed
// once shutdown begins, or with ctx.Err() when ctx is done.
func (p *Pool) send(ctx context.Context, t task) error {
	if p.stopping.Err() != nil {
		p.inst.rejected.Add(1)
		return ErrPoolClosed
	}

	wait := ctx
	if p.queue.Capacity() > 0 {
		var cancel context.CancelFunc
		wait, cancel = context.WithCancel(ctx)
		defer cancel()
		stop := context.AfterFunc(p.stopping, cancel)
		defer stop()
	}

	r, err := p.queue.Reserve(wait)
	if err != nil {
		p.inst.rejected.Add(1)
		if p.stopping.Err() != nil {
			return ErrPoolClosed
		}
		return p.sendError(err)
	}
	return p.enqueue(&r, t)
}

// enqueue sends t into reserved room unless shutdown has begun.
// It never blocks on capacity, so holding mu here cannot stall shutdown.
func (p *Pool) enqueue(r *queue.Reservation[task], t task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closing {
		r.Cancel()
		p.inst.rejected.Add(1)
		return ErrPoolClosed
	}

	// counted before the send so a fast worker never completes an uncounted job
	p.stats.submitted.Add(1)
	p.inst.queueDepth.Add(1)
	if err := r.Send(queue.Work(t)); err != nil {
		p.stats.submitted.Add(^uint64(0))
		p.inst.queueDepth.Add(-1)
		p.inst.rejected.Add(1)
		return p.sendError(err)
	}
	p.inst.submitted.Add(1)
	return nil
}

// sendError maps queue errors to pool errors. A closed queue can only be observed
// by a sender that raced with teardown, which callers see as a closed pool.
func (p *Pool) sendError(err error) error {
	if errors.Is(err, queue.ErrClosed) {
		return ErrPoolClosed
	}
	return err
}

// Shutdown stops accepting jobs, lets the workers finish every job submitted before
// the call, and blocks until all workers have exited.
//
// Semantics:
// - Idempotent and safe for concurrent use; only the first call injects shutdown markers.
//   Every call returns once the pool is terminal.
// - Jobs already queued are not dropped: one marker per worker is appended behind them,
//   and each worker exits on the first marker it dequeues.
// - A job that never returns keeps its worker, and therefore Shutdown, blocked.
// - Must not be called from inside a job: the job's worker cannot exit while it waits.
func (p *Pool) Shutdown() {
	p.log.Debug("shutdown requested")
	p.lifecycle.Close()
	<-p.done
}

// Done returns a channel closed once the pool is terminal: Shutdown has run and every
// worker has exited.
func (p *Pool) Done() <-chan struct{} { return p.done }

// Size returns the configured number of workers.
func (p *Pool) Size() int { return p.size }

// Running returns the number of live worker goroutines.
func (p *Pool) Running() int { return int(p.running.Load()) }

// Pending returns the number of queued entries not yet taken by a worker.
func (p *Pool) Pending() int { return p.queue.Len() }

// Name returns the pool name.
func (p *Pool) Name() string { return p.config.Name }

// Stats returns a snapshot of the pool counters.
// Completed+Failed never exceeds Submitted.
func (p *Pool) Stats() Stats {
	// outcomes are loaded before submissions
	completed := p.stats.completed.Load()
	failed := p.stats.failed.Load()
	return Stats{
		Submitted: p.stats.submitted.Load(),
		Completed: completed,
		Failed:    failed,
	}
}
