package jobpool

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ygrebnov/jobpool/queue"
)

// worker is one long-lived goroutine pulling entries from the shared queue.
// It exits on its shutdown marker or when the queue is closed and empty,
// never because a job failed.
type worker struct {
	id         int
	rx         *queue.Receiver[task]
	log        logrus.FieldLogger
	inst       *instruments
	stats      *stats
	onFailures []func(error)
}

func newWorker(id int, rx *queue.Receiver[task], log logrus.FieldLogger, inst *instruments, st *stats, onFailures []func(error)) *worker {
	return &worker{
		id:         id,
		rx:         rx,
		log:        log.WithField("worker_id", id),
		inst:       inst,
		stats:      st,
		onFailures: onFailures,
	}
}

// run is the worker loop. Dequeuing is serialized by the queue; the job itself
// runs outside the queue lock, on this goroutine.
func (w *worker) run() {
	defer w.rx.Release()
	w.log.Debug("worker started")

	for {
		e, ok := w.rx.Receive()
		if !ok {
			w.log.Debug("queue closed, worker exiting")
			return
		}
		if e.Kind == queue.KindShutdown {
			w.log.Debug("shutdown marker received, worker exiting")
			return
		}
		w.inst.queueDepth.Add(-1)
		w.execute(e.Seq, e.Value)
	}
}

func (w *worker) execute(seq uint64, t task) {
	w.inst.busy.Add(1)
	start := time.Now()
	o := t.execute()
	w.inst.duration.Record(time.Since(start).Seconds())
	w.inst.busy.Add(-1)

	if !o.failed() {
		w.stats.completed.Add(1)
		w.inst.completed.Add(1)
		return
	}

	w.stats.failed.Add(1)
	w.inst.failed.Add(1)
	jerr := newJobError(w.id, seq, o)
	w.report(jerr)
}

// report logs a job failure and hands it to the failure handlers.
// A panicking handler is logged and otherwise ignored.
func (w *worker) report(jerr *JobError) {
	entry := w.log.WithField("job_seq", jerr.Seq).WithError(jerr.Err)
	if jerr.Panicked() {
		entry.Error("job panicked")
		entry.Debugf("job stack:\n%s", jerr.Stack)
	} else {
		entry.Error("job failed")
	}

	for _, fn := range w.onFailures {
		func() {
			defer func() {
				if r := recover(); r != nil {
					w.log.WithField("panic", r).Error("failure handler panicked")
				}
			}()
			fn(jerr)
		}()
	}
}
