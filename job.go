package jobpool

import (
	"fmt"
	"runtime/debug"
)

// Job is a single unit of work: a one-shot callable with no arguments and no result.
//
// A Job owns whatever it captures. Once submitted, the captured state belongs to the
// pool until a worker dequeues the job, and to that worker until the job returns.
// A Job that needs to report an outcome carries its own completion signal
// (a channel, a callback), or is submitted via SubmitFunc to have its error logged.
//
// Example:
//
//	var n atomic.Int64
//	_ = p.Submit(func() { n.Add(1) })
type Job func()

// task is the canonical shape travelling through the queue.
type task struct {
	run func() error
}

func jobTask(j Job) task {
	return task{run: func() error { j(); return nil }}
}

func funcTask(fn func() error) task {
	return task{run: fn}
}

// outcome describes how a single task execution ended.
type outcome struct {
	err       error
	recovered any
	stack     []byte
}

func (o outcome) failed() bool { return o.err != nil }

// execute runs the task on the calling goroutine and converts a panic into an outcome.
// A panic never escapes execute.
func (t task) execute() (o outcome) {
	defer func() {
		if r := recover(); r != nil {
			o.recovered = r
			o.stack = debug.Stack()
			if err, ok := r.(error); ok {
				o.err = err
			} else {
				o.err = fmt.Errorf("%v", r)
			}
		}
	}()
	o.err = t.run()
	return o
}
