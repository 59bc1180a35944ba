package jobpool

import (
	"errors"
	"fmt"
)

// JobError describes a job that failed on a worker, either by returning an error
// or by panicking. It matches ErrJobPanicked or ErrJobFailed with errors.Is,
// as well as the underlying cause.
type JobError struct {
	// WorkerID is the id (0..size-1) of the worker that ran the job.
	WorkerID int
	// Seq is the queue sequence number assigned when the job was submitted.
	Seq uint64
	// Err is the returned error, or the panic value converted to an error.
	Err error
	// Panic holds the recovered value when the job panicked.
	Panic any
	// Stack is the goroutine stack captured at recovery time.
	Stack []byte
}

func newJobError(workerID int, seq uint64, o outcome) *JobError {
	return &JobError{
		WorkerID: workerID,
		Seq:      seq,
		Err:      o.err,
		Panic:    o.recovered,
		Stack:    o.stack,
	}
}

// Panicked reports whether the job panicked rather than returning an error.
func (e *JobError) Panicked() bool { return e.Panic != nil }

func (e *JobError) kind() error {
	if e.Panicked() {
		return ErrJobPanicked
	}
	return ErrJobFailed
}

func (e *JobError) Error() string { return fmt.Sprintf("%s: %s", e.kind(), e.Err) }

func (e *JobError) Unwrap() []error { return []error{e.kind(), e.Err} }

func (e *JobError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			_, _ = fmt.Fprintf(s, "job(seq=%d,worker=%d): %+v", e.Seq, e.WorkerID, e.Error())
			return
		}
		fallthrough
	case 's':
		_, _ = fmt.Fprint(s, e.Error())
	case 'q':
		_, _ = fmt.Fprintf(s, "%q", e.Error())
	}
}

// ExtractWorkerID returns the id of the worker a failed job ran on, if err carries it.
func ExtractWorkerID(err error) (int, bool) {
	var je *JobError
	if errors.As(err, &je) {
		return je.WorkerID, true
	}
	return 0, false
}

// ExtractJobSeq returns the queue sequence number of a failed job, if err carries it.
func ExtractJobSeq(err error) (uint64, bool) {
	var je *JobError
	if errors.As(err, &je) {
		return je.Seq, true
	}
	return 0, false
}
