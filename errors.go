package jobpool

import (
	"errors"

	"github.com/ygrebnov/jobpool/queue"
)

const Namespace = "jobpool"

var (
	ErrInvalidConfig = errors.New(Namespace + ": invalid configuration")
	ErrPoolClosed    = errors.New(Namespace + ": pool is shutting down, job rejected")
	ErrNilJob        = errors.New(Namespace + ": nil job")
	ErrJobPanicked   = errors.New(Namespace + ": job execution panicked")
	ErrJobFailed     = errors.New(Namespace + ": job execution failed")

	// ErrQueueClosed is reported by the queue once its send side is closed
	// or all workers have released the receive side.
	ErrQueueClosed = queue.ErrClosed
)
