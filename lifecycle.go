package jobpool

import (
	"sync"
)

// lifecycleCoordinator encapsulates the shutdown sequence of a Pool.
// It is a wiring helper: it doesn't own the queue or the workers; it orchestrates
// intake closure, marker injection, joining and final closures in a fixed order.
//
// Close() is safe for concurrent calls; the sequence executes exactly once.
type lifecycleCoordinator struct {
	stopIntake  func()
	injectOne   func() error
	markers     int
	workersWG   *sync.WaitGroup
	closeQueue  func()
	onInjectErr func(error)
	markDone    func()

	once sync.Once
}

func newLifecycleCoordinator(
	stopIntake func(),
	injectOne func() error,
	markers int,
	workersWG *sync.WaitGroup,
	closeQueue func(),
	onInjectErr func(error),
	markDone func(),
) *lifecycleCoordinator {
	return &lifecycleCoordinator{
		stopIntake:  stopIntake,
		injectOne:   injectOne,
		markers:     markers,
		workersWG:   workersWG,
		closeQueue:  closeQueue,
		onInjectErr: onInjectErr,
		markDone:    markDone,
	}
}

// Close executes the shutdown sequence exactly once:
// 1) stop intake, so no job can be enqueued behind the markers
// 2) inject one shutdown marker per worker into the work queue
// 3) wait for every worker goroutine to exit
// 4) close the queue send side
// 5) mark the pool terminal
func (lc *lifecycleCoordinator) Close() {
	lc.once.Do(func() {
		if lc.stopIntake != nil {
			lc.stopIntake()
		}
		for i := 0; i < lc.markers; i++ {
			if err := lc.injectOne(); err != nil {
				// the receive side is gone: every worker already exited
				if lc.onInjectErr != nil {
					lc.onInjectErr(err)
				}
				break
			}
		}
		if lc.workersWG != nil {
			lc.workersWG.Wait()
		}
		if lc.closeQueue != nil {
			lc.closeQueue()
		}
		if lc.markDone != nil {
			lc.markDone()
		}
	})
}
