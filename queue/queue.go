// Package queue implements the shared ordered channel between a pool and its workers.
//
// A Queue is a multi-producer, multi-consumer FIFO of entries. Each entry is either
// a unit of work or a shutdown marker. Consumers hold a Receiver handle; taking the
// next entry is serialized by a single lock, so every entry is delivered to exactly
// one receiver and entries leave the queue in the order they were sent.
package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by send operations once the send side has been closed
// or every receiver has been released.
var ErrClosed = errors.New("queue: closed")

// ErrReservationUsed is returned when a Reservation is sent twice, after Cancel,
// or when it is the zero value.
var ErrReservationUsed = errors.New("queue: reservation already used")

// Kind tells a receiver what to do with an entry.
type Kind int

const (
	// KindWork carries a value to be processed.
	KindWork Kind = iota
	// KindShutdown instructs exactly one receiver to stop.
	KindShutdown
)

func (k Kind) String() string {
	switch k {
	case KindWork:
		return "work"
	case KindShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Entry is a single queue element.
// Seq is assigned by the queue when the entry is enqueued and grows by one per entry.
type Entry[T any] struct {
	Kind  Kind
	Value T
	Seq   uint64
}

// Work wraps v into a work entry.
func Work[T any](v T) Entry[T] { return Entry[T]{Kind: KindWork, Value: v} }

// Shutdown returns a shutdown marker.
func Shutdown[T any]() Entry[T] { return Entry[T]{Kind: KindShutdown} }

// noCopy may be embedded into structs which must not be copied after first use.
// go vet will warn on accidental copies (it looks for Lock methods).
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// node for single-lock queue (plain pointer; protected by mu)
type node[T any] struct {
	entry Entry[T]
	// slotted is set when the entry holds a capacity slot that must be released on dequeue.
	slotted bool
	next    *node[T]
}

// Queue is a single-mutex MPMC FIFO queue.
// The zero value is not usable; construct with New.
type Queue[T any] struct {
	noCopy noCopy

	mu        sync.Mutex
	cond      *sync.Cond
	head      *node[T] // sentinel
	tail      *node[T]
	closed    bool
	detached  bool
	receivers int
	seq       uint64

	// size tracks queued count so Len does not need mu.
	size atomic.Int64

	// slots bounds the number of queued work entries; nil means unbounded.
	slots chan struct{}

	// done is closed when the queue stops accepting entries, to unblock senders waiting for a slot.
	done     chan struct{}
	doneOnce sync.Once
}

// New constructs a queue. capacity == 0 means unbounded.
func New[T any](capacity int) *Queue[T] {
	s := &node[T]{}
	q := &Queue[T]{head: s, tail: s, done: make(chan struct{})}
	q.cond = sync.NewCond(&q.mu)
	if capacity > 0 {
		q.slots = make(chan struct{}, capacity)
	}
	return q
}

// Capacity returns the configured capacity, 0 for an unbounded queue.
func (q *Queue[T]) Capacity() int { return cap(q.slots) }

// Send enqueues e. On a bounded queue it blocks while the queue is full.
func (q *Queue[T]) Send(e Entry[T]) error {
	return q.SendContext(context.Background(), e)
}

// SendContext enqueues e, giving up with ctx.Err() if ctx is done while waiting for capacity.
func (q *Queue[T]) SendContext(ctx context.Context, e Entry[T]) error {
	r, err := q.Reserve(ctx)
	if err != nil {
		return err
	}
	return r.Send(e)
}

// TrySend enqueues e without blocking.
// It returns (false, nil) when a bounded queue is full.
func (q *Queue[T]) TrySend(e Entry[T]) (bool, error) {
	r, ok, err := q.TryReserve()
	if !ok || err != nil {
		return false, err
	}
	if err := r.Send(e); err != nil {
		return false, err
	}
	return true, nil
}

// Reservation holds room for one entry in a bounded queue until it is sent or cancelled.
// On an unbounded queue it holds nothing. A Reservation is used once.
type Reservation[T any] struct {
	q       *Queue[T]
	slotted bool
	used    bool
}

// Reserve waits for room for one entry without holding the queue lock.
// It gives up with ctx.Err() if ctx is done first, or ErrClosed once the queue stops.
func (q *Queue[T]) Reserve(ctx context.Context) (Reservation[T], error) {
	slotted, err := q.acquire(ctx)
	if err != nil {
		return Reservation[T]{}, err
	}
	return Reservation[T]{q: q, slotted: slotted}, nil
}

// TryReserve is Reserve without waiting. It returns ok == false when a bounded queue is full.
func (q *Queue[T]) TryReserve() (r Reservation[T], ok bool, err error) {
	if q.slots == nil {
		return Reservation[T]{q: q}, true, nil
	}

	select {
	case <-q.done:
		return Reservation[T]{}, false, ErrClosed
	default:
	}

	select {
	case q.slots <- struct{}{}:
		return Reservation[T]{q: q, slotted: true}, true, nil
	default:
		return Reservation[T]{}, false, nil
	}
}

// Send enqueues e into the reserved room. It never blocks on capacity.
func (r *Reservation[T]) Send(e Entry[T]) error {
	if r.q == nil || r.used {
		return ErrReservationUsed
	}
	r.used = true
	return r.q.put(e, r.slotted)
}

// Cancel gives the reserved room back. It is a no-op after Send or a previous Cancel.
func (r *Reservation[T]) Cancel() {
	if r.q == nil || r.used {
		return
	}
	r.used = true
	if r.slotted {
		<-r.q.slots
	}
}

// Force enqueues e ignoring capacity. It is meant for control entries such as shutdown markers.
func (q *Queue[T]) Force(e Entry[T]) error {
	return q.put(e, false)
}

func (q *Queue[T]) acquire(ctx context.Context) (bool, error) {
	if q.slots == nil {
		return false, nil
	}
	select {
	case <-q.done:
		return false, ErrClosed
	default:
	}
	select {
	case q.slots <- struct{}{}:
		return true, nil
	case <-q.done:
		return false, ErrClosed
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (q *Queue[T]) put(e Entry[T], slotted bool) error {
	q.mu.Lock()
	if q.closed || q.detached {
		q.mu.Unlock()
		if slotted {
			<-q.slots
		}
		return ErrClosed
	}
	q.seq++
	e.Seq = q.seq
	n := &node[T]{entry: e, slotted: slotted}
	q.tail.next = n
	q.tail = n
	q.size.Add(1)
	// signal one waiter (consumer checks under mu)
	q.cond.Signal()
	q.mu.Unlock()
	return nil
}

// Len returns the number of entries waiting to be received.
func (q *Queue[T]) Len() int {
	return int(q.size.Load())
}

// Receivers returns the number of registered, unreleased receivers.
func (q *Queue[T]) Receivers() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.receivers
}

// Close closes the send side. Entries already queued remain receivable;
// receivers observe the closure once the queue is empty. Close is idempotent.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
	q.stop()
}

func (q *Queue[T]) stop() {
	q.doneOnce.Do(func() { close(q.done) })
}

// Receiver registers a new receive handle.
func (q *Queue[T]) Receiver() *Receiver[T] {
	q.mu.Lock()
	q.receivers++
	q.mu.Unlock()
	return &Receiver[T]{q: q}
}

// Receiver is a handle on the receive side of a Queue.
// A Receiver is owned by one consumer; it is not meant to be shared.
type Receiver[T any] struct {
	q        *Queue[T]
	released bool
}

// Receive blocks until an entry is available and returns it.
// It returns false once the send side is closed and no entries remain,
// or if the receiver has been released.
func (r *Receiver[T]) Receive() (Entry[T], bool) {
	q := r.q
	q.mu.Lock()
	// wait while empty and not closed
	for q.head.next == nil && !q.closed && !r.released {
		q.cond.Wait()
	}

	// empty + closed => done
	if q.head.next == nil || r.released {
		q.mu.Unlock()
		return Entry[T]{}, false
	}

	n := q.head.next
	q.head.next = n.next
	if q.head.next == nil {
		q.tail = q.head
	}
	q.mu.Unlock()

	q.size.Add(-1)
	if n.slotted {
		<-q.slots
	}
	return n.entry, true
}

// Release drops the handle. When the last receiver is released the queue
// is detached and further sends fail with ErrClosed. Release is idempotent.
func (r *Receiver[T]) Release() {
	q := r.q
	q.mu.Lock()
	if r.released {
		q.mu.Unlock()
		return
	}
	r.released = true
	q.receivers--
	last := q.receivers == 0
	if last {
		q.detached = true
	}
	q.cond.Broadcast()
	q.mu.Unlock()
	if last {
		q.stop()
	}
}
