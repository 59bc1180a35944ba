package jobpool_test

import (
	"context"
	"io"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/ygrebnov/jobpool"
	"github.com/ygrebnov/jobpool/queue"
)

func BenchmarkPool(b *testing.B) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	tests := []struct {
		name     string
		workers  uint
		capacity uint
		jobs     int
	}{
		{"w1_n256_unbounded", 1, 0, 256},
		{"w4_n256_unbounded", 4, 0, 256},
		{"w16_n256_unbounded", 16, 0, 256},
		{"w4_n256_cap16", 4, 16, 256},
	}
	for _, test := range tests {
		b.Run(test.name, func(b *testing.B) {
			for range b.N {
				p, err := jobpool.New(test.workers,
					jobpool.WithLogger(logger),
					jobpool.WithQueueCapacity(test.capacity),
				)
				if err != nil {
					b.Fatal(err)
				}
				var n atomic.Int64
				for range test.jobs {
					if err := p.Submit(func() { n.Add(1) }); err != nil {
						b.Fatal(err)
					}
				}
				p.Shutdown()
				if n.Load() != int64(test.jobs) {
					b.Fatalf("ran %d jobs, want %d", n.Load(), test.jobs)
				}
			}
		})
	}
}

func BenchmarkRunAll(b *testing.B) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	jobs := make([]func() error, 512)
	for i := range jobs {
		jobs[i] = func() error { return nil }
	}
	b.ResetTimer()
	for range b.N {
		if err := jobpool.RunAll(context.Background(), 8, jobs, jobpool.WithLogger(logger)); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkQueue_SendReceive(b *testing.B) {
	q := queue.New[int](0)
	rx := q.Receiver()
	defer rx.Release()

	b.ResetTimer()
	for i := range b.N {
		_ = q.Send(queue.Work(i))
		if _, ok := rx.Receive(); !ok {
			b.Fatal("queue closed")
		}
	}
}
