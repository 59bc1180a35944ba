package jobpool

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// helper to read a string from a channel with timeout
func recvStep(t *testing.T, ch <-chan string, d time.Duration) (string, bool) {
	t.Helper()
	select {
	case s := <-ch:
		return s, true
	case <-time.After(d):
		return "", false
	}
}

func TestLifecycle_OrderAndSignals(t *testing.T) {
	steps := make(chan string, 16)

	// workers starts at 1 so we control when shutdown proceeds beyond Wait
	var workers sync.WaitGroup
	workers.Add(1)

	lc := newLifecycleCoordinator(
		func() { steps <- "stopIntake" },
		func() error { steps <- "marker"; return nil },
		3,
		&workers,
		func() { steps <- "closeQueue" },
		nil,
		func() { steps <- "markDone" },
	)

	done := make(chan struct{})
	go func() { lc.Close(); close(done) }()

	for _, want := range []string{"stopIntake", "marker", "marker", "marker"} {
		if s, ok := recvStep(t, steps, 200*time.Millisecond); !ok || s != want {
			t.Fatalf("expected step %q, got=%q ok=%v", want, s, ok)
		}
	}

	// closeQueue must wait for workers
	if s, ok := recvStep(t, steps, 50*time.Millisecond); ok {
		t.Fatalf("step %q happened before workers exited", s)
	}

	workers.Done()

	for _, want := range []string{"closeQueue", "markDone"} {
		if s, ok := recvStep(t, steps, 200*time.Millisecond); !ok || s != want {
			t.Fatalf("expected step %q, got=%q ok=%v", want, s, ok)
		}
	}
	<-done
}

func TestLifecycle_InjectErrorStopsMarkers(t *testing.T) {
	var injected, reported int
	lc := newLifecycleCoordinator(
		nil,
		func() error {
			injected++
			if injected == 2 {
				return errors.New("detached")
			}
			return nil
		},
		5,
		&sync.WaitGroup{},
		nil,
		func(error) { reported++ },
		nil,
	)
	lc.Close()

	if injected != 2 {
		t.Fatalf("expected injection to stop at the first error, injected=%d", injected)
	}
	if reported != 1 {
		t.Fatalf("expected one reported error, got %d", reported)
	}
}

func TestLifecycle_Idempotent_ConcurrentClose(t *testing.T) {
	var mu sync.Mutex
	counts := map[string]int{}
	step := func(s string) {
		mu.Lock()
		counts[s]++
		mu.Unlock()
	}

	lc := newLifecycleCoordinator(
		func() { step("stopIntake") },
		func() error { step("marker"); return nil },
		4,
		&sync.WaitGroup{},
		func() { step("closeQueue") },
		nil,
		func() { step("markDone") },
	)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() { defer wg.Done(); lc.Close() }()
	}
	wg.Wait()

	expected := map[string]int{"stopIntake": 1, "marker": 4, "closeQueue": 1, "markDone": 1}
	for k, v := range expected {
		if counts[k] != v {
			t.Fatalf("expected step %q %d time(s), got %d", k, v, counts[k])
		}
	}
}
