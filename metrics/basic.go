package metrics

import (
	"sync"
	"sync/atomic"
)

// BasicProvider is an in-memory Provider.
// Instruments are created on first use and reused for the same name.
type BasicProvider struct {
	mu         sync.Mutex
	counters   map[string]*BasicCounter
	histograms map[string]*BasicHistogram
	meta       map[string]InstrumentConfig
}

// NewBasicProvider constructs a new BasicProvider.
func NewBasicProvider() *BasicProvider {
	return &BasicProvider{
		counters:   make(map[string]*BasicCounter),
		histograms: make(map[string]*BasicHistogram),
		meta:       make(map[string]InstrumentConfig),
	}
}

// Counter returns the counter registered under name.
func (p *BasicProvider) Counter(name string, opts ...InstrumentOption) Counter {
	return p.counter(name, opts)
}

// UpDownCounter returns the up/down counter registered under name.
// Counters and up/down counters share one namespace.
func (p *BasicProvider) UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter {
	return p.counter(name, opts)
}

func (p *BasicProvider) counter(name string, opts []InstrumentOption) *BasicCounter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.counters[name]; ok {
		return c
	}
	p.meta[name] = applyOptions(opts)
	c := &BasicCounter{}
	p.counters[name] = c
	return c
}

// Histogram returns the histogram registered under name.
func (p *BasicProvider) Histogram(name string, opts ...InstrumentOption) Histogram {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok := p.histograms[name]; ok {
		return h
	}
	p.meta[name] = applyOptions(opts)
	h := &BasicHistogram{}
	p.histograms[name] = h
	return h
}

// Value returns the current value of the counter named name, 0 if it was never created.
func (p *BasicProvider) Value(name string) int64 {
	p.mu.Lock()
	c, ok := p.counters[name]
	p.mu.Unlock()
	if !ok {
		return 0
	}
	return c.Snapshot()
}

// Distribution returns a snapshot of the histogram named name.
func (p *BasicProvider) Distribution(name string) HistSnapshot {
	p.mu.Lock()
	h, ok := p.histograms[name]
	p.mu.Unlock()
	if !ok {
		return HistSnapshot{}
	}
	return h.Snapshot()
}

// Config returns the metadata an instrument was created with.
func (p *BasicProvider) Config(name string) (InstrumentConfig, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cfg, ok := p.meta[name]
	return cfg, ok
}

// BasicCounter is a thread-safe counter usable as Counter and UpDownCounter.
type BasicCounter struct {
	val atomic.Int64
}

// Add adds n to the current value.
func (c *BasicCounter) Add(n int64) { c.val.Add(n) }

// Snapshot returns the current value.
func (c *BasicCounter) Snapshot() int64 { return c.val.Load() }

// BasicHistogram tracks count, sum, min and max. It keeps no buckets.
type BasicHistogram struct {
	mu   sync.Mutex
	snap HistSnapshot
}

// Record adds a measurement to the histogram.
func (h *BasicHistogram) Record(v float64) {
	h.mu.Lock()
	s := &h.snap
	if s.Count == 0 || v < s.Min {
		s.Min = v
	}
	if s.Count == 0 || v > s.Max {
		s.Max = v
	}
	s.Count++
	s.Sum += v
	h.mu.Unlock()
}

// HistSnapshot is an immutable snapshot of a BasicHistogram.
type HistSnapshot struct {
	Count int64
	Sum   float64
	Min   float64
	Max   float64
}

// Mean returns Sum/Count, or 0 for an empty snapshot.
func (s HistSnapshot) Mean() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.Sum / float64(s.Count)
}

// Snapshot returns a copy of the histogram state.
func (h *BasicHistogram) Snapshot() HistSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snap
}
