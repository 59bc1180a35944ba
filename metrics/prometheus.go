package metrics

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusProvider adapts Provider to Prometheus collectors.
// Counters map to prometheus.Counter, up/down counters to prometheus.Gauge and
// histograms to prometheus.Histogram. Collectors are registered on first use.
type PrometheusProvider struct {
	reg     prometheus.Registerer
	buckets []float64

	mu         sync.Mutex
	counters   map[string]*promCounter
	gauges     map[string]*promGauge
	histograms map[string]*promHistogram
}

// PrometheusOption configures a PrometheusProvider.
type PrometheusOption func(*PrometheusProvider)

// WithBuckets overrides histogram buckets (default prometheus.DefBuckets).
func WithBuckets(buckets []float64) PrometheusOption {
	return func(p *PrometheusProvider) { p.buckets = buckets }
}

// NewPrometheusProvider returns a provider registering with reg.
// A nil reg selects prometheus.DefaultRegisterer.
func NewPrometheusProvider(reg prometheus.Registerer, opts ...PrometheusOption) *PrometheusProvider {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	p := &PrometheusProvider{
		reg:        reg,
		buckets:    prometheus.DefBuckets,
		counters:   make(map[string]*promCounter),
		gauges:     make(map[string]*promGauge),
		histograms: make(map[string]*promHistogram),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Counter returns a prometheus-backed counter.
func (p *PrometheusProvider) Counter(name string, opts ...InstrumentOption) Counter {
	cfg := applyOptions(opts)
	k := key(name, cfg)
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.counters[k]; ok {
		return c
	}
	c := register(p.reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name:        name,
		Help:        help(name, cfg),
		ConstLabels: cfg.Attributes,
	}))
	pc := &promCounter{c: c}
	p.counters[k] = pc
	return pc
}

// UpDownCounter returns a prometheus-backed gauge.
func (p *PrometheusProvider) UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter {
	cfg := applyOptions(opts)
	k := key(name, cfg)
	p.mu.Lock()
	defer p.mu.Unlock()
	if g, ok := p.gauges[k]; ok {
		return g
	}
	g := register(p.reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        name,
		Help:        help(name, cfg),
		ConstLabels: cfg.Attributes,
	}))
	pg := &promGauge{g: g}
	p.gauges[k] = pg
	return pg
}

// Histogram returns a prometheus-backed histogram.
func (p *PrometheusProvider) Histogram(name string, opts ...InstrumentOption) Histogram {
	cfg := applyOptions(opts)
	k := key(name, cfg)
	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok := p.histograms[k]; ok {
		return h
	}
	h := register(p.reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        name,
		Help:        help(name, cfg),
		ConstLabels: cfg.Attributes,
		Buckets:     p.buckets,
	}))
	ph := &promHistogram{h: h}
	p.histograms[k] = ph
	return ph
}

// register registers c, reusing an identical collector registered earlier
// (for instance by a previous pool sharing the registry).
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

// key identifies an instrument by name and constant labels.
func key(name string, cfg InstrumentConfig) string {
	if len(cfg.Attributes) == 0 {
		return name
	}
	pairs := make([]string, 0, len(cfg.Attributes))
	for k, v := range cfg.Attributes {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return name + "{" + strings.Join(pairs, ",") + "}"
}

func help(name string, cfg InstrumentConfig) string {
	if cfg.Description != "" {
		return cfg.Description
	}
	return name
}

type promCounter struct{ c prometheus.Counter }

// Add ignores negative deltas, which prometheus counters reject.
func (p *promCounter) Add(n int64) {
	if n > 0 {
		p.c.Add(float64(n))
	}
}

type promGauge struct{ g prometheus.Gauge }

func (p *promGauge) Add(n int64) { p.g.Add(float64(n)) }

type promHistogram struct{ h prometheus.Histogram }

func (p *promHistogram) Record(v float64) { p.h.Observe(v) }
