package ascboot

import (
	"fmt"
	"sync"

	metrics "github.com/rcrowley/go-metrics"
)

// metricsStats adapts the Stats collaborator contract onto
// rcrowley/go-metrics: Counter for Inc/Add, a uniform-sample Histogram for
// Sample. The reference repository carries an in-tree port of exactly this
// library for its own metrics package; here the upstream module is used
// directly instead of re-vendoring it.
type metricsStats struct {
	registry metrics.Registry

	mu         sync.Mutex
	counters   map[string]metrics.Counter
	histograms map[string]metrics.Histogram
}

// NewMetricsStats builds a Stats implementation backed by a fresh
// go-metrics registry. Passing a shared registry lets the embedding node
// fold these counters into its own metrics export.
func NewMetricsStats(registry metrics.Registry) Stats {
	if registry == nil {
		registry = metrics.NewRegistry()
	}
	return &metricsStats{
		registry:   registry,
		counters:   make(map[string]metrics.Counter),
		histograms: make(map[string]metrics.Histogram),
	}
}

func statKey(typ, detail string, dir StatDir) string {
	return fmt.Sprintf("%s.%s.%s", typ, detail, dirString(dir))
}

func dirString(dir StatDir) string {
	if dir == DirIn {
		return "in"
	}
	return "out"
}

func (s *metricsStats) counter(key string) metrics.Counter {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.counters[key]
	if !ok {
		c = metrics.NewCounter()
		s.counters[key] = c
		_ = s.registry.Register(key, c)
	}
	return c
}

func (s *metricsStats) Inc(typ, detail string, dir StatDir) {
	s.counter(statKey(typ, detail, dir)).Inc(1)
}

func (s *metricsStats) Add(typ, detail string, dir StatDir, n int64) {
	s.counter(statKey(typ, detail, dir)).Inc(n)
}

func (s *metricsStats) Sample(name string, value int64, bounds [2]int64) {
	s.mu.Lock()
	h, ok := s.histograms[name]
	if !ok {
		h = metrics.NewHistogram(metrics.NewUniformSample(1024))
		s.histograms[name] = h
		_ = s.registry.Register(name, h)
	}
	s.mu.Unlock()

	_ = bounds // bounds are advisory for downstream exporters; go-metrics
	// histograms derive their own percentiles from the sample.
	h.Update(value)
}

// NopStats discards every observation. Useful for tests and for embedders
// that have not wired a metrics registry yet.
type NopStats struct{}

func (NopStats) Inc(string, string, StatDir)        {}
func (NopStats) Add(string, string, StatDir, int64) {}
func (NopStats) Sample(string, int64, [2]int64)     {}
