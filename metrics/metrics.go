// Package metrics collects dispatcher telemetry without pulling in an
// exporter stack. Every primitive is safe for concurrent use and cheap
// enough to sit on the hot path: counters and gauges are single atomics,
// histograms fold observations into atomically updated aggregates.
package metrics

import (
	"math"
	"sync/atomic"
	"time"
)

// Counter accumulates a monotonically growing total.
type Counter struct {
	name string
	n    atomic.Int64
}

// NewCounter returns a counter named name, starting at zero.
func NewCounter(name string) *Counter {
	return &Counter{name: name}
}

// Inc adds one.
func (c *Counter) Inc() { c.n.Add(1) }

// Add adds delta. Counters only grow; a delta <= 0 is dropped.
func (c *Counter) Add(delta int64) {
	if delta > 0 {
		c.n.Add(delta)
	}
}

// Value returns the running total.
func (c *Counter) Value() int64 { return c.n.Load() }

// Name returns the registered metric name.
func (c *Counter) Name() string { return c.name }

// Gauge holds an instantaneous level that moves in both directions.
type Gauge struct {
	name string
	n    atomic.Int64
}

// NewGauge returns a gauge named name, starting at zero.
func NewGauge(name string) *Gauge {
	return &Gauge{name: name}
}

// Set replaces the current level.
func (g *Gauge) Set(v int64) { g.n.Store(v) }

// Inc adds one to the level.
func (g *Gauge) Inc() { g.n.Add(1) }

// Dec subtracts one from the level.
func (g *Gauge) Dec() { g.n.Add(-1) }

// Value returns the current level.
func (g *Gauge) Value() int64 { return g.n.Load() }

// Name returns the registered metric name.
func (g *Gauge) Name() string { return g.name }

// Histogram folds observations into running aggregates: count, sum, min
// and max. Updates are lock-free compare-and-swap loops on the float bit
// patterns, so Observe never blocks an observer on another. Readers see
// each aggregate atomically but not the set of them as one cut; that is
// fine for telemetry.
type Histogram struct {
	name    string
	count   atomic.Int64
	sumBits atomic.Uint64
	minBits atomic.Uint64
	maxBits atomic.Uint64
}

// NewHistogram returns an empty histogram named name.
func NewHistogram(name string) *Histogram {
	h := &Histogram{name: name}
	h.minBits.Store(math.Float64bits(math.Inf(1)))
	h.maxBits.Store(math.Float64bits(math.Inf(-1)))
	return h
}

// Observe records one value.
func (h *Histogram) Observe(v float64) {
	h.count.Add(1)
	for {
		old := h.sumBits.Load()
		next := math.Float64bits(math.Float64frombits(old) + v)
		if h.sumBits.CompareAndSwap(old, next) {
			break
		}
	}
	for {
		old := h.minBits.Load()
		if v >= math.Float64frombits(old) {
			break
		}
		if h.minBits.CompareAndSwap(old, math.Float64bits(v)) {
			break
		}
	}
	for {
		old := h.maxBits.Load()
		if v <= math.Float64frombits(old) {
			break
		}
		if h.maxBits.CompareAndSwap(old, math.Float64bits(v)) {
			break
		}
	}
}

// Count returns how many values have been observed.
func (h *Histogram) Count() int64 { return h.count.Load() }

// Sum returns the total of all observed values.
func (h *Histogram) Sum() float64 {
	if h.count.Load() == 0 {
		return 0
	}
	return math.Float64frombits(h.sumBits.Load())
}

// Min returns the smallest observation, or 0 before the first one.
func (h *Histogram) Min() float64 {
	if h.count.Load() == 0 {
		return 0
	}
	return math.Float64frombits(h.minBits.Load())
}

// Max returns the largest observation, or 0 before the first one.
func (h *Histogram) Max() float64 {
	if h.count.Load() == 0 {
		return 0
	}
	return math.Float64frombits(h.maxBits.Load())
}

// Mean returns the arithmetic mean, or 0 before the first observation.
func (h *Histogram) Mean() float64 {
	n := h.count.Load()
	if n == 0 {
		return 0
	}
	return math.Float64frombits(h.sumBits.Load()) / float64(n)
}

// Name returns the registered metric name.
func (h *Histogram) Name() string { return h.name }

// Timer measures one span of wall-clock time and feeds it to a histogram
// as fractional milliseconds.
type Timer struct {
	started time.Time
	into    *Histogram
}

// NewTimer starts the clock. The elapsed time lands in h on Stop; a nil
// histogram makes Stop a pure duration read.
func NewTimer(h *Histogram) *Timer {
	return &Timer{started: time.Now(), into: h}
}

// Stop records the elapsed milliseconds and returns the elapsed duration.
// Stopping again records a fresh, longer span from the same start.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.started)
	if t.into != nil {
		t.into.Observe(float64(elapsed.Nanoseconds()) / float64(time.Millisecond))
	}
	return elapsed
}
