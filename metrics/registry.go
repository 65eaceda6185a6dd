package metrics

import "sync"

// Registry resolves metric names to live instruments. Resolution is
// get-or-create: the first lookup under a name builds the instrument and
// every later lookup returns that same instance, so package-level metric
// variables and ad-hoc lookups stay in sync. Counters, gauges and
// histograms are separate namespaces.
type Registry struct {
	mu         sync.Mutex
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
}

// DefaultRegistry backs the package-level instruments in standard.go.
var DefaultRegistry = NewRegistry()

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		counters:   map[string]*Counter{},
		gauges:     map[string]*Gauge{},
		histograms: map[string]*Histogram{},
	}
}

// resolve returns the instrument under name in m, building it with mk on
// first use. The caller holds the registry lock; resolution is far off any
// hot path, so a plain mutex beats double-checked locking here.
func resolve[T any](m map[string]*T, name string, mk func(string) *T) *T {
	if v, ok := m[name]; ok {
		return v
	}
	v := mk(name)
	m[name] = v
	return v
}

// Counter resolves name to a counter.
func (r *Registry) Counter(name string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	return resolve(r.counters, name, NewCounter)
}

// Gauge resolves name to a gauge.
func (r *Registry) Gauge(name string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()
	return resolve(r.gauges, name, NewGauge)
}

// Histogram resolves name to a histogram.
func (r *Registry) Histogram(name string) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()
	return resolve(r.histograms, name, NewHistogram)
}

// Snapshot reads every instrument once and returns the values keyed by
// name: int64 for counters and gauges, a nested map with count, sum, min,
// max and mean entries for histograms. The copy does not track later
// updates.
func (r *Registry) Snapshot() map[string]interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]interface{}, len(r.counters)+len(r.gauges)+len(r.histograms))
	for name, c := range r.counters {
		out[name] = c.Value()
	}
	for name, g := range r.gauges {
		out[name] = g.Value()
	}
	for name, h := range r.histograms {
		out[name] = map[string]interface{}{
			"count": h.Count(),
			"sum":   h.Sum(),
			"min":   h.Min(),
			"max":   h.Max(),
			"mean":  h.Mean(),
		}
	}
	return out
}
