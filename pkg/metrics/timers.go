// Package metrics records how long each classification phase takes.
//
// Timers keeps the named phase timers of the classifier (regularClassify,
// reasonerClassify, buildClassHierarchy, incrementalClassify, realize,
// disjointInsert) both as in-process totals, which the CLI prints, and as
// Prometheus series:
//   - pellet_phase_duration_seconds{phase}: histogram per phase
//   - pellet_classifications_total{strategy}: full, incremental, bookkeeping
//   - pellet_taxonomy_nodes: non-hidden nodes after the last classification
//
// A nil *Timers is valid and records nothing.
package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Phase names.
const (
	RegularClassify     = "regularClassify"
	ReasonerClassify    = "reasonerClassify"
	BuildClassHierarchy = "buildClassHierarchy"
	IncrementalClassify = "incrementalClassify"
	Realize             = "realize"
	DisjointInsert      = "disjointInsert"
)

// Classification strategies.
const (
	StrategyFull        = "full"
	StrategyIncremental = "incremental"
	StrategyBookkeeping = "bookkeeping"
)

// DefaultNamespace prefixes every series.
const DefaultNamespace = "pellet"

// Timers aggregates phase durations.
type Timers struct {
	duration        *prometheus.HistogramVec
	classifications *prometheus.CounterVec
	taxonomyNodes   prometheus.Gauge

	mu         sync.Mutex
	totals     map[string]time.Duration
	counts     map[string]int
	strategies map[string]int
}

// NewTimers creates timers whose series are registered on reg. A nil reg
// keeps them unregistered.
func NewTimers(reg prometheus.Registerer, namespace string) *Timers {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	f := promauto.With(reg)
	return &Timers{
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Duration of classification phases in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10), // 0.1ms to ~26s
		}, []string{"phase"}),
		classifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Classifications by strategy",
		}, []string{"strategy"}),
		taxonomyNodes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "taxonomy_nodes",
			Help:      "Non-hidden taxonomy nodes after the last classification",
		}),
		totals:     make(map[string]time.Duration),
		counts:     make(map[string]int),
		strategies: make(map[string]int),
	}
}

// Timer measures one run of a phase.
type Timer struct {
	timers *Timers
	name   string
	start  time.Time
}

// Start starts timing the named phase.
func (t *Timers) Start(name string) *Timer {
	return &Timer{timers: t, name: name, start: time.Now()}
}

// Stop records the elapsed time and returns it. Stopping twice records
// twice.
func (tm *Timer) Stop() time.Duration {
	d := time.Since(tm.start)
	t := tm.timers
	if t == nil {
		return d
	}
	t.duration.WithLabelValues(tm.name).Observe(d.Seconds())
	t.mu.Lock()
	t.totals[tm.name] += d
	t.counts[tm.name]++
	t.mu.Unlock()
	return d
}

// Total returns the accumulated time of a phase.
func (t *Timers) Total(name string) time.Duration {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totals[name]
}

// Count returns how many runs of a phase were recorded.
func (t *Timers) Count(name string) int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[name]
}

// Names returns the recorded phases, sorted.
func (t *Timers) Names() []string {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.totals))
	for name := range t.totals {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Classified counts one classification run by strategy and records the
// resulting taxonomy size.
func (t *Timers) Classified(strategy string, nodes int) {
	if t == nil {
		return
	}
	t.classifications.WithLabelValues(strategy).Inc()
	t.taxonomyNodes.Set(float64(nodes))
	t.mu.Lock()
	t.strategies[strategy]++
	t.mu.Unlock()
}

// Classifications returns how many classification runs used strategy.
func (t *Timers) Classifications(strategy string) int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.strategies[strategy]
}
