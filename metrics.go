package gotensor

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Verdict labels for gotensor_comparisons_total.
const (
	verdictLabelEqual        = "equal"
	verdictLabelNegated      = "negated"
	verdictLabelIncomparable = "incomparable"
)

type metrics struct {
	comparisons     *prometheus.CounterVec
	hashCollisions  prometheus.Counter
	selfContraction prometheus.Counter
	dummyRenames    prometheus.Counter
	sumBuilds       prometheus.Counter
	sumTerms        prometheus.Histogram
	parallelSum     prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{}
	var err error
	if m.comparisons, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gotensor_comparisons_total",
		Help: "Equivalence oracle invocations by verdict",
	}, []string{"verdict"})); err != nil {
		return nil, err
	}
	if m.hashCollisions, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gotensor_hash_collisions_total",
		Help: "Sum bucket candidates with equal hashes that the oracle rejected",
	})); err != nil {
		return nil, err
	}
	if m.selfContraction, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gotensor_self_contractions_total",
		Help: "Index mappings that contracted two free indices into a dummy pair",
	})); err != nil {
		return nil, err
	}
	if m.dummyRenames, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gotensor_dummy_renames_total",
		Help: "Dummy indices renamed to avoid a collision",
	})); err != nil {
		return nil, err
	}
	if m.sumBuilds, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gotensor_sum_builds_total",
		Help: "Completed SumBuilder.Build calls",
	})); err != nil {
		return nil, err
	}
	if m.sumTerms, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gotensor_sum_terms",
		Help:    "Number of terms in built sums",
		Buckets: []float64{0, 1, 2, 4, 16, 64, 256, 1024},
	})); err != nil {
		return nil, err
	}
	if m.parallelSum, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gotensor_parallel_sum_duration_seconds",
		Help:    "Time to aggregate a ParallelSum",
		Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1, 10},
	})); err != nil {
		return nil, err
	}
	return m, nil
}

// register adds c to reg. Engines sharing a registry share the collector
// that was registered first.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	var zero C
	return zero, fmt.Errorf("gotensor: register metrics: %w", err)
}

// The helpers below accept a nil receiver so that builders created without
// an engine stay usable.

func (m *metrics) compared(v Verdict) {
	if m == nil {
		return
	}
	switch v {
	case VerdictEqual:
		m.comparisons.WithLabelValues(verdictLabelEqual).Inc()
	case VerdictNegated:
		m.comparisons.WithLabelValues(verdictLabelNegated).Inc()
	default:
		m.comparisons.WithLabelValues(verdictLabelIncomparable).Inc()
	}
}

func (m *metrics) collision() {
	if m != nil {
		m.hashCollisions.Inc()
	}
}

func (m *metrics) selfContracted() {
	if m != nil {
		m.selfContraction.Inc()
	}
}

func (m *metrics) renamed(n int) {
	if m != nil && n > 0 {
		m.dummyRenames.Add(float64(n))
	}
}

func (m *metrics) built(terms int) {
	if m == nil {
		return
	}
	m.sumBuilds.Inc()
	m.sumTerms.Observe(float64(terms))
}
