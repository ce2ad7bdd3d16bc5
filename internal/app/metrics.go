package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Find outcomes.
const (
	outcomeMatch = "match"
	outcomeEmpty = "empty"
	outcomeError = "error"
)

// metrics are registered on a private registry so several App instances
// (tests, in-process CLI runs) never collide on the default one.
type metrics struct {
	registry           *prometheus.Registry
	finds              *prometheus.CounterVec
	classifierFailures prometheus.Counter
	learned            prometheus.Counter
	findDuration       prometheus.Histogram
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		finds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "botica_find_total",
			Help: "Product lookups by keyword source and outcome.",
		}, []string{"source", "outcome"}),
		classifierFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "botica_classifier_failures_total",
			Help: "Classifier calls that failed or timed out; the lookup fell back to query tokens.",
		}),
		learned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "botica_keywords_learned_total",
			Help: "Keywords added to the keyword store from classifier responses.",
		}),
		findDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "botica_find_duration_seconds",
			Help:    "Wall time of product lookups, classifier call included.",
			Buckets: []float64{.001, .01, .05, .1, .5, 1, 2, 5, 10},
		}),
	}
	m.registry.MustRegister(
		m.finds,
		m.classifierFailures,
		m.learned,
		m.findDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}
