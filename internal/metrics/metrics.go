package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the counters exported on /metrics.
type Metrics struct {
	registry    *prometheus.Registry
	fetches     *prometheus.CounterVec
	answers     *prometheus.CounterVec
	completions *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quizzapp",
			Name:      "subject_fetches_total",
			Help:      "Upstream subject fetches by result.",
		}, []string{"result"}),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quizzapp",
			Name:      "answers_total",
			Help:      "Accepted answers by correctness.",
		}, []string{"correct"}),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quizzapp",
			Name:      "sessions_completed_total",
			Help:      "Completed quiz sessions by subject.",
		}, []string{"subject"}),
	}
	m.registry.MustRegister(m.fetches, m.answers, m.completions)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveFetch(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.fetches.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveAnswer(correct bool) {
	if m == nil {
		return
	}
	label := "false"
	if correct {
		label = "true"
	}
	m.answers.WithLabelValues(label).Inc()
}

func (m *Metrics) ObserveCompletion(subjectID string) {
	if m == nil {
		return
	}
	m.completions.WithLabelValues(subjectID).Inc()
}
