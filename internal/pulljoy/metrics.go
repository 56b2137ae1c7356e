package pulljoy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricNamespace = "pulljoy"

const (
	processedEventsMetricName  = "processed_github_events_total"
	failedEventsMetricName     = "failed_github_events_total"
	stateTransitionsMetricName = "workflow_state_transitions_total"
)

const toStateLabel = "to_state"

type metricCollector struct {
	processedEvents  prometheus.Counter
	failedEvents     prometheus.Counter
	stateTransitions *prometheus.CounterVec
}

var metrics = newMetricCollector()

func newMetricCollector() *metricCollector {
	return &metricCollector{
		processedEvents: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      processedEventsMetricName,
				Help:      "count of processed github webhook events",
			},
		),
		failedEvents: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      failedEventsMetricName,
				Help:      "count of github webhook events whose processing failed",
			},
		),
		stateTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      stateTransitionsMetricName,
				Help:      "count of workflow state transitions",
			},
			[]string{toStateLabel},
		),
	}
}

func (m *metricCollector) ProcessedEventsInc() {
	m.processedEvents.Inc()
}

func (m *metricCollector) FailedEventsInc() {
	m.failedEvents.Inc()
}

func (m *metricCollector) StateTransitionInc(toState string) {
	m.stateTransitions.WithLabelValues(toState).Inc()
}
