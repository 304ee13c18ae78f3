package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "miyog"

// Task outcome label values.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

// Metrics exposes the collectors recorded by the API and the task runner.
// A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpDuration   *prometheus.HistogramVec
	taskOutcomes   *prometheus.CounterVec
	taskDuration   prometheus.Histogram
	creditsDebited *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry together
// with the Go runtime and process collectors.
func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP requests by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		taskOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tasks",
			Name:      "finished_total",
			Help:      "Background tasks finished, by type and outcome.",
		}, []string{"type", "outcome"}),
		taskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tasks",
			Name:      "duration_seconds",
			Help:      "Wall time of background tasks.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}),
		creditsDebited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "credits",
			Name:      "debited_total",
			Help:      "Credits spent, by action.",
		}, []string{"action"}),
	}

	cs := []prometheus.Collector{
		m.httpDuration,
		m.taskOutcomes,
		m.taskDuration,
		m.creditsDebited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range cs {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return m, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveRequest records one HTTP request. route is the matched pattern, not
// the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// ObserveTask records a finished background task.
func (m *Metrics) ObserveTask(taskType string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := OutcomeCompleted
	if err != nil {
		outcome = OutcomeFailed
	}
	m.taskOutcomes.WithLabelValues(taskType, outcome).Inc()
	m.taskDuration.Observe(elapsed.Seconds())
}

// AddCreditsDebited records credits charged for action.
func (m *Metrics) AddCreditsDebited(action string, amount int) {
	if m == nil || amount <= 0 {
		return
	}
	m.creditsDebited.WithLabelValues(action).Add(float64(amount))
}

// ErrNoMetric is returned by Value when no matching series exists.
var ErrNoMetric = errors.New("metric not found")

// Value returns the current value of a counter series, or the sample count
// of a histogram series. It is meant for tests and diagnostics.
func (m *Metrics) Value(name string, labels map[string]string) (float64, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return 0, err
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, metric := range f.GetMetric() {
			if !matches(metric.GetLabel(), labels) {
				continue
			}
			switch {
			case metric.GetCounter() != nil:
				return metric.GetCounter().GetValue(), nil
			case metric.GetHistogram() != nil:
				return float64(metric.GetHistogram().GetSampleCount()), nil
			case metric.GetGauge() != nil:
				return metric.GetGauge().GetValue(), nil
			}
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrNoMetric, name)
}

type labelPair interface {
	GetName() string
	GetValue() string
}

func matches[L labelPair](pairs []L, want map[string]string) bool {
	found := 0
	for _, p := range pairs {
		if v, ok := want[p.GetName()]; ok {
			if v != p.GetValue() {
				return false
			}
			found++
		}
	}
	return found == len(want)
}
