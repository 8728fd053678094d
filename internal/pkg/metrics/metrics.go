package metrics

import (
	"errors"
	"net/http"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/presence"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "presence"

// Pass outcomes used as the "outcome" label.
const (
	OutcomeCommitted = "committed"
	OutcomeNoop      = "noop"
	OutcomeFailed    = "failed"
	OutcomePanicked  = "panicked"
)

// Metrics holds the reconciler's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	passes         *prometheus.CounterVec
	passDuration   prometheus.Histogram
	present        prometheus.Gauge
	dropped        prometheus.Counter
	mutations      *prometheus.CounterVec
	checkouts      *prometheus.CounterVec
	lastSuccessful prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_passes_total",
			Help:      "Reconciliation passes by outcome.",
		}, []string{"outcome"}),
		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconcile_pass_duration_seconds",
			Help:      "Wall time of a reconciliation pass.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		present: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "present_persons",
			Help:      "Persons in the presence set after the last committed pass.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "punches_dropped_total",
			Help:      "Malformed or out-of-window punch records skipped.",
		}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entry_mutations_total",
			Help:      "Presence entries written by reconciliation, by operation.",
		}, []string{"op"}),
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "manual_checkouts_total",
			Help:      "Manual checkouts by target kind and result.",
		}, []string{"kind", "result"}),
		lastSuccessful: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_successful_pass_timestamp_seconds",
			Help:      "Unix time of the last pass that finished without error.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.passes,
		m.passDuration,
		m.present,
		m.dropped,
		m.mutations,
		m.checkouts,
		m.lastSuccessful,
	)

	return m
}

// ObservePass records the outcome of one reconciliation pass.
func (m *Metrics) ObservePass(result presence.ReconcileResult, err error) {
	m.passDuration.Observe(result.Duration.Seconds())
	m.dropped.Add(float64(result.PunchesDropped))

	switch {
	case errors.Is(err, presence.ErrPassPanicked):
		m.passes.WithLabelValues(OutcomePanicked).Inc()
		return
	case err != nil:
		m.passes.WithLabelValues(OutcomeFailed).Inc()
		return
	case result.Committed:
		m.passes.WithLabelValues(OutcomeCommitted).Inc()
	default:
		m.passes.WithLabelValues(OutcomeNoop).Inc()
	}

	m.present.Set(float64(result.Present))
	m.mutations.WithLabelValues("upsert").Add(float64(result.Upserted))
	m.mutations.WithLabelValues("delete").Add(float64(result.Deleted))
	m.lastSuccessful.Set(float64(result.StartedAt.Add(result.Duration).Unix()))
}

// ObserveCheckout records the outcome of a manual checkout.
func (m *Metrics) ObserveCheckout(o presence.Outcome) {
	result := "ok"
	if !o.OK() {
		result = "error"
	}
	m.checkouts.WithLabelValues(string(o.Kind), result).Inc()
}

// RegisterGauge exposes a value computed at scrape time, such as the number
// of open streams.
func (m *Metrics) RegisterGauge(name, help string, fn func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
