package metrics

import (
	"time"

	"crosschain_portfolio/internal/app/port"
	"crosschain_portfolio/internal/domain/entity"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "portfolio"

// Prometheus implements port.Metrics with Prometheus collectors.
type Prometheus struct {
	fetchDuration  *prometheus.HistogramVec
	fetchTotal     *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
	staleDiscarded *prometheus.CounterVec
	gateDecisions  *prometheus.CounterVec
	sessionsActive prometheus.Gauge
}

var _ port.Metrics = (*Prometheus)(nil)

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Prometheus, error) {
	m := &Prometheus{
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chain_fetch_duration_seconds",
			Help:      "Duration of chain portfolio fetches.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"chain", "outcome"}),
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chain_fetch_total",
			Help:      "Chain portfolio fetches by outcome.",
		}, []string{"chain", "outcome"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chain_cache_lookups_total",
			Help:      "Chain result cache lookups by result (fresh, stale, miss).",
		}, []string{"chain", "result"}),
		staleDiscarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_responses_discarded_total",
			Help:      "Fetch completions dropped because the wallet or generation changed.",
		}, []string{"chain"}),
		gateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_gate_decisions_total",
			Help:      "Auth gate evaluations by resulting state.",
		}, []string{"state"}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Authenticated sessions currently held.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.fetchDuration, m.fetchTotal, m.cacheLookups, m.staleDiscarded, m.gateDecisions, m.sessionsActive,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// MustRegister is New that panics on registration errors.
func MustRegister(reg prometheus.Registerer) *Prometheus {
	m, err := New(reg)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Prometheus) ObserveFetch(chain entity.Chain, outcome string, took time.Duration) {
	m.fetchDuration.WithLabelValues(chain.String(), outcome).Observe(took.Seconds())
	m.fetchTotal.WithLabelValues(chain.String(), outcome).Inc()
}

func (m *Prometheus) CacheLookup(chain entity.Chain, result string) {
	m.cacheLookups.WithLabelValues(chain.String(), result).Inc()
}

func (m *Prometheus) StaleResponseDiscarded(chain entity.Chain) {
	m.staleDiscarded.WithLabelValues(chain.String()).Inc()
}

func (m *Prometheus) GateEvaluated(state entity.GateState) {
	m.gateDecisions.WithLabelValues(state.String()).Inc()
}

func (m *Prometheus) SessionsActive(n int) {
	m.sessionsActive.Set(float64(n))
}
