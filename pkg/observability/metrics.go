package observability

import (
	"context"

	"github.com/aretw0/adtkit/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels of adtkit_transactions_total.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the coordinator collectors.
type Metrics struct {
	Phases       *prometheus.CounterVec
	Transactions *prometheus.CounterVec
	Primitives   *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg (skipped when reg is nil).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Phases: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adtkit_phase_total",
				Help: "Total number of phase transitions reached by edit transactions",
			},
			[]string{"kind", "phase"},
		),
		Transactions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adtkit_transactions_total",
				Help: "Total number of finished transactions and operations",
			},
			[]string{"kind", "flow", "outcome", "error_kind"},
		),
		Primitives: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "adtkit_primitive_duration_seconds",
				Help:    "Duration of remote primitive calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind", "primitive"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Phases, m.Transactions, m.Primitives)
	}
	return m
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnPhase: func(_ context.Context, e *domain.PhaseEvent) {
			m.Phases.WithLabelValues(string(e.Ref.Kind), string(e.Phase)).Inc()
		},
		OnPrimitive: func(_ context.Context, e *domain.PrimitiveEvent) {
			m.Primitives.WithLabelValues(string(e.Ref.Kind), string(e.Primitive)).Observe(e.Duration.Seconds())
		},
		OnFinish: func(_ context.Context, e *domain.FinishEvent) {
			outcome, kind := OutcomeSuccess, ""
			if !e.Success() {
				outcome = OutcomeFailure
				if e.Err != nil {
					kind = string(domain.KindOf(e.Err))
				}
			}
			m.Transactions.WithLabelValues(string(e.Ref.Kind), e.Operation, outcome, kind).Inc()
		},
	}
}
