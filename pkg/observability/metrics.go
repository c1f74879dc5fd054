package observability

import (
	"context"

	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors fed by the engine hooks.
type Metrics struct {
	SessionsStarted   *prometheus.CounterVec
	SessionsCompleted *prometheus.CounterVec
	NodeVisits        *prometheus.CounterVec
	Answers           *prometheus.CounterVec
	TopTraits         *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SessionsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "waypoint_sessions_started_total",
			Help: "Total number of sessions started",
		}, []string{"flow_id"}),
		SessionsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "waypoint_sessions_completed_total",
			Help: "Total number of sessions that reached a result node",
		}, []string{"flow_id"}),
		NodeVisits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "waypoint_node_visits_total",
			Help: "Total number of node visits",
		}, []string{"flow_id", "node_id"}),
		Answers: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "waypoint_answers_total",
			Help: "Total number of accepted answers",
		}, []string{"flow_id", "node_id"}),
		TopTraits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "waypoint_top_traits_total",
			Help: "Traits ranked in the top of completed sessions",
		}, []string{"flow_id", "trait"}),
	}
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSessionStart: func(_ context.Context, e *domain.NodeEvent) {
			m.SessionsStarted.WithLabelValues(e.FlowID).Inc()
		},
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			m.NodeVisits.WithLabelValues(e.FlowID, e.NodeID).Inc()
		},
		OnAnswer: func(_ context.Context, e *domain.AnswerEvent) {
			m.Answers.WithLabelValues(e.FlowID, e.NodeID).Inc()
		},
		OnComplete: func(_ context.Context, e *domain.CompletionEvent) {
			m.SessionsCompleted.WithLabelValues(e.FlowID).Inc()
			for _, trait := range e.Result.Summary.TopTraits {
				m.TopTraits.WithLabelValues(e.FlowID, trait).Inc()
			}
		},
	}
}
