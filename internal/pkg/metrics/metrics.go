package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the dashboard access counters
type Metrics struct {
	// Invitation metrics
	InvitationsCreated  *prometheus.CounterVec
	InvitationConflicts *prometheus.CounterVec
	InvitationsExpired  prometheus.Counter

	// Role registry metrics
	RoleMutations   *prometheus.CounterVec
	RoleFanoutUsers *prometheus.HistogramVec

	// Access metrics
	AccessDecisions *prometheus.CounterVec
	CacheLookups    *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics creates and registers all metrics on registry
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		InvitationsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_invitations_created_total",
				Help: "Total number of invitations written, by initial status",
			},
			[]string{"status"},
		),
		InvitationConflicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_invitation_conflicts_total",
				Help: "Total number of invitation creates refused because one already exists",
			},
			[]string{"existing_status"},
		),
		InvitationsExpired: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dashboard_invitations_expired_total",
				Help: "Total number of invitations moved to expired by the sweep",
			},
		),
		RoleMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_role_mutations_total",
				Help: "Total number of role registry mutations",
			},
			[]string{"operation", "outcome"},
		),
		RoleFanoutUsers: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dashboard_role_fanout_users",
				Help:    "Number of user documents rewritten by a role mutation",
				Buckets: prometheus.ExponentialBuckets(1, 4, 6),
			},
			[]string{"operation"},
		),
		AccessDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_access_decisions_total",
				Help: "Total number of guard decisions",
			},
			[]string{"state", "reason"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_access_cache_lookups_total",
				Help: "Total number of access profile cache lookups",
			},
			[]string{"result"},
		),
		gatherer: registry,
	}

	registry.MustRegister(
		m.InvitationsCreated,
		m.InvitationConflicts,
		m.InvitationsExpired,
		m.RoleMutations,
		m.RoleFanoutUsers,
		m.AccessDecisions,
		m.CacheLookups,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// RecordRoleMutation records the outcome of a role batch and its fan-out size
func (m *Metrics) RecordRoleMutation(operation string, users int, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.RoleMutations.WithLabelValues(operation, outcome).Inc()
	if err == nil {
		m.RoleFanoutUsers.WithLabelValues(operation).Observe(float64(users))
	}
}

// RecordCacheLookup records a cache hit or miss
func (m *Metrics) RecordCacheLookup(hit bool) {
	if hit {
		m.CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.CacheLookups.WithLabelValues("miss").Inc()
}
