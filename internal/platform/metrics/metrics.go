package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the portal.
type Metrics struct {
	RegistrationsStarted prometheus.Counter
	BasicInfoCommits     *prometheus.CounterVec
	ProfileSubmissions   *prometheus.CounterVec
	ApprovalRequests     *prometheus.CounterVec
	AdminMutations       *prometheus.CounterVec
	OptimisticResyncs    prometheus.Counter
	UpstreamCallDuration *prometheus.HistogramVec
	RequestLatency       *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		RegistrationsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "spiceportal_registrations_started_total",
			Help: "Total number of registration drafts that received their first field.",
		}),
		BasicInfoCommits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "spiceportal_basic_info_commits_total",
			Help: "Basic info commit attempts by outcome.",
		}, []string{"outcome"}),
		ProfileSubmissions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "spiceportal_profile_submissions_total",
			Help: "Role detail submissions by role and outcome.",
		}, []string{"role", "outcome"}),
		ApprovalRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "spiceportal_approval_requests_total",
			Help: "Approval request submissions by outcome (submitted, empty_diff, failed).",
		}, []string{"outcome"}),
		AdminMutations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "spiceportal_admin_mutations_total",
			Help: "Admin user mutations by action and outcome.",
		}, []string{"action", "outcome"}),
		OptimisticResyncs: promauto.NewCounter(prometheus.CounterOpts{
			Name: "spiceportal_optimistic_resyncs_total",
			Help: "Full list resyncs triggered by rejected optimistic mutations.",
		}),
		UpstreamCallDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "spiceportal_upstream_call_duration_seconds",
			Help:    "Latency of calls to the registration backend.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "status"}),
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "spiceportal_http_request_duration_seconds",
			Help:    "Latency of portal HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method", "status"}),
	}
}

func (m *Metrics) ObserveBasicInfoCommit(outcome string) {
	if m != nil {
		m.BasicInfoCommits.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ObserveProfileSubmission(role, outcome string) {
	if m != nil {
		m.ProfileSubmissions.WithLabelValues(role, outcome).Inc()
	}
}

func (m *Metrics) ObserveApprovalRequest(outcome string) {
	if m != nil {
		m.ApprovalRequests.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ObserveAdminMutation(action, outcome string) {
	if m != nil {
		m.AdminMutations.WithLabelValues(action, outcome).Inc()
	}
}

func (m *Metrics) IncrementRegistrationsStarted() {
	if m != nil {
		m.RegistrationsStarted.Inc()
	}
}

func (m *Metrics) IncrementOptimisticResyncs() {
	if m != nil {
		m.OptimisticResyncs.Inc()
	}
}
