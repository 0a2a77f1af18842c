package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// QuotaMetrics counts ledger mutations.
type QuotaMetrics struct {
	transitions *prometheus.CounterVec
	adjustments *prometheus.CounterVec
	syncDrift   *prometheus.HistogramVec
}

func NewQuotaMetrics(reg prometheus.Registerer) *QuotaMetrics {
	if reg == nil {
		return &QuotaMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "quota_status_transitions_total",
		Help:      "Quota entries moving between statuses.",
	}, []string{"quota_type", "from", "to"})
	adjustments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "quota_usage_adjustments_total",
		Help:      "Usage adjustments applied to quota entries.",
	}, []string{"quota_type", "mode"})
	syncDrift := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "quota_sync_drift",
		Help:      "Absolute difference between stored and ground-truth usage at sync time.",
		Buckets:   []float64{0, 1, 5, 10, 50, 100, 1000, 1e6, 1e9},
	}, []string{"quota_type"})
	reg.MustRegister(transitions, adjustments, syncDrift)
	return &QuotaMetrics{
		transitions: transitions,
		adjustments: adjustments,
		syncDrift:   syncDrift,
	}
}

func (m *QuotaMetrics) IncTransition(quotaType, from, to string) {
	if m == nil || m.transitions == nil || from == to {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(quotaType), normalizeLabel(from), normalizeLabel(to)).Inc()
}

func (m *QuotaMetrics) IncAdjustment(quotaType, mode string) {
	if m == nil || m.adjustments == nil {
		return
	}
	m.adjustments.WithLabelValues(normalizeLabel(quotaType), normalizeLabel(mode)).Inc()
}

func (m *QuotaMetrics) ObserveSyncDrift(quotaType string, drift int64) {
	if m == nil || m.syncDrift == nil {
		return
	}
	if drift < 0 {
		drift = -drift
	}
	m.syncDrift.WithLabelValues(normalizeLabel(quotaType)).Observe(float64(drift))
}
