package monitor

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics tracks what the client and watcher did, as opposed to raw
// transport traffic.
type BusinessMetrics struct {
	ProposalsTotal       *prometheus.CounterVec
	ConfirmationsTotal   *prometheus.CounterVec
	ExecutionsTotal      *prometheus.CounterVec
	ObserverEventsTotal  *prometheus.CounterVec
	ObserverPollDuration *prometheus.HistogramVec
	PendingProposals     *prometheus.GaugeVec
}

// Business is nil until Init; the helpers below are no-ops in that case.
var Business *BusinessMetrics

func InitBusinessMetrics() {
	Business = &BusinessMetrics{
		ProposalsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "safe_proposals_total",
			Help: "Multisig transactions proposed by this process",
		}, []string{"chain"}),
		ConfirmationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "safe_confirmations_total",
			Help: "Confirmations submitted by this process",
		}, []string{"chain"}),
		ExecutionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "safe_executions_total",
			Help: "execTransaction calls sent by this process",
		}, []string{"chain"}),
		ObserverEventsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "safe_observer_events_total",
			Help: "Queue events published by the watcher",
		}, []string{"type"}),
		ObserverPollDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "safe_observer_poll_duration_seconds",
			Help:    "Duration of one watcher poll over a Safe",
			Buckets: prometheus.DefBuckets,
		}, []string{"chain"}),
		PendingProposals: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "safe_pending_proposals",
			Help: "Pending proposals per Safe at the last poll",
		}, []string{"safe"}),
	}
}

func chainLabel(chainID uint64) string {
	return strconv.FormatUint(chainID, 10)
}

func IncProposals(chainID uint64) {
	if Business != nil {
		Business.ProposalsTotal.WithLabelValues(chainLabel(chainID)).Inc()
	}
}

func IncConfirmations(chainID uint64) {
	if Business != nil {
		Business.ConfirmationsTotal.WithLabelValues(chainLabel(chainID)).Inc()
	}
}

func IncExecutions(chainID uint64) {
	if Business != nil {
		Business.ExecutionsTotal.WithLabelValues(chainLabel(chainID)).Inc()
	}
}

func IncObserverEvent(eventType string) {
	if Business != nil {
		Business.ObserverEventsTotal.WithLabelValues(eventType).Inc()
	}
}

func ObservePoll(chainID uint64, seconds float64) {
	if Business != nil {
		Business.ObserverPollDuration.WithLabelValues(chainLabel(chainID)).Observe(seconds)
	}
}

func SetPending(safe string, n int) {
	if Business != nil {
		Business.PendingProposals.WithLabelValues(safe).Set(float64(n))
	}
}
