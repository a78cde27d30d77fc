package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mamadbah2/seedbank/internal/domain/models"
)

// Outcome labels shared by the mutation counters.
const (
	ResultAccepted = "accepted"
	ResultRejected = "rejected"
	ResultBusy     = "busy"
	ResultFailed   = "failed"
)

const namespace = "seedbank"

// Metrics owns a private registry so tests can build as many instances as they like.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	withdrawals *prometheus.CounterVec
	edits       *prometheus.CounterVec
	lockWait    prometheus.Histogram
	corrections prometheus.Counter
	lots        *prometheus.GaugeVec
	qrRequests  *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		withdrawals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "withdrawals_total",
			Help:      "Withdrawal requests by result.",
		}, []string{"result"}),
		edits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lot_edits_total",
			Help:      "Lot field edit requests by result.",
		}, []string{"result"}),
		lockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ledger_lock_wait_seconds",
			Help:      "Time spent waiting for the store-wide ledger lock.",
			Buckets:   []float64{.001, .01, .05, .1, .5, 1, 5, 15, 30},
		}),
		corrections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_corrections_total",
			Help:      "Current Volume cells rewritten by reconciliation.",
		}),
		lots: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lots",
			Help:      "Active lots per status as of the last aggregation.",
		}, []string{"status"}),
		qrRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "qr_requests_total",
			Help:      "QR image fetches by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.withdrawals, m.edits, m.lockWait, m.corrections, m.lots, m.qrRequests,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveWithdrawal(result string) {
	if m == nil {
		return
	}
	m.withdrawals.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveEdit(result string) {
	if m == nil {
		return
	}
	m.edits.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveLockWait(d time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.Observe(d.Seconds())
}

func (m *Metrics) AddCorrections(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.corrections.Add(float64(n))
}

func (m *Metrics) ObserveQR(result string) {
	if m == nil {
		return
	}
	m.qrRequests.WithLabelValues(result).Inc()
}

// SetLotStatus replaces the per-status gauge values.
func (m *Metrics) SetLotStatus(counts models.StatusCounts) {
	if m == nil {
		return
	}
	m.lots.WithLabelValues(string(models.StatusNormal)).Set(float64(counts.Normal))
	m.lots.WithLabelValues(string(models.StatusWarning)).Set(float64(counts.Warning))
	m.lots.WithLabelValues(string(models.StatusCritical)).Set(float64(counts.Critical))
}
