package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CreditOpMetrics records the outcome of ledger operations.
type CreditOpMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	amount   *prometheus.CounterVec
}

// NewCreditOpMetrics registers the ledger metrics on the provided registerer.
func NewCreditOpMetrics(reg prometheus.Registerer) *CreditOpMetrics {
	if reg == nil {
		return &CreditOpMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "credit_op_duration_seconds",
		Help:    "Duration of credit ledger operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "credit_op_success",
		Help: "Successful credit ledger operations.",
	}, []string{"op"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "credit_op_failure",
		Help: "Failed credit ledger operations.",
	}, []string{"op"})
	amount := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "credit_op_amount_total",
		Help: "Total credits moved per operation type.",
	}, []string{"op"})
	reg.MustRegister(duration, success, failure, amount)
	return &CreditOpMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		amount:   amount,
	}
}

// ObserveDuration records the duration for the named operation.
func (c *CreditOpMetrics) ObserveDuration(op string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(op)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named operation.
func (c *CreditOpMetrics) IncSuccess(op string) {
	if c == nil || c.success == nil {
		return
	}
	c.success.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncFailure increments the failure counter for the named operation.
func (c *CreditOpMetrics) IncFailure(op string) {
	if c == nil || c.failure == nil {
		return
	}
	c.failure.WithLabelValues(normalizeLabel(op)).Inc()
}

// AddAmount accumulates the absolute number of credits moved by the operation.
func (c *CreditOpMetrics) AddAmount(op string, credits int) {
	if c == nil || c.amount == nil {
		return
	}
	if credits < 0 {
		credits = -credits
	}
	c.amount.WithLabelValues(normalizeLabel(op)).Add(float64(credits))
}

func normalizeLabel(op string) string {
	if op == "" {
		return "unknown"
	}
	return op
}
