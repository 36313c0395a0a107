package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors are the Prometheus series shared by every limiter; each
// RateLimitMetrics writes to its own "limiter" label.
type Collectors struct {
	requests *prometheus.CounterVec
	budget   *prometheus.GaugeVec
	window   *prometheus.GaugeVec
}

// NewCollectors registers the limiter series on reg.
func NewCollectors(reg prometheus.Registerer) *Collectors {
	factory := promauto.With(reg)
	return &Collectors{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ringlimiter_requests_total",
				Help: "Admission decisions by limiter and result",
			},
			[]string{"limiter", "result"},
		),
		budget: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ringlimiter_budget_events",
				Help: "Configured events per window",
			},
			[]string{"limiter"},
		),
		window: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ringlimiter_window_seconds",
				Help: "Configured window length",
			},
			[]string{"limiter"},
		),
	}
}

// RateLimitMetrics counts decisions for one limiter.
type RateLimitMetrics struct {
	TotalRequests    int64
	RejectedRequests int64
	AllowedRequests  int64

	allowed  prometheus.Counter
	rejected prometheus.Counter
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Total    int64 `json:"total"`
	Allowed  int64 `json:"allowed"`
	Rejected int64 `json:"rejected"`
}

// NewRateLimitMetrics binds counters for limiterKey and publishes its
// configuration. A nil Collectors keeps only the in-process counters.
func NewRateLimitMetrics(c *Collectors, limiterKey string, budget int, windowSeconds float64) *RateLimitMetrics {
	m := &RateLimitMetrics{}
	if c != nil {
		m.allowed = c.requests.WithLabelValues(limiterKey, "allowed")
		m.rejected = c.requests.WithLabelValues(limiterKey, "rejected")
		c.budget.WithLabelValues(limiterKey).Set(float64(budget))
		c.window.WithLabelValues(limiterKey).Set(windowSeconds)
	}
	return m
}

func (r *RateLimitMetrics) RecordRequest(allowed bool) {
	atomic.AddInt64(&r.TotalRequests, 1)
	if allowed {
		atomic.AddInt64(&r.AllowedRequests, 1)
		if r.allowed != nil {
			r.allowed.Inc()
		}
	} else {
		atomic.AddInt64(&r.RejectedRequests, 1)
		if r.rejected != nil {
			r.rejected.Inc()
		}
	}
}

func (r *RateLimitMetrics) Snapshot() Snapshot {
	return Snapshot{
		Total:    atomic.LoadInt64(&r.TotalRequests),
		Allowed:  atomic.LoadInt64(&r.AllowedRequests),
		Rejected: atomic.LoadInt64(&r.RejectedRequests),
	}
}
