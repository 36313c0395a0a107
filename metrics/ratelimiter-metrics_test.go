package metrics_test

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"learn.ringlimiter/metrics"
)

func TestRateLimitMetrics_RecordRequest(t *testing.T) {
	registry := prometheus.NewRegistry()
	collectors := metrics.NewCollectors(registry)
	m := metrics.NewRateLimitMetrics(collectors, "api_rate_limit", 5, 60)

	m.RecordRequest(true)
	m.RecordRequest(true)
	m.RecordRequest(false)

	if got := m.Snapshot(); got != (metrics.Snapshot{Total: 3, Allowed: 2, Rejected: 1}) {
		t.Fatalf("Snapshot() = %+v", got)
	}

	requests, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if len(requests) != 3 {
		t.Fatalf("Expected 3 metric families, got %d", len(requests))
	}
}

func TestCollectors_Series(t *testing.T) {
	registry := prometheus.NewRegistry()
	collectors := metrics.NewCollectors(registry)
	api := metrics.NewRateLimitMetrics(collectors, "api", 5, 60)
	login := metrics.NewRateLimitMetrics(collectors, "login", 3, 0.5)

	api.RecordRequest(false)
	login.RecordRequest(true)
	login.RecordRequest(true)

	if n := testutil.CollectAndCount(registry, "ringlimiter_requests_total"); n != 2 {
		t.Fatalf("Expected 2 request series, got %d", n)
	}
	if n := testutil.CollectAndCount(registry, "ringlimiter_budget_events"); n != 2 {
		t.Fatalf("Expected 2 budget series, got %d", n)
	}
	if n := testutil.CollectAndCount(registry, "ringlimiter_window_seconds"); n != 2 {
		t.Fatalf("Expected 2 window series, got %d", n)
	}
}

func TestRateLimitMetrics_WithoutCollectors(t *testing.T) {
	m := metrics.NewRateLimitMetrics(nil, "local", 1, 1)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.RecordRequest(i%4 != 0)
		}(i)
	}
	wg.Wait()

	if got := m.Snapshot(); got != (metrics.Snapshot{Total: 100, Allowed: 75, Rejected: 25}) {
		t.Fatalf("Snapshot() = %+v", got)
	}
}
