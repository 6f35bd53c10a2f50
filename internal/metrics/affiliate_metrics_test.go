package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestAffiliateMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAffiliateMetrics(reg).(*affiliateMetrics)

	m.IncReferralTracked(ResultCreated)
	m.IncReferralTracked(ResultCreated)
	m.IncReferralTracked(ResultAlreadyTracked)
	m.AddCommissionsAccrued(3)
	m.IncStatusPropagation("cancelled")

	if got := testutil.ToFloat64(m.referralsTracked.WithLabelValues(ResultCreated)); got != 2 {
		t.Fatalf("created = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.referralsTracked.WithLabelValues(ResultAlreadyTracked)); got != 1 {
		t.Fatalf("already_tracked = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.commissionsAccrued); got != 3 {
		t.Fatalf("accrued = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.statusPropagations.WithLabelValues("cancelled")); got != 1 {
		t.Fatalf("propagations = %v, want 1", got)
	}
}

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.Observe("POST", "/affiliate/track-referral", "201", 0.01)

	if got := testutil.ToFloat64(m.requests.WithLabelValues("POST", "/affiliate/track-referral", "201")); got != 1 {
		t.Fatalf("requests = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(m.latency); n != 1 {
		t.Fatalf("latency series = %d, want 1", n)
	}
}

func TestNewRegistryExposesRuntimeMetrics(t *testing.T) {
	families, err := NewRegistry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	for _, want := range []string{"go_goroutines", "go_memstats_alloc_bytes"} {
		if !names[want] {
			t.Errorf("metric %s is not registered", want)
		}
	}
}
