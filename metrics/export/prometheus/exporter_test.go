package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	boardAuth "github.com/MrEthical07/boardAuth"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSource struct {
	snapshot boardAuth.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() boardAuth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                       { return f.dropped }

func sampleSource() fakeSource {
	return fakeSource{
		snapshot: boardAuth.MetricsSnapshot{
			Counters: map[boardAuth.MetricID]uint64{
				boardAuth.MetricLoginSuccess: 7,
			},
			Histograms: map[boardAuth.MetricID]boardAuth.HistogramSnapshot{
				boardAuth.MetricAuthenticateLatency: {
					Buckets: []uint64{1, 2, 3, 4, 5, 6, 7, 8},
					Sum:     1500 * time.Millisecond,
				},
			},
		},
		dropped: 2,
	}
}

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: boardAuth.MetricsSnapshot{
			Counters:   map[boardAuth.MetricID]uint64{},
			Histograms: map[boardAuth.MetricID]boardAuth.HistogramSnapshot{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderIncludesCounterAndHistogram(t *testing.T) {
	out := NewPrometheusExporterFromSource(sampleSource()).Render()

	for _, want := range []string{
		"boardauth_login_success_total 7",
		"boardauth_authenticate_latency_seconds_bucket{le=\"0.005\"} 1",
		"boardauth_authenticate_latency_seconds_bucket{le=\"+Inf\"} 36",
		"boardauth_authenticate_latency_seconds_sum 1.5",
		"boardauth_authenticate_latency_seconds_count 36",
		"boardauth_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestHandlerContentType(t *testing.T) {
	rr := httptest.NewRecorder()
	NewPrometheusExporterFromSource(sampleSource()).Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("unexpected content type %q", ct)
	}
}

func TestCollectorGathers(t *testing.T) {
	c := NewCollectorFromSource(sampleSource())

	reg := promclient.NewPedanticRegistry()
	if err := reg.Register(c); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if got := testutil.CollectAndCount(c, "boardauth_login_success_total"); got != 1 {
		t.Fatalf("expected one login_success series, got %d", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	var sawCounter, sawHistogram bool
	for _, mf := range families {
		switch mf.GetName() {
		case "boardauth_login_success_total":
			sawCounter = true
			if v := mf.GetMetric()[0].GetCounter().GetValue(); v != 7 {
				t.Fatalf("expected 7, got %v", v)
			}
		case "boardauth_authenticate_latency_seconds":
			sawHistogram = true
			h := mf.GetMetric()[0].GetHistogram()
			if h.GetSampleCount() != 36 {
				t.Fatalf("expected 36 samples, got %d", h.GetSampleCount())
			}
			if h.GetSampleSum() != 1.5 {
				t.Fatalf("expected sum 1.5, got %v", h.GetSampleSum())
			}
			if first := h.GetBucket()[0]; first.GetCumulativeCount() != 1 || first.GetUpperBound() != 0.005 {
				t.Fatalf("unexpected first bucket %v", first)
			}
		}
	}
	if !sawCounter || !sawHistogram {
		t.Fatalf("missing families: counter=%v histogram=%v", sawCounter, sawHistogram)
	}
}
