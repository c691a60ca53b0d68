package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveScenario(t *testing.T) {
	r := New()
	r.ObserveScenario(10*time.Millisecond, nil)
	r.ObserveScenario(5*time.Millisecond, nil)
	r.ObserveScenario(time.Millisecond, errors.New("boom"))

	if got := testutil.ToFloat64(r.ScenariosTotal.WithLabelValues("ok")); got != 2 {
		t.Errorf("ok scenarios = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.ScenariosTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("error scenarios = %v, want 1", got)
	}
}

func TestNilRegistryIsNoop(t *testing.T) {
	var r *Registry
	r.ObserveScenario(time.Second, nil)
	r.ObserveAlert("hedge", "critical")
	r.ObserveFetch("dart", nil)
	r.ObserveRequest("/health", 200)
	r.ObserveJob("prices", time.Second)
}

func TestHandlerExposesCollectors(t *testing.T) {
	r := New()
	r.ObserveAlert("loss", "warning")
	r.ObserveRequest("/api/v1/profile/{code}", 200)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		`quantlab_monitor_alerts_total{kind="loss",level="warning"} 1`,
		`quantlab_api_requests_total{code="200",route="/api/v1/profile/{code}"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
