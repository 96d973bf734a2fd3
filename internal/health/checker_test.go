package health_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ErlanBelekov/prompt-library/internal/health"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

func newTestChecker(deps ...health.Dependency) (*health.Checker, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	logger := slog.Default()
	return health.NewChecker(logger, reg, deps...), reg
}

func TestLiveness_AlwaysUp(t *testing.T) {
	c, _ := newTestChecker(health.Dependency{Name: "postgres", Pinger: &mockPinger{err: errors.New("db down")}})

	result := c.Liveness(context.Background())
	if result.Status != "up" {
		t.Fatalf("expected status up, got %s", result.Status)
	}
	if result.Checks != nil {
		t.Fatalf("expected no checks, got %v", result.Checks)
	}
}

func TestReadiness_AllUp(t *testing.T) {
	c, reg := newTestChecker(
		health.Dependency{Name: "postgres", Pinger: &mockPinger{}},
		health.Dependency{Name: "redis", Pinger: health.PingFunc(func(context.Context) error { return nil })},
	)

	result := c.Readiness(context.Background())
	if result.Status != "up" {
		t.Fatalf("expected status up, got %s", result.Status)
	}
	for _, name := range []string{"postgres", "redis"} {
		if result.Checks[name].Status != "up" {
			t.Fatalf("expected %s up, got %+v", name, result.Checks[name])
		}
		if got := testGauge(t, reg, "promptlib_health_check_up", name); got != 1 {
			t.Fatalf("expected %s gauge 1, got %f", name, got)
		}
	}
}

func TestReadiness_OneDependencyDown(t *testing.T) {
	c, reg := newTestChecker(
		health.Dependency{Name: "postgres", Pinger: &mockPinger{}},
		health.Dependency{Name: "redis", Pinger: &mockPinger{err: errors.New("connection refused")}},
	)

	result := c.Readiness(context.Background())
	if result.Status != "down" {
		t.Fatalf("expected status down, got %s", result.Status)
	}
	rd := result.Checks["redis"]
	if rd.Status != "down" || rd.Error == "" {
		t.Fatalf("expected redis down with error, got %+v", rd)
	}
	if result.Checks["postgres"].Status != "up" {
		t.Fatal("postgres should still report up")
	}

	if got := testGauge(t, reg, "promptlib_health_check_up", "redis"); got != 0 {
		t.Fatalf("expected gauge 0, got %f", got)
	}
}

func TestReadinessHandler_StatusCodes(t *testing.T) {
	up, _ := newTestChecker(health.Dependency{Name: "postgres", Pinger: &mockPinger{}})
	down, _ := newTestChecker(health.Dependency{Name: "postgres", Pinger: &mockPinger{err: errors.New("boom")}})

	w := httptest.NewRecorder()
	up.ReadinessHandler()(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Errorf("ready status = %d, want 200", w.Code)
	}

	w = httptest.NewRecorder()
	down.ReadinessHandler()(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("not ready status = %d, want 503", w.Code)
	}

	w = httptest.NewRecorder()
	down.LivenessHandler()(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Errorf("liveness status = %d, want 200", w.Code)
	}
}

func testGauge(t *testing.T, reg *prometheus.Registry, name, depLabel string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "dependency" && lp.GetValue() == depLabel {
					return m.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s{dependency=%q} not found", name, depLabel)
	return 0
}

func TestReadiness_OneSeriesPerDependency(t *testing.T) {
	c, reg := newTestChecker(health.Dependency{Name: "postgres", Pinger: &mockPinger{}})
	c.Readiness(context.Background())
	c.Readiness(context.Background())

	n, err := testutil.GatherAndCount(reg, "promptlib_health_check_up")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 series, got %d", n)
	}
}
