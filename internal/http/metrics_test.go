package http

import (
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func labelsMatch(m *dto.Metric, want map[string]string) bool {
	got := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestMetrics_RequestAndLoginCounters(t *testing.T) {
	env := newTestEnv(t, testEnvOptions{})
	routeLabels := map[string]string{"method": "GET", "route": "/api/posts", "status": "2xx"}
	invalidLabels := map[string]string{"result": "invalid"}
	gateLabels := map[string]string{"reason": "missing"}

	beforeRoute := counterValue(t, "forum_http_requests_total", routeLabels)
	beforeInvalid := counterValue(t, "forum_auth_login_attempts_total", invalidLabels)
	beforeGate := counterValue(t, "forum_auth_gate_rejections_total", gateLabels)

	env.do(t, http.MethodGet, "/api/posts", nil)
	env.do(t, http.MethodPost, "/api/auth/login", gin.H{"username": "nobody", "password": "secret1"})
	env.do(t, http.MethodGet, "/api/auth/me", nil)

	if got := counterValue(t, "forum_http_requests_total", routeLabels); got != beforeRoute+1 {
		t.Fatalf("expected request counter +1, got %v -> %v", beforeRoute, got)
	}
	if got := counterValue(t, "forum_auth_login_attempts_total", invalidLabels); got != beforeInvalid+1 {
		t.Fatalf("expected invalid login counter +1, got %v -> %v", beforeInvalid, got)
	}
	if got := counterValue(t, "forum_auth_gate_rejections_total", gateLabels); got != beforeGate+1 {
		t.Fatalf("expected gate rejection counter +1, got %v -> %v", beforeGate, got)
	}
}

func TestMetrics_Endpoint(t *testing.T) {
	env := newTestEnv(t, testEnvOptions{})
	env.do(t, http.MethodGet, "/api/communities", nil)

	rec := env.do(t, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "forum_http_requests_total") {
		t.Fatalf("expected exposition to include request counter")
	}
}
