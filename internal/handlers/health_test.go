package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	domain "github.com/ateliedecor/api/internal/domain"
	"github.com/ateliedecor/api/internal/services"
)

type stubSystemService struct {
	report domain.SystemHealthReport
	err    error
}

func (s *stubSystemService) Health(ctx context.Context) (domain.SystemHealthReport, error) {
	return s.report, s.err
}

func TestHealthzReportsBuildMetadata(t *testing.T) {
	started := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	now := started.Add(90 * time.Minute)

	h := NewHealthHandlers(
		WithHealthBuildInfo(services.BuildInfo{Version: "1.4.0", Environment: "staging", StartedAt: started}),
		WithHealthClock(func() time.Time { return now }),
	)

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["status"] != domain.HealthStatusOK {
		t.Fatalf("unexpected status %v", payload["status"])
	}
	if payload["version"] != "1.4.0" {
		t.Fatalf("unexpected version %v", payload["version"])
	}
	if payload["environment"] != "staging" {
		t.Fatalf("unexpected environment %v", payload["environment"])
	}
	if payload["uptime"] != "1h30m0s" {
		t.Fatalf("unexpected uptime %v", payload["uptime"])
	}
}

func TestReadyzHealthy(t *testing.T) {
	system := &stubSystemService{report: domain.SystemHealthReport{
		Status:  domain.HealthStatusOK,
		Version: "1.4.0",
		Checks: map[string]domain.SystemHealthCheck{
			"firestore": {Status: domain.HealthStatusOK, Latency: 12 * time.Millisecond},
		},
	}}
	h := NewHealthHandlers(WithHealthSystemService(system))

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload struct {
		Status string `json:"status"`
		Checks map[string]struct {
			Status    string `json:"status"`
			LatencyMS int64  `json:"latencyMs"`
		} `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Status != domain.HealthStatusOK {
		t.Fatalf("unexpected status %q", payload.Status)
	}
	check, ok := payload.Checks["firestore"]
	if !ok {
		t.Fatalf("expected firestore check, got %v", payload.Checks)
	}
	if check.LatencyMS != 12 {
		t.Fatalf("unexpected latency %d", check.LatencyMS)
	}
}

func TestReadyzDegraded(t *testing.T) {
	system := &stubSystemService{report: domain.SystemHealthReport{
		Status: domain.HealthStatusDegraded,
		Checks: map[string]domain.SystemHealthCheck{
			"firestore": {Status: domain.HealthStatusOK, Latency: 8 * time.Millisecond},
			"pubsub":    {Status: "error", Error: "publish failed"},
		},
	}}
	h := NewHealthHandlers(WithHealthSystemService(system))

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var payload struct {
		Status  string   `json:"status"`
		Details []string `json:"details"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Status != domain.HealthStatusDegraded {
		t.Fatalf("unexpected status %q", payload.Status)
	}
	if len(payload.Details) != 1 || payload.Details[0] != "pubsub: publish failed" {
		t.Fatalf("unexpected details %v", payload.Details)
	}
}

func TestReadyzWithoutSystemServiceFallsBackToLiveness(t *testing.T) {
	h := NewHealthHandlers()

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
