package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"workerd/internal/backend"
	"workerd/internal/device"
	"workerd/pkg/types"
)

type mockService struct {
	caps    device.Capabilities
	stats   types.ResourceStats
	reports map[string]types.ExecutionReport
	models  []types.Model
	evicted int
	reaps   int
	ready   bool
}

func (m *mockService) Capabilities() device.Capabilities  { return m.caps }
func (m *mockService) ResourceStats() types.ResourceStats { return m.stats }
func (m *mockService) PerformanceReports() map[string]types.ExecutionReport {
	out := make(map[string]types.ExecutionReport, len(m.reports))
	for k, v := range m.reports {
		out[k] = v
	}
	return out
}
func (m *mockService) ListModels() []types.Model { return append([]types.Model(nil), m.models...) }
func (m *mockService) Reap() int                 { m.reaps++; return m.evicted }
func (m *mockService) Ready() bool               { return m.ready }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestDeviceHandler(t *testing.T) {
	svc := &mockService{caps: device.Capabilities{Platform: "linux/amd64", HasAccelerator: true, BestBackend: backend.GPUVendor}}
	rec := get(t, NewMux(svc), "/device")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("content-type=%s", ct)
	}
	var got device.Capabilities
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("json: %v", err)
	}
	if got.BestBackend != backend.GPUVendor || !got.HasAccelerator {
		t.Fatalf("unexpected body: %+v", got)
	}
}

func TestStatsHandler(t *testing.T) {
	svc := &mockService{stats: types.ResourceStats{
		ActiveWorkers: 2, TotalMemoryMB: 300, MaxWorkers: 10, MaxMemoryMB: 1024,
		Workers: []types.WorkerStat{{ID: "a", ModelID: "m"}, {ID: "b", ModelID: "m"}},
	}}
	rec := get(t, NewMux(svc), "/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	var got types.ResourceStats
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("json: %v", err)
	}
	if got.ActiveWorkers != 2 || len(got.Workers) != 2 || got.TotalMemoryMB != 300 {
		t.Fatalf("unexpected stats: %+v", got)
	}
}

func TestReportsHandlers(t *testing.T) {
	svc := &mockService{reports: map[string]types.ExecutionReport{
		"midas": {ModelID: "midas", Success: true, InferenceMS: 12.5, Timestamp: time.Unix(1700000000, 0).UTC()},
	}}
	h := NewMux(svc)

	rec := get(t, h, "/reports")
	var all types.ReportsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &all); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(all.Reports) != 1 || all.Reports["midas"].InferenceMS != 12.5 {
		t.Fatalf("unexpected reports: %+v", all)
	}

	rec = get(t, h, "/reports/midas")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	rec = get(t, h, "/reports/unknown")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var er types.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &er); err != nil || er.Code != http.StatusNotFound {
		t.Fatalf("unexpected error payload: %s", rec.Body.String())
	}
}

func TestModelsHandler(t *testing.T) {
	svc := &mockService{models: []types.Model{{ID: "m1"}, {ID: "m2"}}}
	rec := get(t, NewMux(svc), "/models")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	var body types.ModelsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(body.Models) != 2 || body.Models[0].ID != "m1" {
		t.Fatalf("unexpected models: %+v", body.Models)
	}

	rec = get(t, NewMux(&mockService{}), "/models")
	if !strings.Contains(rec.Body.String(), `"models":[]`) {
		t.Fatalf("expected empty list, got %s", rec.Body.String())
	}
}

func TestReapHandler(t *testing.T) {
	svc := &mockService{evicted: 3}
	h := NewMux(svc)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reap", nil))
	if rec.Code != http.StatusOK || svc.reaps != 1 {
		t.Fatalf("status=%d reaps=%d", rec.Code, svc.reaps)
	}
	var body types.ReapResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Evicted != 3 {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}

	rec = get(t, h, "/reap")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET /reap should be rejected, got %d", rec.Code)
	}
}

func TestHealthAndReady(t *testing.T) {
	svc := &mockService{}
	h := NewMux(svc)
	if rec := get(t, h, "/healthz"); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}
	if rec := get(t, h, "/readyz"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz before ready: %d", rec.Code)
	}
	svc.ready = true
	if rec := get(t, h, "/readyz"); rec.Code != http.StatusOK || rec.Body.String() != "ready" {
		t.Fatalf("readyz: %d %q", rec.Code, rec.Body.String())
	}
}

func TestCORSAndSecurityHeaders(t *testing.T) {
	SetCORSOptions(true, []string{"*"}, nil, nil)
	defer SetCORSOptions(false, nil, nil, nil)

	h := NewMux(&mockService{})
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected X-Content-Type-Options=nosniff, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Fatalf("expected CORS header Access-Control-Allow-Origin to be set, got empty")
	}
}

func TestCORSDisabledByDefault(t *testing.T) {
	h := NewMux(&mockService{})
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected CORS header %q", got)
	}
}
