package api_test

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/xraph/berth"
	"github.com/xraph/berth/agent"
	"github.com/xraph/berth/api"
	"github.com/xraph/berth/dispatch"
	"github.com/xraph/berth/engine"
	"github.com/xraph/berth/pipeline"
	"github.com/xraph/berth/query"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() berth.Config {
	cfg := berth.DefaultConfig()
	cfg.Pipeline.MaxAttempts = 1
	cfg.Server.RateLimit = 0
	return cfg
}

func newHandler(t *testing.T, cfg berth.Config) http.Handler {
	t.Helper()
	eng, err := engine.Build(context.Background(), cfg, engine.WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("engine.Build: %v", err)
	}
	t.Cleanup(func() { _ = eng.Close(context.Background()) })

	a, err := api.New(eng)
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	return a.Handler()
}

func do(t *testing.T, h http.Handler, method, target, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %T: %v (body %s)", v, err, rec.Body.String())
	}
	return v
}

func TestHealth(t *testing.T) {
	h := newHandler(t, testConfig())

	rec := do(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := decode[api.HealthResponse](t, rec); got.Status != "ok" {
		t.Errorf("Status = %q, want ok", got.Status)
	}
}

func TestQuery(t *testing.T) {
	h := newHandler(t, testConfig())

	rec := do(t, h, http.MethodPost, "/api/v1/query", `{"query":"Where is ABCD1234567?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	ans := decode[agent.Answer](t, rec)
	if want := "Container ABCD1234567 is at location Block B4 Row 12."; ans.Record.Message != want {
		t.Errorf("Message = %q, want %q", ans.Record.Message, want)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/queries", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("queries status = %d, want 200", rec.Code)
	}
	if logs := decode[[]query.Log](t, rec); len(logs) != 1 {
		t.Errorf("len(logs) = %d, want 1", len(logs))
	}
}

func TestQuery_BadRequests(t *testing.T) {
	h := newHandler(t, testConfig())

	tests := []struct {
		name string
		body string
	}{
		{"empty", `{"query":"   "}`},
		{"script", `{"query":"<script>alert(1)</script> MSDU4234521"}`},
		{"malformed", `{"query":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/v1/query", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestQueryStream(t *testing.T) {
	h := newHandler(t, testConfig())

	rec := do(t, h, http.MethodPost, "/api/v1/query/stream", `{"query":"Is MSDU4234521 available?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Errorf("Content-Type = %q, want application/x-ndjson", ct)
	}

	var events []api.StreamEvent
	sc := bufio.NewScanner(rec.Body)
	for sc.Scan() {
		var ev api.StreamEvent
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			t.Fatalf("decode line %q: %v", sc.Text(), err)
		}
		events = append(events, ev)
	}
	if len(events) < 2 {
		t.Fatalf("len(events) = %d, want progress and answer", len(events))
	}
	if events[0].Progress == nil {
		t.Errorf("first event has no progress")
	}
	last := events[len(events)-1]
	if last.Answer == nil || last.Answer.Record == nil {
		t.Fatalf("last event has no answer: %+v", last)
	}
	if last.Answer.ContainerID != "MSDU4234521" {
		t.Errorf("ContainerID = %q, want MSDU4234521", last.Answer.ContainerID)
	}
}

func TestTrackContainer(t *testing.T) {
	h := newHandler(t, testConfig())

	rec := do(t, h, http.MethodGet, "/api/v1/containers/abcd1234567?operation=get_location", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	res := decode[dispatch.ToolResult](t, rec)
	if res.ContainerID != "ABCD1234567" {
		t.Errorf("ContainerID = %q, want ABCD1234567", res.ContainerID)
	}
	if res.Data == nil || res.Data.Location == nil || *res.Data.Location != "Block B4 Row 12" {
		t.Errorf("Data.Location = %+v, want Block B4 Row 12", res.Data)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/containers/ABCD1234567/snapshot", "")
	if rec.Code != http.StatusOK {
		t.Errorf("snapshot status = %d, want 200", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/containers/ABCD1234567/runs", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("runs status = %d, want 200", rec.Code)
	}
	runs := decode[[]pipeline.Run](t, rec)
	if len(runs) != 1 {
		t.Fatalf("len(runs) = %d, want 1", len(runs))
	}

	rec = do(t, h, http.MethodGet, "/api/v1/runs/"+runs[0].WorkflowID.String(), "")
	if rec.Code != http.StatusOK {
		t.Errorf("run status = %d, want 200", rec.Code)
	}
}

func TestTrackContainer_Errors(t *testing.T) {
	h := newHandler(t, testConfig())

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"bad id", "/api/v1/containers/NOPE", http.StatusBadRequest},
		{"bad operation", "/api/v1/containers/ABCD1234567?operation=teleport", http.StatusBadRequest},
		{"unknown container", "/api/v1/containers/ZZZZ7654321", http.StatusBadGateway},
		{"no snapshot", "/api/v1/containers/MSMU8317127/snapshot", http.StatusNotFound},
		{"bad workflow id", "/api/v1/runs/nope", http.StatusBadRequest},
		{"unknown capability", "/api/v1/capabilities/teleport", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, tt.target, "")
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestCapabilities(t *testing.T) {
	h := newHandler(t, testConfig())

	rec := do(t, h, http.MethodGet, "/api/v1/capabilities", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := decode[api.CapabilitiesResponse](t, rec); len(got.Capabilities) != 5 {
		t.Errorf("len(Capabilities) = %d, want 5", len(got.Capabilities))
	}

	rec = do(t, h, http.MethodGet, "/api/v1/capabilities/get_last_free_day", "")
	if rec.Code != http.StatusOK {
		t.Errorf("describe status = %d, want 200", rec.Code)
	}
}

func TestAPIKey(t *testing.T) {
	cfg := testConfig()
	cfg.Server.APIKeys = []string{"s3cret"}
	h := newHandler(t, cfg)

	if rec := do(t, h, http.MethodGet, "/api/v1/capabilities", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("no key status = %d, want 401", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/v1/capabilities", "", api.HeaderAPIKey, "wrong"); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong key status = %d, want 401", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/v1/capabilities", "", api.HeaderAPIKey, "s3cret"); rec.Code != http.StatusOK {
		t.Errorf("valid key status = %d, want 200", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200 without key", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimit = 0.001
	cfg.Server.RateBurst = 2
	h := newHandler(t, cfg)

	for i := range 2 {
		if rec := do(t, h, http.MethodGet, "/api/v1/capabilities", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, rec.Code)
		}
	}
	rec := do(t, h, http.MethodGet, "/api/v1/capabilities", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Errorf("Retry-After header missing")
	}
}
