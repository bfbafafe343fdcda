package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/talgya/micro-society/internal/agents"
	"github.com/talgya/micro-society/internal/config"
	"github.com/talgya/micro-society/internal/engine"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.TotalPopulation = 50
	cfg.MaxRounds = 5
	sim, err := engine.NewSimulation(cfg)
	if err != nil {
		t.Fatalf("NewSimulation() error = %v", err)
	}
	return &Server{Sim: sim, AdminKey: "test-key"}
}

func TestHandleStatus(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["population"] != float64(50) {
		t.Errorf("population = %v, want 50", body["population"])
	}
	if body["round"] != float64(0) {
		t.Errorf("round = %v, want 0", body["round"])
	}
}

func TestHandleAgentsFilter(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.handleAgents(rec, httptest.NewRequest(http.MethodGet, "/api/v1/agents?class=high", nil))

	var records []agents.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(records) == 0 {
		t.Fatal("no high-class agents returned")
	}
	for _, r := range records {
		if r.Class != agents.ClassHigh {
			t.Errorf("filter leaked class %q", r.Class)
		}
	}
}

func TestHandleSnapshotRoutes(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.handleSnapshotRoutes(rec, httptest.NewRequest(http.MethodGet, "/api/v1/snapshots/latest", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("latest: status code = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.handleSnapshotRoutes(rec, httptest.NewRequest(http.MethodGet, "/api/v1/snapshots/0", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("round 0: status code = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.handleSnapshotRoutes(rec, httptest.NewRequest(http.MethodGet, "/api/v1/snapshots/99", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing round: status code = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.handleSnapshotRoutes(rec, httptest.NewRequest(http.MethodGet, "/api/v1/snapshots/bogus", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad round: status code = %d, want 400", rec.Code)
	}
}

func TestAdminAuth(t *testing.T) {
	s := newTestServer(t)
	handler := s.adminOnly(s.handleLeverChange)

	body := `{"policy": "tax_redistribution", "value": 0.5}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/lever", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status code = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/lever", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: status code = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/lever", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer test-key")
	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token: status code = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := s.Sim.Society.Levers.TaxRedistribution; got != 0.5 {
		t.Errorf("tax lever = %v, want 0.5", got)
	}
}

func TestLeverChangeReachesNextSnapshot(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/lever",
		strings.NewReader(`{"policy": "tax_redistribution", "value": 0.5}`))
	rec := httptest.NewRecorder()
	s.handleLeverChange(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}

	if err := s.Sim.Step(); err != nil {
		t.Fatalf("Step() error = %v", err)
	}

	found := false
	for _, ev := range s.Sim.Latest().Events {
		if ev.Type == "policy_change" && strings.HasPrefix(ev.Description, "external adjustment") {
			found = true
		}
	}
	if !found {
		t.Error("external policy_change missing from the following snapshot")
	}
}

func TestHandlersSafeDuringRun(t *testing.T) {
	s := newTestServer(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			if err := s.Sim.Step(); err != nil {
				t.Errorf("Step() error = %v", err)
				return
			}
		}
	}()

	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		s.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status code = %d", rec.Code)
		}
		rec = httptest.NewRecorder()
		s.handleStatsHistory(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats/history", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("history code = %d", rec.Code)
		}
	}
	<-done
}

func TestLeverChangeClampsToBounds(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/lever",
		strings.NewReader(`{"policy": "tax_redistribution", "value": 5.0}`))
	rec := httptest.NewRecorder()
	s.handleLeverChange(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}
	if got := s.Sim.Society.Levers.TaxRedistribution; got != 0.8 {
		t.Errorf("tax lever = %v, want clamped 0.8", got)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/lever",
		strings.NewReader(`{"policy": "nonsense", "value": 0.5}`))
	rec = httptest.NewRecorder()
	s.handleLeverChange(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown lever: status code = %d, want 400", rec.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)

	if !rl.Allow("10.0.0.1") || !rl.Allow("10.0.0.1") {
		t.Fatal("first two requests denied")
	}
	if rl.Allow("10.0.0.1") {
		t.Error("third request allowed past the limit")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("separate IP shares the budget")
	}
	if rl.RetryAfter("10.0.0.1") <= 0 {
		t.Error("RetryAfter not positive for limited IP")
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:4242"
	if got := clientIP(req); got != "192.0.2.1" {
		t.Errorf("clientIP = %q, want %q", got, "192.0.2.1")
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 192.0.2.1")
	if got := clientIP(req); got != "203.0.113.9" {
		t.Errorf("clientIP with XFF = %q, want %q", got, "203.0.113.9")
	}
}
