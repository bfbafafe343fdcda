// Package api provides the HTTP API for observing a running simulation.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/micro-society/internal/engine"
	"github.com/talgya/micro-society/internal/persistence"
	"github.com/talgya/micro-society/internal/society"
)

// Server serves simulation state over HTTP.
type Server struct {
	Sim      *engine.Simulation
	Runner   *engine.Runner
	DB       *persistence.DB
	Hub      *Hub
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	adminLimiter := NewRateLimiter(60, time.Minute)
	// The full-population dump is the one heavy endpoint.
	agentsLimiter := NewRateLimiter(120, time.Minute)

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/config", s.handleConfig)
	mux.HandleFunc("/api/v1/agents", agentsLimiter.Wrap(s.handleAgents))
	mux.HandleFunc("/api/v1/elite", s.handleElite)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/levers", s.handleLevers)
	mux.HandleFunc("/api/v1/stats", s.handleStats)
	mux.HandleFunc("/api/v1/stats/history", s.handleStatsHistory)
	mux.HandleFunc("/api/v1/snapshots/", s.handleSnapshotRoutes)

	// Live feed (WebSocket).
	if s.Hub != nil {
		mux.HandleFunc("/api/v1/live", func(w http.ResponseWriter, r *http.Request) {
			ServeWs(s.Hub, w, r)
		})
	}

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/speed", adminLimiter.Wrap(s.adminOnly(s.handleSpeed)))
	mux.HandleFunc("/api/v1/lever", adminLimiter.Wrap(s.adminOnly(s.handleLeverChange)))
	mux.HandleFunc("/api/v1/save", adminLimiter.Wrap(s.adminOnly(s.handleSave)))

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// BroadcastRound pushes the latest snapshot and its events to the live feed.
// Wired as the runner's per-round hook.
func (s *Server) BroadcastRound() {
	if s.Hub == nil {
		return
	}
	s.Hub.BroadcastJSON(Message{Type: "round", Payload: s.Sim.Latest()})
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through (for endpoints that support both).
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no admin key set)", http.StatusForbidden)
				return
			}
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.AdminKey {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.Sim.Latest()
	status := map[string]any{
		"round":            snap.Round,
		"max_rounds":       s.Sim.Config.MaxRounds,
		"population":       len(snap.Agents),
		"equality":         snap.Equality,
		"average_wealth":   snap.AverageWealth,
		"average_power":    snap.AveragePower,
		"average_ideology": snap.AverageIdeology,
		"elite_size":       len(snap.Elite),
		"events":           len(s.Sim.EventLog()),
		"seed":             s.Sim.Config.RandomSeed,
	}
	if s.Runner != nil {
		status["running"] = s.Runner.IsRunning()
		status["speed"] = s.Runner.CurrentSpeed()
	}
	writeJSON(w, status)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Config)
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	classFilter := r.URL.Query().Get("class")
	genderFilter := r.URL.Query().Get("gender")
	ideologyFilter := r.URL.Query().Get("ideology")

	snap := s.Sim.Latest()
	result := snap.Agents[:0:0]
	for _, rec := range snap.Agents {
		if classFilter != "" && string(rec.Class) != classFilter {
			continue
		}
		if genderFilter != "" && string(rec.Gender) != genderFilter {
			continue
		}
		if ideologyFilter != "" && string(rec.Ideology) != ideologyFilter {
			continue
		}
		result = append(result, rec)
	}
	writeJSON(w, result)
}

func (s *Server) handleElite(w http.ResponseWriter, r *http.Request) {
	snap := s.Sim.Latest()
	writeJSON(w, map[string]any{
		"size":        len(snap.Elite),
		"composition": snap.EliteComposition,
		"members":     snap.Elite,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	events := s.Sim.EventLog()

	if typeFilter := r.URL.Query().Get("type"); typeFilter != "" {
		var filtered []society.Event
		for _, e := range events {
			if e.Type == typeFilter {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	start := 0
	if len(events) > limit {
		start = len(events) - limit
	}
	writeJSON(w, events[start:])
}

func (s *Server) handleLevers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Latest().Levers)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := s.Sim.Latest()
	writeJSON(w, map[string]any{
		"equality":         snap.Equality,
		"average_wealth":   snap.AverageWealth,
		"average_power":    snap.AveragePower,
		"average_ideology": snap.AverageIdeology,
		"gender":           snap.Gender,
		"ideology":         snap.Ideology,
		"class":            snap.Class,
	})
}

// handleStatsHistory returns the per-round aggregate trajectory, trimmed to
// the requested window.
func (s *Server) handleStatsHistory(w http.ResponseWriter, r *http.Request) {
	limit := 200
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	type historyRow struct {
		Round           int     `json:"round"`
		Equality        float64 `json:"equality"`
		AverageWealth   float64 `json:"average_wealth"`
		AveragePower    float64 `json:"average_power"`
		AverageIdeology float64 `json:"average_ideology"`
		PowerGap        float64 `json:"gender_power_gap"`
		WealthGap       float64 `json:"gender_wealth_gap"`
	}

	snaps := s.Sim.History()
	start := 0
	if len(snaps) > limit {
		start = len(snaps) - limit
	}
	rows := make([]historyRow, 0, len(snaps)-start)
	for _, snap := range snaps[start:] {
		rows = append(rows, historyRow{
			Round:           snap.Round,
			Equality:        snap.Equality,
			AverageWealth:   snap.AverageWealth,
			AveragePower:    snap.AveragePower,
			AverageIdeology: snap.AverageIdeology,
			PowerGap:        snap.Gender.PowerGap,
			WealthGap:       snap.Gender.WealthGap,
		})
	}
	writeJSON(w, rows)
}

// handleSnapshotRoutes dispatches /api/v1/snapshots/latest and
// /api/v1/snapshots/:round.
func (s *Server) handleSnapshotRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/snapshots/")
	snaps := s.Sim.History()
	if len(snaps) == 0 {
		http.Error(w, "no snapshots yet", http.StatusNotFound)
		return
	}

	if rest == "latest" {
		writeJSON(w, snaps[len(snaps)-1])
		return
	}

	round, err := strconv.Atoi(rest)
	if err != nil {
		http.Error(w, "invalid round", http.StatusBadRequest)
		return
	}
	for _, snap := range snaps {
		if snap.Round == round {
			writeJSON(w, snap)
			return
		}
	}
	http.Error(w, "snapshot not found", http.StatusNotFound)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if s.Runner == nil {
		http.Error(w, "batch run has no pacing", http.StatusServiceUnavailable)
		return
	}

	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 100 {
			http.Error(w, "speed must be 0-100", http.StatusBadRequest)
			return
		}
		s.Runner.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Runner.CurrentSpeed()})
}

// handleLeverChange sets a policy lever directly, bypassing the elite vote.
// The new value is still clamped to the lever's bounds.
func (s *Server) handleLeverChange(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Policy string  `json:"policy"`
		Value  float64 `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	old, applied, err := s.Sim.AdjustLever(society.LeverName(req.Policy), req.Value)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	slog.Info("lever changed", "policy", req.Policy, "old", old, "new", applied)

	writeJSON(w, map[string]any{"policy": req.Policy, "old_value": old, "new_value": applied})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	if err := s.DB.SaveRun(s.Sim); err != nil {
		slog.Error("run save failed", "error", err)
		http.Error(w, "save failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"round":   s.Sim.CurrentRound(),
		"message": "run saved",
	})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
