// Package server exposes the HTTP API handlers.
package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/steamyplank/clanwatch/db"
)

// Leaderboard window and size shown on /status.
const (
	topLootWindow = 7 * 24 * time.Hour
	topLootLimit  = 10
)

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	db *sql.DB
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(dbx *sql.DB) *Handlers {
	return &Handlers{db: dbx}
}

// HandleHealthz responds to liveness probe requests by checking database connectivity.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz responds to readiness probe requests. Ready means the database
// answers and the schema has been migrated.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"database", func() error { return h.db.PingContext(r.Context()) }},
		{"schema", func() error {
			var n int
			err := h.db.QueryRowContext(r.Context(), "SELECT COUNT(*) FROM kv").Scan(&n)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return err
			}
			return nil
		}},
	}

	for _, check := range checks {
		if err := check.fn(); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}

type lootRow struct {
	RSN   string `json:"rsn"`
	Total int64  `json:"total"`
}

type statusResponse struct {
	Records       map[string]int64 `json:"records"`
	Streamers     int              `json:"streamers"`
	LiveStreamers int              `json:"live_streamers"`
	TopLoot       []lootRow        `json:"top_loot"`
}

// HandleStatus reports stored record counts, streamer live totals, and the
// recent loot leaderboard.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	counts, err := db.CountRecords(ctx, h.db)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	list, err := db.ListStreamers(ctx, h.db)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	live := 0
	for _, s := range list {
		if s.Live {
			live++
		}
	}
	top, err := db.TopLootSince(ctx, h.db, time.Now().Add(-topLootWindow), topLootLimit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	topLoot := make([]lootRow, 0, len(top))
	for _, e := range top {
		topLoot = append(topLoot, lootRow{RSN: e.RSN, Total: e.Total})
	}
	resp := statusResponse{Records: counts, Streamers: len(list), LiveStreamers: live, TopLoot: topLoot}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// HandleLoot reports one player's all-time loot total across kills and drops.
func (h *Handlers) HandleLoot(w http.ResponseWriter, r *http.Request) {
	rsn := r.URL.Query().Get("rsn")
	if rsn == "" {
		http.Error(w, "missing rsn query parameter", http.StatusBadRequest)
		return
	}
	total, err := db.SumLootByRSN(r.Context(), h.db, rsn)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(lootRow{RSN: rsn, Total: total})
}
