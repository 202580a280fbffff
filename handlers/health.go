package handlers

import (
	"database/sql"
	"net/http"
	"time"
)

type HealthHandler struct {
	DB      *sql.DB
	Version string
	started time.Time
}

func NewHealthHandler(db *sql.DB, version string) *HealthHandler {
	return &HealthHandler{DB: db, Version: version, started: time.Now()}
}

// Get reports process health and database reachability.
// GET /api/health
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	dbStatus := "ok"
	code := http.StatusOK

	if err := h.DB.PingContext(r.Context()); err != nil {
		status = "degraded"
		dbStatus = err.Error()
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":   status,
		"database": dbStatus,
		"version":  h.Version,
		"uptime":   time.Since(h.started).Round(time.Second).String(),
	})
}
