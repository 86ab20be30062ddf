package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/BradenHooton/adminauth/internal/database"
	pkghttp "github.com/BradenHooton/adminauth/pkg/http"
)

// Pinger reports whether a backing store is reachable and how busy it is
type Pinger interface {
	HealthCheck(ctx context.Context) error
	Stats() database.PoolStats
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status   string              `json:"status"`
	Database string              `json:"database"`
	Pool     *database.PoolStats `json:"pool,omitempty"`
}

// HealthHandler reports process and database health
type HealthHandler struct {
	db      Pinger
	timeout time.Duration
}

// NewHealthHandler creates a HealthHandler with a 2s ping timeout
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db, timeout: 2 * time.Second}
}

// Health pings the database and reports pool usage when it is up
// @Router /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.db.HealthCheck(ctx); err != nil {
		pkghttp.WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy", Database: "down"})
		return
	}
	stats := h.db.Stats()
	pkghttp.WriteJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Database: "up", Pool: &stats})
}
