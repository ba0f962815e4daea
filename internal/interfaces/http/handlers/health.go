package handlers

import (
	"net/http"
	"time"

	httpContracts "github.com/chaindesk/chaindesk/internal/http"
)

var startTime = time.Now()

// Version is stamped at build time via -ldflags
var Version = "dev"

// Health handles GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, httpContracts.HealthResponse{
		Status:    "ok",
		Service:   "chaindesk",
		Version:   Version,
		UptimeSec: int64(time.Since(startTime).Seconds()),
		Timestamp: time.Now().UTC(),
	})
}
