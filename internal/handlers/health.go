package handlers

import (
	"net/http"
	"time"

	"github.com/bobmcallan/mgnrega-portal/internal/common"
)

// HealthHandler reports liveness along with the configured data source.
type HealthHandler struct {
	logger  *common.Logger
	source  string
	started time.Time
}

// NewHealthHandler creates a health handler for the named data source.
func NewHealthHandler(logger *common.Logger, source string) *HealthHandler {
	return &HealthHandler{logger: logger, source: source, started: time.Now()}
}

// ServeHTTP handles GET /api/health.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"source": h.source,
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}
