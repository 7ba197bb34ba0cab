package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/bobmcallan/mgnrega-portal/internal/common"
)

// Pinger checks that the upstream API is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// UpstreamHealthHandler reports the health of the MGNREGA API.
type UpstreamHealthHandler struct {
	logger *common.Logger
	pinger Pinger
	source string
}

// NewUpstreamHealthHandler creates a new upstream health handler. source
// is the configured data source; "mock" has no upstream to check.
func NewUpstreamHealthHandler(logger *common.Logger, pinger Pinger, source string) *UpstreamHealthHandler {
	return &UpstreamHealthHandler{logger: logger, pinger: pinger, source: source}
}

// ServeHTTP handles GET /api/upstream-health.
func (h *UpstreamHealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	if h.source == "mock" || h.pinger == nil {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "source": "mock"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.pinger.Ping(ctx); err != nil {
		if h.logger != nil {
			h.logger.Debug().Err(err).Msg("upstream health check failed")
		}
		WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "down", "source": h.source})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "source": h.source})
}
