package handlers

import (
	"context"
	"net/http"
	"time"

	"viralcut/internal/httpkit"
)

const healthCheckTimeout = 5 * time.Second

// Health reports liveness. With ?deep=true every configured dependency is
// checked and the status drops to "degraded" when one fails.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	health := map[string]any{
		"status":  "ok",
		"service": "viralcut-api",
	}

	if r.URL.Query().Get("deep") == "true" {
		checks, ok := h.deepHealthCheck(ctx)
		health["checks"] = checks
		if !ok {
			health["status"] = "degraded"
			h.log.FromContext(ctx).Warn("health check degraded", "checks", checks)
		}
	}

	httpkit.WriteJSON(w, http.StatusOK, health)
}

func (h *Handler) deepHealthCheck(ctx context.Context) (map[string]any, bool) {
	checks := make(map[string]any, len(h.checks)+1)
	ok := true

	for _, c := range h.checks {
		res := runCheck(ctx, c)
		if res["status"] != "ok" {
			ok = false
		}
		checks[c.Name] = res
	}

	if h.clips != nil {
		checks["storage"] = map[string]any{
			"status":   "ok",
			"provider": h.clips.Provider(),
		}
	}
	return checks, ok
}

func runCheck(ctx context.Context, c Check) map[string]any {
	start := time.Now()
	result := map[string]any{"status": "ok"}

	checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := c.Fn(checkCtx); err != nil {
		result["status"] = "error"
		result["error"] = err.Error()
	}
	result["latency_ms"] = time.Since(start).Milliseconds()
	return result
}
