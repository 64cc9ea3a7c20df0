package handlers

import (
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"synonyms-api/internal/models"
)

// HandleOptions answers CORS preflight for the search endpoint.
func (h *Handlers) HandleOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
	w.WriteHeader(http.StatusOK)
}

// HandleAPIInfo serves the self-description document.
func (h *Handlers) HandleAPIInfo(w http.ResponseWriter, r *http.Request) {
	info := models.APIInfo{
		API:      models.PoweredBy,
		Version:  "1.0",
		Endpoint: "/api/synonyms",
		Examples: []string{
			"GET /api/synonyms",
			"GET /api/synonyms?search=fast",
			"GET /api/synonyms?search=quick&key=YOUR_KEY",
		},
		RateLimit:     rateLimitSummary(h.config.RateLimitMax, h.config.RateLimitWindow),
		Unlimited:     "Use ?key=... or an Authorization bearer token",
		Documentation: "/",
	}
	h.writeJSON(w, http.StatusOK, info)
}

func rateLimitSummary(max int, window time.Duration) string {
	return fmt.Sprintf("%d requests per %s without a key", max, window)
}

// HandleHealth reports component health: the relational store always, the
// shared Redis backend when one is configured.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := models.HealthStatus{
		Status:     "ok",
		Components: map[string]string{},
		Timestamp:  time.Now().Format(time.RFC3339),
	}

	if _, err := h.store.CountWords(r.Context()); err != nil {
		status.Status = "degraded"
		status.Components["database"] = err.Error()
	} else {
		status.Components["database"] = "ok"
	}

	if h.checker != nil {
		if err := h.checker.Health(); err != nil {
			status.Status = "degraded"
			status.Components["redis"] = err.Error()
		} else {
			status.Components["redis"] = "ok"
		}
	}

	code := http.StatusOK
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	h.writeJSON(w, code, status)
}

// ServeFrontend serves the embedded front-end bundle.
func (h *Handlers) ServeFrontend() http.Handler {
	sub, err := fs.Sub(h.webFS, "web/static")
	if err != nil {
		return http.NotFoundHandler()
	}
	return http.FileServer(http.FS(sub))
}
