// Package handlers implements the HTTP request pipeline: identity
// resolution, quota enforcement, cache consultation, the lookup itself and
// response serialization.
package handlers

import (
	"context"
	"embed"
	"encoding/json"
	"net/http"

	"synonyms-api/internal/cache"
	"synonyms-api/internal/common/logging"
	"synonyms-api/internal/config"
	"synonyms-api/internal/identity"
	"synonyms-api/internal/quota"
	"synonyms-api/internal/storage"
)

type ctxKey int

const identityKey ctxKey = iota

// Handlers composes the pipeline's collaborators. All of them are
// constructed once at startup and injected; none are ambient singletons.
type Handlers struct {
	store   storage.Store
	cache   cache.Cache
	ledger  *quota.Ledger
	checker HealthChecker
	config  *config.Config
	webFS   embed.FS
}

// HealthChecker reports the health of an optional shared backend.
type HealthChecker interface {
	Health() error
}

func New(store storage.Store, responseCache cache.Cache, ledger *quota.Ledger, checker HealthChecker, cfg *config.Config, webFS embed.FS) *Handlers {
	return &Handlers{
		store:   store,
		cache:   responseCache,
		ledger:  ledger,
		checker: checker,
		config:  cfg,
		webFS:   webFS,
	}
}

func withIdentity(ctx context.Context, id identity.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func identityFrom(ctx context.Context) identity.Identity {
	if id, ok := ctx.Value(identityKey).(identity.Identity); ok {
		return id
	}
	return identity.NewAnonymous("unknown")
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode response", err)
	}
}

// writeRaw serves an already-serialized envelope (the cache-hit path).
func (h *Handlers) writeRaw(w http.ResponseWriter, status int, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		logging.Error("failed to write response", err)
	}
}
