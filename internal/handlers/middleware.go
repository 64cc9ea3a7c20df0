package handlers

import (
	"fmt"
	"net/http"
	"time"

	"synonyms-api/internal/common/logging"
	"synonyms-api/internal/identity"
	"synonyms-api/internal/models"
)

// ValidateAPIKey resolves the caller identity before anything else runs.
// Malformed or conflicting credentials are rejected here with 400; an
// invalid key is a hard 401 and never falls through to the anonymous
// path. A validated key upgrades the identity and strips the query
// credential so it cannot leak downstream.
func (h *Handlers) ValidateAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, source, err := identity.ExtractKey(r)
		if err != nil {
			if err == identity.ErrMultipleKeys {
				h.writeJSON(w, http.StatusBadRequest, models.ErrorResponse{
					Error:   "Multiple keys not allowed",
					Message: "Only one API key can be provided in the query parameters.",
				})
				return
			}
			h.writeJSON(w, http.StatusBadRequest, models.ErrorResponse{
				Error:   "Conflicting API keys",
				Message: "Do not send API key in both Authorization header and query parameter.",
			})
			return
		}

		if key == "" {
			id := identity.NewAnonymous(identity.ClientIP(r))
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
			return
		}

		record, err := h.store.GetAPIKey(r.Context(), key)
		if err != nil {
			logging.Error("api key validation failed", err)
			h.writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{
				Error:   "Server error",
				Message: "API key could not be validated due to a server error.",
			})
			return
		}
		if record == nil {
			h.writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{
				Error:   "Invalid or inactive API key",
				Message: "The provided API key is not valid or has been deactivated.",
			})
			return
		}

		if source == identity.SourceQuery {
			identity.StripQueryKey(r)
		}

		id := identity.NewKeyed(record.ID, record.Description)
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
	})
}

// RateLimit enforces the fixed-window quota for identities without a
// validated key. Keyed callers bypass the ledger entirely.
func (h *Handlers) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := identityFrom(r.Context())
		if id.Keyed {
			next.ServeHTTP(w, r)
			return
		}

		decision := h.ledger.Admit(r.Context(), id)
		if decision.Allowed {
			if decision.Limit > 0 {
				w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", decision.Limit))
				remaining := int64(decision.Limit) - decision.Count
				if remaining < 0 {
					remaining = 0
				}
				w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
			}
			next.ServeHTTP(w, r)
			return
		}

		retryAfter := int64(decision.RetryAfter / time.Second)
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", decision.Limit))
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))

		h.writeJSON(w, http.StatusTooManyRequests, models.ErrorResponse{
			Error:      "Daily limit exceeded",
			Message:    fmt.Sprintf("Your limit of %d requests for this IP has been reached.", decision.Limit),
			Limit:      decision.Limit,
			ResetTime:  decision.ResetTime.Format(time.RFC3339),
			Suggestion: "You can get unlimited access by obtaining an API key.",
			RetryAfter: retryAfter,
		})
	})
}
