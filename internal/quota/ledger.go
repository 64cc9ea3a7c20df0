package quota

import (
	"context"
	"time"

	"synonyms-api/internal/common/logging"
	"synonyms-api/internal/identity"
)

// Decision is the ledger's verdict for one request.
type Decision struct {
	Allowed    bool
	Count      int64
	Limit      int
	RetryAfter time.Duration
	ResetTime  time.Time
}

// Ledger tracks per-identity request budgets over a rolling fixed window.
// It is called only for identities that did not resolve to an active key.
type Ledger struct {
	config   Config
	store    Store
	fallback *MemoryStore
}

// NewLedger creates a quota ledger on top of the given store. A nil store
// means no shared backend is configured and the in-process store is
// authoritative from the start.
func NewLedger(config Config, store Store) *Ledger {
	fallback := NewMemoryStore()
	if store == nil {
		store = fallback
	}
	return &Ledger{
		config:   config,
		store:    store,
		fallback: fallback,
	}
}

// Admit counts the request against the identity's window and decides
// whether it fits the budget. Keyed identities always pass without being
// counted. A failing shared backend never rejects the request: the count
// falls back to the in-process store for that call.
func (l *Ledger) Admit(ctx context.Context, id identity.Identity) Decision {
	if !l.config.Enabled || id.Keyed {
		return Decision{Allowed: true, Limit: l.config.Max}
	}

	key := id.LedgerKey()
	count, err := l.store.Increment(ctx, key, l.config.Window)
	if err != nil {
		logging.Warn("quota backend unavailable, using in-process counters",
			logging.Field{Key: "key", Value: key},
			logging.Err(err),
		)
		count, err = l.fallback.Increment(ctx, key, l.config.Window)
		if err != nil {
			// The in-process store cannot fail this way, but admit rather
			// than reject if it ever does.
			return Decision{Allowed: true, Limit: l.config.Max}
		}
	}

	decision := Decision{
		Allowed:    count <= int64(l.config.Max),
		Count:      count,
		Limit:      l.config.Max,
		RetryAfter: l.config.Window,
		ResetTime:  time.Now().Add(l.config.Window),
	}

	if !decision.Allowed {
		logging.Info("quota exceeded",
			logging.Field{Key: "key", Value: key},
			logging.Field{Key: "count", Value: count},
			logging.Field{Key: "limit", Value: l.config.Max},
		)
	}

	return decision
}

// Forgive compensates a counted request whose processing failed in a way
// that should not have consumed budget.
func (l *Ledger) Forgive(ctx context.Context, id identity.Identity) {
	if !l.config.Enabled || id.Keyed {
		return
	}

	key := id.LedgerKey()
	if err := l.store.Decrement(ctx, key); err != nil {
		if ferr := l.fallback.Decrement(ctx, key); ferr != nil {
			logging.Warn("failed to compensate quota counter",
				logging.Field{Key: "key", Value: key},
				logging.Err(err),
			)
		}
	}
}

// Reset deletes the identity's window outright. Administrative/test use.
func (l *Ledger) Reset(ctx context.Context, id identity.Identity) error {
	key := id.LedgerKey()
	if err := l.store.Reset(ctx, key); err != nil {
		return err
	}
	return l.fallback.Reset(ctx, key)
}

// Config exposes the active policy for denial responses.
func (l *Ledger) Policy() Config {
	return l.config
}
