// Package storage defines the relational store contracts for the synonyms
// API: a keyed point-lookup for words, a count+offset random pick, and the
// active API-key lookup used for authentication.
package storage

import (
	"context"
	"strings"
)

// Word is one dictionary record. Synonym and antonym lists are lowercased
// and trimmed by the adapters before they leave the storage layer.
type Word struct {
	ID       int64    `json:"id"`
	Word     string   `json:"word"`
	Synonyms []string `json:"synonyms"`
	Antonyms []string `json:"antonyms"`
}

// APIKey is one credential record. The service only reads these; issuing
// and deactivating keys happens out of band.
type APIKey struct {
	ID          int64  `json:"id"`
	Key         string `json:"-"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
}

// Store is the relational store contract. Lookup methods return (nil, nil)
// when no matching row exists; an error always means the store itself
// failed.
type Store interface {
	// FindWord looks up a record whose primary word matches the
	// normalized term exactly.
	FindWord(ctx context.Context, term string) (*Word, error)

	// FindBySynonym looks up a record whose synonym list contains the
	// normalized term.
	FindBySynonym(ctx context.Context, term string) (*Word, error)

	// CountWords reports the dataset size, used for the random pick.
	CountWords(ctx context.Context) (int64, error)

	// RandomWord returns one uniformly picked record, or (nil, nil) for an
	// empty dataset.
	RandomWord(ctx context.Context) (*Word, error)

	// GetAPIKey looks up an active credential by exact secret match.
	GetAPIKey(ctx context.Context, secret string) (*APIKey, error)

	Close() error
}

// NormalizeList lowercases and trims every entry, dropping empties.
func NormalizeList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
