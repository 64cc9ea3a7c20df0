// Package models defines the response envelopes served by the API. The
// envelope shapes are validated here, at the serialization boundary, so
// handlers never emit loosely-shaped payloads.
package models

import (
	"time"
)

// PoweredBy is the service signature included in every response meta.
const PoweredBy = "Synonyms API"

// WordData is the payload of a successful lookup.
type WordData struct {
	Word     string   `json:"word"`
	Synonyms []string `json:"synonyms"`
	Antonyms []string `json:"antonyms"`
}

// Meta carries response metadata. Searched is null for the random-pick
// path; FromCache is only present when a cached entry was served.
type Meta struct {
	Searched   *string `json:"searched"`
	FoundIn    string  `json:"found_in,omitempty"`
	Timestamp  string  `json:"timestamp"`
	PoweredBy  string  `json:"powered_by"`
	APIKeyUsed bool    `json:"api_key_used"`
	FromCache  bool    `json:"from_cache,omitempty"`
	Note       string  `json:"note,omitempty"`
}

// NewMeta builds response metadata for one request.
func NewMeta(searched string, apiKeyUsed bool) Meta {
	m := Meta{
		Timestamp:  time.Now().Format(time.RFC3339),
		PoweredBy:  PoweredBy,
		APIKeyUsed: apiKeyUsed,
	}
	if searched != "" {
		m.Searched = &searched
	}
	if apiKeyUsed {
		m.Note = "Unlimited access provided with API key."
	}
	return m
}

// SuccessResponse is the success envelope.
type SuccessResponse struct {
	Success bool     `json:"success"`
	Data    WordData `json:"data"`
	Meta    Meta     `json:"meta"`
}

// ErrorResponse is the error envelope. The quota fields are only set on
// 429 responses.
type ErrorResponse struct {
	Success    bool   `json:"success"`
	Error      string `json:"error"`
	Message    string `json:"message,omitempty"`
	Meta       *Meta  `json:"meta,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	ResetTime  string `json:"resetTime,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	RetryAfter int64  `json:"retryAfter,omitempty"`
}

// APIInfo is the self-description document served at /api.
type APIInfo struct {
	API           string   `json:"api"`
	Version       string   `json:"version"`
	Endpoint      string   `json:"endpoint"`
	Examples      []string `json:"examples"`
	RateLimit     string   `json:"rate_limit"`
	Unlimited     string   `json:"unlimited"`
	Documentation string   `json:"documentation"`
}

// HealthStatus is the component health document served at /health.
type HealthStatus struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
	Timestamp  string            `json:"timestamp"`
}
