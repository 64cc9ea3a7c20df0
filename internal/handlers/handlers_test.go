package handlers

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synonyms-api/internal/cache"
	"synonyms-api/internal/config"
	"synonyms-api/internal/models"
	"synonyms-api/internal/quota"
	"synonyms-api/internal/storage"
)

// stubStore is an in-memory storage.Store with fault injection.
type stubStore struct {
	words   []*storage.Word
	keys    map[string]*storage.APIKey
	findErr error
	keyErr  error
}

func (s *stubStore) FindWord(_ context.Context, term string) (*storage.Word, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, w := range s.words {
		if w.Word == term {
			return w, nil
		}
	}
	return nil, nil
}

func (s *stubStore) FindBySynonym(_ context.Context, term string) (*storage.Word, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, w := range s.words {
		for _, syn := range w.Synonyms {
			if syn == term {
				return w, nil
			}
		}
	}
	return nil, nil
}

func (s *stubStore) CountWords(context.Context) (int64, error) {
	if s.findErr != nil {
		return 0, s.findErr
	}
	return int64(len(s.words)), nil
}

func (s *stubStore) RandomWord(context.Context) (*storage.Word, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if len(s.words) == 0 {
		return nil, nil
	}
	return s.words[0], nil
}

func (s *stubStore) GetAPIKey(_ context.Context, secret string) (*storage.APIKey, error) {
	if s.keyErr != nil {
		return nil, s.keyErr
	}
	if k, ok := s.keys[secret]; ok && k.IsActive {
		return k, nil
	}
	return nil, nil
}

func (s *stubStore) Close() error { return nil }

// failingCache rejects every write and misses every read.
type failingCache struct{}

func (failingCache) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (failingCache) Set(context.Context, string, []byte, time.Duration) error {
	return fmt.Errorf("connection refused")
}
func (failingCache) Delete(context.Context, string) error { return fmt.Errorf("connection refused") }

func defaultStore() *stubStore {
	return &stubStore{
		words: []*storage.Word{
			{ID: 1, Word: "fast", Synonyms: []string{"quick", "rapid"}, Antonyms: []string{"slow"}},
			{ID: 2, Word: "happy", Synonyms: []string{"glad", "joyful"}, Antonyms: []string{"sad"}},
		},
		keys: map[string]*storage.APIKey{
			"valid-key": {ID: 7, Key: "valid-key", Description: "test key", IsActive: true},
		},
	}
}

func newTestHandlers(store storage.Store, responseCache cache.Cache, max int) *Handlers {
	cfg := &config.Config{
		RateLimitEnabled: true,
		RateLimitMax:     max,
		RateLimitWindow:  time.Minute,
		CacheTTL:         time.Hour,
	}
	ledger := quota.NewLedger(quota.Config{Enabled: true, Max: max, Window: time.Minute}, nil)
	return New(store, responseCache, ledger, nil, cfg, embed.FS{})
}

// pipeline builds the chain the router wires for /api/synonyms.
func pipeline(h *Handlers) http.Handler {
	return h.ValidateAPIKey(h.RateLimit(http.HandlerFunc(h.HandleSynonyms)))
}

func doRequest(handler http.Handler, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) models.ErrorResponse {
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func decodeSuccess(t *testing.T, rec *httptest.ResponseRecorder) models.SuccessResponse {
	var resp models.SuccessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestPipeline_MultipleQueryKeysRejected(t *testing.T) {
	h := newTestHandlers(defaultStore(), nil, 10)

	rec := doRequest(pipeline(h), "/api/synonyms?search=fast&key=a&key=b", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "Multiple keys not allowed", resp.Error)
}

func TestPipeline_ConflictingKeySourcesRejected(t *testing.T) {
	h := newTestHandlers(defaultStore(), nil, 10)

	// Rejected even when both carry the same valid key.
	rec := doRequest(pipeline(h), "/api/synonyms?search=fast&key=valid-key",
		map[string]string{"Authorization": "Bearer valid-key"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Conflicting API keys", decodeError(t, rec).Error)
}

func TestPipeline_InvalidKeyRejected(t *testing.T) {
	h := newTestHandlers(defaultStore(), nil, 10)

	for _, target := range []string{
		"/api/synonyms?search=fast&key=wrong",
	} {
		rec := doRequest(pipeline(h), target, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid or inactive API key", decodeError(t, rec).Error)
	}

	rec := doRequest(pipeline(h), "/api/synonyms?search=fast",
		map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPipeline_InactiveKeyRejected(t *testing.T) {
	store := defaultStore()
	store.keys["revoked"] = &storage.APIKey{ID: 8, Key: "revoked", IsActive: false}
	h := newTestHandlers(store, nil, 10)

	rec := doRequest(pipeline(h), "/api/synonyms?search=fast&key=revoked", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPipeline_KeyLookupFailureIs500(t *testing.T) {
	store := defaultStore()
	store.keyErr = fmt.Errorf("connection refused")
	h := newTestHandlers(store, nil, 10)

	rec := doRequest(pipeline(h), "/api/synonyms?search=fast&key=valid-key", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Server error", decodeError(t, rec).Error)
}

func TestPipeline_ValidKeyGetsUnlimitedAccess(t *testing.T) {
	h := newTestHandlers(defaultStore(), nil, 1)
	chain := pipeline(h)

	for i := 0; i < 10; i++ {
		rec := doRequest(chain, "/api/synonyms?search=fast&key=valid-key", nil)
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)

		resp := decodeSuccess(t, rec)
		assert.True(t, resp.Meta.APIKeyUsed)
		assert.Equal(t, "Unlimited access provided with API key.", resp.Meta.Note)
	}
}

func TestPipeline_HeaderKeyGetsUnlimitedAccess(t *testing.T) {
	h := newTestHandlers(defaultStore(), nil, 1)
	chain := pipeline(h)

	for i := 0; i < 10; i++ {
		rec := doRequest(chain, "/api/synonyms?search=fast",
			map[string]string{"Authorization": "Bearer valid-key"})
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestPipeline_RateLimitHeaders(t *testing.T) {
	h := newTestHandlers(defaultStore(), nil, 5)
	chain := pipeline(h)

	rec := doRequest(chain, "/api/synonyms?search=fast", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))

	rec = doRequest(chain, "/api/synonyms?search=fast", nil)
	assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestPipeline_QuotaExceeded(t *testing.T) {
	h := newTestHandlers(defaultStore(), nil, 2)
	chain := pipeline(h)

	for i := 0; i < 2; i++ {
		rec := doRequest(chain, "/api/synonyms?search=fast", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doRequest(chain, "/api/synonyms?search=fast", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	resp := decodeError(t, rec)
	assert.Equal(t, "Daily limit exceeded", resp.Error)
	assert.Equal(t, 2, resp.Limit)
	assert.Equal(t, int64(60), resp.RetryAfter)
	assert.Equal(t, "You can get unlimited access by obtaining an API key.", resp.Suggestion)

	reset, err := time.Parse(time.RFC3339, resp.ResetTime)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), reset, 2*time.Second)
}

func TestPipeline_ProxiedCallersHaveSeparateQuotas(t *testing.T) {
	h := newTestHandlers(defaultStore(), nil, 1)
	chain := pipeline(h)

	// Both requests arrive through the same reverse proxy socket; only
	// the forwarded client address may feed the quota bucket.
	first := doRequest(chain, "/api/synonyms?search=fast",
		map[string]string{"X-Forwarded-For": "203.0.113.9"})
	require.Equal(t, http.StatusOK, first.Code)

	second := doRequest(chain, "/api/synonyms?search=fast",
		map[string]string{"X-Forwarded-For": "198.51.100.7"})
	assert.Equal(t, http.StatusOK, second.Code)

	exhausted := doRequest(chain, "/api/synonyms?search=fast",
		map[string]string{"X-Forwarded-For": "203.0.113.9"})
	assert.Equal(t, http.StatusTooManyRequests, exhausted.Code)
}

func TestPipeline_BasicAuthPlusQueryKeyRejected(t *testing.T) {
	h := newTestHandlers(defaultStore(), nil, 10)

	rec := doRequest(pipeline(h), "/api/synonyms?search=fast&key=valid-key",
		map[string]string{"Authorization": "Basic dXNlcjpwYXNz"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Conflicting API keys", decodeError(t, rec).Error)
}

func TestHandleSynonyms_WordLookup(t *testing.T) {
	h := newTestHandlers(defaultStore(), nil, 10)

	rec := doRequest(pipeline(h), "/api/synonyms?search=fast", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	resp := decodeSuccess(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "fast", resp.Data.Word)
	assert.Equal(t, []string{"quick", "rapid"}, resp.Data.Synonyms)
	assert.Equal(t, []string{"slow"}, resp.Data.Antonyms)
	assert.Equal(t, "word", resp.Meta.FoundIn)
	require.NotNil(t, resp.Meta.Searched)
	assert.Equal(t, "fast", *resp.Meta.Searched)
	assert.Equal(t, models.PoweredBy, resp.Meta.PoweredBy)
	assert.False(t, resp.Meta.APIKeyUsed)
	assert.False(t, resp.Meta.FromCache)
}

func TestHandleSynonyms_SearchIsNormalized(t *testing.T) {
	h := newTestHandlers(defaultStore(), nil, 10)

	rec := doRequest(pipeline(h), "/api/synonyms?search=%20FAST%20", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeSuccess(t, rec)
	assert.Equal(t, "fast", resp.Data.Word)
	assert.Equal(t, "fast", *resp.Meta.Searched)
}

func TestHandleSynonyms_SynonymSwap(t *testing.T) {
	h := newTestHandlers(defaultStore(), nil, 10)

	rec := doRequest(pipeline(h), "/api/synonyms?search=quick", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeSuccess(t, rec)
	assert.Equal(t, "quick", resp.Data.Word)
	assert.Equal(t, []string{"fast", "rapid"}, resp.Data.Synonyms)
	assert.Equal(t, []string{"slow"}, resp.Data.Antonyms)
	assert.Equal(t, "synonyms", resp.Meta.FoundIn)
}

func TestHandleSynonyms_NotFound(t *testing.T) {
	h := newTestHandlers(defaultStore(), nil, 10)

	rec := doRequest(pipeline(h), "/api/synonyms?search=nonexistent", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeError(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "No result found", resp.Error)
	require.NotNil(t, resp.Meta)
	require.NotNil(t, resp.Meta.Searched)
	assert.Equal(t, "nonexistent", *resp.Meta.Searched)
}

func TestHandleSynonyms_RandomWord(t *testing.T) {
	h := newTestHandlers(defaultStore(), nil, 10)

	rec := doRequest(pipeline(h), "/api/synonyms", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeSuccess(t, rec)
	assert.NotEmpty(t, resp.Data.Word)
	assert.Nil(t, resp.Meta.Searched)
	assert.Equal(t, "word", resp.Meta.FoundIn)
}

func TestHandleSynonyms_EmptyDataset(t *testing.T) {
	h := newTestHandlers(&stubStore{}, nil, 10)

	rec := doRequest(pipeline(h), "/api/synonyms", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "No data in database", resp.Error)
	require.NotNil(t, resp.Meta)
	assert.Nil(t, resp.Meta.Searched)
}

func TestHandleSynonyms_CacheHit(t *testing.T) {
	localCache := cache.NewLocalCache(time.Hour, time.Minute)
	h := newTestHandlers(defaultStore(), localCache, 10)
	chain := pipeline(h)

	first := doRequest(chain, "/api/synonyms?search=fast", nil)
	require.Equal(t, http.StatusOK, first.Code)
	assert.False(t, decodeSuccess(t, first).Meta.FromCache)

	second := doRequest(chain, "/api/synonyms?search=fast", nil)
	require.Equal(t, http.StatusOK, second.Code)

	firstResp := decodeSuccess(t, first)
	secondResp := decodeSuccess(t, second)
	assert.True(t, secondResp.Meta.FromCache)

	// Apart from the cache flag the cached answer is identical.
	secondResp.Meta.FromCache = false
	assert.Equal(t, firstResp, secondResp)
}

func TestHandleSynonyms_CacheHitSkipsStore(t *testing.T) {
	localCache := cache.NewLocalCache(time.Hour, time.Minute)
	store := defaultStore()
	h := newTestHandlers(store, localCache, 10)
	chain := pipeline(h)

	rec := doRequest(chain, "/api/synonyms?search=fast", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// The store can now fail without affecting the cached term.
	store.findErr = fmt.Errorf("connection refused")
	rec = doRequest(chain, "/api/synonyms?search=fast", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeSuccess(t, rec).Meta.FromCache)
}

func TestHandleSynonyms_CorruptCacheEntryIsMiss(t *testing.T) {
	localCache := cache.NewLocalCache(time.Hour, time.Minute)
	require.NoError(t, localCache.Set(context.Background(), "fast", []byte("not json"), time.Hour))

	h := newTestHandlers(defaultStore(), localCache, 10)

	rec := doRequest(pipeline(h), "/api/synonyms?search=fast", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeSuccess(t, rec)
	assert.Equal(t, "fast", resp.Data.Word)
	assert.False(t, resp.Meta.FromCache)
}

func TestHandleSynonyms_CacheWriteFailureStillServes(t *testing.T) {
	h := newTestHandlers(defaultStore(), failingCache{}, 10)

	rec := doRequest(pipeline(h), "/api/synonyms?search=fast", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fast", decodeSuccess(t, rec).Data.Word)
}

func TestHandleSynonyms_StoreFailureForgivesQuota(t *testing.T) {
	store := defaultStore()
	store.findErr = fmt.Errorf("connection refused")
	h := newTestHandlers(store, nil, 1)
	chain := pipeline(h)

	rec := doRequest(chain, "/api/synonyms?search=fast", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "Internal server error", resp.Error)
	assert.NotContains(t, resp.Message, "connection refused")

	// The failed request was not charged, so the single budget slot is
	// still available.
	store.findErr = nil
	rec = doRequest(chain, "/api/synonyms?search=fast", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSwapForSynonym(t *testing.T) {
	word := &storage.Word{Word: "fast", Synonyms: []string{"quick", "rapid"}, Antonyms: []string{"slow"}}

	t.Run("direct match keeps record as-is", func(t *testing.T) {
		data, foundIn := swapForSynonym(word, "fast")
		assert.Equal(t, "word", foundIn)
		assert.Equal(t, "fast", data.Word)
		assert.Equal(t, []string{"quick", "rapid"}, data.Synonyms)
	})

	t.Run("synonym match promotes the term", func(t *testing.T) {
		data, foundIn := swapForSynonym(word, "rapid")
		assert.Equal(t, "synonyms", foundIn)
		assert.Equal(t, "rapid", data.Word)
		assert.Equal(t, []string{"fast", "quick"}, data.Synonyms)
		assert.Equal(t, []string{"slow"}, data.Antonyms)
	})

	t.Run("original word is not duplicated", func(t *testing.T) {
		w := &storage.Word{Word: "fast", Synonyms: []string{"quick", "fast"}}
		data, _ := swapForSynonym(w, "quick")
		assert.Equal(t, []string{"fast"}, data.Synonyms)
	})
}

func TestHandleOptions(t *testing.T) {
	h := newTestHandlers(defaultStore(), nil, 10)

	req := httptest.NewRequest(http.MethodOptions, "/api/synonyms", nil)
	rec := httptest.NewRecorder()
	h.HandleOptions(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestHandleAPIInfo(t *testing.T) {
	h := newTestHandlers(defaultStore(), nil, 10)

	rec := doRequest(http.HandlerFunc(h.HandleAPIInfo), "/api", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var info models.APIInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, models.PoweredBy, info.API)
	assert.Equal(t, "/api/synonyms", info.Endpoint)
	assert.Contains(t, info.RateLimit, "10 requests")
}

func TestHandleHealth(t *testing.T) {
	h := newTestHandlers(defaultStore(), nil, 10)

	rec := doRequest(http.HandlerFunc(h.HandleHealth), "/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var status models.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "ok", status.Components["database"])
}

func TestHandleHealth_DegradedDatabase(t *testing.T) {
	store := defaultStore()
	store.findErr = fmt.Errorf("connection refused")
	h := newTestHandlers(store, nil, 10)

	rec := doRequest(http.HandlerFunc(h.HandleHealth), "/health", nil)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var status models.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "degraded", status.Status)
}

type failingChecker struct{}

func (failingChecker) Health() error { return fmt.Errorf("connection refused") }

func TestHandleHealth_DegradedRedis(t *testing.T) {
	cfg := &config.Config{RateLimitMax: 10, RateLimitWindow: time.Minute, CacheTTL: time.Hour}
	ledger := quota.NewLedger(quota.DefaultConfig(), nil)
	h := New(defaultStore(), nil, ledger, failingChecker{}, cfg, embed.FS{})

	rec := doRequest(http.HandlerFunc(h.HandleHealth), "/health", nil)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var status models.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "degraded", status.Status)
	assert.Equal(t, "ok", status.Components["database"])
	assert.NotEqual(t, "ok", status.Components["redis"])
}
