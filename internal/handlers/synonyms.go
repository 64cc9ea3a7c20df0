package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"synonyms-api/internal/cache"
	"synonyms-api/internal/common/logging"
	"synonyms-api/internal/models"
	"synonyms-api/internal/storage"
)

// HandleSynonyms serves the one protected resource. With a search term it
// consults the cache, then the word point-lookup, then the
// synonym-membership lookup. Without a term it serves a random record and
// skips the cache entirely, since that path is non-deterministic per call.
func (h *Handlers) HandleSynonyms(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	term := cache.NormalizeTerm(r.URL.Query().Get("search"))

	if term != "" && h.cache != nil {
		if payload, ok := h.cache.Get(r.Context(), term); ok {
			if flagged, err := markFromCache(payload); err == nil {
				logging.Info("search served from cache",
					logging.Field{Key: "searched", Value: term},
				)
				h.writeRaw(w, http.StatusOK, flagged)
				return
			}
			// A corrupt entry is treated as a miss; overwrite on repopulate.
			_ = h.cache.Delete(r.Context(), term)
		}
	}

	var (
		word *storage.Word
		err  error
	)
	if term == "" {
		word, err = h.store.RandomWord(r.Context())
		if err == nil && word == nil {
			meta := models.NewMeta("", id.Keyed)
			h.writeJSON(w, http.StatusNotFound, models.ErrorResponse{
				Error:   "No data in database",
				Message: "No words in the database.",
				Meta:    &meta,
			})
			return
		}
	} else {
		word, err = h.store.FindWord(r.Context(), term)
		if err == nil && word == nil {
			word, err = h.store.FindBySynonym(r.Context(), term)
		}
	}

	if err != nil {
		// The request produced no answer through no fault of the caller,
		// so its quota charge is compensated.
		h.ledger.Forgive(r.Context(), id)
		logging.Error("word lookup failed", err,
			logging.Field{Key: "searched", Value: searchedLabel(term)},
		)
		h.writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Internal server error",
			Message: "A server error occurred.",
		})
		return
	}

	if word == nil {
		meta := models.NewMeta(term, id.Keyed)
		h.writeJSON(w, http.StatusNotFound, models.ErrorResponse{
			Error:   "No result found",
			Message: fmt.Sprintf("Search: %q matched nothing in words or synonyms.", searchedLabel(term)),
			Meta:    &meta,
		})
		return
	}

	data, foundIn := swapForSynonym(word, term)
	meta := models.NewMeta(term, id.Keyed)
	meta.FoundIn = foundIn

	payload, err := json.Marshal(models.SuccessResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
	if err != nil {
		h.writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Internal server error",
			Message: "A server error occurred.",
		})
		return
	}

	h.writeRaw(w, http.StatusOK, payload)

	logging.Info("search completed",
		logging.Field{Key: "searched", Value: searchedLabel(term)},
		logging.Field{Key: "found_in", Value: foundIn},
		logging.Field{Key: "word", Value: data.Word},
		logging.Field{Key: "api_key_used", Value: id.Keyed},
	)

	// Best-effort population after the response is already out; a cache
	// write failure cannot alter the 200 the caller received.
	if term != "" && h.cache != nil {
		if err := h.cache.Set(r.Context(), term, payload, h.config.CacheTTL); err != nil {
			logging.Warn("failed to populate response cache",
				logging.Field{Key: "searched", Value: term},
				logging.Err(err),
			)
		}
	}
}

// swapForSynonym applies the synonym-swap rule: when the searched term was
// found inside another record's synonym list, the term becomes the primary
// word and the record's original word moves to the front of the synonyms.
func swapForSynonym(word *storage.Word, term string) (models.WordData, string) {
	data := models.WordData{
		Word:     word.Word,
		Synonyms: word.Synonyms,
		Antonyms: word.Antonyms,
	}

	if term == "" || term == word.Word || !contains(word.Synonyms, term) {
		return data, "word"
	}

	synonyms := make([]string, 0, len(word.Synonyms))
	for _, s := range word.Synonyms {
		if s != term {
			synonyms = append(synonyms, s)
		}
	}
	if !contains(synonyms, word.Word) {
		synonyms = append([]string{word.Word}, synonyms...)
	}

	data.Word = term
	data.Synonyms = synonyms
	return data, "synonyms"
}

func markFromCache(payload []byte) ([]byte, error) {
	var resp models.SuccessResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, err
	}
	resp.Meta.FromCache = true
	return json.Marshal(resp)
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func searchedLabel(term string) string {
	if term == "" {
		return "random"
	}
	return term
}
