package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/kozaktomas/fotofindr/internal/database"
	"github.com/kozaktomas/fotofindr/internal/query"
	"github.com/kozaktomas/fotofindr/internal/search"
)

// unrankedFallback lists the owner's photos without similarity scores.
// Only photos that finished processing would carry embeddings, so this
// covers a library that is still being enriched.
func (h *Handlers) unrankedFallback(r *http.Request, userID string, limit int) ([]database.ScoredPhoto, error) {
	records, err := h.photos.ListByOwner(r.Context(), userID)
	if err != nil {
		return nil, err
	}
	if len(records) > limit {
		records = records[:limit]
	}
	out := make([]database.ScoredPhoto, 0, len(records))
	for _, rec := range records {
		out = append(out, database.ScoredPhoto{PhotoRecord: rec})
	}
	return out, nil
}

type searchRequest struct {
	Query   string `json:"query"`
	UserID  string `json:"user_id"`
	Limit   int    `json:"limit"`
	Filters *struct {
		PersonID        string   `json:"person_id"`
		Objects         []string `json:"objects"`
		Emotion         string   `json:"emotion"`
		ExcludeLowValue bool     `json:"exclude_low_value"`
	} `json:"filters"`
}

// Search embeds the free-text query, derives filters from it and ranks
// the owner's photos by cosine similarity. Explicit filters in the
// request body override the ones parsed from the query text.
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.UserID == "" {
		req.UserID = ownerID(r)
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.Limit <= 0 {
		req.Limit = search.DefaultLimit
	}

	var filter database.SearchFilter
	if req.Filters != nil {
		filter = database.SearchFilter{
			PersonID:        req.Filters.PersonID,
			Objects:         req.Filters.Objects,
			Emotion:         req.Filters.Emotion,
			ExcludeLowValue: req.Filters.ExcludeLowValue,
		}
	} else {
		profiles, err := h.profiles.ListProfiles(r.Context(), req.UserID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to load people")
			return
		}
		filter = query.ParseFilters(req.Query, profiles)
	}

	embedding, err := h.embedder.EmbedText(r.Context(), req.Query)
	if err != nil {
		respondError(w, http.StatusBadGateway, "failed to embed query")
		return
	}

	photos, err := h.engine.Search(r.Context(), req.UserID, embedding, filter, req.Limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "search failed")
		return
	}

	// Nothing embedded yet (library still processing): fall back to an
	// unranked listing so the user sees their photos instead of a blank page.
	if len(photos) == 0 {
		embedded, err := h.photos.QueryByOwnerWithEmbedding(r.Context(), req.UserID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "search failed")
			return
		}
		if len(embedded) == 0 {
			photos, err = h.unrankedFallback(r, req.UserID, req.Limit)
			if err != nil {
				respondError(w, http.StatusInternalServerError, "search failed")
				return
			}
		}
	}

	if photos == nil {
		photos = []database.ScoredPhoto{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"photos": photos,
		"total":  len(photos),
		"filters": map[string]any{
			"person_id":         filter.PersonID,
			"objects":           filter.Objects,
			"emotion":           filter.Emotion,
			"exclude_low_value": filter.ExcludeLowValue,
		},
	})
}
