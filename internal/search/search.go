// Package search ranks an owner's photos against a query embedding and
// applies structured metadata filters.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kozaktomas/fotofindr/internal/database"
)

const (
	// DefaultLimit caps results when the caller does not ask for a limit.
	DefaultLimit = 20

	// LowValueCutoff is the importance score below which a photo counts
	// as low value for the exclude_low_value filter.
	LowValueCutoff = 0.4

	// Oversampling factor for the approximate index; exact re-ranking
	// trims the list back down.
	indexOversample = 3
)

// Engine runs vector search over a photo store. An approximate per-owner
// index accelerates large unfiltered queries.
type Engine struct {
	photos database.PhotoStore
	index  *Index
}

// NewEngine creates a search engine over the given photo store.
func NewEngine(photos database.PhotoStore) *Engine {
	return &Engine{photos: photos, index: NewIndex()}
}

// Search ranks the owner's embedded photos by cosine similarity to the
// query embedding, filters them, and returns at most limit hits ordered
// by similarity descending with most recently created first on ties.
// An owner with no embedded photos yields an empty result, not an error.
func (e *Engine) Search(ctx context.Context, ownerID string, queryEmbedding []float32, filter database.SearchFilter, limit int) ([]database.ScoredPhoto, error) {
	if ownerID == "" || len(queryEmbedding) == 0 {
		return nil, fmt.Errorf("search: %w", database.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	candidates, err := e.photos.QueryByOwnerWithEmbedding(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}
	if len(candidates) == 0 {
		return []database.ScoredPhoto{}, nil
	}

	// The approximate index only serves unfiltered queries; filters need
	// the full candidate set to keep recall guarantees.
	if filter.IsZero() && len(candidates) >= hnswMinCandidates {
		ids := e.index.Search(ownerID, candidates, queryEmbedding, limit*indexOversample)
		candidates = pickByID(candidates, ids)
	}

	scored := make([]database.ScoredPhoto, 0, len(candidates))
	for _, rec := range candidates {
		if !matchesFilter(&rec, filter) {
			continue
		}
		scored = append(scored, database.ScoredPhoto{
			PhotoRecord: rec,
			Similarity:  database.CosineSimilarity(queryEmbedding, rec.Embedding),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		return scored[i].CreatedAt.After(scored[j].CreatedAt)
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func matchesFilter(rec *database.PhotoRecord, f database.SearchFilter) bool {
	if f.PersonID != "" {
		found := false
		for _, id := range rec.PersonIDs {
			if id == f.PersonID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	// A photo whose object detection produced nothing is not excluded by
	// an object filter; the detector may simply have failed for it.
	if len(f.Objects) > 0 && len(rec.DetectedObjects) > 0 {
		found := false
	outer:
		for _, want := range f.Objects {
			for _, obj := range rec.DetectedObjects {
				if strings.EqualFold(obj.Label, want) {
					found = true
					break outer
				}
			}
		}
		if !found {
			return false
		}
	}

	if f.Emotion != "" {
		found := false
		for _, em := range rec.Emotions {
			if strings.EqualFold(em.Dominant, f.Emotion) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if f.ExcludeLowValue && rec.ImportanceScore < LowValueCutoff {
		return false
	}

	return true
}

func pickByID(candidates []database.PhotoRecord, ids []string) []database.PhotoRecord {
	byID := make(map[string]*database.PhotoRecord, len(candidates))
	for i := range candidates {
		byID[candidates[i].ID] = &candidates[i]
	}
	out := make([]database.PhotoRecord, 0, len(ids))
	for _, id := range ids {
		if rec, ok := byID[id]; ok {
			out = append(out, *rec)
		}
	}
	return out
}
