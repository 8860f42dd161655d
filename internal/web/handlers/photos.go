package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/fotofindr/internal/database"
	"github.com/kozaktomas/fotofindr/internal/pipeline"
)

// ListPhotos returns all of the owner's photos, newest first.
func (h *Handlers) ListPhotos(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	photos, err := h.photos.ListByOwner(r.Context(), owner)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list photos")
		return
	}
	if photos == nil {
		photos = []database.PhotoRecord{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"photos": photos,
		"total":  len(photos),
	})
}

// GetPhoto returns a single photo record.
func (h *Handlers) GetPhoto(w http.ResponseWriter, r *http.Request) {
	photoID := chi.URLParam(r, "photoID")

	photo, err := h.photos.GetByID(r.Context(), photoID)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "photo not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load photo")
		return
	}

	respondJSON(w, http.StatusOK, photo)
}

// Status reports how many of the owner's photos finished processing.
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	processed, total, err := h.photos.CountByOwner(r.Context(), owner)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to count photos")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"processed": processed,
		"total":     total,
	})
}

// Reprocess queues a full pipeline re-run for a stored photo.
func (h *Handlers) Reprocess(w http.ResponseWriter, r *http.Request) {
	photoID := chi.URLParam(r, "photoID")

	photo, err := h.photos.GetByID(r.Context(), photoID)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "photo not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load photo")
		return
	}

	data, err := h.blobs.Load(r.Context(), photo.StorageURL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load photo from storage")
		return
	}

	err = h.queue.Enqueue(pipeline.Job{PhotoID: photo.ID, OwnerID: photo.OwnerID, Image: data})
	if errors.Is(err, pipeline.ErrQueueFull) {
		respondError(w, http.StatusServiceUnavailable, "enrichment queue is full, try again later")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to queue enrichment")
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]any{
		"photo_id": photo.ID,
		"status":   database.StatusProcessing,
	})
}
