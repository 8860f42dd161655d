package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/kozaktomas/fotofindr/internal/database"
	"github.com/kozaktomas/fotofindr/internal/pipeline"
)

// Upload accepts a multipart photo, stores the original bytes, creates
// the record and queues an enrichment job. Responds 202 because the
// enrichment finishes in the background.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(h.cfg.Storage.MaxUploadSizeMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form or file too large")
		return
	}

	owner := ownerID(r)
	if owner == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read file")
		return
	}
	if len(data) == 0 {
		respondError(w, http.StatusBadRequest, "file is empty")
		return
	}
	if !strings.HasPrefix(http.DetectContentType(data), "image/") {
		respondError(w, http.StatusBadRequest, "file is not an image")
		return
	}

	photoID := uuid.NewString()
	locator, err := h.blobs.Save(r.Context(), photoID, data)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to store photo")
		return
	}

	record := &database.PhotoRecord{
		ID:         photoID,
		OwnerID:    owner,
		StorageURL: locator,
		Status:     database.StatusUploaded,
	}
	if err := h.photos.InsertPhoto(r.Context(), record); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create photo record")
		return
	}

	err = h.queue.Enqueue(pipeline.Job{PhotoID: photoID, OwnerID: owner, Image: data})
	if errors.Is(err, pipeline.ErrQueueFull) {
		respondError(w, http.StatusServiceUnavailable, "enrichment queue is full, try again later")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to queue enrichment")
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]any{
		"photo_id":    photoID,
		"storage_url": locator,
		"status":      database.StatusUploaded,
	})
}
