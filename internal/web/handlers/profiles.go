package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/fotofindr/internal/database"
)

// ListProfiles returns the owner's person profiles, most photographed first.
func (h *Handlers) ListProfiles(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	profiles, err := h.profiles.ListProfiles(r.Context(), owner)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list people")
		return
	}
	if profiles == nil {
		profiles = []database.PersonProfile{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"people": profiles,
		"total":  len(profiles),
	})
}

type renameRequest struct {
	Name string `json:"name"`
}

// RenameProfile assigns a display name to an auto-created person.
func (h *Handlers) RenameProfile(w http.ResponseWriter, r *http.Request) {
	personID := chi.URLParam(r, "personID")

	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	err := h.resolver.Rename(r.Context(), personID, req.Name)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "person not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to rename person")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"person_id": personID,
		"name":      req.Name,
	})
}
