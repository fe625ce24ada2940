package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gfurlani/fotocatalogo/models"
	"github.com/gfurlani/fotocatalogo/repository"
)

// RecordHandler serves single-record reads and editorial updates.
type RecordHandler struct {
	Repo repository.ImageRecordRepository
}

// recordUpdateRequest carries the editable fields. Pointers distinguish
// "leave alone" from "set"; an explicit empty value clears the field.
type recordUpdateRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Rating      *int      `json:"rating"`
	ColorLabel  *string   `json:"color_label"`
	Tags        *[]string `json:"tags"`
}

// GetRecord returns one catalog record by filename.
func (h *RecordHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Repo.GetByFilename(chi.URLParam(r, "filename"))
	if err != nil || rec == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "record not found"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// UpdateRecord applies user edits. An edit to a record whose sidecar was
// already written demotes it to DIRTY so the next export rewrites the file.
func (h *RecordHandler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Repo.GetByFilename(chi.URLParam(r, "filename"))
	if err != nil || rec == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "record not found"})
		return
	}

	var req recordUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 5) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "rating must be 1..5"})
		return
	}

	if req.Title != nil {
		rec.Title = nilIfEmpty(*req.Title)
	}
	if req.Description != nil {
		rec.Description = nilIfEmpty(*req.Description)
	}
	if req.Rating != nil {
		rec.Rating = req.Rating
	}
	if req.ColorLabel != nil {
		rec.SetColorLabel(*req.ColorLabel)
	}
	if req.Tags != nil {
		rec.SetTags(*req.Tags)
	}
	if rec.SyncState == models.SyncStatePerfectSync {
		rec.SyncState = models.SyncStateDirty
	}

	if err := h.Repo.Save(rec); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save record"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
