package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gfurlani/fotocatalogo/catalog"
	"github.com/gfurlani/fotocatalogo/config"
	"github.com/gfurlani/fotocatalogo/pipeline"
	"github.com/gfurlani/fotocatalogo/repository"
	"github.com/gfurlani/fotocatalogo/workers"
)

// ControlHandler exposes the enrichment worker over the local control API.
type ControlHandler struct {
	Cfg    *config.Config
	Worker *workers.EnrichWorker
	Repo   repository.ImageRecordRepository
}

type statusResponse struct {
	State   string                 `json:"state"`
	Stats   pipeline.StatsSnapshot `json:"stats"`
	Records int64                  `json:"records"`
}

// runRequest selects the inputs of a run: an explicit path list, or a
// Lightroom catalog to scan.
type runRequest struct {
	Paths []string `json:"paths,omitempty"`
	Lrcat string   `json:"lrcat,omitempty"`
}

type runResponse struct {
	Started int                `json:"started"`
	Missing []string           `json:"missing,omitempty"`
	Scan    *catalog.ScanStats `json:"scan,omitempty"`
}

// GetStatus reports worker state, run counters and catalog size.
func (h *ControlHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	state, stats := h.Worker.Status()
	count, err := h.Repo.Count()
	if err != nil {
		log.Printf("control: failed to count records: %v", err)
		count = -1
	}
	writeJSON(w, http.StatusOK, statusResponse{State: state, Stats: stats, Records: count})
}

// StartRun launches an enrichment run over the requested inputs.
func (h *ControlHandler) StartRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.Paths) == 0 && req.Lrcat == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "paths or lrcat required"})
		return
	}

	resp := runResponse{}
	inputs := req.Paths
	if req.Lrcat != "" {
		scan, err := catalog.ReadCatalog(req.Lrcat, h.Cfg.SupportedFormatSet())
		if err != nil {
			log.Printf("control: catalog scan failed: %v", err)
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "catalog scan failed"})
			return
		}
		inputs = append(inputs, scan.Files...)
		resp.Missing = scan.Missing
		resp.Scan = &scan.Stats
	}

	if err := h.Worker.Start(inputs); err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	resp.Started = len(inputs)
	writeJSON(w, http.StatusAccepted, resp)
}

// PauseRun suspends the loop before the next record.
func (h *ControlHandler) PauseRun(w http.ResponseWriter, r *http.Request) {
	h.Worker.Pause()
	state, _ := h.Worker.Status()
	writeJSON(w, http.StatusOK, map[string]string{"state": state})
}

// ResumeRun releases a paused loop.
func (h *ControlHandler) ResumeRun(w http.ResponseWriter, r *http.Request) {
	h.Worker.Resume()
	state, _ := h.Worker.Status()
	writeJSON(w, http.StatusOK, map[string]string{"state": state})
}

// StopRun cancels the run after the in-flight record.
func (h *ControlHandler) StopRun(w http.ResponseWriter, r *http.Request) {
	h.Worker.Stop()
	writeJSON(w, http.StatusOK, map[string]string{"state": workers.StateStopped})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("control: failed to encode response: %v", err)
	}
}
