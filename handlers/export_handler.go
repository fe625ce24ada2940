package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gfurlani/fotocatalogo/repository"
	"github.com/gfurlani/fotocatalogo/utils"
	"github.com/gfurlani/fotocatalogo/xmp"
)

// ExportHandler copies selected originals into a per-drive layout and emits
// XMP sidecars for the enriched records alongside them.
type ExportHandler struct {
	Repo repository.ImageRecordRepository
}

type exportRequest struct {
	Paths         []string `json:"paths"`
	DestRoot      string   `json:"dest_root"`
	CopyFiles     bool     `json:"copy_files"`
	WriteSidecars bool     `json:"write_sidecars"`
}

type exportGroup struct {
	Root  string `json:"root"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

type exportResponse struct {
	Groups   []exportGroup `json:"groups"`
	Copied   int           `json:"copied"`
	Sidecars int           `json:"sidecars"`
	Errors   []string      `json:"errors,omitempty"`
}

// Export runs the copy. Inputs from different volumes land under separate
// <drive_label>/ subdirectories of dest_root so identical relative paths
// never collide. Per-file failures are collected, not fatal.
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.Paths) == 0 || req.DestRoot == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "paths and dest_root required"})
		return
	}
	if !req.CopyFiles && !req.WriteSidecars {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "nothing to do"})
		return
	}

	resp := exportResponse{}
	for _, group := range utils.ComputeCommonRoots(req.Paths) {
		resp.Groups = append(resp.Groups, exportGroup{
			Root:  group.Root,
			Label: group.Label,
			Count: len(group.Paths),
		})
		for _, src := range group.Paths {
			if req.WriteSidecars {
				if err := h.writeSidecar(src); err != nil {
					resp.Errors = append(resp.Errors, err.Error())
				} else {
					resp.Sidecars++
				}
			}
			if !req.CopyFiles {
				continue
			}
			dest := utils.ComputeDestPath(src, group.Root, group.Label, req.DestRoot)
			if err := copyFile(src, dest); err != nil {
				resp.Errors = append(resp.Errors, err.Error())
				continue
			}
			resp.Copied++
			if req.WriteSidecars {
				sc := xmp.SidecarPath(src)
				if _, err := os.Stat(sc); err == nil {
					if err := copyFile(sc, xmp.SidecarPath(dest)); err != nil {
						resp.Errors = append(resp.Errors, err.Error())
					}
				}
			}
		}
	}

	log.Printf("export: %d copied, %d sidecars, %d errors", resp.Copied, resp.Sidecars, len(resp.Errors))
	writeJSON(w, http.StatusOK, resp)
}

// writeSidecar emits the sidecar next to the original and persists the
// record's promoted sync state. Images without a catalog record are skipped.
func (h *ExportHandler) writeSidecar(src string) error {
	rec, err := h.Repo.GetByFilename(filepath.Base(src))
	if err != nil || rec == nil {
		return fmt.Errorf("no catalog record for %s", filepath.Base(src))
	}
	if err := xmp.WriteSidecar(rec); err != nil {
		return err
	}
	if err := h.Repo.Save(rec); err != nil {
		return fmt.Errorf("persist sync state for %s: %w", rec.Filename, err)
	}
	return nil
}

func copyFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(dest), err)
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}
