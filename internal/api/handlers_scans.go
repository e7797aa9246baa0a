package api

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/huugi-star/potenote-scanner-sub000/internal/parser"
	"github.com/huugi-star/potenote-scanner-sub000/internal/pipeline"
)

// handleCreateScan accepts one page to analyze: a photographed image, an
// uploaded document, or raw text, as multipart fields "image", "file" or
// "text".
func (s *Server) handleCreateScan(w http.ResponseWriter, r *http.Request) {
	// Limit total request size, with extra headroom for form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	now := time.Now()
	job := &pipeline.ScanJob{
		ID:        pipeline.NewScanID(),
		Status:    pipeline.StatusQueued,
		Phase:     "queued",
		Title:     r.FormValue("title"),
		CreatedAt: now,
		UpdatedAt: now,
	}

	switch {
	case hasFormFile(r, "image"):
		file, header, err := r.FormFile("image")
		if err != nil {
			jsonError(w, "image is required: "+err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()

		data, ok := s.readUpload(w, file)
		if !ok {
			return
		}
		job.Source = pipeline.SourceImage
		job.Filename = sanitizeFilename(header.Filename)
		job.SetPayload(data, header.Header.Get("Content-Type"))

	case hasFormFile(r, "file"):
		file, header, err := r.FormFile("file")
		if err != nil {
			jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()

		filename := sanitizeFilename(header.Filename)
		if !parser.IsSupportedExtension(filename) {
			jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
			return
		}
		data, ok := s.readUpload(w, file)
		if !ok {
			return
		}
		job.Source = pipeline.SourceFile
		job.Filename = filename
		job.SetPayload(data, header.Header.Get("Content-Type"))

	case r.FormValue("text") != "":
		job.Source = pipeline.SourceText
		job.SetPayload([]byte(r.FormValue("text")), "text/plain")

	default:
		jsonError(w, "one of image, file or text is required", http.StatusBadRequest)
		return
	}

	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"scan_id":  job.ID,
		"source":   job.Source,
		"status":   job.Status,
		"poll_url": fmt.Sprintf("/api/scans/%s/status", job.ID),
	})
}

func (s *Server) handleScanStatus(w http.ResponseWriter, r *http.Request) {
	scanID := chi.URLParam(r, "scanID")
	job := s.orchestrator.GetScan(scanID)
	if job == nil {
		jsonError(w, "scan not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"scan_id":  snap.ID,
		"source":   snap.Source,
		"status":   snap.Status,
		"phase":    snap.Phase,
		"progress": snap.Progress,
	})
}

// handleGetScan returns the decoded document. Finished scans that already
// fell out of the in-memory registry are served from history when available.
func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	scanID := chi.URLParam(r, "scanID")

	if job := s.orchestrator.GetScan(scanID); job != nil {
		doc := job.Document()
		if doc == nil {
			jsonError(w, fmt.Sprintf("scan not finished (status %s)", job.Snapshot().Status), http.StatusConflict)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"scan_id":  scanID,
			"title":    job.Snapshot().Title,
			"document": doc,
		})
		return
	}

	rec, err := s.orchestrator.HistoryClient().GetScan(r.Context(), scanID)
	if err != nil {
		jsonError(w, "history lookup failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	if rec == nil {
		jsonError(w, "scan not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"scan_id":  rec.ScanID,
		"title":    rec.Title,
		"document": rec.Document,
	})
}

// handleListScans merges live scans with the stored history, so a scan that
// fell out of the in-memory registry still shows up in the listing. A history
// failure degrades to the live listing alone.
func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	scans := s.orchestrator.ListScans()

	stored, err := s.orchestrator.HistoryClient().ListScans(r.Context(), 100)
	if err != nil {
		s.log.Warn("history list failed", "error", err)
	}
	if len(stored) > 0 {
		live := make(map[string]bool, len(scans))
		for _, sc := range scans {
			live[sc.ID] = true
		}
		for _, rec := range stored {
			if live[rec.ScanID] {
				continue
			}
			created, _ := time.Parse(time.RFC3339, rec.CreatedAt)
			scans = append(scans, pipeline.ScanSnapshot{
				ID:     rec.ScanID,
				Title:  rec.Title,
				Status: pipeline.StatusCompleted,
				Phase:  "stored",
				Progress: pipeline.Progress{
					SentencesDecoded: rec.Sentences,
					Errors:           []string{},
				},
				CreatedAt: created,
			})
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"scans": scans})
}

func (s *Server) handleDeleteScan(w http.ResponseWriter, r *http.Request) {
	scanID := chi.URLParam(r, "scanID")
	if err := s.orchestrator.DeleteScan(r.Context(), scanID); err != nil {
		jsonError(w, "delete failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"deleted": scanID})
}

// readUpload reads an upload within the configured size limit. On failure it
// writes the error response and returns ok=false.
func (s *Server) readUpload(w http.ResponseWriter, file multipart.File) ([]byte, bool) {
	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read upload", http.StatusInternalServerError)
		return nil, false
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("upload exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return nil, false
	}
	return data, true
}

func hasFormFile(r *http.Request, field string) bool {
	return r.MultipartForm != nil && len(r.MultipartForm.File[field]) > 0
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
