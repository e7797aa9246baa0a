package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/huugi-star/potenote-scanner-sub000/internal/decode"
)

type decodeRequest struct {
	Raw        string `json:"raw"`
	SourceText string `json:"source_text,omitempty"`
}

// handleDecode runs the decoder on a caller-supplied model response. This is
// the synchronous path: no recognition, no splitting, no persistence.
func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		jsonError(w, "failed to read body", http.StatusBadRequest)
		return
	}

	var req decodeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
		return
	}

	doc, err := decode.Assemble(req.Raw, req.SourceText)
	if err != nil {
		s.writeDecodeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"document": doc})
}

// writeDecodeError maps decoder failures onto HTTP statuses: blank input is
// a caller mistake, undecodable input is an upstream-content problem.
func (s *Server) writeDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, decode.ErrEmptyInput) {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var malformed *decode.MalformedError
	var shape *decode.UnexpectedShapeError
	switch {
	case errors.As(err, &malformed), errors.As(err, &shape):
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}
