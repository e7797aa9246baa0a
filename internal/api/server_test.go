package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/huugi-star/potenote-scanner-sub000/internal/config"
	"github.com/huugi-star/potenote-scanner-sub000/internal/history"
	"github.com/huugi-star/potenote-scanner-sub000/internal/llm"
	"github.com/huugi-star/potenote-scanner-sub000/internal/pipeline"
)

type noopAnalyzer struct{}

func (noopAnalyzer) Analyze(context.Context, string) (string, error) {
	return `{"sentences":[]}`, nil
}

func testConfig() config.Config {
	return config.Config{
		Port:                 "0",
		AnthropicModel:       "test-model",
		WorkerCount:          1,
		MaxQueueSize:         4,
		MaxConcurrentAnalyze: 1,
		MaxUploadBytes:       1 << 20,
		SegmentTokens:        1200,
		JobTTL:               time.Hour,
	}
}

// newTestServer builds a server whose orchestrator is not started: submitted
// scans stay queued, which is what the handler tests need.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := testConfig()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	orch := pipeline.NewOrchestrator(cfg, noopAnalyzer{}, nil, nil, llm.NewCallStats(time.Hour), log)
	return NewServer(orch, log, cfg)
}

func doJSON(t *testing.T, srv *Server, method, path string, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("response is not json: %v (%q)", err, rec.Body.String())
		}
	}
	return rec, decoded
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	rec, body := doJSON(t, srv, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body["status"] != "ok" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestDecode_Success(t *testing.T) {
	srv := newTestServer(t)
	raw := "```json\n{\"sentences\":[{\"original_text\":\"I run.\",\"chunks\":[{\"text\":\"I\",\"role\":\"S\"}]}]}\n```"
	payload, _ := json.Marshal(map[string]string{"raw": raw})

	rec, body := doJSON(t, srv, http.MethodPost, "/api/decode", string(payload))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", rec.Code, body)
	}
	doc, ok := body["document"].(map[string]any)
	if !ok {
		t.Fatalf("expected document in response, got %v", body)
	}
	sentences, ok := doc["sentences"].([]any)
	if !ok || len(sentences) != 1 {
		t.Errorf("expected 1 sentence, got %v", doc["sentences"])
	}
}

func TestDecode_EmptyInputIsBadRequest(t *testing.T) {
	srv := newTestServer(t)
	rec, _ := doJSON(t, srv, http.MethodPost, "/api/decode", `{"raw":"   "}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for blank raw, got %d", rec.Code)
	}
}

func TestDecode_UndecodableIsUnprocessable(t *testing.T) {
	srv := newTestServer(t)
	for _, raw := range []string{`{"raw":"no json here at all"}`, `{"raw":"[1, 2, 3]"}`} {
		rec, _ := doJSON(t, srv, http.MethodPost, "/api/decode", raw)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("body %s: expected 422, got %d", raw, rec.Code)
		}
	}
}

func TestDecode_InvalidBody(t *testing.T) {
	srv := newTestServer(t)
	rec, _ := doJSON(t, srv, http.MethodPost, "/api/decode", "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid body, got %d", rec.Code)
	}
}

func multipartBody(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestCreateScan_TextAndStatus(t *testing.T) {
	srv := newTestServer(t)
	body, contentType := multipartBody(t, map[string]string{"text": "I run.", "title": "Lesson 3"})

	req := httptest.NewRequest(http.MethodPost, "/api/scans", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var created map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	scanID, _ := created["scan_id"].(string)
	if scanID == "" {
		t.Fatalf("expected scan_id, got %v", created)
	}

	rec2, status := doJSON(t, srv, http.MethodGet, "/api/scans/"+scanID+"/status", "")
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200 from status, got %d", rec2.Code)
	}
	if status["status"] != string(pipeline.StatusQueued) {
		t.Errorf("expected queued scan, got %v", status["status"])
	}
}

func TestCreateScan_NoSourceIsBadRequest(t *testing.T) {
	srv := newTestServer(t)
	body, contentType := multipartBody(t, map[string]string{"title": "nothing else"})

	req := httptest.NewRequest(http.MethodPost, "/api/scans", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestCreateScan_UnsupportedFileType(t *testing.T) {
	srv := newTestServer(t)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "notes.exe")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	fw.Write([]byte("binary"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/scans", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for .exe upload, got %d", rec.Code)
	}
}

func TestScanStatus_NotFound(t *testing.T) {
	srv := newTestServer(t)
	rec, _ := doJSON(t, srv, http.MethodGet, "/api/scans/nope/status", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestGetScan_UnfinishedIsConflict(t *testing.T) {
	srv := newTestServer(t)
	body, contentType := multipartBody(t, map[string]string{"text": "I run."})
	req := httptest.NewRequest(http.MethodPost, "/api/scans", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var created map[string]any
	json.Unmarshal(rec.Body.Bytes(), &created)
	scanID, _ := created["scan_id"].(string)

	rec2, _ := doJSON(t, srv, http.MethodGet, "/api/scans/"+scanID, "")
	if rec2.Code != http.StatusConflict {
		t.Errorf("expected 409 for unfinished scan, got %d", rec2.Code)
	}
}

func TestListScans(t *testing.T) {
	srv := newTestServer(t)
	body, contentType := multipartBody(t, map[string]string{"text": "I run."})
	req := httptest.NewRequest(http.MethodPost, "/api/scans", body)
	req.Header.Set("Content-Type", contentType)
	srv.ServeHTTP(httptest.NewRecorder(), req)

	rec, listing := doJSON(t, srv, http.MethodGet, "/api/scans", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	scans, ok := listing["scans"].([]any)
	if !ok || len(scans) != 1 {
		t.Errorf("expected 1 scan listed, got %v", listing["scans"])
	}
}

func TestListScans_MergesStoredHistory(t *testing.T) {
	hist := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/scans" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"scans":[{"scan_id":"stored-1","title":"Lesson 1","sentences":3}]}`)
	}))
	defer hist.Close()

	cfg := testConfig()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := history.NewClient(hist.URL, "test-key")
	orch := pipeline.NewOrchestrator(cfg, noopAnalyzer{}, nil, store, llm.NewCallStats(time.Hour), log)
	srv := NewServer(orch, log, cfg)

	body, contentType := multipartBody(t, map[string]string{"text": "I run."})
	req := httptest.NewRequest(http.MethodPost, "/api/scans", body)
	req.Header.Set("Content-Type", contentType)
	srv.ServeHTTP(httptest.NewRecorder(), req)

	rec, listing := doJSON(t, srv, http.MethodGet, "/api/scans", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	scans, ok := listing["scans"].([]any)
	if !ok || len(scans) != 2 {
		t.Fatalf("expected live + stored scan listed, got %v", listing["scans"])
	}

	var stored map[string]any
	for _, el := range scans {
		if m, isMap := el.(map[string]any); isMap && m["scan_id"] == "stored-1" {
			stored = m
		}
	}
	if stored == nil {
		t.Fatalf("expected stored-1 in the listing, got %v", scans)
	}
	if stored["title"] != "Lesson 1" || stored["status"] != string(pipeline.StatusCompleted) {
		t.Errorf("unexpected stored entry %v", stored)
	}
}

func TestDeleteScan(t *testing.T) {
	srv := newTestServer(t)
	body, contentType := multipartBody(t, map[string]string{"text": "I run."})
	req := httptest.NewRequest(http.MethodPost, "/api/scans", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var created map[string]any
	json.Unmarshal(rec.Body.Bytes(), &created)
	scanID, _ := created["scan_id"].(string)

	rec2, _ := doJSON(t, srv, http.MethodDelete, "/api/scans/"+scanID, "")
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec2.Code)
	}

	rec3, _ := doJSON(t, srv, http.MethodGet, "/api/scans/"+scanID+"/status", "")
	if rec3.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec3.Code)
	}
}

func TestLLMStats(t *testing.T) {
	srv := newTestServer(t)
	rec, body := doJSON(t, srv, http.MethodGet, "/api/stats/llm", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body["model"] != "test-model" {
		t.Errorf("expected configured model name, got %v", body["model"])
	}
	if _, ok := body["stats"].(map[string]any); !ok {
		t.Errorf("expected stats object, got %v", body["stats"])
	}
}
