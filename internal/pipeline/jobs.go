package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/huugi-star/potenote-scanner-sub000/internal/grammar"
)

// ScanStatus represents the state of a scan job.
type ScanStatus string

const (
	StatusQueued      ScanStatus = "queued"
	StatusRecognizing ScanStatus = "recognizing"
	StatusParsing     ScanStatus = "parsing"
	StatusSplitting   ScanStatus = "splitting"
	StatusAnalyzing   ScanStatus = "analyzing"
	StatusStoring     ScanStatus = "storing"
	StatusCompleted   ScanStatus = "completed"
	StatusFailed      ScanStatus = "failed"
	StatusPartial     ScanStatus = "partial"
)

// SourceKind says where a scan's text comes from.
type SourceKind string

const (
	SourceImage SourceKind = "image" // photographed page, goes through recognition
	SourceFile  SourceKind = "file"  // uploaded document, goes through a parser
	SourceText  SourceKind = "text"  // raw text pasted directly
)

// ScanJob tracks the state of a single page scan.
type ScanJob struct {
	mu sync.Mutex

	ID     string     `json:"scan_id"`
	Source SourceKind `json:"source"`

	Status   ScanStatus `json:"status"`
	Phase    string     `json:"phase"`
	Filename string     `json:"filename,omitempty"`
	Title    string     `json:"title,omitempty"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	payload     []byte
	contentType string
	document    *grammar.Document
	errors      []string
}

// Progress tracks processing progress.
type Progress struct {
	TotalSegments    int      `json:"total_segments"`
	SegmentsAnalyzed int      `json:"segments_analyzed"`
	SentencesDecoded int      `json:"sentences_decoded"`
	Errors           []string `json:"errors"`
}

// ScanStore is a thread-safe in-memory scan registry with TTL eviction.
type ScanStore struct {
	mu    sync.Mutex
	scans map[string]*ScanJob
	ttl   time.Duration
}

func NewScanStore(ttl time.Duration) *ScanStore {
	return &ScanStore{
		scans: make(map[string]*ScanJob),
		ttl:   ttl,
	}
}

func (s *ScanStore) Put(job *ScanJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scans[job.ID] = job
}

func (s *ScanStore) Get(id string) *ScanJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scans[id]
}

func (s *ScanStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scans, id)
}

// List returns snapshots of all live scans.
func (s *ScanStore) List() []ScanSnapshot {
	s.mu.Lock()
	jobs := make([]*ScanJob, 0, len(s.scans))
	for _, job := range s.scans {
		jobs = append(jobs, job)
	}
	s.mu.Unlock()

	out := make([]ScanSnapshot, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, job.Snapshot())
	}
	return out
}

// Cleanup removes expired scans.
func (s *ScanStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.scans {
		if now.Sub(job.UpdatedAt) > s.ttl {
			delete(s.scans, id)
		}
	}
}

// SetStatus updates scan status atomically.
func (j *ScanJob) SetStatus(status ScanStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *ScanJob) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// IncrSegmentsAnalyzed atomically increments analyzed segments.
func (j *ScanJob) IncrSegmentsAnalyzed() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.SegmentsAnalyzed++
	j.UpdatedAt = time.Now()
}

// AddSentences records decoded sentence counts.
func (j *ScanJob) AddSentences(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.SentencesDecoded += n
	j.UpdatedAt = time.Now()
}

// SetTotalSegments records the segment count.
func (j *ScanJob) SetTotalSegments(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TotalSegments = n
	j.UpdatedAt = time.Now()
}

// SetPayload sets the raw upload bytes for processing.
func (j *ScanJob) SetPayload(data []byte, contentType string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.payload = data
	j.contentType = contentType
}

// Payload returns the raw upload bytes.
func (j *ScanJob) Payload() ([]byte, string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.payload, j.contentType
}

// SetDocument records the merged analysis result.
func (j *ScanJob) SetDocument(doc *grammar.Document) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.document = doc
	j.UpdatedAt = time.Now()
}

// Document returns the merged analysis result, nil until the scan finishes.
func (j *ScanJob) Document() *grammar.Document {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.document
}

// ScanSnapshot is a read-only, JSON-safe copy of scan state.
type ScanSnapshot struct {
	ID          string     `json:"scan_id"`
	Source      SourceKind `json:"source"`
	Status      ScanStatus `json:"status"`
	Phase       string     `json:"phase"`
	Filename    string     `json:"filename,omitempty"`
	Title       string     `json:"title,omitempty"`
	Progress    Progress   `json:"progress"`
	ContentHash string     `json:"content_hash,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Snapshot returns a JSON-safe copy of the scan state.
func (j *ScanJob) Snapshot() ScanSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.Progress.Errors
	if errs == nil {
		errs = []string{}
	}
	return ScanSnapshot{
		ID:       j.ID,
		Source:   j.Source,
		Status:   j.Status,
		Phase:    j.Phase,
		Filename: j.Filename,
		Title:    j.Title,
		Progress: Progress{
			TotalSegments:    j.Progress.TotalSegments,
			SegmentsAnalyzed: j.Progress.SegmentsAnalyzed,
			SentencesDecoded: j.Progress.SentencesDecoded,
			Errors:           errs,
		},
		ContentHash: j.ContentHash,
		CreatedAt:   j.CreatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
