package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/huugi-star/potenote-scanner-sub000/internal/decode"
	"github.com/huugi-star/potenote-scanner-sub000/internal/grammar"
	"github.com/huugi-star/potenote-scanner-sub000/internal/history"
	"github.com/huugi-star/potenote-scanner-sub000/internal/llm"
	"github.com/huugi-star/potenote-scanner-sub000/internal/parser"
	"github.com/huugi-star/potenote-scanner-sub000/internal/splitter"
)

// Analyzer produces the raw model response for one text segment.
type Analyzer interface {
	Analyze(ctx context.Context, segment string) (string, error)
}

// Recognizer turns image bytes into page text.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, contentType string) (string, error)
}

// Worker processes a single scan job.
type Worker struct {
	analyzer   Analyzer
	ocr        Recognizer
	store      *history.Client
	stats      *llm.CallStats
	log        *slog.Logger
	splitCfg   splitter.Config
	parserOpts parser.Options

	maxConcurrentAnalyze int
}

func NewWorker(analyzer Analyzer, ocr Recognizer, store *history.Client, stats *llm.CallStats, log *slog.Logger, splitCfg splitter.Config, parserOpts parser.Options, maxAnalyze int) *Worker {
	if maxAnalyze <= 0 {
		maxAnalyze = 1
	}
	return &Worker{
		analyzer:             analyzer,
		ocr:                  ocr,
		store:                store,
		stats:                stats,
		log:                  log,
		splitCfg:             splitCfg,
		parserOpts:           parserOpts,
		maxConcurrentAnalyze: maxAnalyze,
	}
}

// Process runs the full scan pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *ScanJob) {
	log := w.log.With("scan_id", job.ID, "source", job.Source)

	// Phase 1: Acquire page text.
	text, err := w.pageText(ctx, job)
	if err != nil {
		log.Error("page text acquisition failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, job.Phase)
		return
	}
	job.ContentHash = ContentHashHex([]byte(text))
	if job.Title == "" {
		job.Title = titleFromText(text)
	}

	// Phase 2: Split into analysis segments.
	job.SetStatus(StatusSplitting, "splitting")
	segments := splitter.Split(text, w.splitCfg)
	job.SetTotalSegments(len(segments))
	log.Info("split page", "segments", len(segments))

	if len(segments) == 0 {
		log.Warn("no analyzable text")
		job.AddError("no analyzable text")
		job.SetStatus(StatusFailed, "splitting")
		return
	}

	// Phase 3: Analyze segments with bounded concurrency.
	job.SetStatus(StatusAnalyzing, "analyzing")
	type segmentResult struct {
		doc *grammar.Document
		err error
		idx int
	}
	results := make(chan segmentResult, len(segments))
	sem := make(chan struct{}, w.maxConcurrentAnalyze)

	for _, seg := range segments {
		sem <- struct{}{}
		go func(seg splitter.Segment) {
			defer func() { <-sem }()

			var raw string
			var lastErr error
			for attempt := range maxAttempts {
				start := time.Now()
				raw, lastErr = w.analyzer.Analyze(ctx, seg.Text)
				if w.stats != nil {
					w.stats.Record(time.Since(start))
				}
				if lastErr == nil || !retryable(lastErr) {
					break
				}
				log.Warn("retryable analysis error", "segment", seg.Index, "attempt", attempt, "error", lastErr)
				select {
				case <-time.After(retryDelay(attempt)):
				case <-ctx.Done():
					results <- segmentResult{err: ctx.Err(), idx: seg.Index}
					return
				}
			}
			if lastErr != nil {
				results <- segmentResult{err: lastErr, idx: seg.Index}
				return
			}

			doc, err := decode.Assemble(raw, seg.Text)
			results <- segmentResult{doc: doc, err: err, idx: seg.Index}
		}(seg)
	}

	// Collect in segment order so the merged document reads top to bottom.
	decoded := make([]*grammar.Document, len(segments))
	hadErrors := false
	for range segments {
		r := <-results
		job.IncrSegmentsAnalyzed()
		if r.err != nil {
			log.Error("segment analysis failed", "segment", r.idx, "error", r.err)
			job.AddError(fmt.Sprintf("segment %d: %s", r.idx, r.err))
			hadErrors = true
			continue
		}
		decoded[r.idx] = r.doc
	}

	merged := mergeDocuments(decoded)
	job.AddSentences(len(merged.Sentences))
	job.SetDocument(merged)
	log.Info("analysis complete", "sentences", len(merged.Sentences), "errors", hadErrors)

	if len(merged.Sentences) == 0 {
		job.SetStatus(StatusFailed, "analyzing")
		return
	}

	// Phase 4: Persist to history when configured.
	job.SetStatus(StatusStoring, "storing")
	if err := w.store.PutScan(ctx, history.ScanRecord{
		ScanID:    job.ID,
		Title:     job.Title,
		Source:    string(job.Source),
		CreatedAt: job.CreatedAt.Format(time.RFC3339),
		Document:  merged,
	}); err != nil {
		log.Error("history store failed", "error", err)
		job.AddError(fmt.Sprintf("store: %s", err))
		hadErrors = true
	}

	if hadErrors {
		job.SetStatus(StatusPartial, "done")
	} else {
		job.SetStatus(StatusCompleted, "done")
	}
}

// pageText resolves the scan payload into flat page text.
func (w *Worker) pageText(ctx context.Context, job *ScanJob) (string, error) {
	payload, contentType := job.Payload()

	switch job.Source {
	case SourceImage:
		job.SetStatus(StatusRecognizing, "recognizing")
		if w.ocr == nil {
			return "", fmt.Errorf("image scans not supported: recognition service not configured")
		}
		text, err := w.ocr.Recognize(ctx, payload, contentType)
		if err != nil {
			return "", fmt.Errorf("recognize: %w", err)
		}
		return text, nil

	case SourceFile:
		job.SetStatus(StatusParsing, "parsing")
		p, err := parser.ForFile(job.Filename, w.parserOpts)
		if err != nil {
			return "", err
		}
		page, err := p.Parse(bytes.NewReader(payload), job.Filename)
		if err != nil {
			return "", fmt.Errorf("parse: %w", err)
		}
		if job.Title == "" && page.Title != "" {
			job.Title = page.Title
		}
		return page.Text, nil

	case SourceText:
		return string(payload), nil

	default:
		return "", fmt.Errorf("unknown scan source: %s", job.Source)
	}
}

// mergeDocuments concatenates per-segment documents in page order and
// renumbers sentences so indexes stay unique across the whole scan.
func mergeDocuments(docs []*grammar.Document) *grammar.Document {
	merged := &grammar.Document{Sentences: []grammar.Sentence{}}
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		for _, s := range doc.Sentences {
			s.Index = len(merged.Sentences) + 1
			merged.Sentences = append(merged.Sentences, s)
		}
	}
	return merged
}

// titleFromText derives a fallback title from the first line of page text.
func titleFromText(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			if runes := []rune(line); len(runes) > 60 {
				return string(runes[:60])
			}
			return line
		}
	}
	return ""
}
