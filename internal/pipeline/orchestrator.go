package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/huugi-star/potenote-scanner-sub000/internal/config"
	"github.com/huugi-star/potenote-scanner-sub000/internal/history"
	"github.com/huugi-star/potenote-scanner-sub000/internal/llm"
	"github.com/huugi-star/potenote-scanner-sub000/internal/parser"
	"github.com/huugi-star/potenote-scanner-sub000/internal/splitter"
)

// Orchestrator manages the scan pipeline.
type Orchestrator struct {
	scans      *ScanStore
	queue      chan *ScanJob
	analyzer   Analyzer
	ocr        Recognizer
	store      *history.Client
	stats      *llm.CallStats
	log        *slog.Logger
	cfg        config.Config
	splitCfg   splitter.Config
	parserOpts parser.Options

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	stopped bool
}

// NewOrchestrator creates the pipeline; call Start to launch workers.
func NewOrchestrator(cfg config.Config, analyzer Analyzer, ocr Recognizer, store *history.Client, stats *llm.CallStats, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		scans:    NewScanStore(cfg.JobTTL),
		queue:    make(chan *ScanJob, cfg.MaxQueueSize),
		analyzer: analyzer,
		ocr:      ocr,
		store:    store,
		stats:    stats,
		log:      log,
		cfg:      cfg,
		splitCfg: splitter.Config{
			SegmentTokens: cfg.SegmentTokens,
			MinSegment:    1,
		},
		parserOpts: parser.Options{
			PDFFallbackPdftotext: cfg.PDFFallbackPdftotext,
		},
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.analyzer, o.ocr, o.store, o.stats, o.log, o.splitCfg, o.parserOpts, o.cfg.MaxConcurrentAnalyze)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start scan store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.scans.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline. Idempotent; Submit refuses new
// scans once stopping has begun.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues a new scan for processing. The stopped check and the send
// share a mutex with Stop, so a submission can never race the queue close.
func (o *Orchestrator) Submit(job *ScanJob) error {
	o.scans.Put(job)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		job.SetStatus(StatusFailed, "shutdown")
		return fmt.Errorf("scanner is shutting down")
	}
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("scan queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetScan returns a scan by ID.
func (o *Orchestrator) GetScan(id string) *ScanJob {
	return o.scans.Get(id)
}

// ListScans returns snapshots of all live scans.
func (o *Orchestrator) ListScans() []ScanSnapshot {
	return o.scans.List()
}

// DeleteScan drops a scan from the registry and from history.
func (o *Orchestrator) DeleteScan(ctx context.Context, id string) error {
	o.scans.Delete(id)
	return o.store.DeleteScan(ctx, id)
}

// HistoryClient returns the history client for direct use by API handlers.
func (o *Orchestrator) HistoryClient() *history.Client {
	return o.store
}

// Stats returns the analysis latency tracker.
func (o *Orchestrator) Stats() *llm.CallStats {
	return o.stats
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// NewScanID generates a fresh scan identifier.
func NewScanID() string {
	return generateULID()
}
