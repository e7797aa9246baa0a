package pipeline

import (
	"testing"
	"time"

	"github.com/huugi-star/potenote-scanner-sub000/internal/config"
	"github.com/huugi-star/potenote-scanner-sub000/internal/llm"
)

func testOrchestrator(queueSize int) *Orchestrator {
	cfg := config.Config{
		WorkerCount:          1,
		MaxQueueSize:         queueSize,
		MaxConcurrentAnalyze: 1,
		SegmentTokens:        1200,
		JobTTL:               time.Hour,
	}
	analyzer := &stubAnalyzer{respond: func(string) (string, error) {
		return `{"sentences":[]}`, nil
	}}
	return NewOrchestrator(cfg, analyzer, nil, nil, llm.NewCallStats(time.Hour), testLogger())
}

func TestOrchestratorSubmitAfterStopRefused(t *testing.T) {
	orch := testOrchestrator(4)
	orch.Stop()

	job := newTextJob("scan-after-stop", "I run.")
	if err := orch.Submit(job); err == nil {
		t.Fatal("expected submit to fail after stop")
	}
	if job.Status != StatusFailed {
		t.Errorf("expected failed job, got %q", job.Status)
	}
	if job.Phase != "shutdown" {
		t.Errorf("expected shutdown phase, got %q", job.Phase)
	}
}

func TestOrchestratorStopIsIdempotent(t *testing.T) {
	orch := testOrchestrator(4)
	orch.Stop()
	orch.Stop()
}

func TestOrchestratorSubmitQueueFull(t *testing.T) {
	// Not started, so the first job stays queued and fills the capacity.
	orch := testOrchestrator(1)

	if err := orch.Submit(newTextJob("scan-a", "One.")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	job := newTextJob("scan-b", "Two.")
	if err := orch.Submit(job); err == nil {
		t.Fatal("expected queue-full error")
	}
	if job.Status != StatusFailed || job.Phase != "queue_full" {
		t.Errorf("expected failed/queue_full, got %q/%q", job.Status, job.Phase)
	}
	if orch.QueueDepth() != 1 {
		t.Errorf("expected queue depth 1, got %d", orch.QueueDepth())
	}
}
