package pipeline

import (
	"testing"
	"time"
)

func TestContentHashHex_Consistency(t *testing.T) {
	data := []byte("hello world")
	h1 := ContentHashHex(data)
	h2 := ContentHashHex(data)
	if h1 != h2 {
		t.Errorf("expected identical hashes, got %q and %q", h1, h2)
	}
	// SHA-256 of "hello world" is well-known.
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if h1 != want {
		t.Errorf("expected hash %q, got %q", want, h1)
	}
}

func TestContentHashHex_DifferentInputs(t *testing.T) {
	h1 := ContentHashHex([]byte("aaa"))
	h2 := ContentHashHex([]byte("bbb"))
	if h1 == h2 {
		t.Error("expected different hashes for different inputs")
	}
}

func TestScanJob_StateTransitions(t *testing.T) {
	job := &ScanJob{
		ID:        "test-1",
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	transitions := []struct {
		status ScanStatus
		phase  string
	}{
		{StatusRecognizing, "recognizing page"},
		{StatusSplitting, "splitting into segments"},
		{StatusAnalyzing, "analyzing sentences"},
		{StatusStoring, "storing results"},
		{StatusCompleted, "done"},
	}

	for _, tr := range transitions {
		before := job.UpdatedAt
		// Small sleep to ensure time difference is detectable.
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if job.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, job.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}
}

func TestScanJob_AddError(t *testing.T) {
	job := &ScanJob{ID: "err-test", UpdatedAt: time.Now()}
	job.AddError("segment 3 failed")
	job.AddError("segment 7 failed")

	snap := job.Snapshot()
	if len(snap.Progress.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(snap.Progress.Errors))
	}
	if snap.Progress.Errors[0] != "segment 3 failed" {
		t.Errorf("expected first error %q, got %q", "segment 3 failed", snap.Progress.Errors[0])
	}
}

func TestScanJob_Counters(t *testing.T) {
	job := &ScanJob{ID: "count-test", UpdatedAt: time.Now()}
	job.SetTotalSegments(4)
	job.IncrSegmentsAnalyzed()
	job.IncrSegmentsAnalyzed()
	job.AddSentences(5)
	job.AddSentences(3)

	snap := job.Snapshot()
	if snap.Progress.TotalSegments != 4 {
		t.Errorf("expected 4 total segments, got %d", snap.Progress.TotalSegments)
	}
	if snap.Progress.SegmentsAnalyzed != 2 {
		t.Errorf("expected 2 analyzed, got %d", snap.Progress.SegmentsAnalyzed)
	}
	if snap.Progress.SentencesDecoded != 8 {
		t.Errorf("expected 8 sentences, got %d", snap.Progress.SentencesDecoded)
	}
}

func TestScanJob_Payload(t *testing.T) {
	job := &ScanJob{ID: "data-test"}
	data := []byte("file content here")
	job.SetPayload(data, "text/plain")
	got, ct := job.Payload()
	if string(got) != string(data) {
		t.Errorf("expected payload %q, got %q", data, got)
	}
	if ct != "text/plain" {
		t.Errorf("expected content type kept, got %q", ct)
	}
}

func TestScanJob_SnapshotErrorsNotNil(t *testing.T) {
	// Snapshot should always return non-nil errors slice.
	job := &ScanJob{ID: "snap-test", UpdatedAt: time.Now()}
	snap := job.Snapshot()
	if snap.Progress.Errors == nil {
		t.Error("expected non-nil errors slice in snapshot")
	}
	if len(snap.Progress.Errors) != 0 {
		t.Errorf("expected empty errors, got %d", len(snap.Progress.Errors))
	}
}

func TestScanStore_PutGetDelete(t *testing.T) {
	store := NewScanStore(time.Hour)
	job := &ScanJob{ID: "store-1", UpdatedAt: time.Now()}
	store.Put(job)

	got := store.Get("store-1")
	if got == nil {
		t.Fatal("expected to get scan back")
	}
	if got.ID != "store-1" {
		t.Errorf("expected ID %q, got %q", "store-1", got.ID)
	}

	store.Delete("store-1")
	if store.Get("store-1") != nil {
		t.Error("expected scan gone after delete")
	}
}

func TestScanStore_GetMissing(t *testing.T) {
	store := NewScanStore(time.Hour)
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing scan")
	}
}

func TestScanStore_List(t *testing.T) {
	store := NewScanStore(time.Hour)
	store.Put(&ScanJob{ID: "a", UpdatedAt: time.Now()})
	store.Put(&ScanJob{ID: "b", UpdatedAt: time.Now()})

	list := store.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(list))
	}
}

func TestScanStore_TTLCleanup(t *testing.T) {
	store := NewScanStore(50 * time.Millisecond)

	expired := &ScanJob{ID: "old", UpdatedAt: time.Now()}
	store.Put(expired)

	// Wait for the TTL to pass.
	time.Sleep(100 * time.Millisecond)

	// Add a fresh scan.
	fresh := &ScanJob{ID: "new", UpdatedAt: time.Now()}
	store.Put(fresh)

	store.Cleanup()

	if store.Get("old") != nil {
		t.Error("expected expired scan to be cleaned up")
	}
	if store.Get("new") == nil {
		t.Error("expected fresh scan to survive cleanup")
	}
}

func TestScanStore_CleanupEmpty(t *testing.T) {
	store := NewScanStore(time.Hour)
	// Should not panic on empty store.
	store.Cleanup()
}
