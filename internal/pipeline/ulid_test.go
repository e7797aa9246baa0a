package pipeline

import (
	"sort"
	"strings"
	"testing"
	"time"
)

func TestNewScanIDFormat(t *testing.T) {
	id := NewScanID()
	if len(id) != 26 {
		t.Fatalf("expected 26 characters, got %d (%q)", len(id), id)
	}
	for _, r := range id {
		if !strings.ContainsRune(crockford, r) {
			t.Errorf("unexpected character %q in %q", r, id)
		}
	}
}

func TestNewScanIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for range 1000 {
		id := NewScanID()
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestScanIDsOrderedWithinMillisecond(t *testing.T) {
	var src ulidSource
	now := time.Now()
	ids := make([]string, 0, 50)
	for range 50 {
		ids = append(ids, src.next(now))
	}
	if !sort.StringsAreSorted(ids) {
		t.Errorf("same-millisecond ids are not lexicographically ordered: %v", ids[:5])
	}
}
