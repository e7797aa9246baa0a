package llm

import (
	"math"
	"sort"
	"sync"
	"time"
)

// CallStats tracks latencies of recent analysis calls inside a rolling
// window, so the stats endpoint reflects current model behavior rather
// than process-lifetime history.
type CallStats struct {
	mu     sync.Mutex
	window time.Duration
	calls  []call
}

type call struct {
	at time.Time
	d  time.Duration
}

// StatsSnapshot is a point-in-time aggregate of analysis-call latencies.
type StatsSnapshot struct {
	Count int     `json:"count"`
	MinMs int64   `json:"min_ms"`
	MaxMs int64   `json:"max_ms"`
	AvgMs float64 `json:"avg_ms"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
	P99Ms float64 `json:"p99_ms"`
}

func NewCallStats(window time.Duration) *CallStats {
	if window <= 0 {
		window = time.Hour
	}
	return &CallStats{window: window}
}

// Record adds one call latency. Negative durations clamp to zero.
func (s *CallStats) Record(d time.Duration) {
	if d < 0 {
		d = 0
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.evict(now)
	s.calls = append(s.calls, call{at: now, d: d})
}

func (s *CallStats) Snapshot() StatsSnapshot {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.evict(now)
	if len(s.calls) == 0 {
		return StatsSnapshot{}
	}

	ms := make([]float64, len(s.calls))
	var sum float64
	for i, c := range s.calls {
		ms[i] = float64(c.d.Milliseconds())
		sum += ms[i]
	}
	sort.Float64s(ms)

	return StatsSnapshot{
		Count: len(ms),
		MinMs: int64(ms[0]),
		MaxMs: int64(ms[len(ms)-1]),
		AvgMs: sum / float64(len(ms)),
		P50Ms: quantile(ms, 0.50),
		P95Ms: quantile(ms, 0.95),
		P99Ms: quantile(ms, 0.99),
	}
}

// evict drops calls older than the window. Calls are appended in time
// order, so expired entries form a prefix.
func (s *CallStats) evict(now time.Time) {
	cutoff := now.Add(-s.window)
	i := 0
	for i < len(s.calls) && s.calls[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		s.calls = append(s.calls[:0], s.calls[i:]...)
	}
}

// quantile linearly interpolates between the two samples straddling the
// requested rank. sorted must be ascending and non-empty.
func quantile(sorted []float64, q float64) float64 {
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	rank := q * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	if lo+1 >= len(sorted) {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
