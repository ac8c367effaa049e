// Package stats keeps rolling-window statistics for pagination passes.
package stats

import (
	"slices"
	"sync"
	"time"
)

type pass struct {
	at       time.Time
	duration time.Duration
	nodes    int
	breaks   int
}

// Snapshot aggregates the passes inside the window. Latencies are in
// microseconds; a pass over a few hundred blocks rarely takes a millisecond.
type Snapshot struct {
	Count      int     `json:"count"`
	MinUs      int64   `json:"min_us"`
	MaxUs      int64   `json:"max_us"`
	AvgUs      float64 `json:"avg_us"`
	P50Us      float64 `json:"p50_us"`
	P95Us      float64 `json:"p95_us"`
	P99Us      float64 `json:"p99_us"`
	AvgNodes   float64 `json:"avg_nodes"`
	MaxBreaks  int     `json:"max_breaks"`
	WindowSecs float64 `json:"window_secs"`
}

// Recorder tracks recent pagination passes within a rolling window.
type Recorder struct {
	mu     sync.Mutex
	passes []pass
	window time.Duration
}

func NewRecorder(window time.Duration) *Recorder {
	if window <= 0 {
		window = time.Hour
	}
	return &Recorder{
		passes: make([]pass, 0, 256),
		window: window,
	}
}

// Record adds one pass over nodes top-level blocks that produced breaks.
func (r *Recorder) Record(d time.Duration, nodes, breaks int) {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked(now)
	r.passes = append(r.passes, pass{
		at:       now,
		duration: max(d, 0),
		nodes:    nodes,
		breaks:   breaks,
	})
}

// Time runs fn and records its duration. fn returns the node and break
// counts of the pass.
func (r *Recorder) Time(fn func() (nodes, breaks int)) {
	start := time.Now()
	nodes, breaks := fn()
	r.Record(time.Since(start), nodes, breaks)
}

func (r *Recorder) Snapshot() Snapshot {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked(now)
	snap := Snapshot{WindowSecs: r.window.Seconds()}
	if len(r.passes) == 0 {
		return snap
	}

	us := make([]int64, 0, len(r.passes))
	var sum int64
	var nodes int
	for _, p := range r.passes {
		v := p.duration.Microseconds()
		us = append(us, v)
		sum += v
		nodes += p.nodes
		snap.MaxBreaks = max(snap.MaxBreaks, p.breaks)
	}
	slices.Sort(us)

	n := float64(len(us))
	snap.Count = len(us)
	snap.MinUs = us[0]
	snap.MaxUs = us[len(us)-1]
	snap.AvgUs = float64(sum) / n
	snap.P50Us = percentile(us, 50)
	snap.P95Us = percentile(us, 95)
	snap.P99Us = percentile(us, 99)
	snap.AvgNodes = float64(nodes) / n
	return snap
}

func (r *Recorder) pruneLocked(now time.Time) {
	cutoff := now.Add(-r.window)
	r.passes = slices.DeleteFunc(r.passes, func(p pass) bool {
		return p.at.Before(cutoff)
	})
}

// percentile interpolates linearly between the two nearest ranks.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}
	idx := float64(len(sorted)-1) * pct / 100
	lo := int(idx)
	if lo+1 >= len(sorted) {
		return float64(sorted[lo])
	}
	w := idx - float64(lo)
	return float64(sorted[lo]) + (float64(sorted[lo+1])-float64(sorted[lo]))*w
}
