package batch

import (
	"math"
	"sort"
	"sync"
	"time"
)

// percentMultiplier is used to convert a ratio to percentage (0-100).
const percentMultiplier = 100

// DefaultThresholds are the progress marks reported during a group scan.
//
//nolint:gochecknoglobals // Read-only defaults.
var DefaultThresholds = []float64{0.25, 0.50, 0.75}

// Progress counts settled items and chunks of one Process call. The
// processor updates it after every chunk and hands it to the progress callback.
type Progress struct {
	mu sync.RWMutex

	total, chunks     int
	processed, passed int
	started           time.Time
}

// NewProgress starts a tracker for totalItems split into totalBatches chunks.
func NewProgress(totalItems, totalBatches int) *Progress {
	return &Progress{total: totalItems, chunks: totalBatches, started: time.Now()}
}

// AddProcessed records one settled chunk of n items.
func (p *Progress) AddProcessed(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed += n
	p.passed++
}

// Snapshot copies the current counters.
func (p *Progress) Snapshot() ProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snap := ProgressSnapshot{
		TotalItems:       p.total,
		ProcessedItems:   p.processed,
		TotalBatches:     p.chunks,
		ProcessedBatches: p.passed,
		ElapsedTime:      time.Since(p.started),
	}
	if p.total > 0 {
		snap.PercentComplete = float64(p.processed) / float64(p.total) * percentMultiplier
	}
	return snap
}

// ProgressSnapshot is a point-in-time copy of Progress, suitable for logging.
type ProgressSnapshot struct {
	TotalItems       int
	ProcessedItems   int
	TotalBatches     int
	ProcessedBatches int
	PercentComplete  float64
	ElapsedTime      time.Duration
}

// Thresholds reports ordered completion marks, each exactly once.
// It is not safe for concurrent use; callers guard it with their own lock.
type Thresholds struct {
	marks []float64
	next  int
}

// NewThresholds returns a tracker for the given ratios (0..1). With no marks
// the DefaultThresholds are used.
func NewThresholds(marks ...float64) *Thresholds {
	if len(marks) == 0 {
		marks = DefaultThresholds
	}
	sorted := append([]float64(nil), marks...)
	sort.Float64s(sorted)
	return &Thresholds{marks: sorted}
}

// Advance returns every mark not yet fired that processed/total has reached,
// in ascending order. A zero total never fires.
func (t *Thresholds) Advance(processed, total int) []float64 {
	if total <= 0 {
		return nil
	}
	ratio := float64(processed) / float64(total)

	var fired []float64
	for t.next < len(t.marks) && ratio >= t.marks[t.next] {
		fired = append(fired, t.marks[t.next])
		t.next++
	}
	return fired
}

// Fired returns how many marks have been reported so far.
func (t *Thresholds) Fired() int {
	return t.next
}

// Percent converts a ratio mark to a whole percentage.
func Percent(mark float64) int {
	return int(math.Round(mark * percentMultiplier))
}
