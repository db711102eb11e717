package preview

import (
	"sort"
	"sync"
	"time"
)

// Render phase names recorded per request.
const (
	PhaseCompose = "compose"
	PhaseEnrich  = "enrich"
	PhaseRender  = "render"
)

// defaultWindow is the number of recent renders the recorder keeps.
const defaultWindow = 512

// Record is the timing profile of one preview render.
type Record struct {
	TenantID     string                   `json:"tenantId"`
	ThemeID      string                   `json:"themeId"`
	ThemeVersion string                   `json:"themeVersion"`
	PageID       string                   `json:"pageId"`
	Viewport     string                   `json:"viewport"`
	Phases       map[string]time.Duration `json:"-"`
	Total        time.Duration            `json:"-"`
	At           time.Time                `json:"at"`
}

// PhaseMS returns a phase duration in milliseconds.
func (r Record) PhaseMS(phase string) float64 {
	return float64(r.Phases[phase]) / float64(time.Millisecond)
}

// Summary is the aggregate latency baseline over the recorder's window.
type Summary struct {
	Count       int     `json:"count"`
	AvgTotalMS  float64 `json:"avgTotalMs"`
	P95TotalMS  float64 `json:"p95TotalMs"`
	AvgRenderMS float64 `json:"avgRenderMs"`
}

// Recorder keeps a bounded rolling window of render records. Old records
// are overwritten once the window fills.
type Recorder struct {
	mu      sync.Mutex
	records []Record
	next    int
	filled  bool
}

// NewRecorder creates a recorder holding the most recent window records.
// A non-positive window uses the default.
func NewRecorder(window int) *Recorder {
	if window <= 0 {
		window = defaultWindow
	}
	return &Recorder{records: make([]Record, window)}
}

// Add appends a record, evicting the oldest once the window is full.
func (r *Recorder) Add(rec Record) {
	if rec.At.IsZero() {
		rec.At = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[r.next] = rec
	r.next++
	if r.next == len(r.records) {
		r.next = 0
		r.filled = true
	}
}

// Baseline aggregates the current window into a latency summary.
func (r *Recorder) Baseline() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.next
	if r.filled {
		n = len(r.records)
	}
	if n == 0 {
		return Summary{}
	}

	totals := make([]float64, 0, n)
	var sumTotal, sumRender float64
	for i := 0; i < n; i++ {
		rec := r.records[i]
		totalMS := float64(rec.Total) / float64(time.Millisecond)
		totals = append(totals, totalMS)
		sumTotal += totalMS
		sumRender += rec.PhaseMS(PhaseRender)
	}
	sort.Float64s(totals)

	return Summary{
		Count:       n,
		AvgTotalMS:  sumTotal / float64(n),
		P95TotalMS:  percentile(totals, 0.95),
		AvgRenderMS: sumRender / float64(n),
	}
}

// percentile reads the nearest-rank percentile from a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(p*float64(len(sorted))+0.5) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
