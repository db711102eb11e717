package preview

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func record(total, render time.Duration) Record {
	return Record{
		TenantID: "t1",
		PageID:   "home",
		Viewport: "desktop",
		Total:    total,
		Phases:   map[string]time.Duration{PhaseRender: render},
	}
}

func TestRecorderEmptyBaseline(t *testing.T) {
	assert.Equal(t, Summary{}, NewRecorder(8).Baseline())
}

func TestRecorderBaselineAggregates(t *testing.T) {
	r := NewRecorder(100)
	for i := 1; i <= 100; i++ {
		r.Add(record(time.Duration(i)*time.Millisecond, time.Duration(i/2)*time.Millisecond))
	}

	s := r.Baseline()
	assert.Equal(t, 100, s.Count)
	assert.InDelta(t, 50.5, s.AvgTotalMS, 0.01)
	assert.InDelta(t, 95.0, s.P95TotalMS, 1.0)
	assert.InDelta(t, 24.75, s.AvgRenderMS, 0.5)
}

func TestRecorderWindowEvictsOldest(t *testing.T) {
	r := NewRecorder(4)
	for i := 0; i < 10; i++ {
		r.Add(record(time.Duration(i)*time.Millisecond, 0))
	}

	s := r.Baseline()
	assert.Equal(t, 4, s.Count)
	// Only the last four records (6..9ms) remain.
	assert.InDelta(t, 7.5, s.AvgTotalMS, 0.01)
}

func TestCooldownGuard(t *testing.T) {
	g := newCooldownGuard(time.Minute)
	now := time.Now()

	assert.True(t, g.allow("t1", now))
	assert.False(t, g.allow("t1", now.Add(30*time.Second)))
	assert.True(t, g.allow("t2", now))
	assert.True(t, g.allow("t1", now.Add(61*time.Second)))
}
