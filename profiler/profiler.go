// Package profiler - Timing of the stages of an evaluation run.
package profiler

import (
	"sort"
	"sync"
	"time"
)

// TimeTracker tracks timing statistics of one stage.
type TimeTracker struct {
	name      string
	totalTime time.Duration
	minTime   time.Duration
	maxTime   time.Duration
	count     int64
}

// StageStats is a snapshot of a TimeTracker.
type StageStats struct {
	Name  string        `json:"name"`
	Count int64         `json:"count"`
	Total time.Duration `json:"total"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Mean  time.Duration `json:"mean"`
}

// Profiler collects stage timings. It is safe for concurrent use, so the
// workers of one evaluation can share it.
type Profiler struct {
	mu             sync.Mutex
	startTime      time.Time
	operationTimes map[string]*TimeTracker
}

// New creates an empty profiler whose clock starts now.
func New() *Profiler {
	return &Profiler{
		startTime:      time.Now(),
		operationTimes: make(map[string]*TimeTracker),
	}
}

// StartOperation begins timing a stage.
//
// Arguments:
//   - name: The name of the stage to track.
//
// Returns:
//   - A function to call when the stage completes.
//
// @example
//
//	done := p.StartOperation("parse")
//	defer done()
func (p *Profiler) StartOperation(name string) func() {
	start := time.Now()
	return func() {
		p.Record(name, time.Since(start))
	}
}

// Record adds one completed stage duration.
func (p *Profiler) Record(name string, duration time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tracker, exists := p.operationTimes[name]
	if !exists {
		tracker = &TimeTracker{
			name:    name,
			minTime: duration,
			maxTime: duration,
		}
		p.operationTimes[name] = tracker
	}

	tracker.totalTime += duration
	tracker.count++

	if duration < tracker.minTime {
		tracker.minTime = duration
	}
	if duration > tracker.maxTime {
		tracker.maxTime = duration
	}
}

// Stats returns a snapshot of every stage, sorted by name.
func (p *Profiler) Stats() []StageStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]StageStats, 0, len(p.operationTimes))
	for _, t := range p.operationTimes {
		out = append(out, StageStats{
			Name:  t.name,
			Count: t.count,
			Total: t.totalTime,
			Min:   t.minTime,
			Max:   t.maxTime,
			Mean:  t.totalTime / time.Duration(t.count),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// Elapsed returns the wall time since the profiler was created.
func (p *Profiler) Elapsed() time.Duration {
	return time.Since(p.startTime)
}
