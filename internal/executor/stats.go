package executor

import (
	"sync"
	"time"
)

const historyCapacity = 100

// Stats holds running execution counters and a rolling average latency.
type Stats struct {
	Total      int64
	Succeeded  int64
	Failed     int64
	Verified   int64
	Retries    int64
	StaleDrops int64
	AvgLatency time.Duration
}

// statsTracker accumulates Stats and keeps a bounded history of the most
// recent results for diagnostics.
type statsTracker struct {
	mu      sync.Mutex
	stats   Stats
	history []Result
}

func newStatsTracker() *statsTracker {
	return &statsTracker{
		history: make([]Result, 0, historyCapacity),
	}
}

// Record folds a result into the counters and the history ring. The
// average latency is an exponential running mean so one slow execution
// cannot dominate it.
func (st *statsTracker) Record(result Result) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.stats.Total++
	if result.Success {
		st.stats.Succeeded++
	} else {
		st.stats.Failed++
	}
	if result.Verified {
		st.stats.Verified++
	}

	if st.stats.AvgLatency == 0 {
		st.stats.AvgLatency = result.Latency
	} else {
		st.stats.AvgLatency = time.Duration(float64(st.stats.AvgLatency)*0.9 + float64(result.Latency)*0.1)
	}

	if len(st.history) == historyCapacity {
		copy(st.history, st.history[1:])
		st.history = st.history[:historyCapacity-1]
	}
	st.history = append(st.history, result)
}

// AddRetry counts a re-enqueued request.
func (st *statsTracker) AddRetry() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.stats.Retries++
}

// AddStaleDrop counts a request discarded as expired.
func (st *statsTracker) AddStaleDrop() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.stats.StaleDrops++
}

// Snapshot returns a copy of the counters.
func (st *statsTracker) Snapshot() Stats {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.stats
}

// History returns a copy of the recent results, oldest first.
func (st *statsTracker) History() []Result {
	st.mu.Lock()
	defer st.mu.Unlock()

	out := make([]Result, len(st.history))
	copy(out, st.history)
	return out
}
