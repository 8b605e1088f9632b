package logging

import "sync"

// ErrorCategory buckets recoverable failures for diagnostics.
type ErrorCategory string

const (
	ErrorCategoryCapture        ErrorCategory = "capture"
	ErrorCategoryClassification ErrorCategory = "classification"
	ErrorCategoryTransport      ErrorCategory = "transport"
	ErrorCategoryVerification   ErrorCategory = "verification"
	ErrorCategoryMonitor        ErrorCategory = "monitor"
	ErrorCategoryDetection      ErrorCategory = "detection"
)

// ErrorCounters tracks how often each failure category occurs. Every
// per-frame or per-request failure degrades to a safe state and lands here
// instead of stopping a loop.
type ErrorCounters struct {
	mu     sync.Mutex
	counts map[ErrorCategory]int64
}

// NewErrorCounters creates an empty counter set.
func NewErrorCounters() *ErrorCounters {
	return &ErrorCounters{
		counts: make(map[ErrorCategory]int64),
	}
}

// Inc increments the counter for a category.
func (ec *ErrorCounters) Inc(category ErrorCategory) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.counts[category]++
}

// Get returns the count for a category.
func (ec *ErrorCounters) Get(category ErrorCategory) int64 {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.counts[category]
}

// Snapshot returns a copy of all counters.
func (ec *ErrorCounters) Snapshot() map[ErrorCategory]int64 {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	out := make(map[ErrorCategory]int64, len(ec.counts))
	for k, v := range ec.counts {
		out[k] = v
	}
	return out
}
