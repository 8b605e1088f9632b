package executor

import "time"

// Mode selects how an execution request is handled.
type Mode int

const (
	// ModeImmediate executes inline on the caller when the global
	// cooldown already elapsed; otherwise the request is demoted to the
	// queue.
	ModeImmediate Mode = iota
	// ModeQueued always goes through the priority queue.
	ModeQueued
)

// Request is one intent to execute an ability.
type Request struct {
	Ability    string
	Priority   int // 1-10, higher first
	Verify     bool
	Retries    int
	MaxRetries int
	CreatedAt  time.Time
	Timeout    time.Duration

	// arrival breaks priority ties: older first.
	arrival int64
}

// Expired reports whether the request outlived its timeout at instant now.
// Expired requests are dropped at dequeue, never executed.
func (r *Request) Expired(now time.Time) bool {
	if r.Timeout <= 0 {
		return false
	}
	return now.Sub(r.CreatedAt) > r.Timeout
}

// Result is the outcome of one execution attempt.
type Result struct {
	Ability    string
	Success    bool
	Verified   bool
	Latency    time.Duration
	InputTime  time.Duration
	VerifyTime time.Duration
	Reason     string
	At         time.Time
}
