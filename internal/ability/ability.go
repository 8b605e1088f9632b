package ability

import (
	"time"

	"arkengard.com/ability-bot-go/internal/cv"
)

// State is the classified usability of an ability.
type State string

const (
	StateReady       State = "READY"
	StateCooldown    State = "COOLDOWN"
	StateCasting     State = "CASTING"
	StateUnavailable State = "UNAVAILABLE"
	StateNotLearned  State = "NOT_LEARNED"
	// StateUnknown is both the initial state and the fallback on any
	// classification failure. It is never safe to execute from.
	StateUnknown State = "UNKNOWN"
)

// Category describes how an ability is driven.
type Category string

const (
	CategoryInstant   Category = "instant"
	CategoryTimedBuff Category = "timed_buff"
	// CategoryManual abilities have no icon; they never leave UNKNOWN via
	// classification and are driven purely by their declared timers.
	CategoryManual Category = "manual"
	CategoryCombo  Category = "combo"
)

// Ability is a single game action bound to an input key, optionally
// represented by an on-screen icon.
type Ability struct {
	// Identity
	Name     string
	Key      string
	Category Category

	// Visual identity
	IconPath string     // empty for manual abilities
	Position *cv.Region // bound once located on the bar

	// Timing
	Cooldown time.Duration
	CastTime time.Duration
	LastUsed time.Time

	// Detection
	State         State
	Confidence    float64
	LastDetection time.Time

	// Policy
	Enabled       bool
	Priority      int // 1-10, higher executes first
	ResourceCost  int
	Preconditions []Clause
}

// HasIcon reports whether the ability can be classified visually.
func (a *Ability) HasIcon() bool {
	return a.IconPath != ""
}

// RemainingCooldown returns the time left until the declared cooldown has
// elapsed at instant t. Never negative.
func (a *Ability) RemainingCooldown(t time.Time) time.Duration {
	if a.LastUsed.IsZero() {
		return 0
	}
	remaining := a.Cooldown - t.Sub(a.LastUsed)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// TimerReady reports whether the declared cooldown has elapsed at t. This
// is the readiness gate for manual abilities, which carry no icon.
func (a *Ability) TimerReady(t time.Time) bool {
	return a.RemainingCooldown(t) == 0
}

// Clause is a precondition on executing an ability, evaluated against a
// caller-supplied resource snapshot.
type Clause struct {
	Stat    string  `yaml:"stat"`    // e.g. "health", "mana"
	Op      string  `yaml:"op"`      // "below" or "above"
	Percent float64 `yaml:"percent"` // 0-100
}

// ResourceSnapshot is the caller's view of current resource percentages.
type ResourceSnapshot map[string]float64

// Eval checks the clause against a snapshot. A stat missing from the
// snapshot fails the clause; preconditions gate actions, so an unknown
// value must not allow one.
func (c Clause) Eval(snap ResourceSnapshot) bool {
	value, ok := snap[c.Stat]
	if !ok {
		return false
	}

	switch c.Op {
	case "below":
		return value < c.Percent
	case "above":
		return value > c.Percent
	default:
		return false
	}
}

// PreconditionsMet evaluates every clause; all must pass. No clauses means
// no gate.
func (a *Ability) PreconditionsMet(snap ResourceSnapshot) bool {
	for _, clause := range a.Preconditions {
		if !clause.Eval(snap) {
			return false
		}
	}
	return true
}
