package ability

import (
	"fmt"
	"sync"
	"time"

	"arkengard.com/ability-bot-go/internal/cv"
)

// StateTable owns the mutable per-ability state. The monitoring loop and
// the execution engine both update it concurrently; all access goes through
// these accessors, and detection updates are last-writer-wins by timestamp
// so a stale classification cannot overwrite a fresher one.
type StateTable struct {
	mu        sync.RWMutex
	abilities map[string]*Ability
}

// NewStateTable creates an empty table.
func NewStateTable() *StateTable {
	return &StateTable{
		abilities: make(map[string]*Ability),
	}
}

// Add registers an ability. Name collisions are an error; profiles are
// validated against duplicates at load time.
func (st *StateTable) Add(a *Ability) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, exists := st.abilities[a.Name]; exists {
		return fmt.Errorf("ability %q already registered", a.Name)
	}
	if a.State == "" {
		a.State = StateUnknown
	}

	st.abilities[a.Name] = a
	return nil
}

// Get returns a snapshot copy of an ability.
func (st *StateTable) Get(name string) (Ability, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	a, ok := st.abilities[name]
	if !ok {
		return Ability{}, false
	}
	return *a, true
}

// Names returns all registered ability names.
func (st *StateTable) Names() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()

	names := make([]string, 0, len(st.abilities))
	for name := range st.abilities {
		names = append(names, name)
	}
	return names
}

// Snapshot returns copies of every ability.
func (st *StateTable) Snapshot() []Ability {
	st.mu.RLock()
	defer st.mu.RUnlock()

	out := make([]Ability, 0, len(st.abilities))
	for _, a := range st.abilities {
		out = append(out, *a)
	}
	return out
}

// Positioned returns copies of every enabled ability with a bound screen
// position. These are the monitoring loop's targets.
func (st *StateTable) Positioned() []Ability {
	st.mu.RLock()
	defer st.mu.RUnlock()

	var out []Ability
	for _, a := range st.abilities {
		if a.Enabled && a.Position != nil {
			out = append(out, *a)
		}
	}
	return out
}

// SetState records a classification result. Manual abilities never leave
// UNKNOWN via classification. Updates older than the recorded detection are
// dropped (last-writer-wins). Returns the previous state and whether the
// update was applied.
func (st *StateTable) SetState(name string, state State, confidence float64, at time.Time) (State, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	a, ok := st.abilities[name]
	if !ok {
		return StateUnknown, false
	}
	if !a.HasIcon() {
		return a.State, false
	}
	if at.Before(a.LastDetection) {
		return a.State, false
	}

	prev := a.State
	a.State = state
	a.Confidence = confidence
	a.LastDetection = at
	return prev, true
}

// MarkUsed stamps the last-used time after a successful input action and
// flips the recorded state to COOLDOWN so the readiness gate closes
// immediately instead of waiting for the next poll.
func (st *StateTable) MarkUsed(name string, at time.Time) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	a, ok := st.abilities[name]
	if !ok {
		return false
	}

	a.LastUsed = at
	if a.HasIcon() {
		a.State = StateCooldown
		a.LastDetection = at
	}
	return true
}

// SetPosition binds (or rebinds) an ability's on-screen region.
func (st *StateTable) SetPosition(name string, region cv.Region) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	a, ok := st.abilities[name]
	if !ok {
		return false
	}

	a.Position = &region
	return true
}

// Ready reports whether an ability may be executed now: classified READY
// for icon abilities, elapsed declared timer for manual ones.
func (st *StateTable) Ready(name string, now time.Time) bool {
	st.mu.RLock()
	defer st.mu.RUnlock()

	a, ok := st.abilities[name]
	if !ok || !a.Enabled {
		return false
	}

	if !a.HasIcon() {
		return a.TimerReady(now)
	}
	return a.State == StateReady
}

// Reset returns every ability to its initial detection state. Used on
// profile reload.
func (st *StateTable) Reset() {
	st.mu.Lock()
	defer st.mu.Unlock()

	for _, a := range st.abilities {
		a.State = StateUnknown
		a.Confidence = 0
		a.LastDetection = time.Time{}
		a.Position = nil
	}
}
