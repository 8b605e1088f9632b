package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"arkengard.com/ability-bot-go/internal/ability"
	"arkengard.com/ability-bot-go/internal/classifier"
	"arkengard.com/ability-bot-go/internal/config"
	"arkengard.com/ability-bot-go/internal/cv"
	"arkengard.com/ability-bot-go/internal/events"
	"arkengard.com/ability-bot-go/internal/executor"
	"arkengard.com/ability-bot-go/internal/logging"
	"arkengard.com/ability-bot-go/pkg/icons"
)

// Coordinator owns the active profile and drives the detection side of the
// system: bar scanning, the background monitoring loop, rotation
// advancement, and event fan-out.
type Coordinator struct {
	mu sync.RWMutex

	profileName    string
	table          *ability.StateTable
	rotations      map[string]*ability.Rotation
	rotationOrder  []string
	activeRotation string
	detectCfg      *ability.DetectionConfig

	bar *ability.BarMapping

	classifier *classifier.Classifier
	scanner    *classifier.BarScanner
	exec       *executor.Engine
	registry   *icons.Registry
	bus        events.EventBus

	log    *logging.Logger
	errors *logging.ErrorCounters

	cancelMonitor context.CancelFunc
	monitorWG     sync.WaitGroup
}

// NewCoordinator wires the detection components together. The executor may
// be attached later with SetExecutor when construction order demands it.
func NewCoordinator(cls *classifier.Classifier, registry *icons.Registry, bus events.EventBus) *Coordinator {
	return &Coordinator{
		table:      ability.NewStateTable(),
		rotations:  make(map[string]*ability.Rotation),
		detectCfg:  ability.DefaultDetectionConfig(),
		classifier: cls,
		scanner:    classifier.NewBarScanner(cls),
		registry:   registry,
		bus:        bus,
		log:        logging.NewLogger("Coordinator"),
		errors:     logging.NewErrorCounters(),
	}
}

// SetExecutor attaches the execution engine and binds it to the current
// profile's state table.
func (c *Coordinator) SetExecutor(exec *executor.Engine) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exec = exec
	if exec != nil {
		exec.Rebind(c.table, c.detectCfg)
	}
}

// Table exposes the readiness model.
func (c *Coordinator) Table() *ability.StateTable {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.table
}

// DetectionConfig returns the active profile's tunables.
func (c *Coordinator) DetectionConfig() *ability.DetectionConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.detectCfg
}

// Errors exposes the coordinator's failure counters.
func (c *Coordinator) Errors() *logging.ErrorCounters {
	return c.errors
}

// LoadProfile swaps in a new profile, resetting all scan state. This is the
// only supported way to change targets mid-run.
func (c *Coordinator) LoadProfile(profile *config.Profile) error {
	table := ability.NewStateTable()
	for _, ab := range profile.Abilities {
		clone := *ab
		if err := table.Add(&clone); err != nil {
			return fmt.Errorf("load profile %s: %w", profile.Name, err)
		}
	}

	rotations := make(map[string]*ability.Rotation, len(profile.Rotations))
	var order []string
	for _, rot := range profile.Rotations {
		fresh := ability.NewRotation(rot.Name, rot.Abilities, rot.Repeat, rot.Adaptive)
		rotations[rot.Name] = fresh
		order = append(order, rot.Name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.profileName = profile.Name
	c.table = table
	c.rotations = rotations
	c.rotationOrder = order
	c.activeRotation = profile.ActiveRotation
	c.detectCfg = profile.Detection
	if c.bar != nil {
		c.bar.Clear()
	}
	if c.exec != nil {
		// The executor gates and verifies against the newly active
		// profile, not the one it was constructed with.
		c.exec.Rebind(c.table, c.detectCfg)
	}

	c.log.InfoWithContext("profile loaded", map[string]interface{}{
		"profile":   profile.Name,
		"abilities": len(profile.Abilities),
		"rotations": len(profile.Rotations),
	})
	return nil
}

// Initialize binds the bar geometry and preloads icon templates for the
// profile's abilities. Partial icon loads are allowed and logged; an
// ability whose icon cannot load simply stays UNKNOWN.
func (c *Coordinator) Initialize(bar cv.Region, slotCount int, rescanInterval time.Duration) {
	c.mu.Lock()
	c.bar = ability.NewBarMapping(bar, slotCount, rescanInterval)
	table := c.table
	c.mu.Unlock()

	loaded, failed := 0, 0
	for _, ab := range table.Snapshot() {
		if !ab.HasIcon() {
			continue
		}
		if !c.registry.Has(ab.Name) {
			c.registry.Add(icons.Icon{Name: ab.Name, Path: ab.IconPath, Threshold: 0.85})
		}
		if _, _, err := c.registry.Cache().Get(ab.Name); err != nil {
			failed++
			c.log.WarnWithContext("icon preload failed", map[string]interface{}{
				"ability": ab.Name,
				"error":   err.Error(),
			})
			continue
		}
		loaded++
	}

	c.log.InfoWithContext("initialized", map[string]interface{}{
		"slots":       slotCount,
		"iconsLoaded": loaded,
		"iconsFailed": failed,
	})
}

// Bar returns the current bar mapping.
func (c *Coordinator) Bar() *ability.BarMapping {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bar
}

// AutoDetect runs a one-shot full bar scan, updating ability positions and
// emitting a detected event per matched ability. Exceptions inside the scan
// are counted, not propagated.
func (c *Coordinator) AutoDetect() map[int]classifier.SlotMatch {
	c.mu.RLock()
	bar := c.bar
	table := c.table
	cfg := c.detectCfg
	c.mu.RUnlock()

	if bar == nil {
		c.log.Warn("autodetect before initialize: no bar geometry")
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			c.errors.Inc(logging.ErrorCategoryDetection)
			c.log.Error("autodetect panicked", fmt.Errorf("%v", r))
		}
	}()

	results := c.scanner.Scan(bar, table, cfg)
	for slot, match := range results {
		c.bus.Publish(events.NewAbilityDetectedEvent(slot, match.Ability, match.Result.Confidence))
	}
	return results
}

// GetNextFromRotation resolves a rotation (explicit name, else the active
// rotation, else the first defined) and returns the next ability if it is
// currently ready. Adaptive rotations skip not-ready entries up to once
// around the full list before giving up.
func (c *Coordinator) GetNextFromRotation(name string) (ability.Ability, bool) {
	c.mu.Lock()
	rot := c.resolveRotationLocked(name)
	if rot == nil {
		c.mu.Unlock()
		return ability.Ability{}, false
	}

	attempts := 1
	if rot.Adaptive {
		attempts = rot.Len()
	}

	now := time.Now()
	table := c.table
	for i := 0; i < attempts; i++ {
		abilityName, ok := rot.Peek()
		if !ok {
			break
		}
		if table.Ready(abilityName, now) {
			rot.Next()
			c.mu.Unlock()
			ab, found := table.Get(abilityName)
			return ab, found
		}
		if !rot.Adaptive {
			// Non-adaptive rotations stall on a not-ready entry rather
			// than consuming it.
			break
		}
		rot.Skip()
	}

	c.mu.Unlock()
	return ability.Ability{}, false
}

func (c *Coordinator) resolveRotationLocked(name string) *ability.Rotation {
	if name != "" {
		return c.rotations[name]
	}
	if c.activeRotation != "" {
		return c.rotations[c.activeRotation]
	}
	if len(c.rotationOrder) > 0 {
		return c.rotations[c.rotationOrder[0]]
	}
	return nil
}

// SetActiveRotation validates the rotation exists, resets its cursor, and
// swaps the pointer. Other rotations' cursors are untouched.
func (c *Coordinator) SetActiveRotation(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rot, ok := c.rotations[name]
	if !ok {
		return fmt.Errorf("rotation %q not defined in profile %s", name, c.profileName)
	}

	rot.Reset()
	c.activeRotation = name
	return nil
}

// ActiveRotation returns the active rotation name.
func (c *Coordinator) ActiveRotation() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.activeRotation
}

// Execute forwards an execution request to the engine.
func (c *Coordinator) Execute(abilityName string, mode executor.Mode, priority int, verify bool) bool {
	c.mu.RLock()
	exec := c.exec
	c.mu.RUnlock()

	if exec == nil {
		return false
	}
	return exec.Execute(abilityName, mode, priority, verify)
}

// StartMonitoring launches the background polling loop. Stop it through
// the returned context's cancel via StopMonitoring.
func (c *Coordinator) StartMonitoring() {
	c.mu.Lock()
	if c.cancelMonitor != nil {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancelMonitor = cancel
	c.mu.Unlock()

	c.monitorWG.Add(1)
	go c.monitorLoop(ctx)
}

// StopMonitoring cancels the polling loop and waits for it to exit.
func (c *Coordinator) StopMonitoring() {
	c.mu.Lock()
	cancel := c.cancelMonitor
	c.cancelMonitor = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		c.monitorWG.Wait()
	}
}

// monitorLoop re-classifies every positioned ability at the poll interval
// and emits a state-changed event on each transition. One bad iteration
// logs, counts, and backs off instead of spinning.
func (c *Coordinator) monitorLoop(ctx context.Context) {
	defer c.monitorWG.Done()

	backoff := time.Duration(0)
	for {
		c.mu.RLock()
		interval := c.detectCfg.PollInterval
		c.mu.RUnlock()

		delay := interval + backoff
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		if err := c.pollOnce(); err != nil {
			c.errors.Inc(logging.ErrorCategoryMonitor)
			c.log.Error("monitoring iteration failed", err)
			c.bus.Publish(events.NewErrorEvent("coordinator", err))

			backoff += interval
			if backoff > 10*interval {
				backoff = 10 * interval
			}
			continue
		}
		backoff = 0
	}
}

// pollOnce classifies every positioned ability and applies transitions.
func (c *Coordinator) pollOnce() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("monitor panic: %v", r)
		}
	}()

	c.mu.RLock()
	table := c.table
	cfg := c.detectCfg
	c.mu.RUnlock()

	for _, ab := range table.Positioned() {
		result := c.classifier.Classify(ab, *ab.Position, cfg)

		prev, applied := table.SetState(ab.Name, result.State, result.Confidence, result.At)
		if applied && prev != result.State {
			c.bus.Publish(events.NewStateChangedEvent(ab.Name, string(prev), string(result.State)))
		}
	}

	return nil
}

// Stop shuts down the monitoring loop and the execution engine.
func (c *Coordinator) Stop() {
	c.StopMonitoring()

	c.mu.RLock()
	exec := c.exec
	c.mu.RUnlock()
	if exec != nil {
		exec.Stop()
	}
}
