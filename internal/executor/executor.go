package executor

import (
	"sync"
	"time"

	"arkengard.com/ability-bot-go/internal/ability"
	"arkengard.com/ability-bot-go/internal/cv"
	"arkengard.com/ability-bot-go/internal/events"
	"arkengard.com/ability-bot-go/internal/input"
	"arkengard.com/ability-bot-go/internal/logging"
)

// Verifier re-classifies an ability's bound region after an action to
// confirm it visibly registered.
type Verifier interface {
	VerifyState(ab ability.Ability, region cv.Region, cfg *ability.DetectionConfig) (ability.State, float64)
}

// HistorySink receives completed results for persistence. Sink errors are
// logged, never propagated into the execution path.
type HistorySink interface {
	RecordExecution(Result) error
}

// ResourceProvider supplies the current resource snapshot that ability
// precondition clauses are evaluated against.
type ResourceProvider func() ability.ResourceSnapshot

// Config holds the execution engine tunables.
type Config struct {
	GlobalCooldown    time.Duration
	MinGlobalCooldown time.Duration
	MaxGlobalCooldown time.Duration

	VerifyDelay    time.Duration
	RetryDelay     time.Duration
	MaxRetries     int
	RequestTimeout time.Duration
	AutoRetry      bool

	// Adaptive tuning moves the effective global cooldown between the
	// min/max bounds based on the rolling average latency. Disabled, the
	// configured GlobalCooldown is used as-is.
	AdaptiveTuning bool
	HighLatency    time.Duration
	LowLatency     time.Duration
}

// DefaultConfig returns recommended execution settings.
func DefaultConfig() Config {
	return Config{
		GlobalCooldown:    1 * time.Second,
		MinGlobalCooldown: 750 * time.Millisecond,
		MaxGlobalCooldown: 2 * time.Second,
		VerifyDelay:       150 * time.Millisecond,
		RetryDelay:        200 * time.Millisecond,
		MaxRetries:        2,
		RequestTimeout:    5 * time.Second,
		AutoRetry:         true,
		AdaptiveTuning:    false,
		HighLatency:       400 * time.Millisecond,
		LowLatency:        100 * time.Millisecond,
	}
}

// Engine schedules and performs ability executions: a priority queue
// drained by a single worker, a global cooldown gate over every action,
// optional post-execution verification, and retry on failure.
type Engine struct {
	cfg      Config
	sender   input.Sender
	verifier Verifier
	bus      events.EventBus
	sink     HistorySink

	queue *requestQueue
	stats *statsTracker
	log   *logging.Logger

	// actionMu serializes the actual key presses: the worker and any
	// inline immediate caller both take it before acting, so no two
	// actions can land inside one global cooldown.
	actionMu sync.Mutex

	// mu guards lastAction, gcd, and the profile-owned pointers. A
	// profile swap rebinds table and detectCfg mid-run.
	mu         sync.Mutex
	table      *ability.StateTable
	detectCfg  *ability.DetectionConfig
	resources  ResourceProvider
	lastAction time.Time
	gcd        time.Duration

	stopCh  chan struct{}
	stopped sync.Once
	wg      sync.WaitGroup
}

// New creates an execution engine. verifier and sink may be nil; bus may be
// nil when no one consumes events.
func New(cfg Config, table *ability.StateTable, sender input.Sender, verifier Verifier, detectCfg *ability.DetectionConfig, bus events.EventBus) *Engine {
	if cfg.GlobalCooldown <= 0 {
		cfg.GlobalCooldown = DefaultConfig().GlobalCooldown
	}
	if cfg.MinGlobalCooldown <= 0 {
		cfg.MinGlobalCooldown = cfg.GlobalCooldown
	}
	if cfg.MaxGlobalCooldown < cfg.MinGlobalCooldown {
		cfg.MaxGlobalCooldown = cfg.MinGlobalCooldown
	}

	e := &Engine{
		cfg:       cfg,
		table:     table,
		sender:    sender,
		verifier:  verifier,
		detectCfg: detectCfg,
		bus:       bus,
		queue:     newRequestQueue(),
		stats:     newStatsTracker(),
		log:       logging.NewLogger("Executor"),
		gcd:       cfg.GlobalCooldown,
		stopCh:    make(chan struct{}),
		// Engine start opens a full cooldown window: simultaneous
		// immediate requests land in the queue and execute in priority
		// order instead of racing for the inline path.
		lastAction: time.Now(),
	}

	e.wg.Add(1)
	go e.worker()

	return e
}

// WithHistorySink attaches a persistence sink for completed results.
func (e *Engine) WithHistorySink(sink HistorySink) *Engine {
	e.sink = sink
	return e
}

// WithResourceProvider attaches a snapshot source for precondition
// clauses. Without one, any ability carrying clauses is gated closed.
func (e *Engine) WithResourceProvider(provider ResourceProvider) *Engine {
	e.mu.Lock()
	e.resources = provider
	e.mu.Unlock()
	return e
}

// Rebind points the engine at a different state table and detection
// config. Called on a profile swap so readiness gating and verification
// follow the newly active profile.
func (e *Engine) Rebind(table *ability.StateTable, detectCfg *ability.DetectionConfig) {
	e.mu.Lock()
	e.table = table
	e.detectCfg = detectCfg
	e.mu.Unlock()
}

func (e *Engine) stateTable() *ability.StateTable {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.table
}

func (e *Engine) detectConfig() *ability.DetectionConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.detectCfg
}

// Execute submits an execution request. Immediate requests run inline on
// the caller when the ability is ready and the global cooldown has elapsed;
// otherwise they are demoted to the queue exactly once. Returns whether the
// request was accepted.
func (e *Engine) Execute(abilityName string, mode Mode, priority int, verify bool) bool {
	table := e.stateTable()
	ab, ok := table.Get(abilityName)
	if !ok || !ab.Enabled {
		return false
	}

	if priority < 1 {
		priority = 1
	}
	if priority > 10 {
		priority = 10
	}

	req := &Request{
		Ability:    abilityName,
		Priority:   priority,
		Verify:     verify,
		MaxRetries: e.cfg.MaxRetries,
		CreatedAt:  time.Now(),
		Timeout:    e.cfg.RequestTimeout,
	}

	if mode == ModeQueued {
		return e.queue.Push(req)
	}

	now := time.Now()
	if !e.readyToAct(table, abilityName, now) {
		if e.cfg.AutoRetry && req.MaxRetries > 0 {
			return e.queue.Push(req)
		}
		return false
	}

	if e.cooldownElapsed(now) && e.actionMu.TryLock() {
		// Re-check under the lock: another action may have landed
		// between the check and the acquire.
		if e.cooldownElapsed(time.Now()) {
			e.performLocked(req)
			return true
		}
		e.actionMu.Unlock()
	}

	// Demotion path: queued instead of executed, never both.
	return e.queue.Push(req)
}

// QueueDepth returns the number of pending requests.
func (e *Engine) QueueDepth() int {
	return e.queue.Len()
}

// Stats returns a snapshot of the running counters.
func (e *Engine) Stats() Stats {
	return e.stats.Snapshot()
}

// History returns the bounded recent results, oldest first.
func (e *Engine) History() []Result {
	return e.stats.History()
}

// GlobalCooldown returns the current (possibly tuned) global cooldown.
func (e *Engine) GlobalCooldown() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gcd
}

// Stop cancels the worker and clears the queue. Pending requests are
// dropped without execution; an in-flight request finishes its single
// verification read but is not retried afterwards.
func (e *Engine) Stop() {
	e.stopped.Do(func() {
		close(e.stopCh)
		e.queue.Close()
	})
	e.wg.Wait()
}

// worker drains the priority queue strictly one request at a time.
func (e *Engine) worker() {
	defer e.wg.Done()

	for {
		req, ok := e.queue.Pop()
		if !ok {
			return
		}

		now := time.Now()
		if req.Expired(now) {
			// Stale intent: discard silently.
			e.stats.AddStaleDrop()
			e.notifyIfIdle()
			continue
		}

		if !e.readyToAct(e.stateTable(), req.Ability, now) {
			e.handleNotReady(req)
			e.notifyIfIdle()
			continue
		}

		e.actionMu.Lock()
		if !e.waitForCooldown() {
			e.actionMu.Unlock()
			return
		}
		e.performLocked(req)
		e.notifyIfIdle()
	}
}

// readyToAct combines the state gate with the ability's precondition
// clauses. Clauses without a resource snapshot source fail closed.
func (e *Engine) readyToAct(table *ability.StateTable, name string, now time.Time) bool {
	if !table.Ready(name, now) {
		return false
	}

	ab, ok := table.Get(name)
	if !ok {
		return false
	}
	if len(ab.Preconditions) == 0 {
		return true
	}

	e.mu.Lock()
	provider := e.resources
	e.mu.Unlock()
	if provider == nil {
		return false
	}
	return ab.PreconditionsMet(provider())
}

// waitForCooldown sleeps until the global cooldown window opens. Returns
// false if the engine stopped while waiting. Caller holds actionMu.
func (e *Engine) waitForCooldown() bool {
	for {
		e.mu.Lock()
		remaining := e.gcd - time.Since(e.lastAction)
		e.mu.Unlock()

		if remaining <= 0 {
			return true
		}

		select {
		case <-time.After(remaining):
		case <-e.stopCh:
			return false
		}
	}
}

func (e *Engine) cooldownElapsed(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return now.Sub(e.lastAction) >= e.gcd
}

// performLocked carries out the input action and optional verification.
// Caller holds actionMu; it is released here.
func (e *Engine) performLocked(req *Request) {
	defer e.actionMu.Unlock()

	start := time.Now()
	result := Result{Ability: req.Ability, At: start}

	table := e.stateTable()
	ab, ok := table.Get(req.Ability)
	if !ok {
		result.Reason = "ability no longer registered"
		e.finish(req, result)
		return
	}

	inputStart := time.Now()
	sent := e.sender.SendKey(ab.Key)
	result.InputTime = time.Since(inputStart)

	if !sent {
		result.Reason = "transport failure"
		result.Latency = time.Since(start)
		e.retryOrFail(req, result)
		return
	}

	actionTime := time.Now()
	table.MarkUsed(req.Ability, actionTime)
	e.mu.Lock()
	e.lastAction = actionTime
	e.mu.Unlock()
	result.Success = true

	if req.Verify {
		result.Verified, result.VerifyTime = e.verify(ab)
		if !result.Verified {
			// The input went out; a failed verification is a warning,
			// not grounds to retry an otherwise-successful action.
			e.log.WarnWithContext("verification did not confirm action", map[string]interface{}{
				"ability": req.Ability,
			})
		}
	}

	result.Latency = time.Since(start)
	e.finish(req, result)
}

// verify waits briefly and re-classifies the ability's bound region. The
// action registered if the post-state reads COOLDOWN.
func (e *Engine) verify(ab ability.Ability) (bool, time.Duration) {
	if e.verifier == nil || ab.Position == nil {
		return false, 0
	}

	start := time.Now()

	select {
	case <-time.After(e.cfg.VerifyDelay):
	case <-e.stopCh:
		// Allowed to finish the single verification read after a stop.
	}

	state, confidence := e.verifier.VerifyState(ab, *ab.Position, e.detectConfig())
	e.stateTable().SetState(ab.Name, state, confidence, time.Now())

	return state == ability.StateCooldown, time.Since(start)
}

// handleNotReady re-enqueues a request whose ability is not ready, if
// retries remain, or records it as failed.
func (e *Engine) handleNotReady(req *Request) {
	if e.cfg.AutoRetry && req.Retries < req.MaxRetries {
		e.scheduleRetry(req)
		return
	}

	e.finish(req, Result{
		Ability: req.Ability,
		Reason:  "ability not ready",
		At:      time.Now(),
	})
}

// retryOrFail re-enqueues after a transport failure when retries remain.
func (e *Engine) retryOrFail(req *Request, result Result) {
	if req.Retries < req.MaxRetries {
		e.scheduleRetry(req)
		return
	}
	e.finish(req, result)
}

func (e *Engine) scheduleRetry(req *Request) {
	e.stats.AddRetry()
	retry := *req
	retry.Retries++

	time.AfterFunc(e.cfg.RetryDelay, func() {
		select {
		case <-e.stopCh:
			// No retries after a stop signal.
		default:
			e.queue.Push(&retry)
		}
	})
}

// finish records the result, feeds the history sink, retunes, and emits the
// completion event.
func (e *Engine) finish(req *Request, result Result) {
	e.stats.Record(result)

	if e.sink != nil {
		if err := e.sink.RecordExecution(result); err != nil {
			e.log.Error("failed to persist execution result", err)
		}
	}

	if e.cfg.AdaptiveTuning {
		e.retune()
	}

	if e.bus != nil {
		e.bus.Publish(events.NewExecutionCompletedEvent(result.Ability, result.Success, result.Verified, result.Latency))
	}
}

// retune maps the rolling average latency onto the [min, max] cooldown
// range. A pure function of the average, so retuning over unchanged
// history is idempotent.
func (e *Engine) retune() {
	avg := e.stats.Snapshot().AvgLatency
	low, high := e.cfg.LowLatency, e.cfg.HighLatency
	min, max := e.cfg.MinGlobalCooldown, e.cfg.MaxGlobalCooldown

	var fraction float64
	switch {
	case high <= low || avg <= low:
		fraction = 0
	case avg >= high:
		fraction = 1
	default:
		fraction = float64(avg-low) / float64(high-low)
	}

	tuned := min + time.Duration(fraction*float64(max-min))

	e.mu.Lock()
	e.gcd = tuned
	e.mu.Unlock()
}

func (e *Engine) notifyIfIdle() {
	if e.bus != nil && e.queue.Len() == 0 {
		e.bus.Publish(events.NewQueueIdleEvent())
	}
}
