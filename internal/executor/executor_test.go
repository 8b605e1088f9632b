package executor

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"arkengard.com/ability-bot-go/internal/ability"
	"arkengard.com/ability-bot-go/internal/cv"
	"arkengard.com/ability-bot-go/internal/input"
)

// recordingSender captures every key press with its timestamp.
type recordingSender struct {
	mu       sync.Mutex
	keys     []string
	times    []time.Time
	failNext int
}

func (s *recordingSender) SendKey(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNext > 0 {
		s.failNext--
		return false
	}
	s.keys = append(s.keys, key)
	s.times = append(s.times, time.Now())
	return true
}

func (s *recordingSender) sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

func (s *recordingSender) sentTimes() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Time, len(s.times))
	copy(out, s.times)
	return out
}

// fixedVerifier always reports the given state.
type fixedVerifier struct {
	state ability.State
}

func (v *fixedVerifier) VerifyState(ab ability.Ability, region cv.Region, cfg *ability.DetectionConfig) (ability.State, float64) {
	return v.state, 0.9
}

func manualAbility(name, key string) *ability.Ability {
	return &ability.Ability{
		Name:     name,
		Key:      key,
		Category: ability.CategoryManual,
		Enabled:  true,
		Priority: 5,
	}
}

func fastConfig() Config {
	return Config{
		GlobalCooldown:    40 * time.Millisecond,
		MinGlobalCooldown: 20 * time.Millisecond,
		MaxGlobalCooldown: 80 * time.Millisecond,
		VerifyDelay:       10 * time.Millisecond,
		RetryDelay:        10 * time.Millisecond,
		MaxRetries:        2,
		RequestTimeout:    2 * time.Second,
		AutoRetry:         true,
		HighLatency:       400 * time.Millisecond,
		LowLatency:        100 * time.Millisecond,
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestExecuteUnknownAbility(t *testing.T) {
	table := ability.NewStateTable()
	e := New(fastConfig(), table, &recordingSender{}, nil, nil, nil)
	defer e.Stop()

	if e.Execute("Ghost", ModeQueued, 5, false) {
		t.Error("unregistered ability must be rejected")
	}
}

func TestQueuedExecution(t *testing.T) {
	table := ability.NewStateTable()
	table.Add(manualAbility("Potion", "q"))

	sender := &recordingSender{}
	e := New(fastConfig(), table, sender, nil, nil, nil)
	defer e.Stop()

	if !e.Execute("Potion", ModeQueued, 5, false) {
		t.Fatal("queued request rejected")
	}

	waitFor(t, time.Second, func() bool { return e.Stats().Succeeded == 1 })

	if got := sender.sent(); len(got) != 1 || got[0] != "q" {
		t.Errorf("sent keys: %v", got)
	}

	pot, _ := table.Get("Potion")
	if pot.LastUsed.IsZero() {
		t.Error("successful execution must stamp LastUsed")
	}
}

func TestGlobalCooldownSpacing(t *testing.T) {
	table := ability.NewStateTable()
	table.Add(manualAbility("A", "1"))
	table.Add(manualAbility("B", "2"))
	table.Add(manualAbility("C", "3"))

	cfg := fastConfig()
	cfg.GlobalCooldown = 60 * time.Millisecond

	sender := &recordingSender{}
	e := New(cfg, table, sender, nil, nil, nil)
	defer e.Stop()

	e.Execute("A", ModeQueued, 5, false)
	e.Execute("B", ModeQueued, 5, false)
	e.Execute("C", ModeQueued, 5, false)

	waitFor(t, 2*time.Second, func() bool { return e.Stats().Total == 3 })

	times := sender.sentTimes()
	if len(times) != 3 {
		t.Fatalf("got %d sends, want 3", len(times))
	}
	for i := 1; i < len(times); i++ {
		gap := times[i].Sub(times[i-1])
		if gap < cfg.GlobalCooldown-5*time.Millisecond {
			t.Errorf("actions %d/%d only %v apart, cooldown is %v", i-1, i, gap, cfg.GlobalCooldown)
		}
	}
}

func TestQueuedPriorityOrdering(t *testing.T) {
	table := ability.NewStateTable()
	names := []string{"P1", "P2", "P3", "P4", "P5"}
	for i, name := range names {
		a := manualAbility(name, name)
		a.Priority = i + 1
		table.Add(a)
	}

	sender := &recordingSender{}
	e := New(fastConfig(), table, sender, nil, nil, nil)
	defer e.Stop()

	for i, name := range names {
		e.Execute(name, ModeQueued, i+1, false)
	}

	waitFor(t, 3*time.Second, func() bool { return e.Stats().Total == 5 })

	// The worker may grab one request before the rest arrive, but every
	// execution after the first must come out in descending priority.
	got := sender.sent()
	prio := map[string]int{"P1": 1, "P2": 2, "P3": 3, "P4": 4, "P5": 5}
	for i := 2; i < len(got); i++ {
		if prio[got[i]] > prio[got[i-1]] {
			t.Errorf("priority inversion at %d: %v", i, got)
		}
	}
}

func TestImmediateInline(t *testing.T) {
	table := ability.NewStateTable()
	table.Add(manualAbility("Potion", "q"))

	cfg := fastConfig()
	sender := &recordingSender{}
	e := New(cfg, table, sender, nil, nil, nil)
	defer e.Stop()

	// Engine start opens a cooldown window; wait it out so the inline
	// path is available.
	time.Sleep(cfg.GlobalCooldown + 10*time.Millisecond)

	if !e.Execute("Potion", ModeImmediate, 5, false) {
		t.Fatal("immediate request rejected")
	}

	// Inline execution is synchronous: the key is out before Execute
	// returns.
	if got := sender.sent(); len(got) != 1 {
		t.Errorf("expected synchronous send, got %v", got)
	}
	if e.QueueDepth() != 0 {
		t.Error("inline execution must not also enqueue")
	}
}

func TestImmediateDemotedDuringCooldown(t *testing.T) {
	table := ability.NewStateTable()
	table.Add(manualAbility("Potion", "q"))

	cfg := fastConfig()
	cfg.GlobalCooldown = 200 * time.Millisecond

	sender := &recordingSender{}
	e := New(cfg, table, sender, nil, nil, nil)
	defer e.Stop()

	// Inside the startup cooldown window the request must queue, not run.
	if !e.Execute("Potion", ModeImmediate, 5, false) {
		t.Fatal("demoted request should still be accepted")
	}
	if got := sender.sent(); len(got) != 0 {
		t.Errorf("no key press inside cooldown window, got %v", got)
	}

	// It still executes once the window opens.
	waitFor(t, 2*time.Second, func() bool { return e.Stats().Succeeded == 1 })
}

func TestImmediateNotReadyRetries(t *testing.T) {
	table := ability.NewStateTable()
	table.Add(&ability.Ability{
		Name:     "Fireball",
		Key:      "1",
		IconPath: "fireball.png",
		Category: ability.CategoryInstant,
		Enabled:  true,
	})

	sender := &recordingSender{}
	e := New(fastConfig(), table, sender, nil, nil, nil)
	defer e.Stop()

	// Icon ability stuck in UNKNOWN: never ready, so the request retries
	// and eventually fails.
	if !e.Execute("Fireball", ModeImmediate, 5, false) {
		t.Fatal("auto-retry should accept the request")
	}

	waitFor(t, 2*time.Second, func() bool { return e.Stats().Failed == 1 })

	stats := e.Stats()
	if stats.Retries != int64(fastConfig().MaxRetries) {
		t.Errorf("retries: got %d, want %d", stats.Retries, fastConfig().MaxRetries)
	}
	if len(sender.sent()) != 0 {
		t.Error("not-ready ability must never be pressed")
	}
}

func TestTransportFailureRetries(t *testing.T) {
	table := ability.NewStateTable()
	table.Add(manualAbility("Potion", "q"))

	sender := &recordingSender{failNext: 1}
	e := New(fastConfig(), table, sender, nil, nil, nil)
	defer e.Stop()

	e.Execute("Potion", ModeQueued, 5, false)

	waitFor(t, 2*time.Second, func() bool { return e.Stats().Succeeded == 1 })

	stats := e.Stats()
	if stats.Retries != 1 {
		t.Errorf("retries: got %d, want 1", stats.Retries)
	}
	if got := sender.sent(); len(got) != 1 {
		t.Errorf("one successful send expected, got %v", got)
	}
}

func TestStaleRequestDropped(t *testing.T) {
	table := ability.NewStateTable()
	table.Add(manualAbility("A", "1"))
	table.Add(manualAbility("B", "2"))

	cfg := fastConfig()
	cfg.GlobalCooldown = 150 * time.Millisecond
	cfg.RequestTimeout = 60 * time.Millisecond

	sender := &recordingSender{}
	e := New(cfg, table, sender, nil, nil, nil)
	defer e.Stop()

	// Both wait out the startup cooldown; by the time A has executed, B
	// has outlived its timeout and must be discarded.
	e.Execute("A", ModeQueued, 9, false)
	e.Execute("B", ModeQueued, 5, false)

	waitFor(t, 2*time.Second, func() bool { return e.Stats().StaleDrops == 1 })

	if got := sender.sent(); len(got) != 1 || got[0] != "1" {
		t.Errorf("only A should execute, got %v", got)
	}
}

func TestVerification(t *testing.T) {
	table := ability.NewStateTable()
	pos := cv.NewRegion(0, 0, 48, 48)
	table.Add(&ability.Ability{
		Name:     "Fireball",
		Key:      "1",
		IconPath: "fireball.png",
		Category: ability.CategoryInstant,
		Enabled:  true,
		Position: &pos,
	})
	table.SetState("Fireball", ability.StateReady, 0.95, time.Now())

	sender := &recordingSender{}
	verifier := &fixedVerifier{state: ability.StateCooldown}
	e := New(fastConfig(), table, sender, verifier, ability.DefaultDetectionConfig(), nil)
	defer e.Stop()

	e.Execute("Fireball", ModeQueued, 5, true)

	waitFor(t, 2*time.Second, func() bool { return e.Stats().Verified == 1 })

	history := e.History()
	if len(history) != 1 {
		t.Fatalf("history length %d", len(history))
	}
	last := history[0]
	if !last.Success || !last.Verified {
		t.Errorf("result: %+v", last)
	}
	if last.VerifyTime <= 0 {
		t.Error("verification time not recorded")
	}
}

func TestFailedVerificationIsNotRetried(t *testing.T) {
	table := ability.NewStateTable()
	pos := cv.NewRegion(0, 0, 48, 48)
	table.Add(&ability.Ability{
		Name:     "Fireball",
		Key:      "1",
		IconPath: "fireball.png",
		Category: ability.CategoryInstant,
		Enabled:  true,
		Position: &pos,
	})
	table.SetState("Fireball", ability.StateReady, 0.95, time.Now())

	sender := &recordingSender{}
	// Verifier still sees READY: the press did not visibly register.
	verifier := &fixedVerifier{state: ability.StateReady}
	e := New(fastConfig(), table, sender, verifier, ability.DefaultDetectionConfig(), nil)
	defer e.Stop()

	e.Execute("Fireball", ModeQueued, 5, true)

	waitFor(t, 2*time.Second, func() bool { return e.Stats().Total == 1 })

	stats := e.Stats()
	if stats.Succeeded != 1 || stats.Verified != 0 {
		t.Errorf("stats: %+v", stats)
	}
	if stats.Retries != 0 {
		t.Error("failed verification must not trigger a retry")
	}
	if len(sender.sent()) != 1 {
		t.Errorf("exactly one press expected, got %v", sender.sent())
	}
}

func TestStopDropsPendingRequests(t *testing.T) {
	table := ability.NewStateTable()
	table.Add(manualAbility("A", "1"))
	table.Add(manualAbility("B", "2"))

	cfg := fastConfig()
	cfg.GlobalCooldown = time.Second

	sender := &recordingSender{}
	e := New(cfg, table, sender, nil, nil, nil)

	// Both sit behind the startup cooldown window.
	e.Execute("A", ModeQueued, 5, false)
	e.Execute("B", ModeQueued, 5, false)

	e.Stop()

	if got := sender.sent(); len(got) != 0 {
		t.Errorf("pending requests must be dropped on stop, got %v", got)
	}
	if e.Execute("A", ModeQueued, 5, false) {
		t.Error("requests after stop must be rejected")
	}
}

func TestAdaptiveTuning(t *testing.T) {
	table := ability.NewStateTable()
	cfg := fastConfig()
	cfg.AdaptiveTuning = true
	cfg.MinGlobalCooldown = 100 * time.Millisecond
	cfg.MaxGlobalCooldown = 300 * time.Millisecond

	e := New(cfg, table, &recordingSender{}, nil, nil, nil)
	defer e.Stop()

	// Midpoint latency lands the cooldown at the midpoint of the range.
	e.stats.Record(Result{Latency: 250 * time.Millisecond, Success: true})
	e.retune()

	want := 200 * time.Millisecond
	if got := e.GlobalCooldown(); got != want {
		t.Errorf("tuned cooldown: got %v, want %v", got, want)
	}

	// Retuning over unchanged history is idempotent.
	e.retune()
	if got := e.GlobalCooldown(); got != want {
		t.Errorf("retune drifted: got %v, want %v", got, want)
	}

	// The tuned value stays inside the configured bounds.
	e.stats.Record(Result{Latency: 10 * time.Second})
	e.retune()
	if got := e.GlobalCooldown(); got > cfg.MaxGlobalCooldown {
		t.Errorf("tuned cooldown %v above max %v", got, cfg.MaxGlobalCooldown)
	}
}

func TestSenderFuncAdapter(t *testing.T) {
	called := ""
	var s input.Sender = input.SenderFunc(func(key string) bool {
		called = key
		return true
	})

	if !s.SendKey("x") || called != "x" {
		t.Error("SenderFunc did not forward the call")
	}
}

func TestPreconditionGate(t *testing.T) {
	impossible := manualAbility("Lifeblood", "l")
	impossible.Preconditions = []ability.Clause{{Stat: "health", Op: "below", Percent: 0}}
	open := manualAbility("Bandage", "b")
	open.Preconditions = []ability.Clause{{Stat: "health", Op: "below", Percent: 80}}

	table := ability.NewStateTable()
	table.Add(impossible)
	table.Add(open)

	sender := &recordingSender{}
	e := New(fastConfig(), table, sender, nil, nil, nil)
	defer e.Stop()
	e.WithResourceProvider(func() ability.ResourceSnapshot {
		return ability.ResourceSnapshot{"health": 50}
	})

	if !e.Execute("Lifeblood", ModeQueued, 5, false) {
		t.Fatal("queued request not accepted")
	}
	if !e.Execute("Bandage", ModeQueued, 5, false) {
		t.Fatal("queued request not accepted")
	}

	waitFor(t, 2*time.Second, func() bool {
		s := e.Stats()
		return s.Succeeded >= 1 && s.Failed >= 1
	})

	for _, key := range sender.sent() {
		if key == "l" {
			t.Error("ability with an unsatisfiable clause was pressed")
		}
	}
}

func TestPreconditionWithoutProviderFailsClosed(t *testing.T) {
	gated := manualAbility("Lifeblood", "l")
	gated.Preconditions = []ability.Clause{{Stat: "health", Op: "below", Percent: 80}}

	table := ability.NewStateTable()
	table.Add(gated)

	sender := &recordingSender{}
	e := New(fastConfig(), table, sender, nil, nil, nil)
	defer e.Stop()

	e.Execute("Lifeblood", ModeQueued, 5, false)
	waitFor(t, 2*time.Second, func() bool { return e.Stats().Failed >= 1 })

	if len(sender.sent()) != 0 {
		t.Errorf("clauses without a snapshot source must gate closed, got %d presses", len(sender.sent()))
	}
}

func TestRandomizedDeadlinesNeverExecuteExpired(t *testing.T) {
	cfg := fastConfig()
	cfg.GlobalCooldown = 150 * time.Millisecond
	cfg.AutoRetry = false

	table := ability.NewStateTable()
	sender := &recordingSender{}
	e := New(cfg, table, sender, nil, nil, nil)
	defer e.Stop()

	rng := rand.New(rand.NewSource(42))
	now := time.Now()

	// Long deadlines outlive the whole drain; short ones expire inside
	// the engine's first cooldown window, before any dequeue can reach
	// them.
	var longKeys, shortKeys []string
	push := func(i int, timeout time.Duration) {
		name := fmt.Sprintf("Spell%d", i)
		key := fmt.Sprintf("k%d", i)
		table.Add(manualAbility(name, key))
		e.queue.Push(&Request{
			Ability:   name,
			Priority:  5,
			CreatedAt: now,
			Timeout:   timeout,
		})
	}

	// The worker dequeues the first push at once, so it must be a
	// live request.
	push(0, 3*time.Second+time.Duration(rng.Intn(2000))*time.Millisecond)
	longKeys = append(longKeys, "k0")

	order := rng.Perm(11)
	for n, idx := range order {
		i := idx + 1
		if n%3 == 0 {
			push(i, 3*time.Second+time.Duration(rng.Intn(2000))*time.Millisecond)
			longKeys = append(longKeys, fmt.Sprintf("k%d", i))
		} else {
			push(i, time.Duration(5+rng.Intn(46))*time.Millisecond)
			shortKeys = append(shortKeys, fmt.Sprintf("k%d", i))
		}
	}

	waitFor(t, 5*time.Second, func() bool {
		s := e.Stats()
		return int(s.Succeeded) == len(longKeys) && int(s.StaleDrops) == len(shortKeys)
	})

	executed := make(map[string]bool)
	for _, key := range sender.sent() {
		executed[key] = true
	}
	for _, key := range shortKeys {
		if executed[key] {
			t.Errorf("expired request %s was executed", key)
		}
	}
	for _, key := range longKeys {
		if !executed[key] {
			t.Errorf("live request %s never executed", key)
		}
	}
}
