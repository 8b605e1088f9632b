package events

import "time"

// EventType represents different types of events in the system
type EventType string

const (
	// Detection events
	EventTypeAbilityDetected EventType = "ability.detected"
	EventTypeStateChanged    EventType = "ability.state_changed"

	// Execution events
	EventTypeExecutionCompleted EventType = "execution.completed"
	EventTypeQueueIdle          EventType = "queue.idle"

	// Error events
	EventTypeError EventType = "error"
)

// Event represents a system event with metadata
type Event struct {
	Type      EventType
	Source    string // Component that emitted the event (e.g. "coordinator", "executor")
	Timestamp time.Time
	Data      map[string]interface{}
}

// EventHandler is a function that processes an event
type EventHandler func(Event)

// SubscriptionID uniquely identifies a subscription
type SubscriptionID int64

// EventBus defines the interface for event pub/sub
type EventBus interface {
	Subscribe(eventType EventType, handler EventHandler) SubscriptionID
	Unsubscribe(id SubscriptionID)
	Publish(event Event)
	Stop()
}

// Helper constructors for common events

// NewAbilityDetectedEvent reports an ability matched to a bar slot.
func NewAbilityDetectedEvent(slotIndex int, abilityName string, confidence float64) Event {
	return Event{
		Type:      EventTypeAbilityDetected,
		Source:    "coordinator",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"slot":       slotIndex,
			"ability":    abilityName,
			"confidence": confidence,
		},
	}
}

// NewStateChangedEvent reports a readiness transition observed by the
// monitoring loop.
func NewStateChangedEvent(abilityName, oldState, newState string) Event {
	return Event{
		Type:      EventTypeStateChanged,
		Source:    "coordinator",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"ability":   abilityName,
			"old_state": oldState,
			"new_state": newState,
		},
	}
}

// NewExecutionCompletedEvent reports the outcome of one execution request.
func NewExecutionCompletedEvent(abilityName string, success, verified bool, latency time.Duration) Event {
	return Event{
		Type:      EventTypeExecutionCompleted,
		Source:    "executor",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"ability":  abilityName,
			"success":  success,
			"verified": verified,
			"latency":  latency,
		},
	}
}

// NewQueueIdleEvent reports the execution queue draining empty.
func NewQueueIdleEvent() Event {
	return Event{
		Type:      EventTypeQueueIdle,
		Source:    "executor",
		Timestamp: time.Now(),
		Data:      map[string]interface{}{},
	}
}

// NewErrorEvent reports a recoverable error.
func NewErrorEvent(source string, err error) Event {
	return Event{
		Type:      EventTypeError,
		Source:    source,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"error": err.Error(),
		},
	}
}
