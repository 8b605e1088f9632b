// Package input carries simulated key presses to the game client. The
// execution engine only sees the Sender interface; failures are reported,
// not thrown, and treated as retryable.
package input

// Sender delivers a single key press. A false return means the press did
// not go out; the caller decides whether to retry.
type Sender interface {
	SendKey(key string) bool
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(key string) bool

func (f SenderFunc) SendKey(key string) bool {
	return f(key)
}
