// Package capture manages dictation sessions: the lifecycle of one capture,
// the transcript updates it accepts and the hand-off to disambiguation once it
// ends.
package capture

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the lifecycle state of a capture session.
type State int

const (
	// StateListening - Session is active and accepts transcript updates.
	StateListening State = iota
	// StateEnded - The speech source closed the session normally.
	StateEnded
	// StateStopped - The user stopped the capture.
	StateStopped
	// StateFailed - The speech source reported an error.
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateListening:
		return "LISTENING"
	case StateEnded:
		return "ENDED"
	case StateStopped:
		return "STOPPED"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true for every state except LISTENING.
func (s State) IsTerminal() bool {
	return s != StateListening
}

// Errors for updates that arrive after the session left LISTENING, and for
// starting over while it is still listening.
var (
	ErrSessionEnded   = errors.New("capture session has ended")
	ErrSessionStopped = errors.New("capture session was stopped")
	ErrSessionFailed  = errors.New("capture session failed")
	ErrSessionActive  = errors.New("capture session is still listening")
)

// Lifecycle manages the state machine for a single capture session.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	LISTENING ──End()──→ ENDED
//	    │
//	    ├─────Stop()──→ STOPPED
//	    │
//	    └─────Fail()──→ FAILED
//
// Only the first transition out of LISTENING takes effect.
type Lifecycle struct {
	mu        sync.RWMutex
	sessionID string
	state     State
}

// NewLifecycle creates a new lifecycle in LISTENING state.
func NewLifecycle(sessionID string) *Lifecycle {
	return &Lifecycle{
		sessionID: sessionID,
		state:     StateListening,
	}
}

// SessionID returns the session ID.
func (l *Lifecycle) SessionID() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sessionID
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Accept returns nil if a transcript update may be applied now.
func (l *Lifecycle) Accept() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	switch l.state {
	case StateListening:
		return nil
	case StateEnded:
		return ErrSessionEnded
	case StateStopped:
		return ErrSessionStopped
	case StateFailed:
		return ErrSessionFailed
	default:
		return fmt.Errorf("unexpected state: %v", l.state)
	}
}

// End transitions to ENDED. Returns true if this call ended the session.
func (l *Lifecycle) End() bool {
	return l.leave(StateEnded)
}

// Stop transitions to STOPPED. Returns true if this call ended the session.
func (l *Lifecycle) Stop() bool {
	return l.leave(StateStopped)
}

// Fail transitions to FAILED. Returns true if this call ended the session.
func (l *Lifecycle) Fail() bool {
	return l.leave(StateFailed)
}

func (l *Lifecycle) leave(to State) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.IsTerminal() {
		return false
	}
	l.state = to
	return true
}
