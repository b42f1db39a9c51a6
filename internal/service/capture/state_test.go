package capture

import (
	"testing"
)

func TestLifecycle_InitialState(t *testing.T) {
	lc := NewLifecycle("web-sess-1")

	if lc.State() != StateListening {
		t.Errorf("expected StateListening, got %v", lc.State())
	}
	if lc.SessionID() != "web-sess-1" {
		t.Errorf("expected web-sess-1, got %v", lc.SessionID())
	}
	if err := lc.Accept(); err != nil {
		t.Errorf("expected updates to be accepted, got %v", err)
	}
}

func TestLifecycle_Transitions(t *testing.T) {
	tests := []struct {
		name     string
		leave    func(*Lifecycle) bool
		expected State
		err      error
	}{
		{"end", (*Lifecycle).End, StateEnded, ErrSessionEnded},
		{"stop", (*Lifecycle).Stop, StateStopped, ErrSessionStopped},
		{"fail", (*Lifecycle).Fail, StateFailed, ErrSessionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lc := NewLifecycle("s")

			if !tt.leave(lc) {
				t.Fatal("expected first transition to take effect")
			}
			if lc.State() != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, lc.State())
			}
			if err := lc.Accept(); err != tt.err {
				t.Errorf("expected %v, got %v", tt.err, err)
			}
		})
	}
}

func TestLifecycle_OnlyFirstTransitionCounts(t *testing.T) {
	lc := NewLifecycle("s")

	lc.Stop()
	if lc.End() {
		t.Error("expected End after Stop to be a no-op")
	}
	if lc.Fail() {
		t.Error("expected Fail after Stop to be a no-op")
	}
	if lc.State() != StateStopped {
		t.Errorf("expected StateStopped, got %v", lc.State())
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateListening, "LISTENING"},
		{StateEnded, "ENDED"},
		{StateStopped, "STOPPED"},
		{StateFailed, "FAILED"},
		{State(99), "UNKNOWN(99)"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.expected {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.expected)
		}
	}
}

func TestState_IsTerminal(t *testing.T) {
	if StateListening.IsTerminal() {
		t.Error("LISTENING should not be terminal")
	}
	for _, s := range []State{StateEnded, StateStopped, StateFailed} {
		if !s.IsTerminal() {
			t.Errorf("%v should be terminal", s)
		}
	}
}
