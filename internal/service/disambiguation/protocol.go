// Package disambiguation resolves a provisional time-of-day by asking the
// user whether they meant morning or afternoon.
package disambiguation

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"voice-appointment-service/internal/models"
	"voice-appointment-service/internal/observability/metrics"
	"voice-appointment-service/internal/service/voice"
)

// State represents the protocol state.
type State int

const (
	// StateIdle - No question pending; fields are edited manually.
	StateIdle State = iota
	// StateAwaitingChoice - The user is being asked morning or afternoon.
	StateAwaitingChoice
	// StateResolved - A choice was made and waits for confirmation.
	StateResolved
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateAwaitingChoice:
		return "AWAITING_CHOICE"
	case StateResolved:
		return "RESOLVED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// Choice is the user's answer.
type Choice string

const (
	Morning   Choice = "morning"
	Afternoon Choice = "afternoon"
)

// ParseChoice accepts "morning"/"afternoon" and the Spanish "manana"/"tarde".
func ParseChoice(s string) (Choice, error) {
	switch voice.Fold(s) {
	case "morning", "manana", "am":
		return Morning, nil
	case "afternoon", "tarde", "pm":
		return Afternoon, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidChoice, s)
	}
}

// Meridiem maps the choice onto the 12-hour conversion.
func (c Choice) Meridiem() voice.Meridiem {
	if c == Afternoon {
		return voice.MeridiemPM
	}
	return voice.MeridiemAM
}

// Errors for invalid transitions and inputs.
var (
	ErrNoAmbiguity       = errors.New("outcome has no time-meridiem ambiguity")
	ErrNoTime            = errors.New("outcome has no time to resolve")
	ErrCaptureActive     = errors.New("capture session is still listening")
	ErrAlreadyActive     = errors.New("a disambiguation is already in progress")
	ErrNotAwaitingChoice = errors.New("no disambiguation in progress")
	ErrNotResolved       = errors.New("no resolved choice to confirm")
	ErrInvalidChoice     = errors.New("invalid meridiem choice")
)

// Resolve rewrites the provisional time of outcome for the given choice,
// clears the time-meridiem marker and recomputes completeness. outcome is
// not modified.
func Resolve(outcome models.Outcome, choice Choice) (models.Outcome, error) {
	if choice != Morning && choice != Afternoon {
		return models.Outcome{}, fmt.Errorf("%w: %q", ErrInvalidChoice, choice)
	}
	if !outcome.HasAmbiguity(models.AmbiguityTimeMeridiem) {
		return models.Outcome{}, ErrNoAmbiguity
	}
	if outcome.Values.Time == nil {
		return models.Outcome{}, ErrNoTime
	}

	values := outcome.Values.Clone()
	values.Time.Hour = choice.Meridiem().To24(values.Time.Hour)

	remaining := slices.DeleteFunc(slices.Clone(outcome.Ambiguities), func(a models.Ambiguity) bool {
		return a == models.AmbiguityTimeMeridiem
	})
	return models.NewOutcome(values, remaining, outcome.RawTranscript), nil
}

// Protocol drives one disambiguation at a time.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	IDLE ── Begin ──→ AWAITING_CHOICE ── Choose ──→ RESOLVED ── Confirm ──→ IDLE
//	                        │                          │
//	                        └──────── Cancel ──────────┴──→ IDLE
//
// Begin only succeeds once the capture session has ended, so the question
// never interrupts a user who is still speaking.
type Protocol struct {
	mu       sync.Mutex
	state    State
	pending  models.Outcome
	resolved models.Outcome
	metrics  *metrics.Metrics
}

// NewProtocol creates a protocol in IDLE state. m may be nil.
func NewProtocol(m *metrics.Metrics) *Protocol {
	return &Protocol{metrics: m}
}

// State returns the current state.
func (p *Protocol) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Pending returns the outcome the question is about.
func (p *Protocol) Pending() models.Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending
}

// Begin opens the question for an ambiguous outcome.
func (p *Protocol) Begin(outcome models.Outcome, sessionEnded bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateIdle {
		return ErrAlreadyActive
	}
	if !outcome.HasAmbiguity(models.AmbiguityTimeMeridiem) {
		return ErrNoAmbiguity
	}
	if outcome.Values.Time == nil {
		return ErrNoTime
	}
	if !sessionEnded {
		return ErrCaptureActive
	}
	p.pending = outcome
	p.resolved = models.Outcome{}
	p.state = StateAwaitingChoice
	p.record("begin")
	return nil
}

// Choose resolves the pending outcome. Choosing again while RESOLVED
// recomputes from the original provisional time.
func (p *Protocol) Choose(choice Choice) (models.Outcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateAwaitingChoice && p.state != StateResolved {
		return models.Outcome{}, ErrNotAwaitingChoice
	}
	resolved, err := Resolve(p.pending, choice)
	if err != nil {
		return models.Outcome{}, err
	}
	p.resolved = resolved
	p.state = StateResolved
	p.record(string(choice))
	return resolved, nil
}

// Confirm finalizes the resolution and returns the corrected fields.
func (p *Protocol) Confirm() (models.Fields, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateResolved {
		return models.Fields{}, ErrNotResolved
	}
	values := p.resolved.Values.Clone()
	p.reset()
	p.record("confirm")
	return values, nil
}

// Cancel abandons the question; nothing is written. Idempotent.
func (p *Protocol) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateIdle {
		return
	}
	p.reset()
	p.record("cancel")
}

func (p *Protocol) reset() {
	p.state = StateIdle
	p.pending = models.Outcome{}
	p.resolved = models.Outcome{}
}

func (p *Protocol) record(action string) {
	if p.metrics != nil {
		p.metrics.RecordDisambiguation(action)
	}
}
