package disambiguation

import (
	"errors"
	"testing"

	"cloud.google.com/go/civil"

	"voice-appointment-service/internal/models"
)

func ambiguousOutcome(hour int) models.Outcome {
	d := civil.Date{Year: 2024, Month: 1, Day: 11}
	return models.NewOutcome(models.Fields{
		PatientID: "2",
		OfficeID:  "2",
		Date:      &d,
		Time:      &models.ClockTime{Hour: hour},
		Duration:  45,
	}, []models.Ambiguity{models.AmbiguityTimeMeridiem}, "cita con juan a las 9 en la sede norte por 45 minutos")
}

func TestResolve(t *testing.T) {
	tests := []struct {
		hour   int
		choice Choice
		want   string
	}{
		{9, Afternoon, "21:00"},
		{9, Morning, "09:00"},
		{12, Afternoon, "12:00"},
		{12, Morning, "00:00"},
		{1, Afternoon, "13:00"},
	}
	for _, tt := range tests {
		in := ambiguousOutcome(tt.hour)
		got, err := Resolve(in, tt.choice)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Values.Time.String() != tt.want {
			t.Errorf("%d %s: expected %s, got %s", tt.hour, tt.choice, tt.want, got.Values.Time)
		}
		if got.HasAmbiguity(models.AmbiguityTimeMeridiem) {
			t.Error("expected ambiguity to be cleared")
		}
		if !got.IsComplete {
			t.Error("expected outcome to become complete")
		}
		if in.Values.Time.Hour != tt.hour || !in.HasAmbiguity(models.AmbiguityTimeMeridiem) {
			t.Error("expected input outcome to be left untouched")
		}
	}
}

func TestResolve_Errors(t *testing.T) {
	plain := models.NewOutcome(models.Fields{Time: &models.ClockTime{Hour: 15}}, nil, "")
	if _, err := Resolve(plain, Morning); !errors.Is(err, ErrNoAmbiguity) {
		t.Errorf("expected ErrNoAmbiguity, got %v", err)
	}

	noTime := models.NewOutcome(models.Fields{}, []models.Ambiguity{models.AmbiguityTimeMeridiem}, "")
	if _, err := Resolve(noTime, Morning); !errors.Is(err, ErrNoTime) {
		t.Errorf("expected ErrNoTime, got %v", err)
	}

	if _, err := Resolve(ambiguousOutcome(9), Choice("evening")); !errors.Is(err, ErrInvalidChoice) {
		t.Errorf("expected ErrInvalidChoice, got %v", err)
	}
}

func TestParseChoice(t *testing.T) {
	tests := map[string]Choice{
		"morning":   Morning,
		"Mañana":    Morning,
		"afternoon": Afternoon,
		"TARDE":     Afternoon,
	}
	for in, want := range tests {
		got, err := ParseChoice(in)
		if err != nil || got != want {
			t.Errorf("ParseChoice(%q): expected %s, got %s (%v)", in, want, got, err)
		}
	}
	if _, err := ParseChoice("noche"); !errors.Is(err, ErrInvalidChoice) {
		t.Errorf("expected ErrInvalidChoice, got %v", err)
	}
}

func TestProtocol_InitialState(t *testing.T) {
	p := NewProtocol(nil)
	if p.State() != StateIdle {
		t.Errorf("expected StateIdle, got %v", p.State())
	}
}

func TestProtocol_BeginRequiresEndedSession(t *testing.T) {
	p := NewProtocol(nil)

	if err := p.Begin(ambiguousOutcome(9), false); err != ErrCaptureActive {
		t.Errorf("expected ErrCaptureActive, got %v", err)
	}
	if p.State() != StateIdle {
		t.Errorf("expected StateIdle, got %v", p.State())
	}

	if err := p.Begin(ambiguousOutcome(9), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.State() != StateAwaitingChoice {
		t.Errorf("expected StateAwaitingChoice, got %v", p.State())
	}
}

func TestProtocol_BeginRejectsUnambiguous(t *testing.T) {
	p := NewProtocol(nil)
	plain := models.NewOutcome(models.Fields{Time: &models.ClockTime{Hour: 15}}, nil, "")
	if err := p.Begin(plain, true); err != ErrNoAmbiguity {
		t.Errorf("expected ErrNoAmbiguity, got %v", err)
	}
}

func TestProtocol_BeginOnlyOnce(t *testing.T) {
	p := NewProtocol(nil)
	if err := p.Begin(ambiguousOutcome(9), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Begin(ambiguousOutcome(3), true); err != ErrAlreadyActive {
		t.Errorf("expected ErrAlreadyActive, got %v", err)
	}
}

func TestProtocol_ChooseAndConfirm(t *testing.T) {
	p := NewProtocol(nil)
	if err := p.Begin(ambiguousOutcome(9), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resolved, err := p.Choose(Afternoon)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Values.Time.String() != "21:00" {
		t.Errorf("expected 21:00, got %s", resolved.Values.Time)
	}
	if p.State() != StateResolved {
		t.Errorf("expected StateResolved, got %v", p.State())
	}

	// Changing one's mind recomputes from the provisional hour.
	resolved, err = p.Choose(Morning)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Values.Time.String() != "09:00" {
		t.Errorf("expected 09:00, got %s", resolved.Values.Time)
	}

	fields, err := p.Confirm()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fields.Time.String() != "09:00" || fields.PatientID != "2" {
		t.Errorf("expected confirmed fields with 09:00, got %+v", fields)
	}
	if p.State() != StateIdle {
		t.Errorf("expected StateIdle after confirm, got %v", p.State())
	}
}

func TestProtocol_ConfirmRequiresChoice(t *testing.T) {
	p := NewProtocol(nil)
	if _, err := p.Confirm(); err != ErrNotResolved {
		t.Errorf("expected ErrNotResolved, got %v", err)
	}
	if err := p.Begin(ambiguousOutcome(9), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Confirm(); err != ErrNotResolved {
		t.Errorf("expected ErrNotResolved while awaiting choice, got %v", err)
	}
}

func TestProtocol_ChooseWhileIdle(t *testing.T) {
	p := NewProtocol(nil)
	if _, err := p.Choose(Morning); err != ErrNotAwaitingChoice {
		t.Errorf("expected ErrNotAwaitingChoice, got %v", err)
	}
}

func TestProtocol_Cancel(t *testing.T) {
	for _, choose := range []bool{false, true} {
		p := NewProtocol(nil)
		if err := p.Begin(ambiguousOutcome(9), true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if choose {
			if _, err := p.Choose(Afternoon); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		p.Cancel()
		if p.State() != StateIdle {
			t.Errorf("expected StateIdle after cancel, got %v", p.State())
		}
		if _, err := p.Confirm(); err != ErrNotResolved {
			t.Errorf("expected cancelled resolution to be discarded, got %v", err)
		}
	}

	// Idempotent.
	p := NewProtocol(nil)
	p.Cancel()
	p.Cancel()
	if p.State() != StateIdle {
		t.Errorf("expected StateIdle, got %v", p.State())
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		StateIdle:           "IDLE",
		StateAwaitingChoice: "AWAITING_CHOICE",
		StateResolved:       "RESOLVED",
		State(99):           "UNKNOWN(99)",
	}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("expected %s, got %s", want, s.String())
		}
	}
}
