package capture

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"voice-appointment-service/internal/models"
	"voice-appointment-service/internal/observability/logging"
	"voice-appointment-service/internal/observability/metrics"
	"voice-appointment-service/internal/service/disambiguation"
	"voice-appointment-service/internal/service/stt"
)

// ErrNoAdapter is returned by SendAudio when the session has no speech source.
var ErrNoAdapter = errors.New("capture session has no speech adapter")

// Limits defines safety guardrails for one capture session.
type Limits struct {
	MaxAudioBytes int64         // Max audio accepted per session
	MaxDuration   time.Duration // Max session duration
	MaxUpdates    int           // Max transcript updates per session
}

// DefaultLimits returns sensible default limits.
func DefaultLimits() Limits {
	return Limits{
		MaxAudioBytes: 5 * 1024 * 1024, // 5MB (~160 seconds at 16kHz 16-bit mono)
		MaxDuration:   2 * time.Minute,
		MaxUpdates:    500,
	}
}

// UpdateKind names a notification delivered to a Sink.
type UpdateKind string

const (
	UpdateOutcome        UpdateKind = "outcome"
	UpdateEnded          UpdateKind = "ended"
	UpdateDisambiguation UpdateKind = "disambiguation"
)

// Update is one notification about a session.
type Update struct {
	Kind      UpdateKind
	SessionID string
	State     State
	// Outcome is the latest parse for UpdateOutcome and the pending
	// ambiguous outcome for UpdateDisambiguation.
	Outcome models.Outcome
	Draft   models.Fields
	Final   bool
	Err     error
}

// Sink receives session notifications in order. It is called with the
// session locked and must not call back into the session.
type Sink interface {
	Notify(u Update)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(u Update)

func (f SinkFunc) Notify(u Update) { f(u) }

// TranscriptParser turns a transcript into an outcome.
type TranscriptParser interface {
	Parse(transcript string) models.Outcome
}

// OutcomePublisher publishes outcome events for final transcripts.
type OutcomePublisher interface {
	PublishOutcome(ctx context.Context, key string, event any) error
}

// Deps holds the collaborators of a session. Adapter and Publisher may be nil.
type Deps struct {
	Adapter   stt.Adapter
	Parser    TranscriptParser
	Protocol  *disambiguation.Protocol
	Sink      Sink
	Publisher OutcomePublisher
	Metrics   *metrics.Metrics
}

// Session is one dictation capture. It implements stt.Callback: every
// accepted transcript update is parsed wholesale, replaces the previous
// outcome and is merged into the draft. When the session leaves LISTENING
// with an ambiguous time, the disambiguation question is opened.
type Session struct {
	clientID  string
	deps      Deps
	lifecycle *Lifecycle
	limits    Limits
	logger    zerolog.Logger

	mu         sync.Mutex
	startedAt  time.Time
	audioBytes int64
	updates    int
	latest     models.Outcome
	draft      models.Fields
}

// NewSession creates a session in LISTENING state.
func NewSession(sessionID, clientID string, deps Deps, limits Limits) *Session {
	if deps.Protocol == nil {
		deps.Protocol = disambiguation.NewProtocol(deps.Metrics)
	}
	if deps.Sink == nil {
		deps.Sink = SinkFunc(func(Update) {})
	}
	return &Session{
		clientID:  clientID,
		deps:      deps,
		lifecycle: NewLifecycle(sessionID),
		limits:    limits,
		logger:    logging.WithSession(sessionID, clientID),
		startedAt: time.Now(),
	}
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.lifecycle.SessionID()
}

// State returns the lifecycle state.
func (s *Session) State() State {
	return s.lifecycle.State()
}

// Outcome returns the latest outcome.
func (s *Session) Outcome() models.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Draft returns a copy of the merged draft.
func (s *Session) Draft() models.Fields {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Clone()
}

// Protocol returns the disambiguation protocol driven by this session.
func (s *Session) Protocol() *disambiguation.Protocol {
	return s.deps.Protocol
}

// Start begins the speech source session with this session as the callback
// receiver. Sessions without an adapter receive text through Transcript.
func (s *Session) Start(ctx context.Context) error {
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordSessionStart()
	}
	s.logger.Info().Msg("Capture session started")
	if s.deps.Adapter == nil {
		return nil
	}
	return s.deps.Adapter.Start(ctx, s)
}

// SendAudio forwards audio bytes to the speech adapter.
// Returns an error and fails the session if limits are exceeded.
func (s *Session) SendAudio(ctx context.Context, audio []byte) error {
	if s.deps.Adapter == nil {
		return ErrNoAdapter
	}
	if err := s.lifecycle.Accept(); err != nil {
		return err
	}

	s.mu.Lock()
	s.audioBytes += int64(len(audio))
	currentBytes := s.audioBytes
	startTime := s.startedAt
	s.mu.Unlock()

	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordAudioReceived(len(audio))
	}

	if s.limits.MaxAudioBytes > 0 && currentBytes > s.limits.MaxAudioBytes {
		reason := fmt.Sprintf("max audio bytes exceeded: %d > %d", currentBytes, s.limits.MaxAudioBytes)
		s.fail(errors.New(reason))
		return fmt.Errorf("session limit exceeded: %s", reason)
	}
	if s.limits.MaxDuration > 0 && time.Since(startTime) > s.limits.MaxDuration {
		reason := fmt.Sprintf("max duration exceeded: %v > %v", time.Since(startTime).Round(time.Millisecond), s.limits.MaxDuration)
		s.fail(errors.New(reason))
		return fmt.Errorf("session limit exceeded: %s", reason)
	}

	return s.deps.Adapter.SendAudio(ctx, audio)
}

// Transcript applies a transcript supplied directly by the client.
func (s *Session) Transcript(text string, final bool) {
	if final {
		s.OnFinal(text, 1)
		return
	}
	s.OnPartial(text)
}

// Stop ends the capture at the user's request and closes the speech
// adapter. Results still in flight are dropped.
func (s *Session) Stop() error {
	s.terminate(s.lifecycle.Stop, nil)
	if s.deps.Adapter != nil {
		return s.deps.Adapter.Close()
	}
	return nil
}

// Choose answers the disambiguation question.
func (s *Session) Choose(choice disambiguation.Choice) (models.Outcome, error) {
	return s.deps.Protocol.Choose(choice)
}

// Confirm finalizes the resolution, merges the corrected time into the draft
// and returns the draft.
func (s *Session) Confirm() (models.Fields, error) {
	fields, err := s.deps.Protocol.Confirm()
	if err != nil {
		return models.Fields{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = s.draft.Merge(fields)
	return s.draft.Clone(), nil
}

// Cancel abandons the disambiguation question. The draft keeps no time.
func (s *Session) Cancel() {
	s.deps.Protocol.Cancel()
}

// --- stt.Callback implementation ---

// OnPartial is called with the current best transcript while the user speaks.
func (s *Session) OnPartial(text string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordPartialTranscript()
	}
	s.apply(text, false)
}

// OnFinal is called with the settled transcript.
func (s *Session) OnFinal(text string, confidence float64) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordFinalTranscript()
	}
	if outcome, ok := s.apply(text, true); ok {
		s.publish(outcome)
	}
}

// OnEnd is called when the speech source closes the session.
func (s *Session) OnEnd() {
	s.terminate(s.lifecycle.End, nil)
}

// OnError is called when the speech source fails.
func (s *Session) OnError(err error) {
	s.fail(err)
}

func (s *Session) fail(err error) {
	s.terminate(s.lifecycle.Fail, err)
}

func (s *Session) apply(text string, final bool) (models.Outcome, bool) {
	if strings.TrimSpace(text) == "" {
		return models.Outcome{}, false
	}
	outcome := s.deps.Parser.Parse(text)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lifecycle.Accept(); err != nil {
		s.drop(err)
		return models.Outcome{}, false
	}

	s.updates++
	if s.limits.MaxUpdates > 0 && s.updates > s.limits.MaxUpdates {
		err := fmt.Errorf("max updates exceeded: %d > %d", s.updates, s.limits.MaxUpdates)
		s.terminateLocked(s.lifecycle.Fail, err)
		return models.Outcome{}, false
	}

	s.latest = outcome
	values := outcome.Values.Clone()
	if outcome.HasAmbiguity(models.AmbiguityTimeMeridiem) {
		// provisional until disambiguated
		values.Time = nil
	}
	s.draft = s.draft.Merge(values)

	s.deps.Sink.Notify(Update{
		Kind:      UpdateOutcome,
		SessionID: s.ID(),
		State:     StateListening,
		Outcome:   outcome,
		Draft:     s.draft.Clone(),
		Final:     final,
	})
	return outcome, true
}

func (s *Session) drop(reason error) {
	state := s.lifecycle.State()
	s.logger.Debug().
		Str("state", state.String()).
		Err(reason).
		Msg("Stale transcript update dropped")
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordUpdateDropped(strings.ToLower(state.String()))
	}
}

func (s *Session) terminate(transition func() bool, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terminateLocked(transition, cause)
}

func (s *Session) terminateLocked(transition func() bool, cause error) {
	if !transition() {
		return
	}
	state := s.lifecycle.State()

	level := zerolog.InfoLevel
	if cause != nil {
		level = zerolog.WarnLevel
	}
	s.logger.WithLevel(level).
		Err(cause).
		Str("state", state.String()).
		Int("updates", s.updates).
		Int64("audioBytes", s.audioBytes).
		Dur("duration", time.Since(s.startedAt).Round(time.Millisecond)).
		Msg("Capture session ended")

	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordSessionEnd(state.String())
	}

	s.deps.Sink.Notify(Update{
		Kind:      UpdateEnded,
		SessionID: s.ID(),
		State:     state,
		Outcome:   s.latest,
		Draft:     s.draft.Clone(),
		Err:       cause,
	})

	if !s.latest.HasAmbiguity(models.AmbiguityTimeMeridiem) {
		return
	}
	if err := s.deps.Protocol.Begin(s.latest, true); err != nil {
		s.logger.Warn().Err(err).Msg("Disambiguation not started")
		return
	}
	s.deps.Sink.Notify(Update{
		Kind:      UpdateDisambiguation,
		SessionID: s.ID(),
		State:     state,
		Outcome:   s.latest,
		Draft:     s.draft.Clone(),
	})
}

func (s *Session) publish(outcome models.Outcome) {
	if s.deps.Publisher == nil {
		return
	}

	ev := models.OutcomeEvent{
		EventType:     models.EventVoiceOutcome,
		InteractionID: s.ID(),
		TenantID:      s.clientID,
		Timestamp:     time.Now().UnixMilli(),
		Outcome:       outcome,
	}
	if err := s.deps.Publisher.PublishOutcome(context.Background(), s.ID(), ev); err != nil {
		s.logger.Error().Err(err).Msg("Failed to publish outcome")
	}
}
