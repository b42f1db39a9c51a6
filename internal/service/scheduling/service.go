// Package scheduling commits appointments. Check and insert run under a
// per-resource lock so two commits can never both see a slot as free.
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"voice-appointment-service/internal/lock"
	"voice-appointment-service/internal/models"
	"voice-appointment-service/internal/observability/metrics"
	"voice-appointment-service/internal/schema"
	"voice-appointment-service/internal/service/availability"
	"voice-appointment-service/internal/store"
)

var tracer = otel.Tracer("voice.internal.scheduling")

// ErrAmbiguous is returned when an outcome still carries ambiguity markers.
var ErrAmbiguous = errors.New("outcome has unresolved ambiguities")

// ConflictError reports that the requested slot overlaps committed records.
type ConflictError struct {
	Date      civil.Date
	Time      models.ClockTime
	Conflicts []models.Record
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("El horario %s ya está ocupado. Por favor selecciona otra hora.", e.Time)
}

// AppointmentPublisher announces committed and removed appointments.
type AppointmentPublisher interface {
	PublishAppointment(ctx context.Context, key string, event any) error
}

// Config holds scheduling settings.
type Config struct {
	DefaultDuration int
	Scope           availability.Scope
	Location        *time.Location
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		DefaultDuration: 30,
		Scope:           availability.ScopeGlobal,
		Location:        time.UTC,
	}
}

// Deps are the collaborators of the service. Publisher and Metrics may be nil.
type Deps struct {
	Store     store.Store
	Validator *schema.Validator
	Locker    lock.Locker
	Publisher AppointmentPublisher
	Metrics   *metrics.Metrics
}

// Service validates, checks and commits appointments.
type Service struct {
	cfg       Config
	store     store.Store
	checker   *availability.Checker
	validator *schema.Validator
	locker    lock.Locker
	publisher AppointmentPublisher
	metrics   *metrics.Metrics
	now       func() time.Time
}

// New creates a scheduling service.
func New(cfg Config, deps Deps) *Service {
	def := DefaultConfig()
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = def.DefaultDuration
	}
	if cfg.Scope == "" {
		cfg.Scope = def.Scope
	}
	if cfg.Location == nil {
		cfg.Location = def.Location
	}
	if deps.Validator == nil {
		deps.Validator = schema.New(nil)
	}
	if deps.Locker == nil {
		deps.Locker = lock.NewLocal()
	}
	return &Service{
		cfg:       cfg,
		store:     deps.Store,
		checker:   availability.NewChecker(deps.Store, cfg.Scope, cfg.Location, deps.Metrics),
		validator: deps.Validator,
		locker:    deps.Locker,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		now:       time.Now,
	}
}

// Checker returns the availability checker bound to the store.
func (s *Service) Checker() *availability.Checker {
	return s.checker
}

// DefaultDuration is applied to commits without a duration.
func (s *Service) DefaultDuration() int {
	return s.cfg.DefaultDuration
}

// CheckAvailability reports whether the candidate slot is free.
func (s *Service) CheckAvailability(ctx context.Context, cand availability.Candidate, excludeID string) (bool, error) {
	return s.checker.IsAvailable(ctx, cand, excludeID)
}

// CommitOutcome commits a parsing outcome. Ambiguous outcomes are refused.
func (s *Service) CommitOutcome(ctx context.Context, outcome models.Outcome) (models.Record, error) {
	if len(outcome.Ambiguities) > 0 {
		s.record("ambiguous", time.Now())
		return models.Record{}, ErrAmbiguous
	}
	return s.Commit(ctx, outcome.Values)
}

// Commit validates f, checks the slot and inserts the record. It returns a
// *schema.ValidationError, a *ConflictError or a store error; nothing is
// written unless it succeeds.
func (s *Service) Commit(ctx context.Context, f models.Fields) (models.Record, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "scheduling.commit")
	defer span.End()

	f = f.Clone()
	if f.Duration == 0 {
		f.Duration = s.cfg.DefaultDuration
	}
	span.SetAttributes(
		attribute.String("appointment.patient_id", f.PatientID),
		attribute.String("appointment.office_id", f.OfficeID),
		attribute.Int("appointment.duration", f.Duration),
	)

	if err := s.validator.Validate(f); err != nil {
		span.RecordError(err)
		s.record("invalid", start)
		return models.Record{}, err
	}

	key := s.cfg.Scope.Key(f.OfficeID)
	unlock, err := s.locker.Lock(ctx, key)
	if err != nil {
		span.RecordError(err)
		s.record("error", start)
		return models.Record{}, fmt.Errorf("acquire %s: %w", key, err)
	}
	defer unlock()

	cand := availability.Candidate{Date: *f.Date, Time: *f.Time, Duration: f.Duration, OfficeID: f.OfficeID}
	conflicts, err := s.checker.Conflicts(ctx, cand, "")
	if err != nil {
		span.RecordError(err)
		s.record("error", start)
		return models.Record{}, err
	}
	if len(conflicts) > 0 {
		cerr := &ConflictError{Date: cand.Date, Time: cand.Time, Conflicts: conflicts}
		span.RecordError(cerr)
		s.record("conflict", start)
		return models.Record{}, cerr
	}

	rec, err := models.NewRecord(uuid.NewString(), f, s.cfg.Location, s.now().UTC())
	if err != nil {
		span.RecordError(err)
		s.record("error", start)
		return models.Record{}, err
	}
	rec, err = s.store.Insert(ctx, rec)
	if err != nil {
		span.RecordError(err)
		s.record("error", start)
		return models.Record{}, err
	}

	span.SetAttributes(attribute.String("appointment.id", rec.ID))
	s.record("committed", start)
	s.announce(ctx, models.EventAppointmentCommitted, rec)

	log.Info().
		Str("appointmentId", rec.ID).
		Str("patientId", rec.PatientID).
		Str("officeId", rec.OfficeID).
		Time("start", rec.Start).
		Int("duration", rec.Duration).
		Msg("Appointment committed")
	return rec, nil
}

// List returns every committed record.
func (s *Service) List(ctx context.Context) ([]models.Record, error) {
	return s.store.List(ctx)
}

// Remove deletes a record and announces it.
func (s *Service) Remove(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "scheduling.remove",
		trace.WithAttributes(attribute.String("appointment.id", id)))
	defer span.End()

	records, err := s.store.List(ctx)
	if err != nil {
		span.RecordError(err)
		return err
	}
	var removed *models.Record
	for i := range records {
		if records[i].ID == id {
			removed = &records[i]
			break
		}
	}
	if removed == nil {
		return store.ErrNotFound
	}

	if err := s.store.Remove(ctx, id); err != nil {
		span.RecordError(err)
		return err
	}
	s.announce(ctx, models.EventAppointmentRemoved, *removed)
	log.Info().Str("appointmentId", id).Msg("Appointment removed")
	return nil
}

// announce publishes a lifecycle event. Failures are logged: the record is
// already committed.
func (s *Service) announce(ctx context.Context, eventType string, rec models.Record) {
	if s.publisher == nil {
		return
	}
	event := models.AppointmentEvent{
		EventType:   eventType,
		Timestamp:   s.now().UnixMilli(),
		Appointment: rec,
	}
	if err := s.publisher.PublishAppointment(ctx, rec.ID, event); err != nil {
		log.Warn().Err(err).Str("appointmentId", rec.ID).Str("eventType", eventType).Msg("Failed to publish appointment event")
	}
}

func (s *Service) record(result string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordCommit(result, time.Since(start).Seconds())
	}
}
