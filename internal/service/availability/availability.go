// Package availability decides whether a candidate appointment interval is
// free of overlaps with committed records.
package availability

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"voice-appointment-service/internal/models"
	"voice-appointment-service/internal/observability/metrics"
)

var tracer = otel.Tracer("voice.internal.availability")

// Scope decides which records compete for the same slot.
type Scope string

const (
	// ScopeGlobal treats the whole calendar as one resource.
	ScopeGlobal Scope = "global"
	// ScopeOffice only compares records of the same office.
	ScopeOffice Scope = "office"
)

// ParseScope validates a configured scope. Empty means global.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case "", ScopeGlobal:
		return ScopeGlobal, nil
	case ScopeOffice:
		return ScopeOffice, nil
	default:
		return "", fmt.Errorf("unknown availability scope %q", s)
	}
}

// Key names the resource a candidate competes for. Commits serialize on it.
func (s Scope) Key(officeID string) string {
	if s == ScopeOffice {
		return "appointments:office:" + officeID
	}
	return "appointments"
}

func (s Scope) shares(a, b string) bool {
	return s != ScopeOffice || a == b
}

// Candidate is the slot being asked about.
type Candidate struct {
	Date     civil.Date
	Time     models.ClockTime
	Duration int
	OfficeID string
}

// Request is the wire form of an availability question.
type Request struct {
	Date      *civil.Date       `json:"date"`
	Time      *models.ClockTime `json:"time"`
	Duration  int               `json:"duration"`
	OfficeID  string            `json:"officeId,omitempty"`
	ExcludeID string            `json:"excludeId,omitempty"`
}

// Candidate validates the request and returns the slot it asks about.
func (r Request) Candidate() (Candidate, error) {
	switch {
	case r.Date == nil || !r.Date.IsValid():
		return Candidate{}, fmt.Errorf("a valid date is required")
	case r.Time == nil:
		return Candidate{}, fmt.Errorf("a time is required")
	case r.Duration < models.MinDuration:
		return Candidate{}, fmt.Errorf("duration %d below minimum %d", r.Duration, models.MinDuration)
	}
	return Candidate{Date: *r.Date, Time: *r.Time, Duration: r.Duration, OfficeID: r.OfficeID}, nil
}

// Interval returns the half-open [start, end) of the candidate in loc.
func (c Candidate) Interval(loc *time.Location) (time.Time, time.Time) {
	start := c.Time.On(c.Date, loc)
	return start, start.Add(time.Duration(c.Duration) * time.Minute)
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Back-to-back intervals do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Conflicts returns the records whose interval overlaps the candidate,
// skipping excludeID and records outside the candidate's scope.
func Conflicts(c Candidate, records []models.Record, excludeID string, scope Scope, loc *time.Location) []models.Record {
	start, end := c.Interval(loc)
	var out []models.Record
	for _, r := range records {
		if excludeID != "" && r.ID == excludeID {
			continue
		}
		if !scope.shares(c.OfficeID, r.OfficeID) {
			continue
		}
		rStart, rEnd := recordInterval(r, loc)
		if Overlaps(start, end, rStart, rEnd) {
			out = append(out, r)
		}
	}
	return out
}

// Available is true when no record conflicts with the candidate.
func Available(c Candidate, records []models.Record, excludeID string, scope Scope, loc *time.Location) bool {
	return len(Conflicts(c, records, excludeID, scope, loc)) == 0
}

func recordInterval(r models.Record, loc *time.Location) (time.Time, time.Time) {
	if !r.Start.IsZero() && r.End.After(r.Start) {
		return r.Start, r.End
	}
	start := r.Time.On(r.Date, loc)
	return start, start.Add(time.Duration(r.Duration) * time.Minute)
}

// Lister is the read side of the record store.
type Lister interface {
	List(ctx context.Context) ([]models.Record, error)
}

// Checker answers availability questions against the record store.
type Checker struct {
	store   Lister
	scope   Scope
	loc     *time.Location
	metrics *metrics.Metrics
}

// NewChecker creates a checker. loc defaults to UTC and m may be nil.
func NewChecker(store Lister, scope Scope, loc *time.Location, m *metrics.Metrics) *Checker {
	if loc == nil {
		loc = time.UTC
	}
	if scope == "" {
		scope = ScopeGlobal
	}
	return &Checker{store: store, scope: scope, loc: loc, metrics: m}
}

// Scope returns the configured scope.
func (c *Checker) Scope() Scope {
	return c.scope
}

// Location returns the time zone intervals are computed in.
func (c *Checker) Location() *time.Location {
	return c.loc
}

// IsAvailable lists every record and reports whether the candidate is free.
// excludeID lets an edited record be checked against everyone but itself.
func (c *Checker) IsAvailable(ctx context.Context, cand Candidate, excludeID string) (bool, error) {
	conflicts, err := c.Conflicts(ctx, cand, excludeID)
	if err != nil {
		return false, err
	}
	return len(conflicts) == 0, nil
}

// Conflicts lists every record and returns the ones the candidate overlaps.
func (c *Checker) Conflicts(ctx context.Context, cand Candidate, excludeID string) ([]models.Record, error) {
	ctx, span := tracer.Start(ctx, "availability.check")
	defer span.End()
	span.SetAttributes(
		attribute.String("appointment.date", cand.Date.String()),
		attribute.String("appointment.time", cand.Time.String()),
		attribute.Int("appointment.duration", cand.Duration),
		attribute.String("appointment.office_id", cand.OfficeID),
		attribute.String("availability.scope", string(c.scope)),
	)

	if cand.Duration < models.MinDuration {
		err := fmt.Errorf("duration %d below minimum %d", cand.Duration, models.MinDuration)
		span.RecordError(err)
		return nil, err
	}

	records, err := c.store.List(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	conflicts := Conflicts(cand, records, excludeID, c.scope, c.loc)

	span.SetAttributes(attribute.Int("availability.conflicts", len(conflicts)))
	if c.metrics != nil {
		c.metrics.RecordAvailabilityCheck(len(conflicts) == 0)
	}
	return conflicts, nil
}
