package models

import (
	"fmt"
	"slices"
	"time"

	"cloud.google.com/go/civil"
)

// MinDuration is the shortest bookable appointment, in minutes.
const MinDuration = 5

// ClockTime is a time of day with minute precision, rendered as HH:MM in
// 24-hour form.
type ClockTime struct {
	Hour   int
	Minute int
}

// NewClockTime returns a validated ClockTime.
func NewClockTime(hour, minute int) (ClockTime, error) {
	c := ClockTime{Hour: hour, Minute: minute}
	if !c.IsValid() {
		return ClockTime{}, fmt.Errorf("invalid time of day %02d:%02d", hour, minute)
	}
	return c, nil
}

// ParseClockTime parses "HH:MM" (a single-digit hour is accepted).
func ParseClockTime(s string) (ClockTime, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return ClockTime{}, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return NewClockTime(h, m)
}

// IsValid reports whether the hour is in [0,23] and the minute in [0,59].
func (c ClockTime) IsValid() bool {
	return c.Hour >= 0 && c.Hour <= 23 && c.Minute >= 0 && c.Minute <= 59
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// MarshalText implements encoding.TextMarshaler.
func (c ClockTime) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *ClockTime) UnmarshalText(b []byte) error {
	parsed, err := ParseClockTime(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// On combines a calendar date with this time of day in loc.
func (c ClockTime) On(d civil.Date, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, c.Hour, c.Minute, 0, 0, loc)
}

// Fields is a partial appointment: the subset of fields that extraction (or a
// manual edit) produced. Absent fields are left at their zero value and are
// omitted from JSON.
type Fields struct {
	PatientID     string      `json:"patientId,omitempty"`
	OfficeID      string      `json:"officeId,omitempty"`
	ServiceIDs    []string    `json:"serviceIds,omitempty"`
	Date          *civil.Date `json:"date,omitempty"`
	Time          *ClockTime  `json:"time,omitempty"`
	Duration      int         `json:"duration,omitempty"`
	Reason        string      `json:"reason,omitempty"`
	InternalNotes string      `json:"internalNotes,omitempty"`
}

// Clone returns a deep copy.
func (f Fields) Clone() Fields {
	out := f
	if f.ServiceIDs != nil {
		out.ServiceIDs = slices.Clone(f.ServiceIDs)
	}
	if f.Date != nil {
		d := *f.Date
		out.Date = &d
	}
	if f.Time != nil {
		t := *f.Time
		out.Time = &t
	}
	return out
}

// Merge returns a copy of f with every field present in next written over it.
func (f Fields) Merge(next Fields) Fields {
	out := f.Clone()
	n := next.Clone()
	if n.PatientID != "" {
		out.PatientID = n.PatientID
	}
	if n.OfficeID != "" {
		out.OfficeID = n.OfficeID
	}
	if len(n.ServiceIDs) > 0 {
		out.ServiceIDs = n.ServiceIDs
	}
	if n.Date != nil {
		out.Date = n.Date
	}
	if n.Time != nil {
		out.Time = n.Time
	}
	if n.Duration > 0 {
		out.Duration = n.Duration
	}
	if n.Reason != "" {
		out.Reason = n.Reason
	}
	if n.InternalNotes != "" {
		out.InternalNotes = n.InternalNotes
	}
	return out
}

// Record is a committed appointment. Start and End are derived from Date,
// Time and Duration; End is always after Start.
type Record struct {
	ID            string     `json:"id"`
	PatientID     string     `json:"patientId"`
	OfficeID      string     `json:"officeId"`
	ServiceIDs    []string   `json:"serviceIds"`
	Date          civil.Date `json:"date"`
	Time          ClockTime  `json:"time"`
	Duration      int        `json:"duration"`
	Reason        string     `json:"reason,omitempty"`
	InternalNotes string     `json:"internalNotes,omitempty"`
	Start         time.Time  `json:"start"`
	End           time.Time  `json:"end"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// NewRecord builds a record from complete fields. The caller is expected to
// have validated f; missing date or time yields an error.
func NewRecord(id string, f Fields, loc *time.Location, now time.Time) (Record, error) {
	if f.Date == nil || f.Time == nil {
		return Record{}, fmt.Errorf("record %s: date and time are required", id)
	}
	if f.Duration < MinDuration {
		return Record{}, fmt.Errorf("record %s: duration %d below minimum %d", id, f.Duration, MinDuration)
	}
	start := f.Time.On(*f.Date, loc)
	return Record{
		ID:            id,
		PatientID:     f.PatientID,
		OfficeID:      f.OfficeID,
		ServiceIDs:    slices.Clone(f.ServiceIDs),
		Date:          *f.Date,
		Time:          *f.Time,
		Duration:      f.Duration,
		Reason:        f.Reason,
		InternalNotes: f.InternalNotes,
		Start:         start,
		End:           start.Add(time.Duration(f.Duration) * time.Minute),
		CreatedAt:     now,
	}, nil
}

// Fields returns the record's values as a field set.
func (r Record) Fields() Fields {
	d, t := r.Date, r.Time
	return Fields{
		PatientID:     r.PatientID,
		OfficeID:      r.OfficeID,
		ServiceIDs:    slices.Clone(r.ServiceIDs),
		Date:          &d,
		Time:          &t,
		Duration:      r.Duration,
		Reason:        r.Reason,
		InternalNotes: r.InternalNotes,
	}
}
