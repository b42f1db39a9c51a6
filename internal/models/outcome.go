package models

import "slices"

// Ambiguity tags a parsed field whose value is provisional.
type Ambiguity string

// AmbiguityTimeMeridiem marks a time whose hour could be morning or afternoon.
const AmbiguityTimeMeridiem Ambiguity = "time-meridiem"

// Outcome is the result of parsing one transcript. It is produced fresh per
// parse and never mutated afterwards.
type Outcome struct {
	Values        Fields      `json:"values"`
	Ambiguities   []Ambiguity `json:"ambiguities"`
	IsComplete    bool        `json:"isComplete"`
	RawTranscript string      `json:"rawTranscript"`
}

// NewOutcome assembles an outcome, deduplicating ambiguities and computing
// completeness.
func NewOutcome(values Fields, ambiguities []Ambiguity, raw string) Outcome {
	set := make([]Ambiguity, 0, len(ambiguities))
	for _, a := range ambiguities {
		if !slices.Contains(set, a) {
			set = append(set, a)
		}
	}
	return Outcome{
		Values:        values,
		Ambiguities:   set,
		IsComplete:    IsComplete(values, set),
		RawTranscript: raw,
	}
}

// HasAmbiguity reports whether a is among the outcome's ambiguities.
func (o Outcome) HasAmbiguity(a Ambiguity) bool {
	return slices.Contains(o.Ambiguities, a)
}

// IsComplete holds when patient, office, date, time and duration are all
// present and nothing is ambiguous. Services are not part of completeness.
func IsComplete(values Fields, ambiguities []Ambiguity) bool {
	return values.PatientID != "" &&
		values.OfficeID != "" &&
		values.Date != nil &&
		values.Time != nil &&
		values.Duration > 0 &&
		len(ambiguities) == 0
}
