package voice

import (
	"time"

	"cloud.google.com/go/civil"

	"voice-appointment-service/internal/catalog"
	"voice-appointment-service/internal/models"
	"voice-appointment-service/internal/observability/metrics"
)

// Parser extracts appointment fields from transcripts. It holds only
// read-only data and is safe for concurrent use.
type Parser struct {
	lex     *Lexicon
	now     func() time.Time
	loc     *time.Location
	metrics *metrics.Metrics

	dates    *dateExtractor
	patients []entry
	offices  []entry
	services []entry
	keywords []keyword
}

// Option configures a Parser.
type Option func(*Parser)

// WithClock sets the source of "today" for relative dates.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) { p.now = now }
}

// WithLocation sets the time zone "today" is computed in.
func WithLocation(loc *time.Location) Option {
	return func(p *Parser) {
		if loc != nil {
			p.loc = loc
		}
	}
}

// WithLexicon replaces the Spanish vocabulary.
func WithLexicon(lex *Lexicon) Option {
	return func(p *Parser) {
		if lex != nil {
			p.lex = lex
		}
	}
}

// WithMetrics records every parse.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Parser) { p.metrics = m }
}

// NewParser builds a parser over the given catalog.
func NewParser(cat *catalog.Catalog, opts ...Option) *Parser {
	p := &Parser{
		lex: spanish,
		now: time.Now,
		loc: time.UTC,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.dates = newDateExtractor(p.lex)

	if cat == nil {
		cat = &catalog.Catalog{}
	}
	for _, pt := range cat.Patients {
		p.patients = append(p.patients, newEntry(p.lex, pt.ID, pt.Name))
	}
	for _, o := range cat.Offices {
		p.offices = append(p.offices, newEntry(p.lex, o.ID, o.Name))
	}
	for _, s := range cat.Services {
		p.services = append(p.services, newEntry(p.lex, s.ID, s.Name))
	}
	for _, k := range cat.OfficeKeywords {
		p.keywords = append(p.keywords, keyword{word: p.lex.Normalize(k.Keyword), officeID: k.OfficeID})
	}
	return p
}

// Today returns the current date in the parser's location.
func (p *Parser) Today() civil.Date {
	return civil.DateOf(p.now().In(p.loc))
}

// Parse re-reads the whole transcript and returns a fresh outcome. It never
// looks at earlier calls, so it can be run on every partial transcript.
func (p *Parser) Parse(transcript string) models.Outcome {
	start := time.Now()
	text := p.lex.Normalize(transcript)

	var (
		values      models.Fields
		ambiguities []models.Ambiguity
	)
	if id, ok := matchPatient(text, p.patients); ok {
		values.PatientID = id
	}
	if id, ok := matchName(text, p.services); ok {
		values.ServiceIDs = []string{id}
	}
	if id, ok := matchOffice(text, p.offices, p.keywords); ok {
		values.OfficeID = id
	}
	if d, ok := extractDuration(text); ok {
		values.Duration = d
	}
	if d, ok := p.dates.extract(text, p.Today()); ok {
		values.Date = &d
	}
	if r, ok := findClock(text, p.lex); ok {
		t, ambiguous := r.time()
		values.Time = &t
		if ambiguous {
			ambiguities = append(ambiguities, models.AmbiguityTimeMeridiem)
		}
	}

	outcome := models.NewOutcome(values, ambiguities, transcript)
	if p.metrics != nil {
		kinds := make([]string, len(outcome.Ambiguities))
		for i, a := range outcome.Ambiguities {
			kinds[i] = string(a)
		}
		p.metrics.RecordParse(outcome.IsComplete, kinds, time.Since(start).Seconds())
	}
	return outcome
}
