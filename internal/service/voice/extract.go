package voice

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// Every extractor reads the normalized transcript. A miss returns false and
// leaves the field unset.

var durationPattern = regexp.MustCompile(`(?:^|[^\p{N}])(\d{1,4})\s*(minutos?|mins?|horas?|h)(?:[^\p{L}\p{N}]|$)`)

func extractDuration(text string) (int, bool) {
	m := durationPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	if strings.HasPrefix(m[2], "h") {
		n *= 60
	}
	if n < 5 {
		return 0, false
	}
	return n, true
}

// dateExtractor resolves spoken dates against today. Only the first path
// that matches is used: relative day, then weekday, then "<day> de <month>".
type dateExtractor struct {
	lex        *Lexicon
	dayOfMonth *regexp.Regexp
}

func newDateExtractor(lex *Lexicon) *dateExtractor {
	months := make([]string, 0, len(lex.Months))
	for name := range lex.Months {
		months = append(months, regexp.QuoteMeta(name))
	}
	// Longest first so "septiembre" is not shadowed by a shorter prefix.
	slices.SortFunc(months, func(a, b string) int {
		if d := len(b) - len(a); d != 0 {
			return d
		}
		return strings.Compare(a, b)
	})
	expr := `(?:^|[^\p{N}])(\d{1,2})\s*de\s*(` + strings.Join(months, "|") + `)(?:[^\p{L}\p{N}]|$)`
	return &dateExtractor{lex: lex, dayOfMonth: regexp.MustCompile(expr)}
}

func (d *dateExtractor) extract(text string, today civil.Date) (civil.Date, bool) {
	// "de la manana" is a time of day, not tomorrow.
	scrubbed := replacePhrase(text, "de la manana", " ")
	for _, rel := range d.lex.RelativeDays {
		if containsWord(scrubbed, rel.Phrase) {
			return today.AddDays(rel.Offset), true
		}
	}

	if wd, ok := d.firstWeekday(text); ok {
		offset := (int(wd) - int(today.In(time.UTC).Weekday()) + 7) % 7
		if offset == 0 {
			offset = 7
		}
		return today.AddDays(offset), true
	}

	m := d.dayOfMonth.FindStringSubmatch(text)
	if m == nil {
		return civil.Date{}, false
	}
	day, err := strconv.Atoi(m[1])
	if err != nil {
		return civil.Date{}, false
	}
	date := civil.Date{Year: today.Year, Month: d.lex.Months[m[2]], Day: day}
	if !date.IsValid() {
		return civil.Date{}, false
	}
	return date, true
}

func (d *dateExtractor) firstWeekday(text string) (time.Weekday, bool) {
	best, found := -1, false
	var day time.Weekday
	for name, wd := range d.lex.Weekdays {
		i := indexWord(text, name)
		if i < 0 {
			continue
		}
		if !found || i < best {
			best, day, found = i, wd, true
		}
	}
	return day, found
}

// entry is a catalog item with its name normalized like a transcript.
type entry struct {
	id    string
	name  string
	first string
}

func newEntry(lex *Lexicon, id, name string) entry {
	n := lex.Normalize(name)
	first, _, _ := strings.Cut(n, " ")
	return entry{id: id, name: n, first: first}
}

// matchPatient tries full names first and falls back to a whole-word first
// name. The first catalog entry that matches wins.
func matchPatient(text string, patients []entry) (string, bool) {
	for _, p := range patients {
		if p.name != "" && strings.Contains(text, p.name) {
			return p.id, true
		}
	}
	for _, p := range patients {
		if p.first != "" && containsWord(text, p.first) {
			return p.id, true
		}
	}
	return "", false
}

func matchName(text string, entries []entry) (string, bool) {
	for _, e := range entries {
		if e.name != "" && strings.Contains(text, e.name) {
			return e.id, true
		}
	}
	return "", false
}

type keyword struct {
	word     string
	officeID string
}

func matchOffice(text string, offices []entry, keywords []keyword) (string, bool) {
	if id, ok := matchName(text, offices); ok {
		return id, true
	}
	for _, k := range keywords {
		if containsWord(text, k.word) {
			return k.officeID, true
		}
	}
	return "", false
}
