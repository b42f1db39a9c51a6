package voice

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"voice-appointment-service/internal/models"
)

// Meridiem is the spoken half of the day qualifying a 12-hour clock value.
type Meridiem int

const (
	MeridiemNone Meridiem = iota
	MeridiemAM
	MeridiemPM
)

func (m Meridiem) String() string {
	switch m {
	case MeridiemAM:
		return "am"
	case MeridiemPM:
		return "pm"
	default:
		return "none"
	}
}

// To24 converts a 12-hour value: PM adds 12 below noon, AM turns 12 into 0.
// Any other hour passes through unchanged.
func (m Meridiem) To24(hour int) int {
	switch {
	case m == MeridiemPM && hour < 12:
		return hour + 12
	case m == MeridiemAM && hour == 12:
		return 0
	default:
		return hour
	}
}

func meridiemOf(word string) Meridiem {
	w := strings.Join(strings.Fields(word), " ")
	switch {
	case w == "":
		return MeridiemNone
	case strings.HasPrefix(w, "a"), w == "de la manana":
		return MeridiemAM
	default:
		return MeridiemPM
	}
}

// clockReading is one time mention found in the text.
type clockReading struct {
	hour     int
	minute   int
	meridiem Meridiem
	pos      int
}

// time returns the 24-hour value and whether the meridiem is unknown for an
// hour that could be either half of the day.
func (r clockReading) time() (models.ClockTime, bool) {
	if r.meridiem != MeridiemNone {
		return models.ClockTime{Hour: r.meridiem.To24(r.hour), Minute: r.minute}, false
	}
	ambiguous := r.hour >= 1 && r.hour <= 12
	return models.ClockTime{Hour: r.hour, Minute: r.minute}, ambiguous
}

const (
	meridiemExpr = `(?P<meridiem>a\.m\.?|p\.m\.?|am|pm|de\s+la\s+(?:manana|tarde|noche))(?:[^\p{L}\p{N}]|$)`
	optMeridiem  = `(?:\s*` + meridiemExpr + `)?`
)

// Time forms, tried independently. The earliest mention in the text wins and
// ties go to the earlier form.
var clockForms = []*regexp.Regexp{
	// a las 3, a las 3:30, a las 3 y 30, alas 3 pm
	regexp.MustCompile(`(?:^|[^\p{L}\p{N}])(?:a\s+las?|alas)\s+(?P<hour>\d{1,2})(?::(?P<minute>\d{2})|\s+y\s+(?P<yminute>\d{2}))?` + optMeridiem),
	// 15:30, 3:30 pm
	regexp.MustCompile(`(?:^|[^\p{N}:])(?P<hour>\d{1,2}):(?P<minute>\d{2})` + optMeridiem),
	// 3pm, 3 de la tarde
	regexp.MustCompile(`(?:^|[^\p{N}])(?P<hour>\d{1,2})\s*` + meridiemExpr),
}

var numberToken = regexp.MustCompile(`[0-9]+`)

func findClock(text string, lex *Lexicon) (clockReading, bool) {
	var best clockReading
	found := false
	for _, re := range clockForms {
		r, ok := firstReading(re, text)
		if !ok {
			continue
		}
		if !found || r.pos < best.pos {
			best, found = r, true
		}
	}
	if found {
		return best, true
	}
	return bareHour(text, lex)
}

func firstReading(re *regexp.Regexp, text string) (clockReading, bool) {
	for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
		if r, ok := readingFrom(re, text, m); ok {
			return r, true
		}
	}
	return clockReading{}, false
}

func readingFrom(re *regexp.Regexp, text string, m []int) (clockReading, bool) {
	group := func(name string) (string, int, int) {
		i := re.SubexpIndex(name)
		if i < 0 || m[2*i] < 0 {
			return "", -1, -1
		}
		return text[m[2*i]:m[2*i+1]], m[2*i], m[2*i+1]
	}

	hourText, hourPos, hourEnd := group("hour")
	if hourText == "" || digitAt(text, hourEnd) {
		return clockReading{}, false
	}
	r := clockReading{pos: hourPos}
	r.hour, _ = strconv.Atoi(hourText)

	for _, name := range []string{"minute", "yminute"} {
		minText, _, minEnd := group(name)
		if minText == "" {
			continue
		}
		if digitAt(text, minEnd) {
			return clockReading{}, false
		}
		r.minute, _ = strconv.Atoi(minText)
	}

	meridiemText, _, _ := group("meridiem")
	r.meridiem = meridiemOf(meridiemText)

	if r.hour > 23 || r.minute > 59 {
		return clockReading{}, false
	}
	return r, true
}

func digitAt(text string, i int) bool {
	return i >= 0 && i < len(text) && text[i] >= '0' && text[i] <= '9'
}

// bareHour is the fallback for a lone number in 1..12 that is neither a day
// of month, a duration, a year nor an article.
func bareHour(text string, lex *Lexicon) (clockReading, bool) {
	for _, loc := range numberToken.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		if !boundaryBefore(text, start) || !boundaryAfter(text, end) {
			continue
		}
		// Half of an HH:MM that was rejected above.
		if (start > 0 && text[start-1] == ':') || (end < len(text) && text[end] == ':') {
			continue
		}
		n, err := strconv.Atoi(text[start:end])
		if err != nil || n < 1 || n > 12 {
			continue
		}
		if slices.Contains(lex.DateMarkers, wordBefore(text, start)) {
			continue
		}
		next := wordAfter(text, end)
		if slices.Contains(lex.DurationUnits, next) || slices.Contains(lex.CountedNouns, next) {
			continue
		}
		if next == "de" && followedByDatePart(text, end, lex) {
			continue
		}
		return clockReading{hour: n, pos: start}, true
	}
	return clockReading{}, false
}

// followedByDatePart reports whether "de" after end is followed by a year
// (20XX) or a month name.
func followedByDatePart(text string, end int, lex *Lexicon) bool {
	de := strings.Index(text[end:], "de") + end
	after := wordAfter(text, de+len("de"))
	if len(after) == 4 && strings.HasPrefix(after, "20") && isDigits(after) {
		return true
	}
	_, isMonth := lex.Months[after]
	return isMonth
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
