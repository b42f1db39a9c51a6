// Package voice turns a Spanish scheduling transcript into appointment
// fields. Parsing is pure and stateless: every call re-reads the whole
// transcript.
package voice

import "time"

// Rewrite replaces a whole-word phrase.
type Rewrite struct {
	From string
	To   string
}

// RelativeDay is a spoken day relative to today.
type RelativeDay struct {
	Phrase string
	Offset int
}

// Lexicon is the vocabulary the parser understands. Every entry is stored
// folded: lower case, without diacritics.
type Lexicon struct {
	// Numbers maps spoken number words to digits.
	Numbers map[string]string
	// Phrases are applied in order before Numbers. Longer phrases come first.
	Phrases []Rewrite
	// RelativeDays are tried in order; the first whole-word hit wins.
	RelativeDays []RelativeDay
	Weekdays     map[string]time.Weekday
	Months       map[string]time.Month

	// DateMarkers are words that, right before a bare number, make it a day
	// of month rather than an hour.
	DateMarkers []string
	// DurationUnits are the words that, right after a number, make it a
	// duration. Units starting with "h" count hours.
	DurationUnits []string
	// CountedNouns follow a bare number used as an article ("una cita").
	CountedNouns []string
}

// Spanish returns the lexicon for Spanish dictation.
func Spanish() *Lexicon {
	return &Lexicon{
		Numbers: map[string]string{
			"una":        "1",
			"uno":        "1",
			"dos":        "2",
			"tres":       "3",
			"cuatro":     "4",
			"cinco":      "5",
			"seis":       "6",
			"siete":      "7",
			"ocho":       "8",
			"nueve":      "9",
			"diez":       "10",
			"once":       "11",
			"hoce":       "11",
			"doce":       "12",
			"trece":      "13",
			"catorce":    "14",
			"quince":     "15",
			"dieciseis":  "16",
			"diecisiete": "17",
			"dieciocho":  "18",
			"diecinueve": "19",
			"veinte":     "20",
			"veintiuno":  "21",
			"veintidos":  "22",
			"veintitres": "23",
			"media":      "30",
			"cuarto":     "15",
		},
		Phrases: []Rewrite{
			{From: "una hora y media", To: "90 minutos"},
			{From: "hora y media", To: "90 minutos"},
			{From: "media hora", To: "30 minutos"},
			{From: "cuarto de hora", To: "15 minutos"},
		},
		RelativeDays: []RelativeDay{
			{Phrase: "pasado manana", Offset: 2},
			{Phrase: "manana", Offset: 1},
			{Phrase: "hoy", Offset: 0},
		},
		Weekdays: map[string]time.Weekday{
			"lunes":     time.Monday,
			"martes":    time.Tuesday,
			"miercoles": time.Wednesday,
			"jueves":    time.Thursday,
			"viernes":   time.Friday,
			"sabado":    time.Saturday,
			"domingo":   time.Sunday,
		},
		Months: map[string]time.Month{
			"enero":      time.January,
			"febrero":    time.February,
			"marzo":      time.March,
			"abril":      time.April,
			"mayo":       time.May,
			"junio":      time.June,
			"julio":      time.July,
			"agosto":     time.August,
			"septiembre": time.September,
			"setiembre":  time.September,
			"octubre":    time.October,
			"noviembre":  time.November,
			"diciembre":  time.December,
		},
		DateMarkers:   []string{"el", "dia", "de"},
		DurationUnits: []string{"min", "mins", "minuto", "minutos", "h", "hora", "horas"},
		CountedNouns:  []string{"cita", "citas"},
	}
}
