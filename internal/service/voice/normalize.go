package voice

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var spanish = Spanish()

// Fold lower-cases text, strips diacritics and collapses whitespace, so that
// "Mañana  a las DOS" and "manana a las dos" compare equal.
func Fold(text string) string {
	// A chained transformer keeps state, so build one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(text))
	if err != nil {
		folded = strings.ToLower(text)
	}
	return strings.Join(strings.Fields(folded), " ")
}

// Normalize folds text and rewrites spoken numbers into digits using the
// Spanish lexicon.
func Normalize(text string) string {
	return spanish.Normalize(text)
}

// Normalize folds text, applies the phrase rewrites and then replaces every
// whole number word with its digits. Normalizing twice is a no-op.
func (l *Lexicon) Normalize(text string) string {
	s := Fold(text)
	for _, rw := range l.Phrases {
		s = replacePhrase(s, rw.From, rw.To)
	}
	return replaceWords(s, func(word string) (string, bool) {
		digits, ok := l.Numbers[word]
		return digits, ok
	})
}
