package voice

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Word boundaries here are Unicode-aware: regexp's \b only knows ASCII and
// would split "mañana" around the ñ.

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// wordIndexes returns the byte offset of every whole-word occurrence of
// phrase in text.
func wordIndexes(text, phrase string) []int {
	if phrase == "" {
		return nil
	}
	var out []int
	for from := 0; from <= len(text)-len(phrase); {
		i := strings.Index(text[from:], phrase)
		if i < 0 {
			break
		}
		i += from
		end := i + len(phrase)
		if boundaryBefore(text, i) && boundaryAfter(text, end) {
			out = append(out, i)
			from = end
			continue
		}
		from = i + 1
	}
	return out
}

// indexWord returns the first whole-word occurrence of phrase, or -1.
func indexWord(text, phrase string) int {
	if idx := wordIndexes(text, phrase); len(idx) > 0 {
		return idx[0]
	}
	return -1
}

func containsWord(text, phrase string) bool {
	return indexWord(text, phrase) >= 0
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func boundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !isWordRune(r)
}

// replacePhrase rewrites every whole-word occurrence of from.
func replacePhrase(text, from, to string) string {
	idx := wordIndexes(text, from)
	if len(idx) == 0 {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, i := range idx {
		b.WriteString(text[last:i])
		b.WriteString(to)
		last = i + len(from)
	}
	b.WriteString(text[last:])
	return b.String()
}

// replaceWords passes every maximal run of word runes through fn.
func replaceWords(text string, fn func(word string) (string, bool)) string {
	var b strings.Builder
	b.Grow(len(text))
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		word := text[start:end]
		if repl, ok := fn(word); ok {
			b.WriteString(repl)
		} else {
			b.WriteString(word)
		}
		start = -1
	}
	for i, r := range text {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
		b.WriteRune(r)
	}
	flush(len(text))
	return b.String()
}

// wordBefore returns the word that ends right before byte offset i,
// skipping separators.
func wordBefore(text string, i int) string {
	end := i
	for end > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:end])
		if isWordRune(r) {
			break
		}
		end -= size
	}
	start := end
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:start])
		if !isWordRune(r) {
			break
		}
		start -= size
	}
	return text[start:end]
}

// wordAfter returns the word that starts after byte offset i, skipping
// separators.
func wordAfter(text string, i int) string {
	start := i
	for start < len(text) {
		r, size := utf8.DecodeRuneInString(text[start:])
		if isWordRune(r) {
			break
		}
		start += size
	}
	end := start
	for end < len(text) {
		r, size := utf8.DecodeRuneInString(text[end:])
		if !isWordRune(r) {
			break
		}
		end += size
	}
	return text[start:end]
}
