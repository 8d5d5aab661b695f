package promotion

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// TEXT NORMALIZATION - Certificate names and course duration labels
// =============================================================================

// normalize folds free text typed by HR staff into a canonical form:
//   - compatibility decomposition (Arabic presentation forms -> base letters)
//   - harakat and hamza/madda marks removed, so أ إ آ all become ا
//   - tatweel removed, ة -> ه, ى -> ي, ٱ -> ا
//   - Arabic-Indic digits -> ASCII digits
//   - Unicode case folding
//   - runs of whitespace collapsed to one space
//
// Transformers carry state, so a fresh chain is built per call.
func normalize(s string) string {
	t := transform.Chain(
		norm.NFKD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Remove(runes.Predicate(isTatweel)),
		runes.Map(foldArabic),
		norm.NFC,
		cases.Fold(),
	)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = strings.ToLower(s)
	}
	return strings.Join(strings.Fields(out), " ")
}

func isTatweel(r rune) bool { return r == 'ـ' }

func foldArabic(r rune) rune {
	switch {
	case r == 'ة':
		return 'ه'
	case r == 'ى':
		return 'ي'
	case r == 'ٱ':
		return 'ا'
	case r >= '٠' && r <= '٩':
		return '0' + (r - '٠')
	case r >= '۰' && r <= '۹':
		return '0' + (r - '۰')
	}
	return r
}

// attachedPrefixes are the Arabic article and one-letter prepositions and
// conjunctions written joined to the following word, as in "الأسبوعين" or
// "بأسبوعين". Already normalized.
var attachedPrefixes = map[string]bool{
	"ال": true, "بال": true, "لل": true, "وال": true, "فال": true, "كال": true,
	"ب": true, "ل": true, "و": true, "ف": true, "ك": true,
}

// containsTerm reports whether term occurs in s as a whole word: the runes
// on either side of the match must not be letters or digits, except that an
// Arabic term may carry one of attachedPrefixes.
// Both arguments must already be normalized.
func containsTerm(s, term string) bool {
	if term == "" {
		return false
	}
	for offset := 0; offset < len(s); {
		i := strings.Index(s[offset:], term)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(term)
		if (boundaryBefore(s, start) || prefixedBefore(s, start, term)) && boundaryAfter(s, end) {
			return true
		}
		offset = start + 1
	}
	return false
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// prefixedBefore reports whether the word fragment in front of index i is
// an attached prefix and term is Arabic.
func prefixedBefore(s string, i int, term string) bool {
	first, _ := utf8.DecodeRuneInString(term)
	if !unicode.Is(unicode.Arabic, first) {
		return false
	}
	word := s[:i]
	if j := strings.LastIndexFunc(word, isSeparator); j >= 0 {
		_, size := utf8.DecodeRuneInString(word[j:])
		word = word[j+size:]
	}
	return attachedPrefixes[word]
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
