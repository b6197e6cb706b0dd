package answer

import (
	"iter"
	"unicode"
	"unicode/utf8"
)

// Sentences splits text into sentence-like pieces. A piece ends at a single
// whitespace rune that directly follows '.' or '?', unless the preceding runes
// look like an abbreviation ("e.g.") or a title ("Mr.", "Dr."). The separating
// whitespace is dropped; empty pieces are skipped.
//
// The returned sequence is lazy and can be ranged over any number of times.
func Sentences(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		var prev [4]rune // prev[3] is the rune right before the cursor
		seen := 0
		start := 0
		for i := 0; i < len(text); {
			r, size := utf8.DecodeRuneInString(text[i:])
			if unicode.IsSpace(r) && sentenceBoundary(prev, seen) {
				if piece := text[start:i]; piece != "" {
					if !yield(piece) {
						return
					}
				}
				start = i + size
			}
			prev = [4]rune{prev[1], prev[2], prev[3], r}
			seen++
			i += size
		}
		if piece := text[start:]; piece != "" {
			yield(piece)
		}
	}
}

func sentenceBoundary(prev [4]rune, seen int) bool {
	if seen < 1 || (prev[3] != '.' && prev[3] != '?') {
		return false
	}
	// e.g. / i.e.
	if seen >= 4 && isWordRune(prev[0]) && prev[1] == '.' && isWordRune(prev[2]) {
		return false
	}
	// Mr. / Dr.
	if seen >= 3 && isASCIIUpper(prev[1]) && isASCIILower(prev[2]) && prev[3] == '.' {
		return false
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isASCIIUpper(r rune) bool { return r >= 'A' && r <= 'Z' }

func isASCIILower(r rune) bool { return r >= 'a' && r <= 'z' }
