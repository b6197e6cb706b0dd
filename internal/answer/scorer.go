package answer

import (
	"iter"
	"slices"
	"strings"
)

// ScoredSentence is a candidate sentence with its keyword score.
type ScoredSentence struct {
	Text  string
	Score int
}

// Ranking holds scored sentences, highest score first.
type Ranking []ScoredSentence

// Best returns the top-ranked sentence.
func (r Ranking) Best() (ScoredSentence, bool) {
	if len(r) == 0 {
		return ScoredSentence{}, false
	}
	return r[0], true
}

// Tokenize lower-cases the question and splits it on whitespace. Tokens keep
// their punctuation and duplicates.
func Tokenize(question string) []string {
	return strings.Fields(strings.ToLower(question))
}

// Score counts the tokens that occur as raw substrings of the lower-cased
// sentence. Each token in the list counts once, so a repeated token counts
// once per repetition.
func Score(tokens []string, sentence string) int {
	lowered := strings.ToLower(sentence)
	score := 0
	for _, tok := range tokens {
		if strings.Contains(lowered, tok) {
			score++
		}
	}
	return score
}

// Rank scores every candidate against the question, drops zero scores and
// orders the rest by score descending. Equal scores keep their input order.
func Rank(question string, candidates iter.Seq[string]) Ranking {
	tokens := Tokenize(question)
	if len(tokens) == 0 {
		return nil
	}
	var out Ranking
	for sentence := range candidates {
		if score := Score(tokens, sentence); score > 0 {
			out = append(out, ScoredSentence{Text: sentence, Score: score})
		}
	}
	slices.SortStableFunc(out, func(a, b ScoredSentence) int {
		return b.Score - a.Score
	})
	return out
}
