package textutil

import (
	"regexp"
	"strings"
)

var wordSplit = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Similarity scores how much of a needle's vocabulary appears in a prepared
// haystack. It backs the summary-adoption (0.8) and story-title (0.9) checks.
type Similarity struct {
	words map[string]struct{}
}

// NewSimilarity tokenizes the haystack once for repeated Search calls.
func NewSimilarity(haystack string) *Similarity {
	words := make(map[string]struct{})
	for _, w := range tokenize(haystack) {
		words[w] = struct{}{}
	}
	return &Similarity{words: words}
}

// Search returns the fraction of needle tokens present in the haystack,
// in [0, 1]. A needle with no usable tokens scores 0.
func (s *Similarity) Search(needle string) float64 {
	tokens := tokenize(needle)
	if len(tokens) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(tokens))
	matched, total := 0, 0
	for _, tok := range tokens {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		total++
		if _, ok := s.words[tok]; ok {
			matched++
		}
	}
	return float64(matched) / float64(total)
}

func tokenize(text string) []string {
	var tokens []string
	for _, w := range wordSplit.Split(strings.ToLower(text), -1) {
		if len([]rune(w)) > 1 {
			tokens = append(tokens, w)
		}
	}
	return tokens
}
