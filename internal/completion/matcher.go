package completion

import "github.com/sahilm/fuzzy"

// Matcher scores a filter pattern against a candidate text. Matching is a
// case-insensitive subsequence match; ok is false when the pattern does not
// occur in the text at all.
type Matcher interface {
	Match(text, pattern string) (score int, indices []int, ok bool)
}

type fuzzyMatcher struct{}

// NewFuzzyMatcher returns the default Matcher.
func NewFuzzyMatcher() Matcher {
	return fuzzyMatcher{}
}

func (fuzzyMatcher) Match(text, pattern string) (int, []int, bool) {
	matches := fuzzy.Find(pattern, []string{text})
	if len(matches) == 0 {
		return 0, nil, false
	}
	return matches[0].Score, matches[0].MatchedIndexes, true
}
