package correct

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// FuzzyMatcher resolves near-miss tokens against the vocabulary using a
// phonetic pre-filter followed by string similarity scoring. Matching is
// fully deterministic: candidates are scored against the lower-cased token
// and equal scores resolve to the lexicographically smaller candidate.
type FuzzyMatcher struct {
	// Threshold is the minimum Jaro-Winkler similarity, in (0, 1], a
	// candidate must reach before it is accepted.
	Threshold float64
}

// NewFuzzyMatcher returns a matcher with the given similarity threshold.
// Values outside (0, 1] fall back to 0.88, which is strict enough to avoid
// rewriting common short words.
func NewFuzzyMatcher(threshold float64) *FuzzyMatcher {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.88
	}
	return &FuzzyMatcher{Threshold: threshold}
}

// Match returns the best vocabulary candidate for token, if any reaches the
// threshold. Candidates must be sorted; ties on score break toward the
// earlier candidate so results never depend on map iteration order.
func (m *FuzzyMatcher) Match(token string, candidates []string) (string, bool) {
	lower := strings.ToLower(token)
	if len(lower) < 3 {
		return "", false
	}
	primary, secondary := matchr.DoubleMetaphone(lower)

	best := ""
	bestScore := 0.0
	for _, cand := range candidates {
		candLower := strings.ToLower(cand)
		if candLower == lower {
			return cand, true
		}
		cp, cs := matchr.DoubleMetaphone(candLower)
		if !phoneticOverlap(primary, secondary, cp, cs) {
			continue
		}
		score := matchr.JaroWinkler(lower, candLower, false)
		if score >= m.Threshold && score > bestScore {
			best = cand
			bestScore = score
		}
	}
	return best, best != ""
}

func phoneticOverlap(p1, s1, p2, s2 string) bool {
	if p1 == "" && p2 == "" {
		return false
	}
	return p1 == p2 || (s1 != "" && s1 == p2) || (s2 != "" && p1 == s2) || (s1 != "" && s1 == s2)
}
