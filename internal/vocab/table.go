package vocab

import (
	"sort"
	"strings"
	"unicode"
)

// termEntry pairs a canonical form with its domain, preserving registration
// order so that overlapping entries resolve deterministically.
type termEntry struct {
	canonical string
	domain    Domain
	order     int
}

// Phrase is a phrase-level vocabulary match candidate exposed to the
// correction engine. Phrases are served longest-first.
type Phrase struct {
	// Source is the case-folded source phrase.
	Source string

	// Target is the replacement text.
	Target string

	// Words is the number of whitespace-separated words in Source.
	Words int

	// Domain is the vocabulary domain of the originating entry.
	Domain Domain

	order int
}

// Table is an immutable, read-optimised view over a set of vocabulary
// entries plus the custom correction map. Build one with [NewTable]; all
// methods are safe for concurrent use because a Table is never mutated
// after construction.
type Table struct {
	terms   map[string][]termEntry
	phrases []Phrase
	custom  []Phrase
	maxWin  int
}

// NewTable builds a [Table] from entries and the exact-match custom
// correction map. Invalid entries (no term and no source) are skipped.
//
// Phrase entries with equal word counts keep registration order:
// first-registered wins when the correction engine scans candidates.
// Custom corrections are served longest-source-first with a lexicographic
// tie-break so application order is deterministic regardless of map
// iteration order.
func NewTable(entries []Entry, custom map[string]string) *Table {
	t := &Table{
		terms: make(map[string][]termEntry),
	}

	for i, e := range entries {
		switch {
		case e.IsPhrase():
			src := normalizeSource(e.Source)
			if src == "" || e.Target == "" {
				continue
			}
			p := Phrase{
				Source: src,
				Target: e.Target,
				Words:  len(strings.Fields(src)),
				Domain: e.Domain,
				order:  i,
			}
			t.phrases = append(t.phrases, p)
			if p.Words > t.maxWin {
				t.maxWin = p.Words
			}
		case e.Term != "":
			k := e.key()
			t.terms[k] = append(t.terms[k], termEntry{
				canonical: e.Term,
				domain:    e.Domain,
				order:     i,
			})
		}
	}

	// Longest first; registration order breaks ties.
	sort.SliceStable(t.phrases, func(i, j int) bool {
		if t.phrases[i].Words != t.phrases[j].Words {
			return t.phrases[i].Words > t.phrases[j].Words
		}
		return t.phrases[i].order < t.phrases[j].order
	})

	keys := make([]string, 0, len(custom))
	for k := range custom {
		if strings.TrimSpace(k) != "" {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		t.custom = append(t.custom, Phrase{
			Source: strings.ToLower(k),
			Target: custom[k],
			Words:  len(strings.Fields(k)),
			Domain: DomainCustom,
		})
	}

	return t
}

// LookupTerm resolves token (case-insensitive) against the single-term
// entries of the allowed domains. It returns the canonical form of the
// first-registered entry whose domain is allowed.
func (t *Table) LookupTerm(token string, allowed []Domain) (string, bool) {
	candidates, ok := t.terms[strings.ToLower(token)]
	if !ok {
		return "", false
	}
	best := -1
	for i, c := range candidates {
		if !domainAllowed(c.domain, allowed) {
			continue
		}
		if best == -1 || c.order < candidates[best].order {
			best = i
		}
	}
	if best == -1 {
		return "", false
	}
	return candidates[best].canonical, true
}

// Phrases returns the phrase entries of the allowed domains, longest first.
// The returned slice is shared; callers must not modify it.
func (t *Table) Phrases(allowed []Domain) []Phrase {
	out := make([]Phrase, 0, len(t.phrases))
	for _, p := range t.phrases {
		if domainAllowed(p.Domain, allowed) {
			out = append(out, p)
		}
	}
	return out
}

// Custom returns the custom correction phrases, longest source first.
func (t *Table) Custom() []Phrase {
	return t.custom
}

// Terms returns every canonical single-term form in the allowed domains,
// sorted lexicographically. Used by the fuzzy matcher to enumerate
// candidates deterministically.
func (t *Table) Terms(allowed []Domain) []string {
	var out []string
	for _, candidates := range t.terms {
		for _, c := range candidates {
			if domainAllowed(c.domain, allowed) {
				out = append(out, c.canonical)
			}
		}
	}
	sort.Strings(out)
	return out
}

// MaxPhraseWords returns the word count of the longest phrase entry.
// Zero when the table has no phrase entries.
func (t *Table) MaxPhraseWords() int {
	return t.maxWin
}

// Size returns the total number of term and phrase entries.
func (t *Table) Size() int {
	n := len(t.phrases) + len(t.custom)
	for _, c := range t.terms {
		n += len(c)
	}
	return n
}

// normalizeSource case-folds a phrase source and strips punctuation attached
// to each word, so "Okay, Ten, Kid" and "okay ten kid" match the same spans.
func normalizeSource(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	out := fields[:0]
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if f != "" {
			out = append(out, f)
		}
	}
	return strings.Join(out, " ")
}

func domainAllowed(d Domain, allowed []Domain) bool {
	for _, a := range allowed {
		if a == d {
			return true
		}
	}
	return false
}
