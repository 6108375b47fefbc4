// Package vocab holds the vocabulary tables driving rule-based transcript
// correction.
//
// A vocabulary is a set of [Entry] values grouped by [Domain]: single-term
// entries fix capitalisation and accents ("carlos" → "Carlos",
// "medico" → "médico"), phrase entries rewrite whole misheard spans
// ("okay, ten, kid" → "Good morning guys"). Tables are immutable once built;
// the [Store] swaps whole tables atomically on reload so readers always see
// one consistent snapshot.
package vocab

import "strings"

// Domain is a named grouping of correction terms.
type Domain string

const (
	// DomainNames holds proper names whose canonical capitalisation should
	// be restored.
	DomainNames Domain = "names"

	// DomainMedical holds medical terminology.
	DomainMedical Domain = "medical"

	// DomainBusiness holds business and workplace terminology.
	DomainBusiness Domain = "business"

	// DomainLegal holds legal terminology.
	DomainLegal Domain = "legal"

	// DomainCustom holds deployment-specific terms that apply regardless of
	// the requested correction domain.
	DomainCustom Domain = "custom"
)

// IsValid reports whether d is a recognised vocabulary domain.
func (d Domain) IsValid() bool {
	switch d {
	case DomainNames, DomainMedical, DomainBusiness, DomainLegal, DomainCustom:
		return true
	}
	return false
}

// Entry is one vocabulary item. An entry is either a single-term entry
// (Term set, Source/Target empty) or a phrase entry (Source and Target set).
type Entry struct {
	// Domain is the vocabulary domain this entry belongs to.
	Domain Domain

	// Term is the canonical form of a single-term entry. Matching is
	// case-insensitive on the term text; the replacement restores this
	// exact casing and accenting.
	Term string

	// Source is the phrase to match for phrase entries, case-insensitive.
	Source string

	// Target is the replacement text for phrase entries.
	Target string
}

// IsPhrase reports whether e is a phrase-level entry.
func (e Entry) IsPhrase() bool {
	return e.Source != ""
}

// key returns the case-folded lookup key for a single-term entry.
func (e Entry) key() string {
	return strings.ToLower(e.Term)
}
