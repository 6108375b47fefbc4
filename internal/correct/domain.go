// Package correct implements the deterministic rule-based transcript
// correction engine.
//
// The engine transforms a raw transcript into a corrected transcript using a
// resolved [RuleSet], with no network calls and no randomness: given the same
// text and the same rule set, repeated invocations produce byte-identical
// output and identical operation lists. Corrections are applied as one
// ordered pass:
//
//  1. Phrase substitution — longest matching source phrase first, so
//     multi-word entries take precedence over shorter overlapping ones.
//  2. Vocabulary substitution — case-insensitive single-term lookup
//     restoring canonical casing and accents.
//  3. Custom correction map — exact-match overrides applied last so they can
//     override a vocabulary result on the same span.
//  4. Capitalisation normalisation.
//  5. Punctuation normalisation.
//
// Every substitution is recorded as an [Operation] for diagnostic
// before/after comparison; the record never affects downstream stages.
package correct

import (
	"github.com/lexivox/lexivox/internal/vocab"
)

// Domain selects which correction vocabulary and semantic register apply to
// a job. It is captured once at submission time and never re-interpreted
// per stage.
type Domain string

const (
	DomainGeneral  Domain = "general"
	DomainMedical  Domain = "medical"
	DomainBusiness Domain = "business"
	DomainLegal    Domain = "legal"
)

// IsValid reports whether d is a recognised correction domain.
func (d Domain) IsValid() bool {
	switch d {
	case DomainGeneral, DomainMedical, DomainBusiness, DomainLegal:
		return true
	}
	return false
}

// ParseDomain maps s to a [Domain], falling back to [DomainGeneral] for
// unrecognised values.
func ParseDomain(s string) Domain {
	d := Domain(s)
	if !d.IsValid() {
		return DomainGeneral
	}
	return d
}

// VocabDomains returns the vocabulary domains consulted for this correction
// domain. Names and deployment-custom terms apply everywhere; the
// specialised domains add their own terminology on top.
func (d Domain) VocabDomains() []vocab.Domain {
	base := []vocab.Domain{vocab.DomainNames, vocab.DomainCustom}
	switch d {
	case DomainMedical:
		return append(base, vocab.DomainMedical)
	case DomainBusiness:
		return append(base, vocab.DomainBusiness)
	case DomainLegal:
		return append(base, vocab.DomainLegal)
	default:
		return base
	}
}
