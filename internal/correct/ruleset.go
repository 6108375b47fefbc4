package correct

import "github.com/lexivox/lexivox/internal/vocab"

// Category identifies which correction rule produced an [Operation].
type Category string

const (
	CategoryPhrase         Category = "phrase"
	CategoryVocabulary     Category = "vocabulary"
	CategoryCustom         Category = "custom"
	CategoryCapitalization Category = "capitalization"
	CategoryPunctuation    Category = "punctuation"
	CategoryLanguage       Category = "language"
)

// RuleSet bundles everything the engine needs for one job: the language and
// domain scope, the vocabulary table snapshot, and the ordered list of rule
// categories to apply. A RuleSet is immutable for the duration of one job;
// build one via [resolve.Resolver] rather than by hand.
type RuleSet struct {
	// Language is the ISO 639-1 code the rule set is scoped to.
	Language string

	// Domain is the correction domain requested at submission.
	Domain Domain

	// Categories is the ordered list of rule categories to apply. The
	// engine only runs a step when its category is present.
	Categories []Category

	// Table is the vocabulary snapshot for this job. Nil is treated as an
	// empty table.
	Table *vocab.Table

	// Fuzzy, when non-nil, enables deterministic near-miss matching for
	// tokens that have no exact vocabulary hit.
	Fuzzy *FuzzyMatcher
}

// vocabDomains returns the vocabulary domains in scope, derived from Domain.
func (rs *RuleSet) vocabDomains() []vocab.Domain {
	return rs.Domain.VocabDomains()
}

// has reports whether category c is enabled in this rule set.
func (rs *RuleSet) has(c Category) bool {
	for _, cat := range rs.Categories {
		if cat == c {
			return true
		}
	}
	return false
}

// AllCategories is the full rule category order for a supported language.
func AllCategories() []Category {
	return []Category{
		CategoryPhrase,
		CategoryVocabulary,
		CategoryLanguage,
		CategoryCustom,
		CategoryCapitalization,
		CategoryPunctuation,
	}
}

// GenericCategories is the minimal language-agnostic fallback applied when
// no rule set exists for a language: punctuation and capitalisation only.
func GenericCategories() []Category {
	return []Category{
		CategoryCapitalization,
		CategoryPunctuation,
	}
}
