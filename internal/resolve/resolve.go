// Package resolve selects the correction rule set for a job from the
// hinted or detected language and the requested correction domain.
package resolve

import (
	"strings"

	"github.com/lexivox/lexivox/internal/correct"
	"github.com/lexivox/lexivox/internal/vocab"
)

// LanguageAuto requests language detection instead of a fixed language.
const LanguageAuto = "auto"

// Resolver builds per-job [correct.RuleSet] values. It snapshots the
// vocabulary store once per resolution so one job never observes two
// different vocabulary tables.
type Resolver struct {
	store *vocab.Store
	fuzzy *correct.FuzzyMatcher
}

// Option configures a [Resolver].
type Option func(*Resolver)

// WithFuzzyMatching enables deterministic near-miss vocabulary matching
// with the given similarity threshold.
func WithFuzzyMatching(threshold float64) Option {
	return func(r *Resolver) {
		r.fuzzy = correct.NewFuzzyMatcher(threshold)
	}
}

// NewResolver creates a Resolver backed by the given vocabulary store.
func NewResolver(store *vocab.Store, opts ...Option) *Resolver {
	r := &Resolver{store: store}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveLanguage decides the working language for a job: a non-auto hint is
// used as given, otherwise the language detected by the transcriber. Codes
// are folded to their lower-cased base form ("EN-us" resolves as "en").
func (r *Resolver) ResolveLanguage(hint, detected string) string {
	lang := hint
	if lang == "" || lang == LanguageAuto {
		lang = detected
	}
	return baseCode(lang)
}

// Resolve builds the rule set for language and domain. The returned bool
// reports whether a full rule set exists for the language; when false the
// rule set is the minimal generic fallback (capitalisation and punctuation
// only) and the caller should record the degradation rather than fail.
func (r *Resolver) Resolve(language string, domain correct.Domain) (*correct.RuleSet, bool) {
	language = baseCode(language)
	rs := &correct.RuleSet{
		Language: language,
		Domain:   domain,
		Table:    r.store.Snapshot(),
		Fuzzy:    r.fuzzy,
	}
	if !correct.SupportedLanguage(language) {
		rs.Categories = correct.GenericCategories()
		return rs, false
	}
	rs.Categories = correct.AllCategories()
	return rs, true
}

// baseCode folds a BCP 47 style tag to its lower-cased primary subtag.
func baseCode(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	return code
}
