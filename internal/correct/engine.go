package correct

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lexivox/lexivox/internal/vocab"
)

// Operation records a single substitution applied by the engine.
type Operation struct {
	// Source is the text span as it appeared before the substitution.
	Source string

	// Replacement is the text the span was replaced with.
	Replacement string

	// Category identifies the rule category that produced this operation.
	Category Category
}

// Result is the output of one [Engine.Correct] call.
type Result struct {
	// Text is the corrected transcript.
	Text string

	// Operations is the ordered list of substitutions applied, in
	// application order. Empty (non-nil) when no corrections were needed.
	Operations []Operation
}

// Engine applies a [RuleSet] to transcript text. The zero value is ready to
// use; Engine is stateless and safe for concurrent use.
type Engine struct{}

// NewEngine returns a correction [Engine].
func NewEngine() *Engine {
	return &Engine{}
}

// token is one whitespace-separated unit of the working text, split into a
// leading punctuation run, the word core, and a trailing punctuation run so
// that matching ignores attached punctuation while replacement preserves it.
type token struct {
	prefix string
	core   string
	suffix string

	// fixed marks cores already rewritten by the phrase or vocabulary
	// stage; later stages must not touch them.
	fixed bool
}

// span is a half-open byte range [start, end) into the working text.
type span struct {
	start, end int
}

func inSpan(spans []span, off int) bool {
	for _, s := range spans {
		if off >= s.start && off < s.end {
			return true
		}
	}
	return false
}

func (t token) String() string {
	return t.prefix + t.core + t.suffix
}

// Correct applies the rule set to text and returns the corrected text plus
// the ordered record of every substitution. Empty input yields empty output
// with an empty (non-nil) operation list.
func (e *Engine) Correct(text string, rs *RuleSet) Result {
	result := Result{Operations: []Operation{}}
	if strings.TrimSpace(text) == "" {
		return result
	}

	table := rs.Table
	if table == nil {
		table = vocab.NewTable(nil, nil)
	}
	domains := rs.vocabDomains()
	tokens := splitTokens(text)

	if rs.has(CategoryPhrase) {
		tokens = e.applyPhrases(tokens, table.Phrases(domains), &result)
	}
	if rs.has(CategoryVocabulary) {
		e.applyVocabulary(tokens, table, domains, rs.Fuzzy, &result)
	}
	if rs.has(CategoryLanguage) {
		e.applyLanguageRules(tokens, rs.Language, &result)
	}

	working, fixedSpans := joinTokens(tokens)

	if rs.has(CategoryCustom) {
		working, fixedSpans = e.applyCustom(working, fixedSpans, table.Custom(), &result)
	}
	if rs.has(CategoryCapitalization) {
		working = e.applyCapitalization(working, fixedSpans, &result)
	}
	if rs.has(CategoryPunctuation) {
		working = e.applyPunctuation(working, &result)
	}

	result.Text = working
	return result
}

// applyPhrases scans token windows for configured source phrases. Phrases
// arrive longest-first with registration order breaking ties, so at any
// position the longest matching phrase wins and equal-length overlaps
// resolve to the first-registered entry. Matched spans take precedence over
// single-word vocabulary matches at the same position.
func (e *Engine) applyPhrases(tokens []token, phrases []vocab.Phrase, result *Result) []token {
	if len(phrases) == 0 || len(tokens) == 0 {
		return tokens
	}

	var out []token
	i := 0
	for i < len(tokens) {
		matched := false
		for _, p := range phrases {
			if p.Words == 0 || i+p.Words > len(tokens) {
				continue
			}
			if !windowMatches(tokens[i:i+p.Words], p.Source) {
				continue
			}

			span := tokens[i : i+p.Words]
			out = append(out, token{
				prefix: span[0].prefix,
				core:   p.Target,
				suffix: span[len(span)-1].suffix,
				fixed:  true,
			})
			result.Operations = append(result.Operations, Operation{
				Source:      coresText(span),
				Replacement: p.Target,
				Category:    CategoryPhrase,
			})
			i += p.Words
			matched = true
			break
		}
		if !matched {
			out = append(out, tokens[i])
			i++
		}
	}
	return out
}

// applyVocabulary resolves each unconsumed token against the single-term
// vocabulary. Known terms are replaced with their canonical-cased form;
// unknown tokens pass through, optionally via the fuzzy matcher.
func (e *Engine) applyVocabulary(tokens []token, table *vocab.Table, domains []vocab.Domain, fuzzy *FuzzyMatcher, result *Result) {
	var fuzzyTerms []string
	if fuzzy != nil {
		fuzzyTerms = table.Terms(domains)
	}

	for i := range tokens {
		t := &tokens[i]
		if t.fixed || t.core == "" {
			continue
		}

		if canonical, ok := table.LookupTerm(t.core, domains); ok {
			if canonical != t.core {
				result.Operations = append(result.Operations, Operation{
					Source:      t.core,
					Replacement: canonical,
					Category:    CategoryVocabulary,
				})
				t.core = canonical
			}
			t.fixed = true
			continue
		}

		if fuzzy != nil {
			if canonical, ok := fuzzy.Match(t.core, fuzzyTerms); ok && canonical != t.core {
				result.Operations = append(result.Operations, Operation{
					Source:      t.core,
					Replacement: canonical,
					Category:    CategoryVocabulary,
				})
				t.core = canonical
				t.fixed = true
			}
		}
	}
}

// applyLanguageRules rewrites tokens using the built-in per-language
// normalisation maps (accent restoration, contraction expansion).
func (e *Engine) applyLanguageRules(tokens []token, language string, result *Result) {
	rules, ok := languageRules[language]
	if !ok {
		return
	}
	for i := range tokens {
		t := &tokens[i]
		if t.fixed || t.core == "" {
			continue
		}
		repl, ok := rules[strings.ToLower(t.core)]
		if !ok {
			continue
		}
		repl = matchLeadingCase(t.core, repl)
		if repl == t.core {
			continue
		}
		result.Operations = append(result.Operations, Operation{
			Source:      t.core,
			Replacement: repl,
			Category:    CategoryLanguage,
		})
		t.core = repl
	}
}

// applyCustom applies the exact-match custom correction map over the working
// text, longest source first. Matching is case-insensitive; every occurrence
// is replaced and recorded. Custom corrections run after vocabulary
// substitution so they can override a vocabulary result on the same span.
func (e *Engine) applyCustom(text string, fixed []span, custom []vocab.Phrase, result *Result) (string, []span) {
	for _, p := range custom {
		var replaced int
		text, fixed, replaced = replaceAllFold(text, fixed, p.Source, p.Target)
		for range replaced {
			result.Operations = append(result.Operations, Operation{
				Source:      p.Source,
				Replacement: p.Target,
				Category:    CategoryCustom,
			})
		}
	}
	return text, fixed
}

// applyCapitalization upper-cases the first alphabetic rune at the start of
// the text and after sentence-ending punctuation. Runes inside fixed spans
// keep their canonical casing; a fixed term at a sentence start still
// consumes the capitalisation slot.
func (e *Engine) applyCapitalization(text string, fixed []span, result *Result) string {
	var b strings.Builder
	b.Grow(len(text))
	atSentenceStart := true

	for i, r := range text {
		out := r
		switch {
		case r == '.' || r == '!' || r == '?':
			atSentenceStart = true
		case unicode.IsSpace(r) || r == '"' || r == '\'' || r == ')' || r == '(':
			// boundary characters do not end the sentence-start window
		case unicode.IsLetter(r):
			if atSentenceStart && unicode.IsLower(r) && !inSpan(fixed, i) {
				out = unicode.ToUpper(r)
				result.Operations = append(result.Operations, Operation{
					Source:      string(r),
					Replacement: string(out),
					Category:    CategoryCapitalization,
				})
			}
			atSentenceStart = false
		default:
			atSentenceStart = false
		}
		b.WriteRune(out)
	}
	return b.String()
}

// applyPunctuation collapses redundant whitespace, normalises spacing around
// commas and periods, and appends a terminal period when the text lacks
// sentence-ending punctuation. A single operation with the full before and
// after text is recorded when anything changed.
func (e *Engine) applyPunctuation(text string, result *Result) string {
	original := text

	// Collapse all whitespace runs to single spaces.
	text = strings.Join(strings.Fields(text), " ")

	var b strings.Builder
	b.Grow(len(text))
	runes := []rune(text)
	for i, r := range runes {
		if unicode.IsSpace(r) {
			// Drop spaces that precede punctuation.
			if i+1 < len(runes) && isClingingPunct(runes[i+1]) {
				continue
			}
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
		// Ensure a space after sentence punctuation followed directly by a letter.
		if isClingingPunct(r) && i+1 < len(runes) && unicode.IsLetter(runes[i+1]) {
			b.WriteRune(' ')
		}
	}
	text = strings.TrimSpace(b.String())

	if text != "" {
		last, _ := lastRune(text)
		if last != '.' && last != '!' && last != '?' {
			text += "."
		}
	}

	if text != original {
		result.Operations = append(result.Operations, Operation{
			Source:      original,
			Replacement: text,
			Category:    CategoryPunctuation,
		})
	}
	return text
}

// ---- helpers ----------------------------------------------------------------

// splitTokens splits text into whitespace-separated tokens, separating
// leading and trailing punctuation runs from the word core.
func splitTokens(text string) []token {
	fields := strings.Fields(text)
	tokens := make([]token, len(fields))
	for i, f := range fields {
		tokens[i] = splitToken(f)
	}
	return tokens
}

func splitToken(s string) token {
	runes := []rune(s)
	start := 0
	for start < len(runes) && !unicode.IsLetter(runes[start]) && !unicode.IsDigit(runes[start]) {
		start++
	}
	end := len(runes)
	for end > start && !unicode.IsLetter(runes[end-1]) && !unicode.IsDigit(runes[end-1]) {
		end--
	}
	return token{
		prefix: string(runes[:start]),
		core:   string(runes[start:end]),
		suffix: string(runes[end:]),
	}
}

// joinTokens flattens tokens back into a single space-joined string and
// returns the byte ranges occupied by fixed cores, so the string-level
// stages can leave their casing alone.
func joinTokens(tokens []token) (string, []span) {
	var b strings.Builder
	var fixed []span
	for i, t := range tokens {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(t.prefix)
		start := b.Len()
		b.WriteString(t.core)
		if t.fixed {
			fixed = append(fixed, span{start, b.Len()})
		}
		b.WriteString(t.suffix)
	}
	return b.String(), fixed
}

// windowMatches reports whether the cores of the window, joined with single
// spaces and case-folded, equal the phrase source.
func windowMatches(window []token, source string) bool {
	var b strings.Builder
	for i, t := range window {
		if t.fixed {
			return false
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strings.ToLower(t.core))
	}
	return b.String() == source
}

// coresText joins window cores with single spaces, preserving original casing.
func coresText(window []token) string {
	parts := make([]string, len(window))
	for i, t := range window {
		parts[i] = t.core
	}
	return strings.Join(parts, " ")
}

// replaceAllFold replaces every case-insensitive occurrence of src in s with
// repl. Matching walks s rune by rune under simple case folding, so
// occurrences whose byte length differs from their lower-cased form are
// still located correctly. Fixed spans are remapped onto the rewritten
// string; a span swallowed by a replacement is superseded by the span of the
// replacement itself.
func replaceAllFold(s string, fixed []span, src, repl string) (string, []span, int) {
	if src == "" {
		return s, fixed, 0
	}

	var matches []span
	i := 0
	for i < len(s) {
		if n := foldPrefixLen(s[i:], src); n > 0 {
			matches = append(matches, span{i, i + n})
			i += n
			continue
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	if len(matches) == 0 {
		return s, fixed, 0
	}

	var b strings.Builder
	var out []span
	prev := 0
	for _, m := range matches {
		b.WriteString(s[prev:m.start])
		start := b.Len()
		b.WriteString(repl)
		out = append(out, span{start, b.Len()})
		prev = m.end
	}
	b.WriteString(s[prev:])

	for _, f := range fixed {
		delta := 0
		overlaps := false
		for _, m := range matches {
			if m.end <= f.start {
				delta += len(repl) - (m.end - m.start)
				continue
			}
			if m.start < f.end {
				overlaps = true
			}
			break
		}
		if !overlaps {
			out = append(out, span{f.start + delta, f.end + delta})
		}
	}
	sort.Slice(out, func(x, y int) bool { return out[x].start < out[y].start })
	return b.String(), out, len(matches)
}

// foldPrefixLen returns the byte length of the prefix of s that equals src
// under simple case folding, or 0 when s does not start with such a prefix.
func foldPrefixLen(s, src string) int {
	i := 0
	for _, want := range src {
		r, size := utf8.DecodeRuneInString(s[i:])
		if size == 0 || !runesEqualFold(r, want) {
			return 0
		}
		i += size
	}
	return i
}

func runesEqualFold(a, b rune) bool {
	if a == b {
		return true
	}
	for r := unicode.SimpleFold(a); r != a; r = unicode.SimpleFold(r) {
		if r == b {
			return true
		}
	}
	return false
}

// matchLeadingCase upper-cases the first rune of repl when src starts with
// an upper-case rune, so normalisation does not down-case sentence starts.
func matchLeadingCase(src, repl string) string {
	sr := []rune(src)
	if len(sr) == 0 || !unicode.IsUpper(sr[0]) {
		return repl
	}
	rr := []rune(repl)
	if len(rr) == 0 {
		return repl
	}
	rr[0] = unicode.ToUpper(rr[0])
	return string(rr)
}

func isClingingPunct(r rune) bool {
	switch r {
	case ',', '.', '!', '?', ';', ':':
		return true
	}
	return false
}

func lastRune(s string) (rune, bool) {
	var last rune
	var ok bool
	for _, r := range s {
		last, ok = r, true
	}
	return last, ok
}
