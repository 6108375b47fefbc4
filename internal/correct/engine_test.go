package correct

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/lexivox/lexivox/internal/vocab"
)

func newTestRuleSet(t *testing.T, domain Domain, entries []vocab.Entry, custom map[string]string) *RuleSet {
	t.Helper()
	return &RuleSet{
		Language:   "en",
		Domain:     domain,
		Categories: AllCategories(),
		Table:      vocab.NewTable(entries, custom),
	}
}

func TestEngineEmptyInput(t *testing.T) {
	t.Parallel()
	e := NewEngine()
	rs := newTestRuleSet(t, DomainGeneral, nil, nil)

	for _, in := range []string{"", "   ", "\n\t"} {
		res := e.Correct(in, rs)
		if res.Text != "" {
			t.Errorf("Correct(%q).Text = %q, want empty", in, res.Text)
		}
		if res.Operations == nil || len(res.Operations) != 0 {
			t.Errorf("Correct(%q).Operations = %v, want empty non-nil", in, res.Operations)
		}
	}
}

func TestEngineDeterministic(t *testing.T) {
	t.Parallel()
	e := NewEngine()
	rs := newTestRuleSet(t, DomainGeneral, []vocab.Entry{
		{Domain: vocab.DomainNames, Term: "Carlos"},
		{Domain: vocab.DomainNames, Term: "Reina"},
		{Domain: vocab.DomainCustom, Source: "good morning team", Target: "Good morning, team"},
	}, map[string]string{"prode": "purpose"})

	in := "good morning team  carlos met reina at prode ,today"
	first := e.Correct(in, rs)
	second := e.Correct(in, rs)

	if first.Text != second.Text {
		t.Fatalf("texts differ: %q vs %q", first.Text, second.Text)
	}
	if !reflect.DeepEqual(first.Operations, second.Operations) {
		t.Fatalf("operation lists differ:\n%v\n%v", first.Operations, second.Operations)
	}
}

func TestEnginePhraseLongestWins(t *testing.T) {
	t.Parallel()
	e := NewEngine()
	rs := newTestRuleSet(t, DomainGeneral, []vocab.Entry{
		{Domain: vocab.DomainCustom, Source: "good morning", Target: "WRONG"},
		{Domain: vocab.DomainCustom, Source: "good morning team", Target: "Good morning, team"},
	}, nil)

	res := e.Correct("good morning team everyone", rs)
	want := "Good morning, team everyone."
	if res.Text != want {
		t.Fatalf("Text = %q, want %q", res.Text, want)
	}

	var phraseOps []Operation
	for _, op := range res.Operations {
		if op.Category == CategoryPhrase {
			phraseOps = append(phraseOps, op)
		}
	}
	if len(phraseOps) != 1 {
		t.Fatalf("phrase operations = %v, want exactly one", phraseOps)
	}
	if phraseOps[0].Source != "good morning team" {
		t.Errorf("phrase op source = %q, want the three-word match", phraseOps[0].Source)
	}
}

func TestEnginePhraseShadowsSingleWordEntry(t *testing.T) {
	t.Parallel()
	e := NewEngine()
	rs := newTestRuleSet(t, DomainGeneral, []vocab.Entry{
		{Domain: vocab.DomainCustom, Source: "good morning", Target: "Good morning"},
		{Domain: vocab.DomainCustom, Source: "morning", Target: "AM"},
	}, nil)

	res := e.Correct("good morning team", rs)
	if !strings.Contains(res.Text, "Good morning") || strings.Contains(res.Text, "AM") {
		t.Fatalf("Text = %q, want the two-word phrase to win over the one-word entry", res.Text)
	}
}

func TestEnginePhraseFirstRegisteredWins(t *testing.T) {
	t.Parallel()
	e := NewEngine()
	rs := newTestRuleSet(t, DomainGeneral, []vocab.Entry{
		{Domain: vocab.DomainCustom, Source: "ok bye", Target: "Okay, goodbye"},
		{Domain: vocab.DomainCustom, Source: "ok bye", Target: "LATER"},
	}, nil)

	res := e.Correct("ok bye", rs)
	if want := "Okay, goodbye."; res.Text != want {
		t.Fatalf("Text = %q, want %q", res.Text, want)
	}
}

func TestEnginePhraseIgnoresAttachedPunctuation(t *testing.T) {
	t.Parallel()
	e := NewEngine()
	rs := newTestRuleSet(t, DomainGeneral, []vocab.Entry{
		{Domain: vocab.DomainCustom, Source: "okay, ten, kid", Target: "Good morning guys"},
	}, nil)

	res := e.Correct("okay, ten, kid everyone", rs)
	if want := "Good morning guys everyone."; res.Text != want {
		t.Fatalf("Text = %q, want %q", res.Text, want)
	}
}

func TestEngineVocabularyCanonicalCasing(t *testing.T) {
	t.Parallel()
	e := NewEngine()
	rs := newTestRuleSet(t, DomainGeneral, []vocab.Entry{
		{Domain: vocab.DomainNames, Term: "Carlos"},
	}, nil)

	res := e.Correct("hello carlos", rs)
	if want := "Hello Carlos."; res.Text != want {
		t.Fatalf("Text = %q, want %q", res.Text, want)
	}

	found := false
	for _, op := range res.Operations {
		if op.Category == CategoryVocabulary && op.Source == "carlos" && op.Replacement == "Carlos" {
			found = true
		}
	}
	if !found {
		t.Errorf("missing vocabulary operation in %v", res.Operations)
	}
}

func TestEngineDomainScoping(t *testing.T) {
	t.Parallel()
	e := NewEngine()
	entries := []vocab.Entry{
		{Domain: vocab.DomainMedical, Term: "Ibuprofen"},
	}

	general := e.Correct("took ibuprofen", newTestRuleSet(t, DomainGeneral, entries, nil))
	if want := "Took ibuprofen."; general.Text != want {
		t.Errorf("general domain Text = %q, want %q", general.Text, want)
	}

	medical := e.Correct("took ibuprofen", newTestRuleSet(t, DomainMedical, entries, nil))
	if want := "Took Ibuprofen."; medical.Text != want {
		t.Errorf("medical domain Text = %q, want %q", medical.Text, want)
	}
}

func TestEngineCustomOverridesVocabulary(t *testing.T) {
	t.Parallel()
	e := NewEngine()
	rs := newTestRuleSet(t, DomainGeneral, []vocab.Entry{
		{Domain: vocab.DomainNames, Term: "Prode"},
	}, map[string]string{"prode": "purpose"})

	res := e.Correct("at prode", rs)
	if want := "At purpose."; res.Text != want {
		t.Fatalf("Text = %q, want %q", res.Text, want)
	}
}

func TestEngineCustomUnicodeText(t *testing.T) {
	t.Parallel()
	e := NewEngine()
	rs := newTestRuleSet(t, DomainGeneral, nil, map[string]string{"hello": "hi everyone"})

	res := e.Correct("İstanbul'a yarın gidiyoruz hello", rs)
	if want := "İstanbul'a yarın gidiyoruz hi everyone."; res.Text != want {
		t.Fatalf("Text = %q, want %q", res.Text, want)
	}
	if !utf8.ValidString(res.Text) {
		t.Fatalf("Text is not valid UTF-8: %q", res.Text)
	}

	var customOps int
	for _, op := range res.Operations {
		if op.Category == CategoryCustom {
			customOps++
		}
	}
	if customOps != 1 {
		t.Errorf("custom operations = %d, want 1 (ops: %v)", customOps, res.Operations)
	}
}

func TestReplaceAllFoldMultibyteCasing(t *testing.T) {
	t.Parallel()

	// ToLower shortens İ (U+0130) from two bytes to one; byte offsets taken
	// on the lowered text must not be applied to the original.
	got, _, n := replaceAllFold("İİİİİİİİİİ hello world", nil, "hello", "Hi")
	if want := "İİİİİİİİİİ Hi world"; got != want || n != 1 {
		t.Errorf("replaceAllFold = %q, %d; want %q, 1", got, n, want)
	}
	if !utf8.ValidString(got) {
		t.Errorf("result is not valid UTF-8: %q", got)
	}

	// ToLower lengthens Ⱥ (U+023A) from two bytes to three, which pushed the
	// lowered-text offsets past the end of the original.
	got, _, n = replaceAllFold("ȺȺȺȺȺȺȺȺȺȺ ok", nil, "ok", "OK")
	if want := "ȺȺȺȺȺȺȺȺȺȺ OK"; got != want || n != 1 {
		t.Errorf("replaceAllFold = %q, %d; want %q, 1", got, n, want)
	}
}

func TestEngineCapitalizationKeepsCanonicalCasing(t *testing.T) {
	t.Parallel()
	e := NewEngine()
	rs := newTestRuleSet(t, DomainGeneral, []vocab.Entry{
		{Domain: vocab.DomainNames, Term: "iPhone"},
	}, nil)

	res := e.Correct("iphone is great", rs)
	if want := "iPhone is great."; res.Text != want {
		t.Fatalf("Text = %q, want %q", res.Text, want)
	}

	var sawVocab bool
	for _, op := range res.Operations {
		if op.Category == CategoryVocabulary && op.Replacement == "iPhone" {
			sawVocab = true
		}
		if op.Category == CategoryCapitalization {
			t.Errorf("capitalization must not re-case a canonical term: %v", op)
		}
	}
	if !sawVocab {
		t.Errorf("missing vocabulary operation in %v", res.Operations)
	}
}

func TestEngineLanguageRules(t *testing.T) {
	t.Parallel()
	e := NewEngine()
	rs := newTestRuleSet(t, DomainGeneral, nil, nil)

	res := e.Correct("i can't go", rs)
	if want := "I cannot go."; res.Text != want {
		t.Fatalf("Text = %q, want %q", res.Text, want)
	}

	rs.Language = "es"
	res = e.Correct("el medico llega", rs)
	if want := "El médico llega."; res.Text != want {
		t.Fatalf("Text = %q, want %q", res.Text, want)
	}
}

func TestEnginePunctuationNormalisation(t *testing.T) {
	t.Parallel()
	e := NewEngine()
	rs := &RuleSet{
		Language:   "en",
		Domain:     DomainGeneral,
		Categories: GenericCategories(),
	}

	cases := []struct {
		in, want string
	}{
		{"hello ,world", "Hello, world."},
		{"done already!", "Done already!"},
		{"too   many   spaces", "Too many spaces."},
		{"first.second", "First. Second."},
	}
	for _, tc := range cases {
		if got := e.Correct(tc.in, rs).Text; got != tc.want {
			t.Errorf("Correct(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEngineGenericCategoriesSkipVocabulary(t *testing.T) {
	t.Parallel()
	e := NewEngine()
	rs := &RuleSet{
		Language:   "fr",
		Domain:     DomainGeneral,
		Categories: GenericCategories(),
		Table: vocab.NewTable([]vocab.Entry{
			{Domain: vocab.DomainNames, Term: "Carlos"},
		}, nil),
	}

	res := e.Correct("carlos arrives", rs)
	if want := "Carlos arrives."; res.Text != want {
		t.Fatalf("Text = %q, want %q", res.Text, want)
	}
	for _, op := range res.Operations {
		if op.Category == CategoryVocabulary || op.Category == CategoryPhrase {
			t.Errorf("unexpected %s operation %v", op.Category, op)
		}
	}
}

func TestFuzzyMatcher(t *testing.T) {
	t.Parallel()
	m := NewFuzzyMatcher(0)

	if got, ok := m.Match("jonh", []string{"John"}); !ok || got != "John" {
		t.Errorf("Match(jonh) = %q, %v; want John, true", got, ok)
	}
	if _, ok := m.Match("xyz", []string{"John"}); ok {
		t.Error("Match(xyz) matched, want no match")
	}
	if _, ok := m.Match("jo", []string{"John"}); ok {
		t.Error("Match(jo) matched, want short tokens skipped")
	}
}
