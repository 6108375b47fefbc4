package resolve

import (
	"testing"

	"github.com/lexivox/lexivox/internal/correct"
	"github.com/lexivox/lexivox/internal/vocab"
)

func newResolver(t *testing.T, opts ...Option) *Resolver {
	t.Helper()
	return NewResolver(vocab.NewStore(vocab.NewTable(nil, nil)), opts...)
}

func TestResolveLanguage(t *testing.T) {
	t.Parallel()
	r := newResolver(t)

	cases := []struct {
		hint, detected, want string
	}{
		{"es", "en", "es"},
		{"auto", "en", "en"},
		{"", "es", "es"},
		{"EN-us", "es", "en"},
		{"auto", "pt_BR", "pt"},
	}
	for _, tc := range cases {
		if got := r.ResolveLanguage(tc.hint, tc.detected); got != tc.want {
			t.Errorf("ResolveLanguage(%q, %q) = %q, want %q", tc.hint, tc.detected, got, tc.want)
		}
	}
}

func TestResolveSupportedLanguage(t *testing.T) {
	t.Parallel()
	r := newResolver(t)

	rs, ok := r.Resolve("en", correct.DomainMedical)
	if !ok {
		t.Fatal("Resolve(en) reported unsupported")
	}
	if rs.Language != "en" || rs.Domain != correct.DomainMedical {
		t.Errorf("rule set scope = %s/%s", rs.Language, rs.Domain)
	}
	if len(rs.Categories) != len(correct.AllCategories()) {
		t.Errorf("Categories = %v, want full set", rs.Categories)
	}
	if rs.Table == nil {
		t.Error("rule set missing vocabulary snapshot")
	}
}

func TestResolveUnsupportedLanguageFallsBack(t *testing.T) {
	t.Parallel()
	r := newResolver(t)

	rs, ok := r.Resolve("fr", correct.DomainGeneral)
	if ok {
		t.Fatal("Resolve(fr) reported supported")
	}
	want := correct.GenericCategories()
	if len(rs.Categories) != len(want) {
		t.Fatalf("Categories = %v, want generic fallback %v", rs.Categories, want)
	}
	for i, c := range want {
		if rs.Categories[i] != c {
			t.Errorf("Categories[%d] = %s, want %s", i, rs.Categories[i], c)
		}
	}
}

func TestResolveFuzzyOption(t *testing.T) {
	t.Parallel()
	r := newResolver(t, WithFuzzyMatching(0.9))

	rs, _ := r.Resolve("en", correct.DomainGeneral)
	if rs.Fuzzy == nil {
		t.Error("fuzzy matcher not propagated to rule set")
	}

	rs, _ = newResolver(t).Resolve("en", correct.DomainGeneral)
	if rs.Fuzzy != nil {
		t.Error("fuzzy matcher enabled without option")
	}
}
