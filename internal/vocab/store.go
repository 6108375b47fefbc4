package vocab

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// File is the YAML schema for a vocabulary file.
//
// Example:
//
//	names: [Reina, Zaya, Carlos]
//	medical: [diagnosis, síntoma]
//	business: [deadline, reunión]
//	legal: [plaintiff, subpoena]
//	custom: [Lexivox]
//	phrases:
//	  - domain: custom
//	    source: good morning
//	    target: Good morning
//	corrections:
//	  "okay, ten, kid": "Good morning guys"
type File struct {
	Names    []string `yaml:"names"`
	Medical  []string `yaml:"medical"`
	Business []string `yaml:"business"`
	Legal    []string `yaml:"legal"`
	Custom   []string `yaml:"custom"`

	Phrases []PhraseSpec `yaml:"phrases"`

	// Corrections is the exact-match custom correction map, applied after
	// vocabulary substitution so it can override a vocabulary result.
	Corrections map[string]string `yaml:"corrections"`
}

// PhraseSpec declares one phrase-level entry in a vocabulary file.
type PhraseSpec struct {
	Domain Domain `yaml:"domain"`
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

// Store holds the current vocabulary [Table] behind an atomic pointer.
// Readers call [Store.Snapshot] and work against an immutable table;
// [Store.Replace] swaps the whole table in one step, so a reload never
// exposes a partially-updated vocabulary.
type Store struct {
	table atomic.Pointer[Table]
}

// NewStore creates a Store seeded with the given table. Pass an empty table
// (NewTable(nil, nil)) when no vocabulary is configured.
func NewStore(t *Table) *Store {
	s := &Store{}
	s.table.Store(t)
	return s
}

// Snapshot returns the current table. The result is immutable and remains
// valid after a concurrent [Store.Replace].
func (s *Store) Snapshot() *Table {
	return s.table.Load()
}

// Replace atomically swaps the current table for t. In-flight readers keep
// their old snapshot; new readers see t.
func (s *Store) Replace(t *Table) {
	s.table.Store(t)
}

// LoadFile reads and parses the vocabulary file at path and builds a [Table].
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vocab: open %q: %w", path, err)
	}
	defer f.Close()

	t, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("vocab: parse %q: %w", path, err)
	}
	return t, nil
}

// LoadFromReader decodes a vocabulary YAML document from r and builds a
// [Table]. Useful in tests where vocabularies are constructed from string
// literals.
func LoadFromReader(r io.Reader) (*Table, error) {
	var file File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return file.Build()
}

// Build converts the parsed file into a [Table]. Phrase entries with an
// unrecognised or empty domain default to [DomainCustom].
func (f *File) Build() (*Table, error) {
	var entries []Entry

	appendTerms := func(domain Domain, terms []string) {
		for _, term := range terms {
			if term == "" {
				continue
			}
			entries = append(entries, Entry{Domain: domain, Term: term})
		}
	}
	appendTerms(DomainNames, f.Names)
	appendTerms(DomainMedical, f.Medical)
	appendTerms(DomainBusiness, f.Business)
	appendTerms(DomainLegal, f.Legal)
	appendTerms(DomainCustom, f.Custom)

	for i, p := range f.Phrases {
		if p.Source == "" || p.Target == "" {
			return nil, fmt.Errorf("phrases[%d]: source and target are required", i)
		}
		domain := p.Domain
		if !domain.IsValid() {
			domain = DomainCustom
		}
		entries = append(entries, Entry{Domain: domain, Source: p.Source, Target: p.Target})
	}

	return NewTable(entries, f.Corrections), nil
}
