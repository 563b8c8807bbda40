package transform

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Term is one dictionary entry.
type Term struct {
	Original   string `json:"original" yaml:"original"`
	Simplified string `json:"simplified" yaml:"simplified"`
}

// Dictionary is an ordered, read-only list of term substitutions. It is safe
// for concurrent use.
type Dictionary struct {
	entries []entry
}

type entry struct {
	term    Term
	pattern *regexp.Regexp
}

var defaultTerms = []Term{
	{Original: "paradigms", Simplified: "ways of thinking"},
	{Original: "counterintuitive", Simplified: "surprising"},
	{Original: "luminaries", Simplified: "famous scientists"},
	{Original: "probabilistic", Simplified: "chance-based"},
	{Original: "subatomic", Simplified: "very tiny"},
	{Original: "quanta", Simplified: "small packets of energy"},
	{Original: "superposition", Simplified: "being in multiple states"},
	{Original: "deterministic", Simplified: "predictable"},
	{Original: "entanglement", Simplified: "mysterious connection"},
	{Original: "non-local correlations", Simplified: "instant connections"},
	{Original: "formalism", Simplified: "mathematical rules"},
	{Original: "Hilbert spaces", Simplified: "mathematical frameworks"},
	{Original: "observables", Simplified: "things we can measure"},
}

var defaultDictionary = mustDictionary(defaultTerms)

// DefaultDictionary returns the built-in physics vocabulary table.
func DefaultDictionary() *Dictionary { return defaultDictionary }

// NewDictionary builds a dictionary from terms, keeping their order. Terms
// are matched literally and case-insensitively.
func NewDictionary(terms []Term) (*Dictionary, error) {
	d := &Dictionary{entries: make([]entry, 0, len(terms))}
	for i, t := range terms {
		if t.Original == "" {
			return nil, fmt.Errorf("term %d: original is empty", i)
		}
		re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(t.Original))
		if err != nil {
			return nil, fmt.Errorf("term %d (%q): %w", i, t.Original, err)
		}
		d.entries = append(d.entries, entry{term: t, pattern: re})
	}
	return d, nil
}

func mustDictionary(terms []Term) *Dictionary {
	d, err := NewDictionary(terms)
	if err != nil {
		panic(err)
	}
	return d
}

// Terms returns a copy of the dictionary entries in order.
func (d *Dictionary) Terms() []Term {
	out := make([]Term, len(d.entries))
	for i, e := range d.entries {
		out[i] = e.term
	}
	return out
}

// Len returns the number of entries.
func (d *Dictionary) Len() int { return len(d.entries) }

type dictionaryFile struct {
	Terms []Term `yaml:"terms"`
}

// LoadDictionary reads a YAML dictionary of the form
//
//	terms:
//	  - original: paradigms
//	    simplified: ways of thinking
func LoadDictionary(path string) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dictionary: %w", err)
	}
	var f dictionaryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing dictionary %s: %w", path, err)
	}
	if len(f.Terms) == 0 {
		return nil, errors.New("dictionary has no terms")
	}
	return NewDictionary(f.Terms)
}
