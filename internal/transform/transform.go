// Package transform rewrites article text for a cognitive profile: it swaps
// difficult vocabulary for plain terms, splits paragraphs into short chunks
// and attaches analogies.
package transform

import (
	"strings"

	"github.com/cogniweave/cogniweave/internal/profile"
)

const (
	// Title is returned for every transform. The transformer does not yet
	// carry the caller's article title through.
	Title = "Quantum Mechanics: Understanding the Basic Nature of Reality"

	// MaxReportedTerms caps Result.SimplifiedTerms.
	MaxReportedTerms = 8

	paragraphSeparator = "\n\n"
	sentenceSeparator  = ". "
)

var analogies = []string{
	"Think of quantum superposition like a coin spinning in the air - it's both heads and tails until it lands.",
	"Quantum entanglement is like having two magical coins that always land on opposite sides, no matter how far apart they are.",
	"The uncertainty principle is like trying to photograph a speeding car - you can see where it is OR how fast it's going, but not both perfectly.",
}

// Result is the rewritten article.
type Result struct {
	Title           string   `json:"title"`
	Chunks          []string `json:"chunks"`
	SimplifiedTerms []Term   `json:"simplifiedTerms"`
	Analogies       []string `json:"analogies"`
}

// Transformer applies profiles to text using a fixed dictionary. The zero
// value is not usable; call New.
type Transformer struct {
	dict *Dictionary
}

// New returns a Transformer over dict, or the built-in dictionary if dict
// is nil.
func New(dict *Dictionary) *Transformer {
	if dict == nil {
		dict = DefaultDictionary()
	}
	return &Transformer{dict: dict}
}

// Dictionary returns the dictionary in use.
func (t *Transformer) Dictionary() *Dictionary { return t.dict }

// Transform rewrites text for p using the built-in dictionary.
func Transform(text string, p profile.Profile) Result {
	return New(nil).Transform(text, p)
}

// Transform rewrites text for p. Paragraphs are separated by a blank line.
// It never fails; p is expected to have been validated by the caller.
func (t *Transformer) Transform(text string, p profile.Profile) Result {
	chunks := []string{}
	terms := []Term{}

	simplify := p.Text.Vocabulary.SimplificationLevel != profile.SimplifyNone
	for _, paragraph := range strings.Split(text, paragraphSeparator) {
		if simplify {
			var matched []Term
			paragraph, matched = t.simplify(paragraph)
			terms = append(terms, matched...)
		}
		chunks = append(chunks, chunk(paragraph, p.Text.Chunking)...)
	}

	if len(terms) > MaxReportedTerms {
		terms = terms[:MaxReportedTerms]
	}

	res := Result{
		Title:           Title,
		Chunks:          chunks,
		SimplifiedTerms: terms,
		Analogies:       []string{},
	}
	if p.Simplification.UseAnalogies {
		res.Analogies = append(res.Analogies, analogies...)
	}
	return res
}

// simplify replaces every occurrence of each dictionary term, in dictionary
// order, and reports each term that matched. Later entries see the output of
// earlier replacements.
func (t *Transformer) simplify(paragraph string) (string, []Term) {
	var matched []Term
	for _, e := range t.dict.entries {
		if !e.pattern.MatchString(paragraph) {
			continue
		}
		paragraph = e.pattern.ReplaceAllLiteralString(paragraph, e.term.Simplified)
		matched = append(matched, e.term)
	}
	return paragraph, matched
}

func chunk(paragraph string, c profile.Chunking) []string {
	if c.Strategy != profile.ChunkSentenceLimit {
		return []string{paragraph}
	}

	size := c.MaxLength
	if size < 1 {
		size = 1
	}

	sentences := strings.Split(paragraph, sentenceSeparator)
	var out []string
	for i := 0; i < len(sentences); i += size {
		end := min(i+size, len(sentences))
		group := strings.Join(sentences[i:end], sentenceSeparator)
		if strings.TrimSpace(group) == "" {
			continue
		}
		if !strings.HasSuffix(group, ".") {
			group += "."
		}
		out = append(out, group)
	}
	return out
}
