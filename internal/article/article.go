// Package article loads the reading material that gets transformed: the
// built-in demo article and files from a local library directory.
package article

import "strings"

// DemoID identifies the built-in demo article.
const DemoID = "demo"

// Article is one piece of source content. Content holds paragraphs separated
// by a blank line.
type Article struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Sidebar string   `json:"sidebar"`
	Images  []string `json:"images"`
	Source  string   `json:"source,omitempty"`
}

// Summary is the list view of an article.
type Summary struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Source     string `json:"source,omitempty"`
	Paragraphs int    `json:"paragraphs"`
}

// Summary returns the list view of a.
func (a Article) Summary() Summary {
	n := 0
	for _, p := range strings.Split(a.Content, "\n\n") {
		if strings.TrimSpace(p) != "" {
			n++
		}
	}
	return Summary{ID: a.ID, Title: a.Title, Source: a.Source, Paragraphs: n}
}

const demoContent = `Quantum mechanics represents one of the most revolutionary and counterintuitive paradigms in modern physics, fundamentally altering our comprehension of reality at the microscopic scale. This sophisticated theoretical framework, which emerged in the early 20th century through the pioneering work of luminaries such as Max Planck, Werner Heisenberg, and Erwin Schrödinger, describes the probabilistic behavior of subatomic particles and energy quanta.

The principle of superposition constitutes a cornerstone of quantum theory, postulating that particles can exist in multiple states simultaneously until observation collapses the wave function into a definitive state. This phenomenon, exemplified by Schrödinger's famous thought experiment involving a cat that is simultaneously alive and dead, challenges our classical intuitions about the deterministic nature of physical reality.

Furthermore, quantum entanglement demonstrates the non-local correlations between particles, where the measurement of one particle instantaneously affects its entangled partner regardless of the spatial separation between them. Einstein famously referred to this phenomenon as "spooky action at a distance," expressing his discomfort with the implications for locality and realism in physical theory.

The mathematical formalism of quantum mechanics employs complex vector spaces, Hilbert spaces, and operator theory to describe quantum states and their evolution. The Schrödinger equation serves as the fundamental equation governing the time evolution of quantum systems, while Heisenberg's uncertainty principle establishes fundamental limits on the simultaneous measurement of complementary observables such as position and momentum.`

// Demo returns the built-in quantum mechanics article.
func Demo() Article {
	return Article{
		ID:      DemoID,
		Title:   "Quantum Mechanics: Understanding the Fundamental Nature of Reality",
		Content: demoContent,
		Sidebar: "Advertisement: Learn Advanced Physics Online! Click here for premium courses.",
		Images: []string{
			"decorative-quantum-bg.jpg",
			"advertisement-banner.jpg",
			"author-photo.jpg",
		},
	}
}
