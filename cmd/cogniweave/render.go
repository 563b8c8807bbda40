package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/cogniweave/cogniweave/internal/transform"
)

const renderWidth = 80

// resultMarkdown lays a transform result out as a markdown document: the
// chunks as paragraphs, then the substituted terms and the analogies.
func resultMarkdown(res transform.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", res.Title)
	for _, c := range res.Chunks {
		b.WriteString(c)
		b.WriteString("\n\n")
	}

	if len(res.SimplifiedTerms) > 0 {
		b.WriteString("## Simplified terms\n\n")
		b.WriteString("| Original | Simplified |\n")
		b.WriteString("| --- | --- |\n")
		for _, t := range res.SimplifiedTerms {
			fmt.Fprintf(&b, "| %s | %s |\n", t.Original, t.Simplified)
		}
		b.WriteString("\n")
	}

	if len(res.Analogies) > 0 {
		b.WriteString("## Analogies\n\n")
		for _, a := range res.Analogies {
			fmt.Fprintf(&b, "> %s\n\n", a)
		}
	}

	return b.String()
}

func renderMarkdown(md string) (string, error) {
	style := glamour.WithAutoStyle()
	if noColor {
		style = glamour.WithStandardStyle("notty")
	}

	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(renderWidth))
	if err != nil {
		return "", fmt.Errorf("creating renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return out, nil
}
