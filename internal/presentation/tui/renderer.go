package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/lmrtfy/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
func NewRenderer() (func(string) (string, error), error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}, nil
}

// LinkMarkdown describes a generated link.
func LinkMarkdown(link domain.Link) string {
	var b strings.Builder
	b.WriteString("# Your link is ready\n\n")
	b.WriteString(quote(link.Prompt))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "- **Share:** %s\n", link.URL)
	fmt.Fprintf(&b, "- **Ask directly:** %s\n", link.AssistantURL)
	return b.String()
}

// IntroMarkdown is shown before the demo plays in the terminal.
func IntroMarkdown(prompt string) string {
	var b strings.Builder
	b.WriteString("# Let Me Replit That For You\n\n")
	b.WriteString("Someone wants you to ask Replit AI:\n\n")
	b.WriteString(quote(prompt))
	b.WriteString("\n\nWatch how it's done.\n")
	return b.String()
}

func quote(text string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = "> " + l
	}
	return strings.Join(lines, "\n")
}
