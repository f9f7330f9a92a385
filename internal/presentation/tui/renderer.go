package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/adtkit/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return func(markdown string) (string, error) {
			return markdown, nil
		}
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// ResultMarkdown describes a result as markdown: summary, warnings and check messages.
func ResultMarkdown(res *domain.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n%s\n", res.Ref, res.Message)

	if res.TransactionID != "" {
		fmt.Fprintf(&b, "\n`%s`", res.TransactionID)
		if res.Flow != "" {
			fmt.Fprintf(&b, " · %s", res.Flow)
		}
		b.WriteString("\n")
	}

	if len(res.Warnings) > 0 {
		b.WriteString("\n### Warnings\n\n")
		for _, w := range res.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	var msgs []domain.CheckMessage
	if res.Check != nil {
		msgs = append(msgs, res.Check.Messages...)
	}
	if res.Activation != nil {
		msgs = append(msgs, res.Activation.Messages...)
	}
	if len(msgs) > 0 {
		b.WriteString("\n### Messages\n\n")
		for _, m := range msgs {
			loc := ""
			if m.Line > 0 {
				loc = fmt.Sprintf(" (line %d)", m.Line)
			}
			fmt.Fprintf(&b, "- **%s**%s: %s\n", m.Severity, loc, m.Text)
		}
	}
	return b.String()
}
