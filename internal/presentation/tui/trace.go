package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/adtkit/pkg/domain"
	"github.com/charmbracelet/lipgloss"
)

var (
	phaseStyle  = lipgloss.NewStyle().Bold(true).Width(12)
	offsetStyle = lipgloss.NewStyle().Faint(true).Width(10).Align(lipgloss.Right)
	noteStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	traceBox    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// RenderTrace lays out the phase trace of a transaction, one phase per line,
// with the time elapsed since the first phase.
func RenderTrace(trace []domain.PhaseRecord) string {
	if len(trace) == 0 {
		return ""
	}
	start := trace[0].At
	rows := make([]string, 0, len(trace))
	for _, rec := range trace {
		offset := rec.At.Sub(start).Round(time.Millisecond)
		row := lipgloss.JoinHorizontal(lipgloss.Top,
			offsetStyle.Render(fmt.Sprintf("+%s", offset)),
			"  ",
			phaseStyle.Render(string(rec.Phase)),
		)
		if rec.Note != "" {
			row += " " + noteStyle.Render(rec.Note)
		}
		rows = append(rows, row)
	}
	return traceBox.Render(strings.Join(rows, "\n"))
}
