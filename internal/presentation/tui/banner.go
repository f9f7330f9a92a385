package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the adtkit banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	lines := []struct{ text, color string }{
		{"             _ _   _    _ _   ", "#38bdf8"},
		{"   __ _   __| | |_| | _(_) |_ ", "#22d3ee"},
		{"  / _` | / _` | __| |/ / | __|", "#2dd4bf"},
		{" | (_| || (_| | |_|   <| | |_ ", "#34d399"},
		{"  \\__,_| \\__,_|\\__|_|\\_\\_|\\__|", "#4ade80"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  v"+version).Faint())
	fmt.Fprintln(w)
}
