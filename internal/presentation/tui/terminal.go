package tui

import (
	"os"

	"golang.org/x/term"
)

// IsTerminal reports whether f is attached to a terminal.
// Rich rendering is only used for terminals; pipes get plain output.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
