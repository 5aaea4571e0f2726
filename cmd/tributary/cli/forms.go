package cli

import (
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// NewAccessibleForm creates a huh form that honors the ACCESSIBLE
// environment variable, falling back to plain text prompts that work
// better with screen readers.
func NewAccessibleForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...)
	if os.Getenv("ACCESSIBLE") != "" {
		form = form.WithAccessible(true)
	}
	return form
}

// isInteractive reports whether stdin is attached to a terminal.
// Prompts are skipped entirely in non-interactive contexts (CI, pipes).
func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
