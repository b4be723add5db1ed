// Package tui prepares the terminal for styled output.
package tui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// InitColorProfile forces a color profile when the environment asks for it
// (CLICOLOR_FORCE=1 or COLORTERM=truecolor) and strips color when NO_COLOR is
// set. Call it at the start of main.
func InitColorProfile() {
	switch {
	case os.Getenv("NO_COLOR") != "":
		lipgloss.SetColorProfile(termenv.Ascii)
	case os.Getenv("CLICOLOR_FORCE") == "1" || os.Getenv("COLORTERM") == "truecolor":
		lipgloss.SetColorProfile(termenv.TrueColor)
	}
}
