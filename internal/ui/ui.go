// Package ui holds the terminal styling helpers shared by CLI commands.
// Styling is disabled when stdout is not a terminal or NO_COLOR is set, so
// piped output stays clean.
package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

var colorEnabled = detectColor()

func detectColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return false
	}
	return termenv.ColorProfile() != termenv.Ascii
}

// SetColorEnabled overrides color detection, for --no-color and tests.
func SetColorEnabled(on bool) {
	colorEnabled = on
}

func render(style lipgloss.Style, text string) string {
	if !colorEnabled {
		return text
	}
	return style.Render(text)
}

// RenderPass styles a success marker.
func RenderPass(text string) string { return render(passStyle, text) }

// RenderFail styles a failure marker.
func RenderFail(text string) string { return render(failStyle, text) }

// RenderWarn styles an advisory marker.
func RenderWarn(text string) string { return render(warnStyle, text) }

// RenderAccent styles a heading or identifier.
func RenderAccent(text string) string { return render(accentStyle, text) }

// RenderMuted styles secondary detail text.
func RenderMuted(text string) string { return render(mutedStyle, text) }
