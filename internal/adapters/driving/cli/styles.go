package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Palette used for terminal output.
var (
	colourPrimary = lipgloss.Color("#7C3AED")
	colourMuted   = lipgloss.Color("#6C7086")
	colourSuccess = lipgloss.Color("#A6E3A1")
	colourWarning = lipgloss.Color("#F9E2AF")
	colourError   = lipgloss.Color("#F38BA8")
)

// styles renders text for a writer. Styling is only applied on a terminal,
// so piped output stays plain.
type styles struct {
	enabled bool

	title   lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
}

func newStyles(w io.Writer) styles {
	return styles{
		enabled: isTerminal(w),
		title:   lipgloss.NewStyle().Bold(true).Foreground(colourPrimary),
		muted:   lipgloss.NewStyle().Foreground(colourMuted),
		success: lipgloss.NewStyle().Foreground(colourSuccess),
		warning: lipgloss.NewStyle().Foreground(colourWarning),
		failure: lipgloss.NewStyle().Foreground(colourError),
	}
}

func (s styles) render(style lipgloss.Style, text string) string {
	if !s.enabled {
		return text
	}
	return style.Render(text)
}

func (s styles) Title(text string) string   { return s.render(s.title, text) }
func (s styles) Muted(text string) string   { return s.render(s.muted, text) }
func (s styles) Success(text string) string { return s.render(s.success, text) }
func (s styles) Warning(text string) string { return s.render(s.warning, text) }
func (s styles) Failure(text string) string { return s.render(s.failure, text) }

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
