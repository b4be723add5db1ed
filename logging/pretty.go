package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/traceport/tui/theme"
)

// PrettyLogger provides pretty formatted console output
type PrettyLogger struct {
	writer io.Writer
	styles PrettyStyles
	icons  theme.IconSet
}

// PrettyStyles contains lipgloss styles for different log types
type PrettyStyles struct {
	Success lipgloss.Style
	Info    lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Debug   lipgloss.Style
	Key     lipgloss.Style
	Value   lipgloss.Style
	Path    lipgloss.Style
}

// DefaultPrettyStyles derives the pretty styles from the active theme.
func DefaultPrettyStyles() PrettyStyles {
	t := theme.Default()
	return PrettyStyles{
		Success: t.Success,
		Info:    t.Info,
		Warning: t.Warning,
		Error:   t.Error,
		Debug:   t.Muted,
		Key:     t.Muted,
		Value:   t.Bold,
		Path:    t.Path,
	}
}

// NewPrettyLogger creates a pretty logger writing to the global output.
func NewPrettyLogger() *PrettyLogger {
	return &PrettyLogger{
		writer: GetGlobalOutput(),
		styles: DefaultPrettyStyles(),
		icons:  theme.Icons(),
	}
}

// WithWriter sets a custom writer for pretty output
func (p *PrettyLogger) WithWriter(w io.Writer) *PrettyLogger {
	if w == nil {
		w = os.Stderr
	}
	p.writer = w
	return p
}

// WithIcons replaces the icon set.
func (p *PrettyLogger) WithIcons(icons theme.IconSet) *PrettyLogger {
	p.icons = icons
	return p
}

// Success logs a success message with a checkmark
func (p *PrettyLogger) Success(message string) {
	fmt.Fprintln(p.writer, p.line(p.styles.Success, p.icons.Success, message))
}

// InfoPretty logs an info message with pretty formatting
func (p *PrettyLogger) InfoPretty(message string) {
	fmt.Fprintln(p.writer, p.line(p.styles.Info, p.icons.Info, message))
}

// WarnPretty logs a warning with pretty formatting
func (p *PrettyLogger) WarnPretty(message string) {
	fmt.Fprintln(p.writer, p.line(p.styles.Warning, p.icons.Warning, message))
}

// DebugPretty logs a muted debug line.
func (p *PrettyLogger) DebugPretty(message string) {
	fmt.Fprintln(p.writer, p.line(p.styles.Debug, p.icons.Debug, message))
}

// ErrorPretty logs an error with pretty formatting
func (p *PrettyLogger) ErrorPretty(message string, err error) {
	if err != nil {
		message = message + ": " + err.Error()
	}
	fmt.Fprintln(p.writer, p.line(p.styles.Error, p.icons.Error, message))
}

// Field logs a key-value pair with pretty formatting
func (p *PrettyLogger) Field(key string, value interface{}) {
	fmt.Fprintf(p.writer, "%s: %s\n",
		p.styles.Key.Render(key),
		p.styles.Value.Render(fmt.Sprint(value)))
}

// Path logs a file path with special formatting
func (p *PrettyLogger) Path(label string, path string) {
	fmt.Fprintf(p.writer, "%s: %s\n",
		p.styles.Key.Render(label),
		p.styles.Path.Render(path))
}

// Blank prints a blank line
func (p *PrettyLogger) Blank() {
	fmt.Fprintln(p.writer)
}

func (p *PrettyLogger) line(style lipgloss.Style, icon, message string) string {
	if icon == "" {
		return style.Render(message)
	}
	return style.Render(icon + " " + message)
}
