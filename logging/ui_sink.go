package logging

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"sync"

	"github.com/grovetools/traceport/pkg/uilog"
	"github.com/sirupsen/logrus"
)

// ansiRegex matches ANSI escape sequences for stripping
var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// UISink renders UI log events twice: as a styled line for the user and as a
// structured logrus entry for the log file. Debug events only reach the
// styled output in verbose mode; they are always logged structurally.
type UISink struct {
	component  string
	structured *logrus.Entry
	pretty     *PrettyLogger

	mu      sync.Mutex
	verbose bool
}

// NewUISink creates a sink for component whose styled output goes to w. A nil
// w uses the global output.
func NewUISink(component string, w io.Writer) *UISink {
	if w == nil {
		w = GetGlobalOutput()
	}
	return &UISink{
		component:  component,
		structured: NewLogger(component),
		pretty:     NewPrettyLogger().WithWriter(w),
	}
}

// NewUISinkContext is NewUISink writing to the writer attached to ctx.
func NewUISinkContext(ctx context.Context, component string) *UISink {
	return NewUISink(component, GetWriter(ctx))
}

// SetVerbose toggles styled output of debug events.
func (s *UISink) SetVerbose(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verbose = v
}

// Attach subscribes the sink to ch and returns the detach function.
func (s *UISink) Attach(ch *uilog.Channel) (detach func()) {
	return ch.Subscribe(s.Handle)
}

// Handle is a uilog.Handler.
func (s *UISink) Handle(evt uilog.Event) {
	s.mu.Lock()
	verbose := s.verbose
	s.mu.Unlock()

	styled := s.Render(evt)
	if evt.Level != uilog.LevelDebug || verbose {
		s.mu.Lock()
		fmt.Fprintln(s.pretty.writer, styled)
		s.mu.Unlock()
	}

	s.logStructured(evt, styled)
}

// Render returns the styled line for evt.
func (s *UISink) Render(evt uilog.Event) string {
	p := s.pretty
	switch evt.Level {
	case uilog.LevelError:
		return p.line(p.styles.Error, p.icons.Error, evt.Message)
	case uilog.LevelWarn:
		return p.line(p.styles.Warning, p.icons.Warning, evt.Message)
	case uilog.LevelSuccess:
		return p.line(p.styles.Success, p.icons.Success, evt.Message)
	case uilog.LevelDebug:
		return p.line(p.styles.Debug, p.icons.Debug, evt.Message)
	default:
		return p.line(p.styles.Info, p.icons.Info, evt.Message)
	}
}

func (s *UISink) logStructured(evt uilog.Event, styled string) {
	fields := logrus.Fields{
		"ui_level":    evt.Level.String(),
		"pretty_text": ansiRegex.ReplaceAllString(styled, ""),
	}

	level := logrus.InfoLevel
	switch evt.Level {
	case uilog.LevelError:
		level = logrus.ErrorLevel
	case uilog.LevelWarn:
		level = logrus.WarnLevel
	case uilog.LevelSuccess:
		fields["status"] = "success"
	case uilog.LevelDebug:
		level = logrus.DebugLevel
	}

	entry := s.structured.WithFields(fields)
	if !evt.Time.IsZero() {
		entry = entry.WithTime(evt.Time)
	}
	entry.Log(level, evt.Message)
}

// Component returns the component name for this sink.
func (s *UISink) Component() string {
	return s.component
}
