// Package profiling records nested wall-clock spans for the stages of a
// traceport run and prints them as a tree.
package profiling

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Stopper ends a span.
type Stopper interface {
	Stop()
}

type span struct {
	name     string
	start    time.Time
	duration time.Duration
	children []*span
	recorder *Recorder
}

func (s *span) Stop() {
	s.recorder.end(s)
}

// Recorder collects spans. Spans nest in the order they are started and
// stopped; it is meant for one sequential pipeline at a time.
type Recorder struct {
	mu      sync.Mutex
	enabled bool
	root    *span
	stack   []*span
	now     func() time.Time
}

var defaultRecorder = NewRecorder()

// NewRecorder returns a disabled recorder.
func NewRecorder() *Recorder {
	return &Recorder{now: time.Now}
}

// Enable starts recording on the default recorder.
func Enable() { defaultRecorder.Enable() }

// Start opens a span on the default recorder.
func Start(name string) Stopper { return defaultRecorder.Start(name) }

// Summarize prints the default recorder's spans.
func Summarize(w io.Writer) { defaultRecorder.Summarize(w) }

// Enable starts recording. Calling it again keeps the spans recorded so far.
func (r *Recorder) Enable() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.enabled {
		return
	}
	r.enabled = true
	r.root = &span{name: "total", start: r.now(), recorder: r}
	r.stack = []*span{r.root}
}

// Start opens a span under the innermost open span. Disabled recorders
// return a no-op Stopper.
func (r *Recorder) Start(name string) Stopper {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled {
		return noopStopper{}
	}

	parent := r.stack[len(r.stack)-1]
	s := &span{name: name, start: r.now(), recorder: r}
	parent.children = append(parent.children, s)
	r.stack = append(r.stack, s)
	return s
}

func (r *Recorder) end(s *span) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.duration = r.now().Sub(s.start)
	for i := len(r.stack) - 1; i > 0; i-- {
		if r.stack[i] == s {
			r.stack = r.stack[:i]
			return
		}
	}
}

// Summarize writes the span tree with each span's share of the total.
func (r *Recorder) Summarize(w io.Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled {
		return
	}

	total := r.now().Sub(r.root.start)
	fmt.Fprintln(w, "\n--- Timing ---")
	fmt.Fprintf(w, "total %v\n", total.Round(100*time.Microsecond))
	for _, child := range r.root.children {
		writeSpan(w, child, 1, total)
	}
}

func writeSpan(w io.Writer, s *span, depth int, total time.Duration) {
	share := 0.0
	if total > 0 {
		share = float64(s.duration) / float64(total) * 100
	}
	fmt.Fprintf(w, "%s- %s %v (%.1f%%)\n", strings.Repeat("  ", depth), s.name, s.duration.Round(100*time.Microsecond), share)
	for _, child := range s.children {
		writeSpan(w, child, depth+1, total)
	}
}

type noopStopper struct{}

func (noopStopper) Stop() {}
