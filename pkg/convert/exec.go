package convert

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grovetools/traceport/command"
	"github.com/grovetools/traceport/errors"
	"github.com/grovetools/traceport/pkg/trace"
	"github.com/grovetools/traceport/pkg/uilog"
)

// stderrTail is how many trailing stderr lines a failed run reports.
const stderrTail = 5

// ExecEncoder runs an external converter binary:
//
//	<command> <args...> --format bin --core-count N --mode M --output OUT piece@core...
//
// Pieces are written to a scratch directory in stored order.
type ExecEncoder struct {
	Command string
	Args    []string
	Timeout time.Duration
	// WorkDir is the parent of per-run scratch directories. Empty means os.TempDir.
	WorkDir string

	builder  *command.SafeBuilder
	executor command.Executor

	mu sync.Mutex
	ui uilog.Emitter
}

// NewExecEncoder creates an encoder for name. A nil executor runs real processes.
func NewExecEncoder(name string, args []string, timeout time.Duration, executor command.Executor) *ExecEncoder {
	if executor == nil {
		executor = &command.RealExecutor{}
	}
	return &ExecEncoder{
		Command:  name,
		Args:     args,
		Timeout:  timeout,
		builder:  command.NewSafeBuilderWithExecutor(executor),
		executor: executor,
		ui:       uilog.Discard,
	}
}

// SetupLog routes the encoder's own output lines to emitter.
func (e *ExecEncoder) SetupLog(emitter uilog.Emitter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if emitter == nil {
		emitter = uilog.Discard
	}
	e.ui = emitter
}

func (e *ExecEncoder) emitter() uilog.Emitter {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ui
}

// ModeFlag returns the encoder's spelling of mode.
func ModeFlag(mode trace.Mode) string {
	if mode == trace.ModeBareMetal {
		return "bare-metal"
	}
	return "free-rtos"
}

// Convert implements Encoder.
func (e *ExecEncoder) Convert(ctx context.Context, coreCount int, inputs []Input, mode trace.Mode) ([]byte, error) {
	if _, err := e.executor.LookPath(e.Command); err != nil {
		return nil, errors.EncoderNotFound(e.Command, err)
	}
	for _, a := range e.Args {
		if strings.ContainsAny(a, "\n\x00") {
			return nil, fmt.Errorf("invalid encoder argument %q", a)
		}
	}

	scratch, err := os.MkdirTemp(e.WorkDir, "traceport-encode-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)
	if err := e.builder.Validate("fileName", scratch); err != nil {
		return nil, err
	}

	args := append([]string{}, e.Args...)
	outPath := filepath.Join(scratch, "trace.pftrace")
	args = append(args,
		"--format", "bin",
		"--core-count", strconv.Itoa(coreCount),
		"--mode", ModeFlag(mode),
		"--output", outPath,
	)
	for i, in := range inputs {
		p := filepath.Join(scratch, fmt.Sprintf("piece-%03d.bin", i))
		if err := os.WriteFile(p, in.Data, 0600); err != nil {
			return nil, fmt.Errorf("write piece %d: %w", i, err)
		}
		args = append(args, fmt.Sprintf("%s@%d", p, in.CoreID))
	}

	cmd, err := e.builder.Build(ctx, e.Command, args...)
	if err != nil {
		return nil, err
	}
	defer cmd.Release()
	cmd = cmd.WithTimeout(ctx, e.Timeout)

	ui := e.emitter()
	stdout := &lineWriter{emit: ui, fallback: uilog.LevelInfo}
	stderr := &lineWriter{emit: ui, fallback: uilog.LevelWarn, keep: stderrTail}

	log.WithField("command", cmd.String()).Debug("Running trace encoder")
	c := cmd.Exec()
	c.Stdout = stdout
	c.Stderr = stderr
	runErr := c.Run()
	stdout.Flush()
	stderr.Flush()

	if runErr != nil {
		if cmd.Context().Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("encoder timed out after %s", cmd.Timeout())
		}
		if tail := stderr.Tail(); tail != "" {
			return nil, fmt.Errorf("%s: %w: %s", e.Command, runErr, tail)
		}
		return nil, fmt.Errorf("%s: %w", e.Command, runErr)
	}

	out, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("encoder produced no output: %w", err)
	}
	return out, nil
}

// lineWriter splits process output into lines and emits each one at the
// level named by its prefix.
type lineWriter struct {
	emit     uilog.Emitter
	fallback uilog.Level
	keep     int

	buf  bytes.Buffer
	tail []string
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// incomplete line, put it back
			w.buf.Reset()
			w.buf.WriteString(line)
			break
		}
		w.line(line)
	}
	return len(p), nil
}

// Flush emits any trailing partial line.
func (w *lineWriter) Flush() {
	if w.buf.Len() > 0 {
		w.line(w.buf.String())
		w.buf.Reset()
	}
}

// Tail returns the last kept lines joined by "; ".
func (w *lineWriter) Tail() string {
	return strings.Join(w.tail, "; ")
}

func (w *lineWriter) line(raw string) {
	line := strings.TrimRight(raw, "\r\n")
	if strings.TrimSpace(line) == "" {
		return
	}
	if w.keep > 0 {
		w.tail = append(w.tail, line)
		if len(w.tail) > w.keep {
			w.tail = w.tail[len(w.tail)-w.keep:]
		}
	}
	level, msg := classify(line, w.fallback)
	w.emit.Emit(level, msg)
}

var linePrefixes = []struct {
	prefix string
	level  uilog.Level
}{
	{"ERROR", uilog.LevelError},
	{"WARNING", uilog.LevelWarn},
	{"WARN", uilog.LevelWarn},
	{"INFO", uilog.LevelInfo},
	{"DEBUG", uilog.LevelDebug},
}

func classify(line string, fallback uilog.Level) (uilog.Level, string) {
	trimmed := strings.TrimLeft(line, "[")
	for _, lp := range linePrefixes {
		if rest, ok := strings.CutPrefix(trimmed, lp.prefix); ok {
			rest = strings.TrimLeft(rest, " :]")
			return lp.level, rest
		}
	}
	return fallback, line
}
