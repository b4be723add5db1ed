// Package capture follows a device console log and extracts the trace dumps
// printed between the begin and end markers.
package capture

import (
	"context"
	"fmt"
	"io"
	stdlog "log"
	"strings"

	"github.com/grovetools/traceport/logging"
	"github.com/grovetools/traceport/pkg/decode"
	"github.com/grovetools/traceport/pkg/trace"
	"github.com/grovetools/traceport/pkg/uilog"
	"github.com/hpcloud/tail"
)

var log = logging.NewLogger("capture")

// Assembler collects marker-delimited blocks from a stream of lines.
// A block without an end marker is held until one arrives.
type Assembler struct {
	open bool
	buf  strings.Builder
}

// Feed consumes one line. When the line completes a block, the block text,
// markers included, is returned with ok set.
func (a *Assembler) Feed(line string) (block string, ok bool) {
	if !a.open {
		i := strings.Index(line, decode.MarkerBegin)
		if i < 0 {
			return "", false
		}
		a.open = true
		a.buf.Reset()
		a.buf.WriteString(decode.MarkerBegin)
		a.buf.WriteByte('\n')
		line = line[i+len(decode.MarkerBegin):]
	}

	if j := strings.Index(line, decode.MarkerEnd); j >= 0 {
		a.buf.WriteString(line[:j])
		a.buf.WriteByte('\n')
		a.buf.WriteString(decode.MarkerEnd)
		a.open = false
		block = a.buf.String()
		a.buf.Reset()
		return block, true
	}

	a.buf.WriteString(line)
	a.buf.WriteByte('\n')
	return "", false
}

// Pending reports whether a block is open.
func (a *Assembler) Pending() bool {
	return a.open
}

// Options control a Follower.
type Options struct {
	Format trace.Format
	// CoreCount assigns cores round-robin: the n-th block belongs to core
	// n % CoreCount.
	CoreCount int
	// FromStart reads the whole file instead of only new lines.
	FromStart bool
	// Poll uses stat polling instead of inotify.
	Poll bool
}

// Follower tails a console log.
type Follower struct {
	path    string
	decoder *decode.Decoder
	opts    Options
	ui      uilog.Emitter
}

// NewFollower creates a follower for path.
func NewFollower(path string, dec *decode.Decoder, opts Options, ui uilog.Emitter) *Follower {
	if opts.CoreCount < 1 {
		opts.CoreCount = 1
	}
	if ui == nil {
		ui = uilog.Discard
	}
	return &Follower{path: path, decoder: dec, opts: opts, ui: ui}
}

// Run tails the file until ctx ends, calling onPiece for every block that
// decodes. Blocks that fail to decode are reported and skipped.
func (f *Follower) Run(ctx context.Context, onPiece func(trace.Piece)) error {
	whence := io.SeekEnd
	if f.opts.FromStart {
		whence = io.SeekStart
	}
	t, err := tail.TailFile(f.path, tail.Config{
		Follow:   true,
		ReOpen:   true,
		Poll:     f.opts.Poll,
		Location: &tail.SeekInfo{Offset: 0, Whence: whence},
		Logger:   stdlog.New(io.Discard, "", 0),
	})
	if err != nil {
		return fmt.Errorf("follow %s: %w", f.path, err)
	}
	defer t.Cleanup()
	defer t.Stop()

	log.WithField("path", f.path).Info("Following console capture")

	var asm Assembler
	blocks := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-t.Lines:
			if !ok {
				return t.Err()
			}
			if line.Err != nil {
				log.WithError(line.Err).Warn("Error reading console capture")
				continue
			}
			text, complete := asm.Feed(line.Text)
			if !complete {
				continue
			}

			core := uint32(blocks % f.opts.CoreCount)
			blocks++
			p, err := f.decoder.DecodeString(text, f.opts.Format, core)
			if err != nil {
				f.ui.Emit(uilog.LevelError, fmt.Sprintf("Skipping capture block %d: %v", blocks, err))
				continue
			}
			f.ui.Emit(uilog.LevelInfo, fmt.Sprintf("Captured %s.", p))
			onPiece(p)
		}
	}
}
