// Package convert drives the external trace encoder: it turns a session's
// pieces into the interchange binary and records the result on the session.
package convert

import (
	"context"
	"sync"
	"time"

	"github.com/grovetools/traceport/errors"
	"github.com/grovetools/traceport/logging"
	"github.com/grovetools/traceport/pkg/metrics"
	"github.com/grovetools/traceport/pkg/trace"
	"github.com/grovetools/traceport/pkg/uilog"
	"github.com/grovetools/traceport/state"
)

var log = logging.NewLogger("convert")

// Input is one piece in the encoder's native representation.
type Input struct {
	CoreID uint32
	Data   []byte
}

// Encoder produces the interchange binary. Inputs are order-sensitive.
type Encoder interface {
	Convert(ctx context.Context, coreCount int, inputs []Input, mode trace.Mode) ([]byte, error)
}

// LogInitializer is implemented by encoders that report progress. SetupLog is
// called exactly once, before the first conversion.
type LogInitializer interface {
	SetupLog(emitter uilog.Emitter)
}

// EncoderFunc adapts a function to the Encoder interface.
type EncoderFunc func(ctx context.Context, coreCount int, inputs []Input, mode trace.Mode) ([]byte, error)

// Convert calls f.
func (f EncoderFunc) Convert(ctx context.Context, coreCount int, inputs []Input, mode trace.Mode) ([]byte, error) {
	return f(ctx, coreCount, inputs, mode)
}

// Invoker converts session contents with a single encoder. It never retries:
// a failure depends only on the input set.
type Invoker struct {
	encoder Encoder
	ui      uilog.Emitter
	setup   sync.Once
}

// NewInvoker wraps encoder. Failures are reported on ui as well as returned.
func NewInvoker(encoder Encoder, ui uilog.Emitter) *Invoker {
	if ui == nil {
		ui = uilog.Discard
	}
	return &Invoker{encoder: encoder, ui: ui}
}

func (inv *Invoker) initialize() {
	inv.setup.Do(func() {
		if li, ok := inv.encoder.(LogInitializer); ok {
			li.SetupLog(inv.ui)
		}
	})
}

// Convert encodes the session's current pieces. On success the result is
// stored on the session unless the session changed while the encoder ran.
// On failure the session is left as it was.
func (inv *Invoker) Convert(ctx context.Context, s *state.Session) ([]byte, error) {
	inv.initialize()

	snap := s.Snapshot()
	inputs, err := buildInputs(snap)
	if err != nil {
		metrics.Conversions.WithLabelValues("invalid").Inc()
		inv.ui.Emit(uilog.LevelError, err.Error())
		return nil, err
	}

	log.WithField("pieces", len(inputs)).
		WithField("core_count", snap.CoreCount).
		WithField("mode", snap.Mode.String()).
		Debug("Invoking trace encoder")

	start := time.Now()
	out, err := inv.encoder.Convert(ctx, snap.CoreCount, inputs, snap.Mode)
	metrics.ConversionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.Conversions.WithLabelValues("failed").Inc()
		convErr := errors.ConversionFailed(err)
		inv.ui.Emit(uilog.LevelError, "Conversion failed: "+err.Error())
		return nil, convErr
	}
	metrics.Conversions.WithLabelValues("ok").Inc()

	if out == nil {
		out = []byte{}
	}
	if !s.StoreConverted(snap.Generation, out) {
		log.WithField("generation", snap.Generation).Debug("Session changed during conversion, result not stored")
	}
	return out, nil
}

func buildInputs(snap state.Snapshot) ([]Input, error) {
	if len(snap.Pieces) == 0 {
		return nil, errors.NoPieces()
	}

	inputs := make([]Input, 0, len(snap.Pieces))
	for _, p := range snap.Pieces {
		if int64(p.CoreID) >= int64(snap.CoreCount) {
			return nil, errors.CoreIDOutOfRange(p.CoreID, snap.CoreCount)
		}
		inputs = append(inputs, Input{CoreID: p.CoreID, Data: p.Data})
	}
	return inputs, nil
}
