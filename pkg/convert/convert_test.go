package convert

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/grovetools/traceport/errors"
	"github.com/grovetools/traceport/pkg/trace"
	"github.com/grovetools/traceport/pkg/uilog"
	"github.com/grovetools/traceport/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEncoder struct {
	calls     int
	coreCount int
	inputs    []Input
	mode      trace.Mode
	out       []byte
	err       error
	setups    int32
}

func (r *recordingEncoder) Convert(_ context.Context, coreCount int, inputs []Input, mode trace.Mode) ([]byte, error) {
	r.calls++
	r.coreCount = coreCount
	r.inputs = inputs
	r.mode = mode
	return r.out, r.err
}

func (r *recordingEncoder) SetupLog(uilog.Emitter) {
	atomic.AddInt32(&r.setups, 1)
}

func newSession(t *testing.T, coreCount int, pieces ...trace.Piece) *state.Session {
	t.Helper()
	s := state.NewSession()
	require.NoError(t, s.SetCoreCount(coreCount))
	for _, p := range pieces {
		require.NoError(t, s.AddPiece(p))
	}
	return s
}

func TestConvertPreservesOrderAndStores(t *testing.T) {
	enc := &recordingEncoder{out: []byte("pftrace")}
	s := newSession(t, 2,
		trace.NewPiece(1, []byte{0x11}),
		trace.NewPiece(0, []byte{0x00}),
		trace.NewPiece(1, []byte{0x12}),
	)
	require.NoError(t, s.SetMode(trace.ModeBareMetal))

	out, err := NewInvoker(enc, nil).Convert(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, []byte("pftrace"), out)

	assert.Equal(t, 2, enc.coreCount)
	assert.Equal(t, trace.ModeBareMetal, enc.mode)
	require.Len(t, enc.inputs, 3)
	assert.Equal(t, []uint32{1, 0, 1}, []uint32{enc.inputs[0].CoreID, enc.inputs[1].CoreID, enc.inputs[2].CoreID})
	assert.Equal(t, []byte{0x12}, enc.inputs[2].Data)

	stored, ok := s.Converted()
	require.True(t, ok)
	assert.Equal(t, []byte("pftrace"), stored)
}

func TestConvertFailureWrapsAndLeavesSession(t *testing.T) {
	enc := &recordingEncoder{err: fmt.Errorf("unsupported core layout")}
	s := newSession(t, 1, trace.NewPiece(0, []byte{1}))
	gen := s.Generation()
	rec := &uilog.Recorder{}

	_, err := NewInvoker(enc, rec).Convert(context.Background(), s)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeConversionFailed))
	assert.Contains(t, err.Error(), "unsupported core layout")

	_, ok := s.Converted()
	assert.False(t, ok)
	assert.Equal(t, gen, s.Generation())
	assert.Len(t, s.Pieces(), 1)

	require.Equal(t, 1, rec.Count(uilog.LevelError))
	assert.Contains(t, rec.Events()[0].Message, "unsupported core layout")
}

func TestConvertNeverRetries(t *testing.T) {
	enc := &recordingEncoder{err: fmt.Errorf("boom")}
	s := newSession(t, 1, trace.NewPiece(0, []byte{1}))

	_, err := NewInvoker(enc, nil).Convert(context.Background(), s)
	require.Error(t, err)
	assert.Equal(t, 1, enc.calls)
}

func TestConvertValidation(t *testing.T) {
	enc := &recordingEncoder{out: []byte("x")}

	_, err := NewInvoker(enc, nil).Convert(context.Background(), state.NewSession())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeValidation))
	assert.Equal(t, 0, enc.calls, "encoder must not run without pieces")
}

func TestSetupLogCalledOnce(t *testing.T) {
	enc := &recordingEncoder{out: []byte("x")}
	inv := NewInvoker(enc, nil)
	s := newSession(t, 1, trace.NewPiece(0, []byte{1}))

	for i := 0; i < 3; i++ {
		_, err := inv.Convert(context.Background(), s)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&enc.setups))
}

func TestStaleResultNotStored(t *testing.T) {
	s := newSession(t, 1, trace.NewPiece(0, []byte{1}))
	enc := EncoderFunc(func(context.Context, int, []Input, trace.Mode) ([]byte, error) {
		require.NoError(t, s.AddPiece(trace.NewPiece(0, []byte{2})))
		return []byte("old"), nil
	})

	out, err := NewInvoker(enc, nil).Convert(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, []byte("old"), out)

	_, ok := s.Converted()
	assert.False(t, ok, "result computed for an older input set must not be stored")
}
