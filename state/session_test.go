package state

import (
	"sync"
	"testing"

	"github.com/grovetools/traceport/errors"
	"github.com/grovetools/traceport/pkg/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionDefaults(t *testing.T) {
	s := NewSession()
	snap := s.Snapshot()

	assert.Equal(t, trace.ModeFreeRTOS, snap.Mode)
	assert.Equal(t, 1, snap.CoreCount)
	assert.Empty(t, snap.Pieces)
	assert.False(t, snap.HasConverted())
}

func TestSetCoreCount(t *testing.T) {
	s := NewSession()

	require.NoError(t, s.SetCoreCount(4))
	require.NoError(t, s.AddPiece(trace.NewPiece(3, []byte{1})))

	err := s.SetCoreCount(0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeValidation))

	err = s.SetCoreCount(3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "core 3")
	assert.Equal(t, 4, s.CoreCount(), "failed call must leave the session unchanged")

	require.NoError(t, s.SetCoreCount(8))
	assert.Equal(t, 8, s.CoreCount())
}

func TestAddPieceRejectsOutOfRangeCore(t *testing.T) {
	s := NewSession()
	gen := s.Generation()

	err := s.AddPiece(trace.NewPiece(1, []byte{0xaa}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeValidation))
	assert.Empty(t, s.Pieces())
	assert.Equal(t, gen, s.Generation())
}

func TestPiecesKeepInsertionOrder(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.SetCoreCount(2))

	require.NoError(t, s.AddPiece(trace.NewPiece(1, []byte{1})))
	require.NoError(t, s.AddPiece(trace.NewPiece(0, []byte{2})))
	require.NoError(t, s.AddPiece(trace.NewPiece(1, []byte{3})))

	pieces := s.Pieces()
	require.Len(t, pieces, 3)
	assert.Equal(t, []byte{1}, pieces[0].Data)
	assert.Equal(t, []byte{2}, pieces[1].Data)
	assert.Equal(t, []byte{3}, pieces[2].Data)
}

func TestMutationsInvalidateConverted(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.SetCoreCount(2))
	require.NoError(t, s.AddPiece(trace.NewPiece(0, []byte{1})))

	mutations := map[string]func(){
		"SetMode":      func() { require.NoError(t, s.SetMode(trace.ModeBareMetal)) },
		"SetCoreCount": func() { require.NoError(t, s.SetCoreCount(3)) },
		"AddPiece":     func() { require.NoError(t, s.AddPiece(trace.NewPiece(1, []byte{2}))) },
		"ReplacePiece": func() { require.NoError(t, s.ReplacePiece(0, trace.NewPiece(0, []byte{9}))) },
		"RemovePiece":  func() { assert.Equal(t, 1, s.RemovePiece(1)) },
		"Clear":        func() { s.Clear() },
	}

	for _, name := range []string{"SetMode", "SetCoreCount", "AddPiece", "ReplacePiece", "RemovePiece", "Clear"} {
		t.Run(name, func(t *testing.T) {
			require.True(t, s.StoreConverted(s.Generation(), []byte("out")))
			_, ok := s.Converted()
			require.True(t, ok)

			mutations[name]()

			_, ok = s.Converted()
			assert.False(t, ok)
		})
	}
}

func TestRemovePieceMissingCoreKeepsConverted(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.AddPiece(trace.NewPiece(0, []byte{1})))
	require.True(t, s.StoreConverted(s.Generation(), []byte("out")))

	assert.Equal(t, 0, s.RemovePiece(5))
	out, ok := s.Converted()
	assert.True(t, ok)
	assert.Equal(t, []byte("out"), out)
}

func TestClearKeepsSettings(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.SetMode(trace.ModeBareMetal))
	require.NoError(t, s.SetCoreCount(2))
	require.NoError(t, s.AddPiece(trace.NewPiece(1, []byte{1})))

	s.Clear()
	assert.Empty(t, s.Pieces())
	assert.Equal(t, trace.ModeBareMetal, s.Mode())
	assert.Equal(t, 2, s.CoreCount())
}

func TestReplacePieceBounds(t *testing.T) {
	s := NewSession()
	err := s.ReplacePiece(0, trace.NewPiece(0, nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeValidation))
}

func TestStoreConvertedStaleGeneration(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.AddPiece(trace.NewPiece(0, []byte{1})))
	gen := s.Generation()

	require.NoError(t, s.AddPiece(trace.NewPiece(0, []byte{2})))
	assert.False(t, s.StoreConverted(gen, []byte("stale")))
	_, ok := s.Converted()
	assert.False(t, ok)
}

func TestSnapshotIsIndependent(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.AddPiece(trace.NewPiece(0, []byte{1})))

	snap := s.Snapshot()
	snap.Pieces[0] = trace.NewPiece(0, []byte{9})
	assert.Equal(t, []byte{1}, s.Pieces()[0].Data)
}

func TestSubscribe(t *testing.T) {
	s := NewSession()
	var got []Snapshot
	unsubscribe := s.Subscribe(func(snap Snapshot) { got = append(got, snap) })

	require.NoError(t, s.AddPiece(trace.NewPiece(0, []byte{1})))
	require.Error(t, s.SetCoreCount(0))
	require.Len(t, got, 1, "failed mutations do not notify")
	assert.Len(t, got[0].Pieces, 1)

	unsubscribe()
	s.Clear()
	assert.Len(t, got, 1)
}

func TestObserverMayReadSession(t *testing.T) {
	s := NewSession()
	var count int
	s.Subscribe(func(Snapshot) { count = len(s.Pieces()) })

	require.NoError(t, s.AddPiece(trace.NewPiece(0, []byte{1})))
	assert.Equal(t, 1, count)
}

func TestConcurrentMutations(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.SetCoreCount(4))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(core uint32) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = s.AddPiece(trace.NewPiece(core, []byte{byte(j)}))
				s.StoreConverted(s.Generation(), []byte("x"))
			}
		}(uint32(i))
	}
	wg.Wait()

	assert.Len(t, s.Pieces(), 200)
}
