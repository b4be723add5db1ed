// Package state holds the trace session: the selected mode, core count,
// decoded pieces and the most recent conversion result.
package state

import (
	"sync"

	"github.com/grovetools/traceport/errors"
	"github.com/grovetools/traceport/pkg/trace"
)

// Snapshot is a consistent, caller-owned copy of the session.
type Snapshot struct {
	Mode       trace.Mode
	CoreCount  int
	Pieces     []trace.Piece
	Converted  []byte
	Generation uint64
}

// HasConverted reports whether the snapshot carries a conversion result.
func (s Snapshot) HasConverted() bool {
	return s.Converted != nil
}

// Observer is notified with a fresh snapshot after each successful change.
type Observer func(Snapshot)

// Session is the mutable aggregate consulted by the conversion layer. Every
// mutator validates fully before touching state, so a failed call leaves the
// session exactly as it was. Every successful mutation clears the converted
// output and bumps the generation.
type Session struct {
	mu         sync.Mutex
	mode       trace.Mode
	coreCount  int
	pieces     []trace.Piece
	converted  []byte
	generation uint64

	obsMu     sync.Mutex
	nextObs   int
	observers map[int]Observer
}

// NewSession returns a FreeRTOS, single-core session with no pieces.
func NewSession() *Session {
	return &Session{
		mode:      trace.ModeFreeRTOS,
		coreCount: 1,
		observers: make(map[int]Observer),
	}
}

// SetMode selects the trace dialect.
func (s *Session) SetMode(m trace.Mode) error {
	if !m.Valid() {
		return errors.UnknownMode(m.String())
	}
	s.mutate(func() { s.mode = m })
	return nil
}

// SetCoreCount changes the core count. It fails if n < 1 or if any existing
// piece belongs to a core >= n.
func (s *Session) SetCoreCount(n int) error {
	if n < 1 {
		return errors.CoreCountInvalid(n)
	}

	s.mu.Lock()
	for _, p := range s.pieces {
		if int64(p.CoreID) >= int64(n) {
			s.mu.Unlock()
			return errors.CoreCountConflict(n, p.CoreID)
		}
	}
	s.coreCount = n
	s.invalidateLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// AddPiece appends p. The piece's core id must be below the core count.
func (s *Session) AddPiece(p trace.Piece) error {
	s.mu.Lock()
	if int64(p.CoreID) >= int64(s.coreCount) {
		count := s.coreCount
		s.mu.Unlock()
		return errors.CoreIDOutOfRange(p.CoreID, count)
	}
	s.pieces = append(s.pieces, p)
	s.invalidateLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// ReplacePiece swaps the piece at index for p, keeping its position.
func (s *Session) ReplacePiece(index int, p trace.Piece) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.pieces) {
		n := len(s.pieces)
		s.mu.Unlock()
		return errors.New(errors.ErrCodeValidation, "no trace piece at that position").
			WithDetail("index", index).
			WithDetail("pieces", n)
	}
	if int64(p.CoreID) >= int64(s.coreCount) {
		count := s.coreCount
		s.mu.Unlock()
		return errors.CoreIDOutOfRange(p.CoreID, count)
	}
	s.pieces[index] = p
	s.invalidateLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// RemovePiece drops every piece recorded for coreID and returns how many were
// removed. Removing nothing is not a mutation.
func (s *Session) RemovePiece(coreID uint32) int {
	s.mu.Lock()
	kept := s.pieces[:0:0]
	for _, p := range s.pieces {
		if p.CoreID != coreID {
			kept = append(kept, p)
		}
	}
	removed := len(s.pieces) - len(kept)
	if removed == 0 {
		s.mu.Unlock()
		return 0
	}
	s.pieces = kept
	s.invalidateLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return removed
}

// Clear drops all pieces. Mode and core count are kept.
func (s *Session) Clear() {
	s.mutate(func() { s.pieces = nil })
}

// Mode returns the selected trace mode.
func (s *Session) Mode() trace.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// CoreCount returns the declared core count.
func (s *Session) CoreCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coreCount
}

// Pieces returns a copy of the piece list in stored order.
func (s *Session) Pieces() []trace.Piece {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]trace.Piece(nil), s.pieces...)
}

// Converted returns the last conversion result, if it is still valid.
func (s *Session) Converted() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.converted, s.converted != nil
}

// Generation identifies the current input set.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Snapshot returns a consistent copy of the whole session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// StoreConverted records data as the conversion result for generation gen.
// It returns false, storing nothing, if the session changed since gen.
func (s *Session) StoreConverted(gen uint64, data []byte) bool {
	if data == nil {
		data = []byte{}
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return false
	}
	s.converted = data
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return true
}

// Subscribe registers an observer and returns its removal function.
func (s *Session) Subscribe(o Observer) (unsubscribe func()) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	if s.observers == nil {
		s.observers = make(map[int]Observer)
	}
	id := s.nextObs
	s.nextObs++
	s.observers[id] = o

	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		delete(s.observers, id)
	}
}

func (s *Session) mutate(fn func()) {
	s.mu.Lock()
	fn()
	s.invalidateLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

func (s *Session) invalidateLocked() {
	s.converted = nil
	s.generation++
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		Mode:       s.mode,
		CoreCount:  s.coreCount,
		Pieces:     append([]trace.Piece(nil), s.pieces...),
		Converted:  s.converted,
		Generation: s.generation,
	}
}

func (s *Session) notify(snap Snapshot) {
	s.obsMu.Lock()
	observers := make([]Observer, 0, len(s.observers))
	for _, o := range s.observers {
		observers = append(observers, o)
	}
	s.obsMu.Unlock()

	for _, o := range observers {
		o(snap)
	}
}
