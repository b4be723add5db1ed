// Package trace holds the value types shared by the decoding, session and
// conversion layers.
package trace

import (
	"fmt"
	"strings"

	"github.com/grovetools/traceport/errors"
)

// Piece is one core's raw captured trace. Treat Data as read-only once the
// piece has been constructed.
type Piece struct {
	CoreID uint32
	Data   []byte
}

// NewPiece copies data so the piece does not alias the caller's buffer.
func NewPiece(coreID uint32, data []byte) Piece {
	buf := make([]byte, len(data))
	copy(buf, data)
	return Piece{CoreID: coreID, Data: buf}
}

func (p Piece) String() string {
	return fmt.Sprintf("core %d (%d bytes)", p.CoreID, len(p.Data))
}

// Mode selects the RTOS trace dialect the encoder interprets pieces as.
type Mode int

const (
	ModeFreeRTOS Mode = iota
	ModeBareMetal
)

func (m Mode) String() string {
	switch m {
	case ModeFreeRTOS:
		return "freertos"
	case ModeBareMetal:
		return "bare-metal"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeFreeRTOS || m == ModeBareMetal
}

// ParseMode parses a mode tag such as "freertos" or "bare-metal".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "freertos", "free-rtos":
		return ModeFreeRTOS, nil
	case "bare-metal", "baremetal", "base":
		return ModeBareMetal, nil
	}
	return ModeFreeRTOS, errors.UnknownMode(s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, errors.UnknownMode(m.String())
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Format is the declared encoding of a raw input.
type Format int

const (
	FormatHex Format = iota
	FormatBase64
	FormatBinary
)

func (f Format) String() string {
	switch f {
	case FormatHex:
		return "hex"
	case FormatBase64:
		return "base64"
	case FormatBinary:
		return "binary"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// Textual reports whether inputs of this format are text.
func (f Format) Textual() bool {
	return f == FormatHex || f == FormatBase64
}

// ParseFormat parses a format tag. Unknown tags are rejected rather than
// treated as hex.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hex":
		return FormatHex, nil
	case "base64", "b64":
		return FormatBase64, nil
	case "binary", "bin":
		return FormatBinary, nil
	}
	return FormatHex, errors.UnknownFormat(s)
}

// MarshalText implements encoding.TextMarshaler.
func (f Format) MarshalText() ([]byte, error) {
	if f < FormatHex || f > FormatBinary {
		return nil, errors.UnknownFormat(f.String())
	}
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Format) UnmarshalText(text []byte) error {
	parsed, err := ParseFormat(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
