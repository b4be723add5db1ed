// Package decode turns raw user input into validated trace pieces.
package decode

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/grovetools/traceport/errors"
	"github.com/grovetools/traceport/pkg/metrics"
	"github.com/grovetools/traceport/pkg/trace"
	"github.com/grovetools/traceport/pkg/uilog"
)

// Decoder validates and decodes single inputs. It is stateless apart from the
// log emitter and safe for concurrent use.
type Decoder struct {
	log uilog.Emitter
}

// New creates a Decoder reporting stripped markers to log. A nil log discards.
func New(log uilog.Emitter) *Decoder {
	if log == nil {
		log = uilog.Discard
	}
	return &Decoder{log: log}
}

// Decode interprets content according to format. Binary content is copied
// verbatim; textual formats are marker-filtered and validated first.
func (d *Decoder) Decode(content []byte, format trace.Format, coreID uint32) (trace.Piece, error) {
	var (
		data []byte
		err  error
	)
	switch format {
	case trace.FormatBinary:
		data = append([]byte{}, content...)
	case trace.FormatHex:
		data, err = d.decodeHex(string(content), coreID)
	case trace.FormatBase64:
		data, err = d.decodeBase64(string(content), coreID)
	default:
		err = errors.UnknownFormat(format.String())
	}
	if err != nil {
		metrics.DecodeErrors.WithLabelValues(format.String()).Inc()
		return trace.Piece{}, err
	}

	metrics.PiecesDecoded.WithLabelValues(format.String()).Inc()
	return trace.Piece{CoreID: coreID, Data: data}, nil
}

// DecodeString is Decode for textual input.
func (d *Decoder) DecodeString(content string, format trace.Format, coreID uint32) (trace.Piece, error) {
	return d.Decode([]byte(content), format, coreID)
}

func (d *Decoder) stripMarkers(s string, coreID uint32) string {
	s, found := StripMarkers(s)
	for _, m := range found {
		uilog.Emitf(d.log, uilog.LevelInfo, "Stripped marker '%s' from core %d input.", m, coreID)
	}
	return s
}

func (d *Decoder) decodeHex(s string, coreID uint32) ([]byte, error) {
	s = d.stripMarkers(s, coreID)

	var digits strings.Builder
	digits.Grow(len(s))
	for i, offset := 0, 0; i < len(s); offset++ {
		c, width := utf8.DecodeRuneInString(s[i:])
		switch {
		case c == utf8.RuneError && width == 1:
			return nil, errors.NonHexByte(s[i], offset)
		case unicode.IsSpace(c):
		case isHexDigit(c):
			digits.WriteRune(c)
		default:
			return nil, errors.NonHexCharacter(c, offset)
		}
		i += width
	}

	hexStr := digits.String()
	if len(hexStr) == 0 {
		return nil, errors.EmptyInput()
	}
	if len(hexStr)%2 != 0 {
		return nil, errors.OddHexDigitCount(len(hexStr))
	}

	out, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "malformed hex input")
	}
	return out, nil
}

func (d *Decoder) decodeBase64(s string, coreID uint32) ([]byte, error) {
	s = d.stripMarkers(s, coreID)
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)

	out, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.InvalidBase64(err)
	}
	return out, nil
}

func isHexDigit(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
