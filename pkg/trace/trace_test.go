package trace

import (
	"testing"

	"github.com/grovetools/traceport/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"hex", FormatHex},
		{"HEX", FormatHex},
		{"base64", FormatBase64},
		{"b64", FormatBase64},
		{"binary", FormatBinary},
		{"bin", FormatBinary},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFormatRejectsUnknown(t *testing.T) {
	_, err := ParseFormat("srec")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeValidation))
	assert.Contains(t, err.Error(), "srec")
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("FreeRTOS")
	require.NoError(t, err)
	assert.Equal(t, ModeFreeRTOS, m)

	m, err = ParseMode("bare-metal")
	require.NoError(t, err)
	assert.Equal(t, ModeBareMetal, m)

	_, err = ParseMode("zephyr")
	assert.True(t, errors.Is(err, errors.ErrCodeValidation))
}

func TestModeTextRoundTrip(t *testing.T) {
	text, err := ModeBareMetal.MarshalText()
	require.NoError(t, err)

	var m Mode
	require.NoError(t, m.UnmarshalText(text))
	assert.Equal(t, ModeBareMetal, m)

	_, err = Mode(7).MarshalText()
	assert.Error(t, err)
}

func TestNewPieceCopiesData(t *testing.T) {
	buf := []byte{1, 2, 3}
	p := NewPiece(1, buf)
	buf[0] = 9

	assert.Equal(t, []byte{1, 2, 3}, p.Data)
	assert.Equal(t, "core 1 (3 bytes)", p.String())
}
