package errors

import (
	"fmt"
)

// NonHexCharacter reports a character outside [a-fA-F0-9] in hex input.
func NonHexCharacter(ch rune, offset int) *TraceError {
	return New(ErrCodeValidation, fmt.Sprintf("non-hex character %q at offset %d", ch, offset)).
		WithDetail("character", string(ch)).
		WithDetail("offset", offset)
}

// NonHexByte reports a byte that is not valid UTF-8 in hex input.
func NonHexByte(b byte, offset int) *TraceError {
	return New(ErrCodeValidation, fmt.Sprintf("non-hex character 0x%02x at offset %d", b, offset)).
		WithDetail("byte", fmt.Sprintf("0x%02x", b)).
		WithDetail("offset", offset)
}

// EmptyInput reports textual input that is empty after filtering.
func EmptyInput() *TraceError {
	return New(ErrCodeValidation, "empty input")
}

// OddHexDigitCount reports a hex string with an odd number of digits.
func OddHexDigitCount(digits int) *TraceError {
	return New(ErrCodeValidation, fmt.Sprintf("odd hex digit count (%d digits)", digits)).
		WithDetail("digits", digits)
}

// InvalidBase64 wraps a base64 decoding failure.
func InvalidBase64(err error) *TraceError {
	return Wrap(err, ErrCodeValidation, "invalid base64 input")
}

// UnknownFormat reports an input format tag that is not recognized.
func UnknownFormat(tag string) *TraceError {
	return New(ErrCodeValidation, fmt.Sprintf("unknown input format '%s' (expected hex, base64 or binary)", tag)).
		WithDetail("format", tag)
}

// UnknownMode reports a trace mode tag that is not recognized.
func UnknownMode(tag string) *TraceError {
	return New(ErrCodeValidation, fmt.Sprintf("unknown trace mode '%s' (expected freertos or bare-metal)", tag)).
		WithDetail("mode", tag)
}

// CoreCountInvalid reports a core count below one.
func CoreCountInvalid(n int) *TraceError {
	return New(ErrCodeValidation, fmt.Sprintf("core count must be at least 1, got %d", n)).
		WithDetail("coreCount", n)
}

// CoreCountConflict reports a core count that would orphan an existing piece.
func CoreCountConflict(n int, coreID uint32) *TraceError {
	return New(ErrCodeValidation,
		fmt.Sprintf("core count %d is too small for existing trace of core %d", n, coreID)).
		WithDetail("coreCount", n).
		WithDetail("coreID", coreID)
}

// CoreIDOutOfRange reports a piece whose core id is not below the core count.
func CoreIDOutOfRange(coreID uint32, coreCount int) *TraceError {
	return New(ErrCodeValidation,
		fmt.Sprintf("core id %d invalid for %d-core trace", coreID, coreCount)).
		WithDetail("coreID", coreID).
		WithDetail("coreCount", coreCount)
}

// NoPieces reports a conversion attempt without any trace data.
func NoPieces() *TraceError {
	return New(ErrCodeValidation, "no trace data to convert")
}

// ConversionFailed wraps a failure raised by the trace encoder.
func ConversionFailed(err error) *TraceError {
	return Wrap(err, ErrCodeConversionFailed, "trace conversion failed")
}

// EncoderNotFound reports a missing external encoder binary.
func EncoderNotFound(command string, err error) *TraceError {
	return Wrap(err, ErrCodeEncoderNotFound, fmt.Sprintf("trace encoder '%s' not found", command)).
		WithDetail("command", command)
}

// HandoffBlocked reports a viewer context that could not be opened.
func HandoffBlocked(origin string, cause error) *TraceError {
	return Wrap(cause, ErrCodeHandoffBlocked, fmt.Sprintf("could not open viewer at %s", origin)).
		WithDetail("origin", origin)
}

// HandoffCancelled reports an explicitly cancelled viewer handoff.
func HandoffCancelled() *TraceError {
	return New(ErrCodeHandoffCancelled, "viewer handoff cancelled")
}

// HandoffFailed reports a viewer context lost after it was opened.
func HandoffFailed(origin string, cause error) *TraceError {
	return Wrap(cause, ErrCodeHandoffFailed, fmt.Sprintf("lost connection to viewer at %s", origin)).
		WithDetail("origin", origin)
}

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *TraceError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *TraceError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// StorageFailed wraps a failure writing converted output.
func StorageFailed(location string, err error) *TraceError {
	return Wrap(err, ErrCodeStorageFailed, fmt.Sprintf("failed to write %s", location)).
		WithDetail("location", location)
}
