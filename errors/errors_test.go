package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestTraceError(t *testing.T) {
	err := New(ErrCodeValidation, "bad input")
	if err.Code != ErrCodeValidation {
		t.Errorf("expected code %s, got %s", ErrCodeValidation, err.Code)
	}

	cause := fmt.Errorf("underlying error")
	wrapped := Wrap(cause, ErrCodeConversionFailed, "conversion failed")

	if wrapped.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}

	if !Is(wrapped, ErrCodeConversionFailed) {
		t.Error("Is should return true for matching code")
	}

	if Is(wrapped, ErrCodeValidation) {
		t.Error("Is should return false for non-matching code")
	}

	detailed := err.WithDetail("character", "g").WithDetail("offset", 3)
	if detailed.Details["character"] != "g" {
		t.Error("WithDetail should add details")
	}
}

func TestIsThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("open viewer: %w", HandoffBlocked("https://ui.perfetto.dev", nil))

	if !Is(err, ErrCodeHandoffBlocked) {
		t.Error("Is should see through fmt.Errorf wrapping")
	}
	if GetCode(err) != ErrCodeHandoffBlocked {
		t.Errorf("GetCode = %s", GetCode(err))
	}
	if Is(nil, ErrCodeHandoffBlocked) {
		t.Error("Is(nil) should be false")
	}

	traceErr, ok := As(err)
	if !ok || traceErr.Details["origin"] != "https://ui.perfetto.dev" {
		t.Errorf("As should return the wrapped TraceError, got %v", traceErr)
	}
}

func TestValidationConstructors(t *testing.T) {
	err := NonHexCharacter('z', 4)
	if err.Code != ErrCodeValidation {
		t.Errorf("expected code %s, got %s", ErrCodeValidation, err.Code)
	}
	if !strings.Contains(err.Message, "non-hex character") || !strings.Contains(err.Message, "'z'") {
		t.Errorf("message should name the character, got %q", err.Message)
	}
	if err.Details["character"] != "z" {
		t.Error("NonHexCharacter should include character detail")
	}

	if byteErr := NonHexByte(0xff, 2); !strings.Contains(byteErr.Message, "0xff at offset 2") || byteErr.Details["byte"] != "0xff" {
		t.Errorf("NonHexByte should name the raw byte, got %q", byteErr.Message)
	}

	if msg := OddHexDigitCount(3).Message; !strings.Contains(msg, "odd hex digit count") {
		t.Errorf("unexpected message %q", msg)
	}
	if msg := EmptyInput().Message; msg != "empty input" {
		t.Errorf("unexpected message %q", msg)
	}

	conflict := CoreCountConflict(2, 3)
	if conflict.Details["coreID"] != uint32(3) {
		t.Error("CoreCountConflict should include coreID detail")
	}
}

func TestToJSON(t *testing.T) {
	out := CoreIDOutOfRange(4, 2).ToJSON()
	if !strings.Contains(out, `"code": "VALIDATION"`) {
		t.Errorf("ToJSON missing code: %s", out)
	}
	if !strings.Contains(out, `"coreCount": 2`) {
		t.Errorf("ToJSON missing details: %s", out)
	}
}

func TestHasCodeSearchesWholeChain(t *testing.T) {
	inner := EncoderNotFound("tband-cli", fmt.Errorf("executable file not found in $PATH"))
	err := ConversionFailed(inner)

	if GetCode(err) != ErrCodeConversionFailed {
		t.Errorf("GetCode should report the outermost code, got %s", GetCode(err))
	}
	if !HasCode(err, ErrCodeEncoderNotFound) {
		t.Error("HasCode should find the nested encoder error")
	}
	if HasCode(err, ErrCodeStorageFailed) {
		t.Error("HasCode should not match absent codes")
	}
}
