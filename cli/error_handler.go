package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/grovetools/traceport/errors"
	"github.com/grovetools/traceport/tui/theme"
)

// ErrorHandler provides user-friendly error messages
type ErrorHandler struct {
	Verbose bool
	Out     io.Writer
}

// NewErrorHandler creates a new error handler writing to stderr.
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
		Out:     os.Stderr,
	}
}

// Handle prints err with a remediation hint chosen by its code and returns it.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}

	t := theme.Default()
	icon := theme.Icons().Error
	fmt.Fprintf(h.Out, "%s %s\n", t.Error.Render(icon+" Error:"), err.Error())
	if hint := Remediation(err); hint != "" {
		fmt.Fprintln(h.Out, t.Muted.Render(hint))
	}

	if h.Verbose {
		if te, ok := errors.As(err); ok {
			fmt.Fprintf(h.Out, "\nError details:\n%s\n", te.ToJSON())
		}
	}
	return err
}

// Remediation returns the hint shown under an error, or "".
func Remediation(err error) string {
	switch {
	case errors.HasCode(err, errors.ErrCodeEncoderNotFound):
		return "Install the trace converter or set encoder.command in traceport.yml."
	}

	switch errors.GetCode(err) {
	case errors.ErrCodeValidation:
		return "Check the input format (-f), mode (-m) and core count (-c)."
	case errors.ErrCodeConversionFailed:
		return "Run with --verbose to see the converter output."
	case errors.ErrCodeHandoffBlocked:
		return "Allow the viewer window, or save the trace with 'traceport convert -o' and open it in ui.perfetto.dev."
	case errors.ErrCodeHandoffCancelled:
		return "The viewer handoff was cancelled before the trace was delivered."
	case errors.ErrCodeHandoffFailed:
		return "The viewer connection dropped. Retry, or use 'traceport open --browser'."
	case errors.ErrCodeConfigNotFound:
		return "Pass --config or create traceport.yml; see 'traceport config --schema'."
	case errors.ErrCodeConfigInvalid:
		return "Fix traceport.yml; 'traceport config --schema' prints the accepted keys."
	case errors.ErrCodeStorageFailed:
		return "Check that the output location exists and is writable."
	}
	return ""
}
