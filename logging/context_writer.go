package logging

import (
	"context"
	"io"
)

type contextKey string

const outputWriterKey contextKey = "pretty_output_writer"

// GetWriter retrieves the pretty-output writer attached to ctx.
// It falls back to the global output if no writer is found.
func GetWriter(ctx context.Context) io.Writer {
	if ctx == nil {
		return GetGlobalOutput()
	}
	if writer, ok := ctx.Value(outputWriterKey).(io.Writer); ok && writer != nil {
		return writer
	}
	return GetGlobalOutput()
}

// WithWriter returns a new context carrying writer for pretty output.
func WithWriter(ctx context.Context, writer io.Writer) context.Context {
	return context.WithValue(ctx, outputWriterKey, writer)
}
