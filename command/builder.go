// Package command builds validated invocations of external tools, such as the
// trace encoder, without going through a shell.
package command

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds an encoder run when the caller sets none.
	DefaultTimeout = 2 * time.Minute

	// MaxTimeout is the maximum allowed timeout
	MaxTimeout = 10 * time.Minute
)

var (
	programName = regexp.MustCompile(`^/?[a-zA-Z0-9][a-zA-Z0-9_.+/-]*$`)
	flagName    = regexp.MustCompile(`^--?[a-zA-Z0-9][a-zA-Z0-9-]*$`)
)

// SafeBuilder validates program names and arguments before handing them to
// an Executor.
type SafeBuilder struct {
	defaultTimeout time.Duration
	validators     map[string]func(string) error
	executor       Executor
}

// NewSafeBuilder creates a new SafeBuilder instance with a RealExecutor
func NewSafeBuilder() *SafeBuilder {
	return NewSafeBuilderWithExecutor(&RealExecutor{})
}

// NewSafeBuilderWithExecutor creates a new SafeBuilder with a custom Executor
func NewSafeBuilderWithExecutor(exec Executor) *SafeBuilder {
	return &SafeBuilder{
		defaultTimeout: DefaultTimeout,
		validators: map[string]func(string) error{
			"program":  validateProgram,
			"fileName": validateFileName,
			"flag":     validateFlag,
		},
		executor: exec,
	}
}

// validateProgram accepts bare names resolved via PATH and plain paths.
func validateProgram(name string) error {
	if name == "" {
		return fmt.Errorf("program name cannot be empty")
	}
	if !programName.MatchString(name) {
		return fmt.Errorf("invalid program name: %s", name)
	}
	return nil
}

// validateFileName rejects shell metacharacters and traversal.
func validateFileName(path string) error {
	if path == "" {
		return fmt.Errorf("file path cannot be empty")
	}
	if strings.Contains(path, "..") {
		return fmt.Errorf("file path cannot contain '..'")
	}
	if strings.ContainsAny(path, ";|&$`\n") {
		return fmt.Errorf("file path contains invalid characters")
	}
	return nil
}

func validateFlag(flag string) error {
	if !flagName.MatchString(flag) {
		return fmt.Errorf("invalid flag: %q", flag)
	}
	return nil
}

// Command is a validated invocation waiting to be started.
type Command struct {
	ctx      context.Context
	cancel   context.CancelFunc
	name     string
	args     []string
	timeout  time.Duration
	executor Executor
}

// Build validates name and prepares a Command bounded by the default timeout.
// Callers must call Release once the command has finished.
func (sb *SafeBuilder) Build(ctx context.Context, name string, args ...string) (*Command, error) {
	if err := validateProgram(name); err != nil {
		return nil, err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, sb.defaultTimeout)
	return &Command{
		ctx:      timeoutCtx,
		cancel:   cancel,
		name:     name,
		args:     args,
		timeout:  sb.defaultTimeout,
		executor: sb.executor,
	}, nil
}

// WithTimeout replaces the timeout, capped at MaxTimeout. The parent context
// given to Build still applies.
func (c *Command) WithTimeout(parent context.Context, timeout time.Duration) *Command {
	if timeout <= 0 {
		return c
	}
	if timeout > MaxTimeout {
		timeout = MaxTimeout
	}

	c.cancel()
	c.ctx, c.cancel = context.WithTimeout(parent, timeout)
	c.timeout = timeout
	return c
}

// Timeout returns the effective timeout.
func (c *Command) Timeout() time.Duration {
	return c.timeout
}

// Context returns the context the command runs under.
func (c *Command) Context() context.Context {
	return c.ctx
}

// Validate validates specific arguments
func (sb *SafeBuilder) Validate(argType string, value string) error {
	validator, exists := sb.validators[argType]
	if !exists {
		return fmt.Errorf("no validator for argument type: %s", argType)
	}

	return validator(value)
}

// Exec creates and returns an exec.Cmd
func (c *Command) Exec() *exec.Cmd {
	return c.executor.CommandContext(c.ctx, c.name, c.args...) //nolint:gosec // SafeBuilder provides validation
}

// Release frees the timeout context.
func (c *Command) Release() {
	c.cancel()
}

// String renders the invocation for logs.
func (c *Command) String() string {
	return strings.TrimSpace(c.name + " " + strings.Join(c.args, " "))
}
