package command

import (
	"context"
	"testing"
	"time"
)

func TestValidateProgram(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"bare name", "tband-cli", false},
		{"absolute path", "/opt/tband/bin/tband-cli", false},
		{"relative path", "./bin/encoder", true},
		{"versioned", "tband-cli2.1", false},
		{"empty", "", true},
		{"shell injection", "tband; rm -rf /", true},
		{"spaces", "tband cli", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateProgram(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateProgram(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateFileName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid path", "/tmp/trace/piece-0.bin", false},
		{"relative path", "traces/core1.bin", false},
		{"directory traversal", "../../etc/passwd", true},
		{"command injection semicolon", "file.bin; rm -rf /", true},
		{"command injection pipe", "file.bin | cat", true},
		{"command injection dollar", "$(whoami)", true},
		{"command injection backtick", "`whoami`", true},
		{"empty path", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFileName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateFileName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestSafeBuilder_Build(t *testing.T) {
	sb := NewSafeBuilder()
	ctx := context.Background()

	t.Run("valid command", func(t *testing.T) {
		cmd, err := sb.Build(ctx, "echo", "hello")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer cmd.Release()
		if cmd.name != "echo" {
			t.Errorf("expected command name 'echo', got %q", cmd.name)
		}
		if len(cmd.args) != 1 || cmd.args[0] != "hello" {
			t.Errorf("expected args ['hello'], got %v", cmd.args)
		}
		if cmd.String() != "echo hello" {
			t.Errorf("String() = %q", cmd.String())
		}
	})

	t.Run("empty command name", func(t *testing.T) {
		_, err := sb.Build(ctx, "")
		if err == nil {
			t.Error("expected error for empty command name")
		}
	})
}

func TestSafeBuilder_Validate(t *testing.T) {
	sb := NewSafeBuilder()

	if err := sb.Validate("flag", "--core-count"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := sb.Validate("flag", "core-count"); err == nil {
		t.Error("expected error for flag without dashes")
	}
	if err := sb.Validate("unknownType", "value"); err == nil {
		t.Error("expected error for unknown validator type")
	}
}

func TestCommand_WithTimeout(t *testing.T) {
	sb := NewSafeBuilder()
	ctx := context.Background()

	cmd, err := sb.Build(ctx, "sleep", "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cmd.Release()

	if cmd.Timeout() != DefaultTimeout {
		t.Errorf("expected default timeout %v, got %v", DefaultTimeout, cmd.Timeout())
	}

	cmd = cmd.WithTimeout(ctx, time.Second)
	if cmd.Timeout() != time.Second {
		t.Errorf("expected timeout 1s, got %v", cmd.Timeout())
	}

	cmd = cmd.WithTimeout(ctx, 20*time.Minute)
	if cmd.Timeout() != MaxTimeout {
		t.Errorf("expected timeout to be capped at %v, got %v", MaxTimeout, cmd.Timeout())
	}

	cmd = cmd.WithTimeout(ctx, 0)
	if cmd.Timeout() != MaxTimeout {
		t.Errorf("zero timeout must keep the previous value, got %v", cmd.Timeout())
	}
}

func TestCommandTimeout(t *testing.T) {
	sb := NewSafeBuilder()
	ctx := context.Background()

	cmd, err := sb.Build(ctx, "sleep", "10")
	if err != nil {
		t.Fatal(err)
	}
	defer cmd.Release()

	cmd = cmd.WithTimeout(ctx, 100*time.Millisecond)

	start := time.Now()
	err = cmd.Exec().Run()
	duration := time.Since(start)

	if err == nil {
		t.Error("expected timeout error")
	}
	if duration > 2*time.Second {
		t.Errorf("command took too long to timeout: %v", duration)
	}
}
