package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grovetools/traceport/config"
	"github.com/grovetools/traceport/errors"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStandardCommandFlags(t *testing.T) {
	cmd := NewStandardCommand("traceport", "Convert and open RTOS traces")
	for _, name := range []string{"verbose", "json", "config"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "missing --%s", name)
	}

	require.NoError(t, cmd.ParseFlags([]string{"-v", "--json", "--config", "/tmp/x.yml"}))
	opts := GetOptions(cmd)
	assert.True(t, opts.Verbose)
	assert.True(t, opts.JSONOutput)
	assert.Equal(t, "/tmp/x.yml", opts.ConfigFile)
}

func TestInitConfigExportsExplicitPath(t *testing.T) {
	t.Setenv(config.EnvConfigFile, "")
	path := filepath.Join(t.TempDir(), "bench.yml")
	require.NoError(t, os.WriteFile(path, []byte("trace:\n  core_count: 2\n"), 0644))

	got, err := InitConfig(path)
	require.NoError(t, err)
	assert.Equal(t, path, got)
	assert.Equal(t, path, os.Getenv(config.EnvConfigFile))

	_, err = InitConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestRemediation(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{errors.EncoderNotFound("tband-cli", fmt.Errorf("not in PATH")), "encoder.command"},
		{errors.ConversionFailed(errors.EncoderNotFound("tband-cli", nil)), "encoder.command"},
		{errors.ConversionFailed(fmt.Errorf("exit status 2")), "--verbose"},
		{errors.HandoffBlocked("https://ui.perfetto.dev", nil), "ui.perfetto.dev"},
		{errors.NoPieces(), "-f"},
		{errors.StorageFailed("out", fmt.Errorf("denied")), "writable"},
		{fmt.Errorf("plain"), ""},
	}
	for _, tt := range tests {
		got := Remediation(tt.err)
		if tt.want == "" {
			assert.Empty(t, got)
			continue
		}
		assert.Contains(t, got, tt.want, "error %v", tt.err)
	}
}

func TestErrorHandlerVerbosePrintsDetails(t *testing.T) {
	var buf bytes.Buffer
	h := &ErrorHandler{Verbose: true, Out: &buf}

	err := errors.CoreIDOutOfRange(3, 2)
	assert.Equal(t, err, h.Handle(err))
	assert.Contains(t, buf.String(), "Error:")
	assert.Contains(t, buf.String(), "Error details:")
	assert.Nil(t, h.Handle(nil))
}

func TestStyledHelpSections(t *testing.T) {
	root := NewStandardCommand("traceport", "Convert and open RTOS traces")
	sub := &cobra.Command{
		Use:     "convert [flags] INPUT[@CORE]...",
		Short:   "Convert captured pieces into a Perfetto trace",
		Example: "# two cores\ntraceport convert -c 2 core0.hex@0 core1.hex@1",
		RunE:    func(*cobra.Command, []string) error { return nil },
	}
	sub.Flags().StringP("format", "f", "hex", "Input encoding")
	require.NoError(t, SetChoices(sub.Flags(), "format", "hex", "base64", "binary"))
	root.AddCommand(sub)
	ApplyStyledHelpRecursive(root)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"convert", "--help"})
	require.NoError(t, root.Execute())

	text := out.String()
	for _, want := range []string{"TRACEPORT CONVERT", "USAGE", "FLAGS", "--format", "EXAMPLES", "core0.hex@0"} {
		assert.Contains(t, text, want)
	}
	assert.Contains(t, text, "[hex|base64|binary]")
	assert.NotContains(t, text, "COMMANDS")
}

func TestChoicesInHelpAndCompletion(t *testing.T) {
	run := func(args ...string) string {
		root := NewStandardCommand("traceport", "Convert and open RTOS traces")
		sub := &cobra.Command{
			Use:  "convert",
			RunE: func(*cobra.Command, []string) error { return nil },
		}
		sub.Flags().StringP("mode", "m", "", "Trace mode")
		require.NoError(t, SetChoices(sub.Flags(), "mode", "freertos", "bare-metal"))
		assert.Error(t, SetChoices(sub.Flags(), "absent", "x"))
		root.AddCommand(sub)
		ApplyStyledHelpRecursive(root)

		var out bytes.Buffer
		root.SetOut(&out)
		root.SetArgs(args)
		require.NoError(t, root.Execute())
		return out.String()
	}

	help := run("convert", "--help")
	assert.Contains(t, help, "[freertos|bare-metal]")
	assert.Contains(t, help, "Global flags: ")

	completions := run(cobra.ShellCompRequestCmd, "convert", "--mode", "")
	assert.Contains(t, completions, "freertos")
	assert.Contains(t, completions, "bare-metal")
}

func TestWrapText(t *testing.T) {
	wrapped := wrapText(strings.Repeat("word ", 30), 20)
	for _, line := range strings.Split(wrapped, "\n") {
		assert.LessOrEqual(t, len(line), 20)
	}
}

func TestVersionCommandJSON(t *testing.T) {
	root := NewStandardCommand("traceport", "")
	root.AddCommand(NewVersionCommand("traceport"))

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version", "--json"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), `"version"`)
}
