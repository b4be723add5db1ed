// Package cmd implements the traceport subcommands.
package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/grovetools/traceport/cli"
	"github.com/grovetools/traceport/config"
	"github.com/grovetools/traceport/errors"
	"github.com/grovetools/traceport/logging"
	"github.com/grovetools/traceport/pkg/convert"
	"github.com/grovetools/traceport/pkg/decode"
	"github.com/grovetools/traceport/pkg/handoff"
	"github.com/grovetools/traceport/pkg/input"
	"github.com/grovetools/traceport/pkg/paths"
	"github.com/grovetools/traceport/pkg/serve"
	"github.com/grovetools/traceport/pkg/trace"
	"github.com/grovetools/traceport/pkg/uilog"
	"github.com/grovetools/traceport/state"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var log = logging.NewLogger("cmd")

// env is what a command needs once its flags are parsed: the merged
// configuration and a UI log channel rendered to stderr.
type env struct {
	cfg    *config.Config
	opts   cli.CommandOptions
	ui     *uilog.Channel
	out    io.Writer
	in     io.Reader
	detach func()
}

func setup(cmd *cobra.Command) (*env, error) {
	cfg, err := cli.LoadConfig(cmd)
	if err != nil {
		return nil, err
	}
	opts := cli.GetOptions(cmd)

	ui := uilog.NewChannel()
	sink := logging.NewUISink("cli", cmd.ErrOrStderr())
	sink.SetVerbose(opts.Verbose)

	return &env{
		cfg:    cfg,
		opts:   opts,
		ui:     ui,
		out:    cmd.OutOrStdout(),
		in:     cmd.InOrStdin(),
		detach: sink.Attach(ui),
	}, nil
}

func (e *env) close() {
	if e.detach != nil {
		e.detach()
	}
}

// invoker builds the conversion pipeline for the configured encoder.
func (e *env) invoker() *convert.Invoker {
	enc := convert.NewExecEncoder(e.cfg.Encoder.Command, e.cfg.Encoder.Args, e.cfg.Encoder.Timeout(), nil)
	if dir := paths.CacheDir(); dir != "" && os.MkdirAll(dir, 0755) == nil {
		enc.WorkDir = dir
	}
	return convert.NewInvoker(enc, e.ui)
}

func (e *env) handoffConfig() handoff.Config {
	return handoff.Config{
		Origin:        e.cfg.Viewer.Origin,
		ProbeInterval: e.cfg.Viewer.ProbeInterval(),
		Title:         e.cfg.Viewer.Title,
		URL:           e.cfg.Viewer.URL,
	}
}

func (e *env) serveOptions(temporary bool) serve.Options {
	return serve.Options{
		Origin:    e.cfg.Viewer.Origin,
		Temporary: temporary,
		Grace:     e.cfg.Serve.Grace(),
	}
}

// loadPieces reads and decodes path[@core] arguments.
func (e *env) loadPieces(args []string, format trace.Format) ([]trace.Piece, error) {
	loader, err := input.NewLoader(decode.New(e.ui))
	if err != nil {
		return nil, err
	}
	defer loader.Close()
	loader.Stdin = e.in
	return loader.LoadAll(args, format)
}

// traceFlags are the session settings shared by convert, open and follow.
type traceFlags struct {
	format    string
	mode      string
	coreCount int
}

func (f *traceFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.format, "format", "f", "", "Input encoding")
	fs.StringVarP(&f.mode, "mode", "m", "", "Trace mode")
	fs.IntVarP(&f.coreCount, "core-count", "c", 0, "Number of cores in the trace")
	_ = cli.SetChoices(fs, "format", "hex", "base64", "binary")
	_ = cli.SetChoices(fs, "mode", "freertos", "bare-metal")
}

// resolve picks the session settings. Flags win. Without a configuration
// file the preferences saved by the previous run are used, otherwise the
// configuration's trace section.
func (f *traceFlags) resolve(flags *pflag.FlagSet, cfg *config.Config) (state.Prefs, error) {
	prefs := state.DefaultPrefs()
	if len(cfg.Sources) > 0 {
		mode, err := cfg.Trace.ParsedMode()
		if err != nil {
			return prefs, err
		}
		format, err := cfg.Trace.ParsedFormat()
		if err != nil {
			return prefs, err
		}
		prefs = state.Prefs{Mode: mode, CoreCount: cfg.Trace.CoreCount, Format: format}
	} else if saved, err := state.LoadPrefs(state.PrefsPath()); err != nil {
		log.WithError(err).Warn("Ignoring unreadable preferences")
	} else {
		prefs = saved
	}

	if flags.Changed("format") {
		format, err := trace.ParseFormat(f.format)
		if err != nil {
			return prefs, err
		}
		prefs.Format = format
	}
	if flags.Changed("mode") {
		mode, err := trace.ParseMode(f.mode)
		if err != nil {
			return prefs, err
		}
		prefs.Mode = mode
	}
	if flags.Changed("core-count") {
		if f.coreCount < 1 {
			return prefs, errors.CoreCountInvalid(f.coreCount)
		}
		prefs.CoreCount = f.coreCount
	}
	return prefs, nil
}

// newSession applies prefs and adds pieces in order. Unless the core count
// was fixed on the command line it grows to cover the highest core id.
func newSession(prefs state.Prefs, pieces []trace.Piece, fixedCores bool) (*state.Session, error) {
	if !fixedCores {
		for _, p := range pieces {
			if int64(p.CoreID) >= int64(prefs.CoreCount) {
				prefs.CoreCount = int(p.CoreID) + 1
			}
		}
	}

	s := state.NewSession()
	if err := prefs.Apply(s); err != nil {
		return nil, err
	}
	for _, p := range pieces {
		if err := s.AddPiece(p); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// rememberPrefs saves the settings of a successful run.
func rememberPrefs(s *state.Session, format trace.Format) {
	if err := state.SavePrefs(state.PrefsPath(), state.PrefsFrom(s, format)); err != nil {
		log.WithError(err).Debug("Failed to save preferences")
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(stop)
		select {
		case <-stop:
			log.Info("Received stop signal")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
