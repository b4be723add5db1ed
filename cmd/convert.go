package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/grovetools/traceport/pkg/convert"
	"github.com/grovetools/traceport/pkg/input"
	"github.com/grovetools/traceport/pkg/profiling"
	"github.com/grovetools/traceport/pkg/sink"
	"github.com/grovetools/traceport/pkg/uilog"
	"github.com/grovetools/traceport/pkg/watch"
	"github.com/grovetools/traceport/state"
	"github.com/spf13/cobra"
)

type convertOptions struct {
	trace    traceFlags
	output   string
	location string
	watch    bool
}

// ConvertResult is printed by convert --json.
type ConvertResult struct {
	Output    string `json:"output"`
	Bytes     int    `json:"bytes"`
	Pieces    int    `json:"pieces"`
	CoreCount int    `json:"core_count"`
	Mode      string `json:"mode"`
}

// NewConvertCmd returns the convert command.
func NewConvertCmd() *cobra.Command {
	opts := &convertOptions{}
	cmd := &cobra.Command{
		Use:   "convert [flags] INPUT[@CORE]...",
		Short: "Convert captured trace dumps into a Perfetto trace file",
		Long: `Decode one or more captured trace dumps and convert them into a single
Perfetto trace with the configured encoder.

Each input names a file and, optionally, the core it was captured on. Use
"-" to read standard input. Files ending in .zst are decompressed first.`,
		Example: `# Single-core FreeRTOS capture
traceport convert dump.hex

# Dual-core bare-metal capture saved under a custom name
traceport convert -m bare-metal -c 2 -o boot.pftrace core0.hex@0 core1.hex@1

# Re-convert whenever the inputs change
traceport convert --watch core0.hex@0`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			return runConvert(cmd, e, opts, args)
		},
	}

	opts.trace.register(cmd.Flags())
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file name (default from output.filename)")
	cmd.Flags().StringVar(&opts.location, "location", "", "Directory or bucket URL to write to")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Re-convert when an input file changes")
	return cmd
}

func runConvert(cmd *cobra.Command, e *env, opts *convertOptions, args []string) error {
	prefs, err := opts.trace.resolve(cmd.Flags(), e.cfg)
	if err != nil {
		return err
	}

	filename := opts.output
	if filename == "" {
		filename = e.cfg.Output.Filename
	}
	location := opts.location
	if location == "" {
		location = e.cfg.Output.Location
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	store, err := sink.Open(ctx, location)
	if err != nil {
		return err
	}
	defer store.Close()

	c := &converter{
		env:        e,
		prefs:      prefs,
		fixedCores: cmd.Flags().Changed("core-count"),
		invoker:    e.invoker(),
		sink:       sink.New(store, e.ui),
		filename:   filename,
	}

	if !opts.watch {
		return c.run(ctx, args)
	}

	if err := c.run(ctx, args); err != nil {
		e.ui.Emit(uilog.LevelWarn, "Initial conversion failed: "+err.Error())
	}
	return c.watch(ctx, args)
}

// converter runs decode, convert and save for one set of arguments. The
// invoker is shared by every run so the encoder log is set up once.
type converter struct {
	env        *env
	prefs      state.Prefs
	fixedCores bool
	invoker    *convert.Invoker
	sink       *sink.Sink
	filename   string
}

func (c *converter) run(ctx context.Context, args []string) error {
	span := profiling.Start("load")
	pieces, err := c.env.loadPieces(args, c.prefs.Format)
	span.Stop()
	if err != nil {
		return err
	}
	session, err := newSession(c.prefs, pieces, c.fixedCores)
	if err != nil {
		return err
	}

	span = profiling.Start("convert")
	data, err := c.invoker.Convert(ctx, session)
	span.Stop()
	if err != nil {
		return err
	}

	span = profiling.Start("save")
	where, err := c.sink.SaveTo(ctx, data, c.filename)
	span.Stop()
	if err != nil {
		return err
	}
	rememberPrefs(session, c.prefs.Format)

	if c.env.opts.JSONOutput {
		snap := session.Snapshot()
		out, err := json.MarshalIndent(ConvertResult{
			Output:    where,
			Bytes:     len(data),
			Pieces:    len(snap.Pieces),
			CoreCount: snap.CoreCount,
			Mode:      snap.Mode.String(),
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(c.env.out, string(out))
	}
	return nil
}

// watch re-runs the conversion after every debounced change to an input
// file until ctx ends. Failures are reported and watching continues.
func (c *converter) watch(ctx context.Context, args []string) error {
	var files []string
	for _, arg := range args {
		spec, err := input.ParseSpec(arg)
		if err != nil {
			return err
		}
		if spec.Path == "-" {
			return fmt.Errorf("cannot watch standard input")
		}
		files = append(files, spec.Path)
	}

	changes := make(chan string, 1)
	w, err := watch.NewWatcher(files, c.env.cfg.Watch.Debounce(), func(path string) {
		select {
		case changes <- path:
		default:
		}
	})
	if err != nil {
		return err
	}
	go w.Start(ctx)

	c.env.ui.Emit(uilog.LevelInfo, fmt.Sprintf("Watching %d input(s) for changes. Press Ctrl+C to stop.", len(files)))
	for {
		select {
		case <-ctx.Done():
			return nil
		case path := <-changes:
			c.env.ui.Emit(uilog.LevelInfo, fmt.Sprintf("%s changed, converting.", path))
			if err := c.run(ctx, args); err != nil {
				c.env.ui.Emit(uilog.LevelWarn, "Conversion failed, waiting for the next change: "+err.Error())
			}
		}
	}
}
