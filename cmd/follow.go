package cmd

import (
	"context"
	"fmt"

	"github.com/grovetools/traceport/pkg/capture"
	"github.com/grovetools/traceport/pkg/convert"
	"github.com/grovetools/traceport/pkg/decode"
	"github.com/grovetools/traceport/pkg/sink"
	"github.com/grovetools/traceport/pkg/trace"
	"github.com/grovetools/traceport/pkg/uilog"
	"github.com/grovetools/traceport/state"
	"github.com/spf13/cobra"
)

type followOptions struct {
	trace     traceFlags
	output    string
	location  string
	fromStart bool
	poll      bool
}

// NewFollowCmd returns the follow command.
func NewFollowCmd() *cobra.Command {
	opts := &followOptions{}
	cmd := &cobra.Command{
		Use:   "follow [flags] LOGFILE",
		Short: "Convert trace dumps as they appear in a console log",
		Long: `Tail a serial console log and pick up every trace dump printed between the
TRACE BEGIN and TRACE END markers. Dumps are assigned to cores in turn; once
every core has reported, the round is converted and saved.`,
		Example: `# Dual-core board logging to a file
traceport follow -c 2 /tmp/console.log

# Process a finished log from the beginning
traceport follow --from-start -f base64 capture.log`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			return runFollow(cmd, e, opts, args[0])
		},
	}

	opts.trace.register(cmd.Flags())
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file name (default from output.filename)")
	cmd.Flags().StringVar(&opts.location, "location", "", "Directory or bucket URL to write to")
	cmd.Flags().BoolVar(&opts.fromStart, "from-start", false, "Read the log from the beginning instead of only new lines")
	cmd.Flags().BoolVar(&opts.poll, "poll", false, "Poll the log instead of using file notifications")
	return cmd
}

func runFollow(cmd *cobra.Command, e *env, opts *followOptions, path string) error {
	prefs, err := opts.trace.resolve(cmd.Flags(), e.cfg)
	if err != nil {
		return err
	}
	if !prefs.Format.Textual() {
		return fmt.Errorf("follow reads text dumps; use --format hex or base64")
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

	r, err := newRound(prefs)
	if err != nil {
		return err
	}
	r.invoker = e.invoker()
	r.sink = sink.New(store, e.ui)
	r.filename = filename
	r.ui = e.ui

	follower := capture.NewFollower(path, decode.New(e.ui), capture.Options{
		Format:    prefs.Format,
		CoreCount: prefs.CoreCount,
		FromStart: opts.fromStart,
		Poll:      opts.poll,
	}, e.ui)

	e.ui.Emit(uilog.LevelInfo, fmt.Sprintf("Following %s for %d-core traces. Press Ctrl+C to stop.", path, prefs.CoreCount))
	return follower.Run(ctx, func(p trace.Piece) { r.add(ctx, p) })
}

// round collects one piece per core and converts once the last core has
// reported. A piece for core 0 starts a new round.
type round struct {
	session  *state.Session
	format   trace.Format
	invoker  *convert.Invoker
	sink     *sink.Sink
	filename string
	ui       uilog.Emitter
}

func newRound(prefs state.Prefs) (*round, error) {
	s := state.NewSession()
	if err := prefs.Apply(s); err != nil {
		return nil, err
	}
	return &round{session: s, format: prefs.Format}, nil
}

func (r *round) add(ctx context.Context, p trace.Piece) {
	if p.CoreID == 0 {
		r.session.Clear()
	}
	if err := r.session.AddPiece(p); err != nil {
		r.ui.Emit(uilog.LevelError, err.Error())
		return
	}
	if int(p.CoreID) != r.session.CoreCount()-1 {
		return
	}

	// Runs on the follower's goroutine, so the next block waits for it.
	data, err := r.invoker.Convert(ctx, r.session)
	if err != nil {
		return
	}
	r.sink.Save(ctx, data, r.filename)
	rememberPrefs(r.session, r.format)
}
