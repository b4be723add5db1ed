package cmd

import (
	"context"
	"fmt"
	"net/http"
	"runtime"

	"github.com/grovetools/traceport/command"
	"github.com/grovetools/traceport/logging"
	"github.com/grovetools/traceport/pkg/handoff"
	"github.com/grovetools/traceport/pkg/profiling"
	"github.com/grovetools/traceport/pkg/serve"
	"github.com/grovetools/traceport/pkg/uilog"
	"github.com/grovetools/traceport/version"
	"github.com/spf13/cobra"
)

// browserExecutor launches the system URL opener.
var browserExecutor command.Executor = &command.RealExecutor{}

type openOptions struct {
	trace    traceFlags
	browser  bool
	noLaunch bool
}

// NewOpenCmd returns the open command.
func NewOpenCmd() *cobra.Command {
	opts := &openOptions{}
	cmd := &cobra.Command{
		Use:   "open [flags] INPUT[@CORE]...",
		Short: "Convert captured trace dumps and open the result in Perfetto",
		Long: `Convert the inputs like 'traceport convert' and hand the trace to the
Perfetto UI.

With viewer.endpoint configured the trace is delivered over the viewer
bridge: the viewer is probed until it answers, then receives the trace.
Otherwise, or with --browser, a temporary local server provides the trace
and the viewer is opened on a link that fetches it.`,
		Example: `# Open a single-core capture
traceport open dump.hex

# Serve the trace and print the viewer link without launching a browser
traceport open --browser --no-launch core0.hex@0 core1.hex@1`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			return runOpen(cmd, e, opts, args)
		},
	}

	opts.trace.register(cmd.Flags())
	cmd.Flags().BoolVar(&opts.browser, "browser", false, "Serve the trace locally and open a viewer link")
	cmd.Flags().BoolVar(&opts.noLaunch, "no-launch", false, "Print the viewer link instead of launching a browser")
	return cmd
}

func runOpen(cmd *cobra.Command, e *env, opts *openOptions, args []string) error {
	prefs, err := opts.trace.resolve(cmd.Flags(), e.cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	span := profiling.Start("load")
	pieces, err := e.loadPieces(args, prefs.Format)
	span.Stop()
	if err != nil {
		return err
	}
	session, err := newSession(prefs, pieces, cmd.Flags().Changed("core-count"))
	if err != nil {
		return err
	}
	span = profiling.Start("convert")
	data, err := e.invoker().Convert(ctx, session)
	span.Stop()
	if err != nil {
		return err
	}
	rememberPrefs(session, prefs.Format)

	if opts.browser || e.cfg.Viewer.Endpoint == "" {
		if !opts.browser {
			e.ui.Emit(uilog.LevelDebug, "No viewer endpoint configured, serving the trace locally.")
		}
		return serveAndOpen(ctx, e, data, true, !opts.noLaunch)
	}
	return handOff(ctx, e, data)
}

// handOff delivers data to the viewer over the configured bridge.
func handOff(ctx context.Context, e *env, data []byte) error {
	header := http.Header{}
	header.Set("User-Agent", version.UserAgent())
	opener := &handoff.WebSocketOpener{Endpoint: e.cfg.Viewer.Endpoint, Header: header}

	defer profiling.Start("handoff").Stop()
	h := handoff.New(opener, e.handoffConfig(), e.ui)
	session := h.Start(ctx, data)
	log.WithField("session", session.ID()).WithField("endpoint", e.cfg.Viewer.Endpoint).Debug("Viewer handoff started")
	return session.Wait(ctx)
}

// serveAndOpen provides data on the local trace server and points the
// viewer at it. A temporary server stops after the first download.
func serveAndOpen(ctx context.Context, e *env, data []byte, temporary, launch bool) error {
	srv := serve.New(logging.NewLogger("serve"), e.serveOptions(temporary))
	srv.SetTrace(data)
	if err := srv.Start(e.cfg.Serve.Addr); err != nil {
		return err
	}

	link := serve.Link(e.cfg.Viewer.Origin, srv.Addr())
	if launch {
		if err := launchBrowser(ctx, link); err != nil {
			e.ui.Emit(uilog.LevelWarn, fmt.Sprintf("Could not launch a browser (%v). Open the link manually.", err))
			fmt.Fprintln(e.out, link)
		} else {
			e.ui.Emit(uilog.LevelInfo, "Opened "+link)
		}
	} else {
		fmt.Fprintln(e.out, link)
	}

	if temporary {
		e.ui.Emit(uilog.LevelInfo, "Waiting for the viewer to fetch the trace...")
	} else {
		e.ui.Emit(uilog.LevelInfo, fmt.Sprintf("Serving trace on %s. Press Ctrl+C to stop.", srv.Addr()))
	}
	if err := srv.Wait(ctx); err != nil {
		return err
	}

	select {
	case <-srv.Served():
		e.ui.Emit(uilog.LevelSuccess, "Trace delivered to the viewer.")
	default:
	}
	return nil
}

// urlOpener names the program that opens a URL on this platform.
func urlOpener() string {
	if runtime.GOOS == "darwin" {
		return "open"
	}
	return "xdg-open"
}

func launchBrowser(ctx context.Context, link string) error {
	builder := command.NewSafeBuilderWithExecutor(browserExecutor)
	if err := builder.Validate("fileName", link); err != nil {
		return err
	}
	name := urlOpener()
	if _, err := browserExecutor.LookPath(name); err != nil {
		return fmt.Errorf("%s not found: %w", name, err)
	}

	c, err := builder.Build(ctx, name, link)
	if err != nil {
		return err
	}
	defer c.Release()
	log.WithField("command", c.String()).Debug("Launching browser")
	return c.Exec().Run()
}
