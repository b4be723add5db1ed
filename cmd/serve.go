package cmd

import (
	"github.com/grovetools/traceport/pkg/decode"
	"github.com/grovetools/traceport/pkg/input"
	"github.com/spf13/cobra"
)

// NewServeCmd returns the serve command.
func NewServeCmd() *cobra.Command {
	var (
		addr     string
		open     bool
		once     bool
		noLaunch bool
	)

	cmd := &cobra.Command{
		Use:   "serve [flags] TRACE",
		Short: "Serve a converted trace to the Perfetto UI",
		Long: `Serve an already converted trace file over HTTP so the Perfetto UI can
fetch it. The server answers cross-origin requests from viewer.origin only.`,
		Example: `# Serve until interrupted and open the viewer
traceport serve --open trace.pftrace

# Stop after the viewer has downloaded the trace once
traceport serve --once trace.pftrace.zst`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			if addr != "" {
				e.cfg.Serve.Addr = addr
			}

			loader, err := input.NewLoader(decode.New(e.ui))
			if err != nil {
				return err
			}
			loader.Stdin = e.in
			data, err := loader.Read(args[0])
			loader.Close()
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			return serveAndOpen(ctx, e, data, once, open && !noLaunch)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from serve.addr)")
	cmd.Flags().BoolVar(&open, "open", false, "Open the viewer on the served trace")
	cmd.Flags().BoolVar(&once, "once", false, "Stop after the trace has been downloaded")
	cmd.Flags().BoolVar(&noLaunch, "no-launch", false, "With --open, print the link instead of launching a browser")
	return cmd
}
