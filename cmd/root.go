package cmd

import (
	stderrors "errors"

	"github.com/grovetools/traceport/cli"
	"github.com/grovetools/traceport/pkg/profiling"
	"github.com/spf13/cobra"
)

// ErrUsage is returned for flag errors that have already been reported
// together with a usage hint.
var ErrUsage = stderrors.New("usage error")

// NewRootCmd assembles the traceport command tree.
func NewRootCmd() *cobra.Command {
	root := cli.NewStandardCommand(
		"traceport",
		"Convert RTOS trace captures and open them in Perfetto",
	)
	root.Long = `Decode hex, base64 or binary trace dumps captured from FreeRTOS or
bare-metal targets, convert them into Perfetto traces and hand them to the
Perfetto UI.`

	profiler := profiling.NewCobraProfiler()
	profiler.AddFlags(root)
	root.PersistentPreRunE = profiler.PreRun
	root.PersistentPostRun = profiler.PostRun

	root.AddCommand(NewConvertCmd())
	root.AddCommand(NewOpenCmd())
	root.AddCommand(NewServeCmd())
	root.AddCommand(NewFollowCmd())
	root.AddCommand(NewConfigCmd())
	root.AddCommand(NewPathsCmd())
	root.AddCommand(cli.NewVersionCommand("traceport"))

	root.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		cli.PrintError(c, err)
		return ErrUsage
	})

	cli.ApplyStyledHelpRecursive(root)
	return root
}
