package main

import (
	"errors"
	"os"

	"github.com/grovetools/traceport/cli"
	"github.com/grovetools/traceport/cmd"
	"github.com/grovetools/traceport/tui"
)

func main() {
	tui.InitColorProfile()

	rootCmd := cmd.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, cmd.ErrUsage) {
			verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")
			cli.NewErrorHandler(verbose).Handle(err)
		}
		os.Exit(1)
	}
}
