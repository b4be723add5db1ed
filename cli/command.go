// Package cli holds the pieces shared by every traceport command: standard
// flags, styled help, error reporting and the UI log wiring.
package cli

import (
	"os"

	"github.com/grovetools/traceport/config"
	"github.com/grovetools/traceport/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// CommandOptions holds the standard persistent flags.
type CommandOptions struct {
	ConfigFile string
	Verbose    bool
	JSONOutput bool
}

// NewStandardCommand creates a new command with standard traceport flags
func NewStandardCommand(use, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	cmd.PersistentFlags().String("config", "", "Path to traceport.yml config file")

	cmd.SetHelpFunc(styledHelpFunc)

	return cmd
}

// GetOptions extracts common options from a command
func GetOptions(cmd *cobra.Command) CommandOptions {
	configFile, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	return CommandOptions{
		ConfigFile: configFile,
		Verbose:    verbose,
		JSONOutput: jsonOutput,
	}
}

// GetLogger returns the CLI component logger adjusted for --verbose and --json.
func GetLogger(cmd *cobra.Command) *logrus.Entry {
	entry := logging.NewLogger("cli")
	opts := GetOptions(cmd)
	if opts.Verbose {
		entry.Logger.SetLevel(logrus.DebugLevel)
	}
	if opts.JSONOutput {
		entry.Logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return entry
}

// InitConfig resolves the configuration file path. An explicit --config path
// is exported through TRACEPORT_CONFIG so every later config lookup in the
// process, including the loggers', sees the same file. Returns "" when no
// file exists; that is not an error.
func InitConfig(configFile string) (string, error) {
	if configFile != "" {
		if _, err := os.Stat(configFile); err != nil {
			return "", err
		}
		if err := os.Setenv(config.EnvConfigFile, configFile); err != nil {
			return "", err
		}
		return configFile, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	found, err := config.FindConfigFile(cwd)
	if err != nil {
		return "", nil
	}
	return found, nil
}

// LoadConfig applies --config and loads the merged configuration.
func LoadConfig(cmd *cobra.Command) (*config.Config, error) {
	if _, err := InitConfig(GetOptions(cmd).ConfigFile); err != nil {
		return nil, err
	}
	return config.LoadDefault()
}
