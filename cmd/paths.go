package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/grovetools/traceport/pkg/paths"
	"github.com/grovetools/traceport/state"
	"github.com/spf13/cobra"
)

// PathsOutput represents the XDG-compliant paths used by traceport.
type PathsOutput struct {
	ConfigDir  string `json:"config_dir"`
	StateDir   string `json:"state_dir"`
	CacheDir   string `json:"cache_dir"`
	ConfigFile string `json:"config_file"`
	PrefsFile  string `json:"prefs_file"`
	LogDir     string `json:"log_dir"`
}

func NewPathsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paths",
		Short: "Print the XDG-compliant paths used by traceport",
		Long: `Print the XDG-compliant paths used by traceport as JSON.

- config_dir: global traceport.yml
- state_dir: remembered preferences and log files
- cache_dir: encoder scratch directories

Set TRACEPORT_HOME to move all of them under one directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := PathsOutput{
				ConfigDir:  paths.ConfigDir(),
				StateDir:   paths.StateDir(),
				CacheDir:   paths.CacheDir(),
				ConfigFile: paths.GlobalConfigFile(),
				PrefsFile:  state.PrefsPath(),
				LogDir:     filepath.Join(paths.StateDir(), "logs"),
			}

			jsonData, err := json.MarshalIndent(output, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal paths to JSON: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(jsonData))
			return nil
		},
	}

	return cmd
}
