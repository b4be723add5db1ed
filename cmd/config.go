package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/grovetools/traceport/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCmd returns the config command.
func NewConfigCmd() *cobra.Command {
	var schema bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the merged configuration for the current directory",
		Long: `Shows the configuration every command would use, after merging:
1. Global config (~/.config/traceport/traceport.yml)
2. Project config (traceport.yml, searched upward)
3. Override files (traceport.override.yml)
This is useful for debugging configuration issues.`,
		Example: `traceport config
traceport config --schema > traceport.schema.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if schema {
				data, err := config.GenerateSchema()
				if err != nil {
					return fmt.Errorf("failed to generate schema: %w", err)
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			if e.opts.JSONOutput {
				// Round-trip through YAML so keys match traceport.yml.
				raw, err := yaml.Marshal(e.cfg)
				if err != nil {
					return err
				}
				var doc map[string]interface{}
				if err := yaml.Unmarshal(raw, &doc); err != nil {
					return err
				}
				data, err := json.MarshalIndent(doc, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			if len(e.cfg.Sources) == 0 {
				fmt.Fprintln(out, "# Source: built-in defaults")
			}
			for _, src := range e.cfg.Sources {
				fmt.Fprintf(out, "# Source: %s\n", src)
			}
			data, err := yaml.Marshal(e.cfg)
			if err != nil {
				return err
			}
			fmt.Fprint(out, string(data))
			return nil
		},
	}

	cmd.Flags().BoolVar(&schema, "schema", false, "Print the JSON schema for traceport.yml")
	return cmd
}
