// Package cli implements the gridcli command set against the grid API.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var host string
	var output string

	rootCmd := &cobra.Command{
		Use:           "gridcli",
		Short:         "Grid API CLI",
		Long:          "Command-line interface for querying grids, facets, and selections.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			// Precedence: flag > env > default.
			if !cmd.Flags().Changed("host") {
				if v := os.Getenv("GRID_HOST"); v != "" {
					host = v
				}
			}
		},
	}
	// Accept snake_case spellings of the kebab-case flags.
	rootCmd.SetGlobalNormalizationFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	rootCmd.PersistentFlags().StringVar(&host, "host", "http://localhost:8080", "grid API host")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format: table or json")

	rootCmd.AddCommand(newQueryCmd(&host, &output))
	rootCmd.AddCommand(newFacetCmd(&host, &output))
	rootCmd.AddCommand(newSelectCmd(&host, &output))
	return rootCmd
}
