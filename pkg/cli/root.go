// Package cli implements the planql command-line interface.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"planql/internal/domain"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			errObj := map[string]interface{}{
				"error": err.Error(),
				"kind":  domain.ErrorKind(err),
			}
			if candidates := domain.ErrorCandidates(err); len(candidates) > 0 {
				errObj["candidates"] = candidates
			}
			_ = printJSON(os.Stdout, errObj)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var (
		catalogPath string
		metricsPath string
		output      string
	)

	rootCmd := &cobra.Command{
		Use:           "planql",
		Short:         "Plan-to-SQL compiler CLI",
		Long:          "Compiles structured query plans into safe BigQuery SELECT statements.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Precedence: flag > env > default.
			if !cmd.Flags().Changed("catalog") {
				if v := os.Getenv("CATALOG_PATH"); v != "" {
					catalogPath = v
				}
			}
			if !cmd.Flags().Changed("metrics") {
				if v := os.Getenv("METRICS_PATH"); v != "" {
					metricsPath = v
				}
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "config/catalog.yaml", "Path to the catalog YAML file")
	rootCmd.PersistentFlags().StringVar(&metricsPath, "metrics", "config/metrics.yaml", "Path to the metric registry YAML file")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "json", "Output format (json, sql)")

	rootCmd.AddCommand(newCompileCmd(&catalogPath, &metricsPath, &output))
	rootCmd.AddCommand(newValidateCmd(&catalogPath, &metricsPath))
	rootCmd.AddCommand(newVersionCmd(&output))

	return rootCmd
}

func getOutputFormat(cmd *cobra.Command) string {
	output, _ := cmd.Root().PersistentFlags().GetString("output")
	return output
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
