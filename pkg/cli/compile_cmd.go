package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"planql/internal/catalog"
	"planql/internal/compiler"
	"planql/internal/domain"
	"planql/internal/metricdef"
)

func newCompileCmd(catalogPath, metricsPath, output *string) *cobra.Command {
	var (
		planFile     string
		defaultLimit int
	)

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile a plan into a SQL statement",
		Long:  "Reads a plan as JSON from a file (or stdin with -f -) and prints the compiled SELECT statement.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := readPlanInput(planFile)
			if err != nil {
				return err
			}

			var plan domain.Plan
			if err := json.Unmarshal(raw, &plan); err != nil {
				return fmt.Errorf("decoding plan: %w", err)
			}

			snap, err := catalog.LoadFile(*catalogPath)
			if err != nil {
				return err
			}
			registry, err := metricdef.LoadFile(*metricsPath)
			if err != nil {
				return err
			}

			comp := compiler.New(registry, compiler.Options{DefaultLimit: defaultLimit}, nil)
			result, err := comp.Compile(snap, plan)
			if err != nil {
				return err
			}

			if *output == "sql" {
				fmt.Fprintln(os.Stdout, result.SQL)
				for _, note := range result.Notes {
					fmt.Fprintf(os.Stderr, "note: %s\n", note)
				}
				return nil
			}
			return printJSON(os.Stdout, result)
		},
	}

	cmd.Flags().StringVarP(&planFile, "file", "f", "-", "Plan JSON file (- for stdin)")
	cmd.Flags().IntVar(&defaultLimit, "default-limit", compiler.DefaultLimit, "LIMIT applied when the plan does not set one")

	return cmd
}

func readPlanInput(path string) ([]byte, error) {
	if path == "-" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading plan from stdin: %w", err)
		}
		return raw, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan file: %w", err)
	}
	return raw, nil
}
