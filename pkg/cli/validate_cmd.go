package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"planql/internal/catalog"
	"planql/internal/metricdef"
)

func newValidateCmd(catalogPath, metricsPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the catalog and metric registry files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := catalog.LoadFile(*catalogPath)
			if err != nil {
				return err
			}
			registry, err := metricdef.LoadFile(*metricsPath)
			if err != nil {
				return err
			}

			if getOutputFormat(cmd) == "json" {
				return printJSON(os.Stdout, map[string]interface{}{
					"catalog":       *catalogPath,
					"metrics":       *metricsPath,
					"default_table": snap.DefaultTable(),
					"tables":        snap.Tables(),
					"metric_names":  registry.Names(),
				})
			}
			fmt.Fprintf(os.Stdout, "catalog %s: %d table(s), default %s\n", *catalogPath, len(snap.Tables()), snap.DefaultTable())
			fmt.Fprintf(os.Stdout, "metrics %s: %d metric(s)\n", *metricsPath, len(registry.Names()))
			return nil
		},
	}
}
