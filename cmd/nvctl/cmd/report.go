package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"neurovision/pkg/registry"
	"neurovision/pkg/report"
	"neurovision/pkg/timeutil"
)

func newReportCmd() *cobra.Command {
	var outDir string
	var at string
	c := &cobra.Command{
		Use:   "report <region-id>",
		Short: "Render the text export for a region",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := registry.Default()
			if !reg.Has(args[0]) {
				return fmt.Errorf("unknown region %q", args[0])
			}
			when := timeutil.Now()
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("invalid --at: %w", err)
				}
				when = t
			}
			body := report.Render(report.New(reg.Lookup(args[0]), when), when)
			if outDir == "" {
				_, err := cmd.OutOrStdout().Write(body)
				return err
			}
			path := filepath.Join(outDir, report.Filename(when))
			if err := os.WriteFile(path, body, 0o644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	c.Flags().StringVar(&outDir, "out-dir", "", "write the export into this directory instead of stdout")
	c.Flags().StringVar(&at, "at", "", "timestamp to stamp the report with (RFC3339, default now)")
	return c
}
