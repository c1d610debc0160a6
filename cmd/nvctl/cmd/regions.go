package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"neurovision/pkg/models"
	"neurovision/pkg/registry"
	"neurovision/pkg/report"
	"neurovision/pkg/resolver"
)

func newRegionsCmd() *cobra.Command {
	var format string
	c := &cobra.Command{
		Use:   "regions [region-id]",
		Short: "List regions or show one finding record",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := registry.Default()
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				id := args[0]
				if !reg.Has(id) {
					return fmt.Errorf("unknown region %q", id)
				}
				rec := reg.Lookup(id)
				if format != formatText {
					return encode(out, format, rec)
				}
				printRecord(cmd, rec)
				return nil
			}

			ids := reg.Regions()
			if format != formatText {
				recs := make([]models.FindingRecord, 0, len(ids))
				for _, id := range ids {
					recs = append(recs, reg.Lookup(id))
				}
				return encode(out, format, recs)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "REGION\tCONDITION\tCLASSIFICATION\tSEVERITY")
			for _, id := range ids {
				rec := reg.Lookup(id)
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", id, rec.ConditionName, rec.Classification, rec.Severity)
			}
			return tw.Flush()
		},
	}
	c.Flags().StringVarP(&format, "output", "o", formatText, "output format: text, json or yaml")
	return c
}

func printRecord(cmd *cobra.Command, rec models.FindingRecord) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Region:          %s\n", resolver.RegionName(rec.RegionID))
	fmt.Fprintf(out, "Condition:       %s\n", rec.ConditionName)
	fmt.Fprintf(out, "Classification:  %s (%s)\n", rec.Classification, report.ToneOf(rec.Classification))
	fmt.Fprintf(out, "Severity:        %s\n", rec.Severity)
	fmt.Fprintln(out, "Symptoms:")
	for _, s := range rec.Symptoms {
		fmt.Fprintf(out, "  - %s\n", s)
	}
	fmt.Fprintln(out, "Recommendations:")
	for _, r := range rec.Recommendations {
		fmt.Fprintf(out, "  - %s\n", r)
	}
}
