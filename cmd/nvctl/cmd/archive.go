package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"neurovision/pkg/report"
	"neurovision/pkg/state"
	"neurovision/pkg/store"
	"neurovision/pkg/timeutil"
)

// openArchive opens the archive under a data path. The server must be
// stopped; pebble holds an exclusive lock.
var openArchive = func(dataPath string) (*store.Store, error) {
	return store.Open(state.PathsFor(dataPath).Store, store.Options{})
}

func newArchiveCmd() *cobra.Command {
	var dataPath string
	c := &cobra.Command{
		Use:   "archive",
		Short: "Inspect and purge the report archive of a stopped server",
	}
	c.PersistentFlags().StringVarP(&dataPath, "data", "d", "./.neurovision", "server data directory")
	c.AddCommand(
		newArchiveListCmd(&dataPath),
		newArchiveShowCmd(&dataPath),
		newArchivePurgeCmd(&dataPath),
	)
	return c
}

func newArchiveListCmd(dataPath *string) *cobra.Command {
	var limit int
	var format string
	c := &cobra.Command{
		Use:   "list",
		Short: "List archived reports, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openArchive(*dataPath)
			if err != nil {
				return err
			}
			defer st.Close()
			recs, err := st.ListReports(limit)
			if err != nil {
				return err
			}
			if format != formatText {
				return encode(cmd.OutOrStdout(), format, recs)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tREGION\tCLASSIFICATION\tGENERATED")
			for _, r := range recs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.Report.RegionID, r.Report.Classification,
					humanize.RelTime(r.Report.GeneratedAt, timeutil.Now(), "ago", "from now"))
			}
			return tw.Flush()
		},
	}
	c.Flags().IntVarP(&limit, "limit", "n", 20, "maximum reports to list (0 for all)")
	c.Flags().StringVarP(&format, "output", "o", formatText, "output format: text, json or yaml")
	return c
}

func newArchiveShowCmd(dataPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <report-id>",
		Short: "Print an archived report as its text export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openArchive(*dataPath)
			if err != nil {
				return err
			}
			defer st.Close()
			rec, err := st.GetReport(args[0])
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("report %s not found", args[0])
			}
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(report.Render(rec.Report, rec.Report.GeneratedAt))
			return err
		},
	}
}

func newArchivePurgeCmd(dataPath *string) *cobra.Command {
	var olderThan time.Duration
	var dryRun bool
	c := &cobra.Command{
		Use:   "purge",
		Short: "Delete archived reports older than a duration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			st, err := openArchive(*dataPath)
			if err != nil {
				return err
			}
			defer st.Close()
			cutoff := timeutil.Now().Add(-olderThan)
			res, err := st.PurgeBefore(cutoff, dryRun)
			if err != nil {
				return err
			}
			verb := "deleted"
			n := res.Deleted
			if res.DryRun {
				verb = "would delete"
				n = res.Matched
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s report(s) generated before %s\n",
				verb, humanize.Comma(int64(n)), cutoff.UTC().Format(time.RFC3339))
			return nil
		},
	}
	c.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "purge reports older than this")
	c.Flags().BoolVar(&dryRun, "dry-run", false, "count matching reports without deleting")
	return c
}
