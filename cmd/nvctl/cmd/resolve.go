package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"neurovision/pkg/registry"
	"neurovision/pkg/resolver"
)

func newResolveCmd() *cobra.Command {
	var region string
	var showIntent bool
	c := &cobra.Command{
		Use:   "resolve <question...>",
		Short: "Answer a question about a region",
		Example: `  nvctl resolve --region cerebellum what are the symptoms
  nvctl resolve -r temporal_lobe --intent show me the scan`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			intent, answer := resolver.New(registry.Default()).ResolveIntent(text, region)
			if showIntent {
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] ", intent)
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}
	c.Flags().StringVarP(&region, "region", "r", registry.DefaultRegionID, "region id (unknown ids use the default record)")
	c.Flags().BoolVar(&showIntent, "intent", false, "prefix the answer with the matched intent")
	return c
}
