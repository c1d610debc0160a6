package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

// newRootCmd builds the command tree. Each call returns fresh flag state.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "nvctl",
		Short: "Neurovision offline tooling",
		Long: `nvctl inspects the region registry, answers questions the way the
assistant does, renders report exports and maintains the report archive of a
stopped server.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(newRegionsCmd(), newResolveCmd(), newReportCmd(), newArchiveCmd())
	return root
}

// Execute runs nvctl with os.Args.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
