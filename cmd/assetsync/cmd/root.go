// Package cmd implements the assetsync command tree.
package cmd

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ferrumhealth/assetsync/pkg/logging"
)

var (
	configFile string
	verbose    bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "assetsync",
		Short: "Reconcile hardware inventory into the asset-of-record service",
		Long: `assetsync binds candidate hardware observations from upstream inventory
sources to records in the asset-of-record service, merges new evidence into
them, and writes back only what changed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default: environment only)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newSyncCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the command tree.
func Execute(ctx context.Context, version, commit, date string) error {
	buildVersion, buildCommit, buildDate = version, commit, date

	root := newRootCmd()
	root.SetContext(logging.WithLogger(ctx, logging.Default()))
	return root.ExecuteContext(root.Context())
}
