package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root simvault command with all subcommands
// registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "simvault",
		Short:         "Near-duplicate similarity vault",
		Long:          "simvault stores embeddings alongside their metadata and serves near-duplicate checks, similarity search and anchored registration over HTTP.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")

	root.AddCommand(
		newServeCmd(),
		newVersionCmd(),
	)

	return root
}
