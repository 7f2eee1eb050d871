package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eringen/pubdraft"
)

// Version is set during build with -ldflags
var version = "dev"

var (
	configPath string
	owner      string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pubdraft",
		Short: "Article draft editor service",
		Long: `pubdraft hosts the article draft editor: one editing session per client,
autosaved drafts, image uploads and article submission for review.

Run 'pubdraft serve' to start the server, or use the draft commands to
inspect and submit a saved draft from the terminal.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c",
		pubdraft.EnvOr("PUBDRAFT_CONFIG", "pubdraft.toml"), "Config file (TOML or YAML)")
	root.PersistentFlags().StringVar(&owner, "owner", "local", "Draft owner id in the store")

	root.AddCommand(newServeCommand())
	root.AddCommand(newDraftCommand())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number of pubdraft",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pubdraft version %s\n", version)
		},
	})
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
