package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/templui/fileshare/cmd/filectl/cmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "filectl",
		Short:        "Operations tooling for fileshare",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(cmd.MigrateCmd())
	rootCmd.AddCommand(cmd.UserCmd())
	rootCmd.AddCommand(cmd.ReconcileCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
