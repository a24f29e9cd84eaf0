package main

import (
	"fmt"

	"github.com/aretw0/relay"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of relay",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "relay version %s\n", relay.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
