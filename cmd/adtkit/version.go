package main

import (
	"fmt"

	"github.com/aretw0/adtkit"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of adtkit",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "adtkit version %s\n", adtkit.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
