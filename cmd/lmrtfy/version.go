package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/lmrtfy"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of lmrtfy",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "lmrtfy version %s\n", strings.TrimSpace(lmrtfy.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
