package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/quadrat"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of quadrat",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("quadrat version %s\n", strings.TrimSpace(quadrat.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
