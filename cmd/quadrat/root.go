package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "quadrat",
	Short: "Quadrat is a timeline execution engine for behavioral experiments",
	Long:  `Quadrat presents a declared sequence of trials to a participant and records structured observations about each one.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("timeline", "t", "timeline.yaml", "Path to the timeline definition")
}
