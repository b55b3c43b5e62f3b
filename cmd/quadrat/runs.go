package main

import (
	"fmt"
	"os"

	"github.com/aretw0/quadrat/pkg/adapters/file"
	"github.com/aretw0/quadrat/pkg/session"
	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage stored experiment runs",
	Long:  `List, inspect, export, and remove runs stored under the local data directory.`,
}

var runsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all stored runs",
	Run: func(cmd *cobra.Command, args []string) {
		mgr := getRunManager(cmd)
		runs, err := mgr.Runs(cmd.Context())
		if err != nil {
			fmt.Printf("Error listing runs: %v\n", err)
			os.Exit(1)
		}

		if len(runs) == 0 {
			fmt.Println("No stored runs found.")
			return
		}

		fmt.Println("Stored Runs:")
		for _, r := range runs {
			fmt.Println("- " + r)
		}
	},
}

var runsInspectCmd = &cobra.Command{
	Use:   "inspect <run-id>",
	Short: "Print the records of a run as JSON",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		mgr := getRunManager(cmd)
		if err := mgr.ExportJSON(cmd.Context(), os.Stdout, args[0]); err != nil {
			fmt.Printf("Error loading run '%s': %v\n", args[0], err)
			os.Exit(1)
		}
	},
}

var runsExportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Export a run's records for analysis",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		format, _ := cmd.Flags().GetString("format")
		mgr := getRunManager(cmd)

		var err error
		switch format {
		case "csv":
			err = mgr.ExportCSV(cmd.Context(), os.Stdout, args[0])
		case "json":
			err = mgr.ExportJSON(cmd.Context(), os.Stdout, args[0])
		default:
			err = fmt.Errorf("unknown format: %s (supported: csv, json)", format)
		}
		if err != nil {
			fmt.Printf("Error exporting run '%s': %v\n", args[0], err)
			os.Exit(1)
		}
	},
}

var runsRmCmd = &cobra.Command{
	Use:   "rm <run-id>...",
	Short: "Remove one or more runs",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		mgr := getRunManager(cmd)
		hasError := false

		for _, runID := range args {
			if err := mgr.Delete(cmd.Context(), runID); err != nil {
				fmt.Printf("Error removing '%s': %v\n", runID, err)
				hasError = true
			} else {
				fmt.Printf("Removed run '%s'\n", runID)
			}
		}

		if hasError {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsLsCmd)
	runsCmd.AddCommand(runsInspectCmd)
	runsCmd.AddCommand(runsExportCmd)
	runsCmd.AddCommand(runsRmCmd)

	runsCmd.PersistentFlags().String("data-dir", "", "Directory of stored run files (default .quadrat/runs)")
	runsExportCmd.Flags().String("format", "csv", "Export format: 'csv' or 'json'")
}

func getRunManager(cmd *cobra.Command) *session.Manager {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	return session.NewManager(file.New(dataDir))
}
