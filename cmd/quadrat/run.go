package main

import (
	"fmt"
	"os"

	"github.com/aretw0/quadrat/internal/cli"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [timeline]",
	Short: "Run the experiment interactively",
	Long:  `Loads the timeline definition and presents it to the participant on the terminal, recording one structured observation per trial.`,
	Run: func(cmd *cobra.Command, args []string) {
		timelinePath, _ := cmd.Flags().GetString("timeline")
		if !cmd.Flags().Changed("timeline") && len(args) > 0 {
			timelinePath = args[0]
		}

		opts := cli.RunOptions{
			TimelinePath: timelinePath,
		}
		opts.RunID, _ = cmd.Flags().GetString("run-id")
		opts.Watch, _ = cmd.Flags().GetBool("watch")
		opts.Plain, _ = cmd.Flags().GetBool("plain")
		opts.Debug, _ = cmd.Flags().GetBool("debug")
		opts.JSONLogs, _ = cmd.Flags().GetBool("json-logs")
		opts.RedisURL, _ = cmd.Flags().GetString("redis")
		opts.DataDir, _ = cmd.Flags().GetString("data-dir")
		opts.HTTPAddr, _ = cmd.Flags().GetString("serve")
		opts.MaskPII, _ = cmd.Flags().GetStringSlice("mask")
		opts.PresentersPath, _ = cmd.Flags().GetString("presenters")
		opts.Seed, _ = cmd.Flags().GetUint64("seed")
		opts.SeedSet = cmd.Flags().Changed("seed")

		if err := cli.Execute(opts); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("run-id", "", "Persistence key for this run (generated when unset)")
	runCmd.Flags().Uint64("seed", 0, "Seed for deterministic sampling and shuffling")
	runCmd.Flags().BoolP("watch", "w", false, "Restart the run whenever the timeline file changes")
	runCmd.Flags().Bool("plain", false, "Disable the banner and markdown rendering")
	runCmd.Flags().Bool("debug", false, "Enable debug logging to stderr")
	runCmd.Flags().Bool("json-logs", false, "Emit debug logs as JSON")
	runCmd.Flags().String("redis", "", "Redis URL for record persistence (local files when unset)")
	runCmd.Flags().String("data-dir", "", "Directory for local run files (default .quadrat/runs)")
	runCmd.Flags().String("serve", "", "Expose the control API on this address (e.g. :8080)")
	runCmd.Flags().StringSlice("mask", nil, "Record keys to mask before persistence (PII)")
	runCmd.Flags().String("presenters", "", "Config file registering external presenter commands")

	// Make 'run' the default if no command is provided
	rootCmd.Run = runCmd.Run
}
