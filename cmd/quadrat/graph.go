package main

import (
	"fmt"
	"os"

	"github.com/aretw0/quadrat/internal/presentation/graph"
	"github.com/aretw0/quadrat/pkg/loader"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [timeline]",
	Short: "Export the timeline visualization",
	Long:  `Loads the timeline definition and outputs a Mermaid diagram (graph TD) showing containers, trials, conditionals, and loops.`,
	Run: func(cmd *cobra.Command, args []string) {
		path, _ := cmd.Flags().GetString("timeline")
		if !cmd.Flags().Changed("timeline") && len(args) > 0 {
			path = args[0]
		}

		desc, err := loader.LoadFile(path)
		if err != nil {
			fmt.Printf("Error loading timeline: %v\n", err)
			os.Exit(1)
		}

		fmt.Print(graph.GenerateMermaid(desc, nil))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
