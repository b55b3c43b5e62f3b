package main

import (
	"fmt"
	"os"

	"github.com/aretw0/quadrat/pkg/loader"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [timeline]",
	Short: "Check the timeline definition for consistency",
	Long:  `Parses the timeline file and reports structural problems: nodes that declare both a type and a timeline, mismatched variable sets, or unknown sample methods.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(cmd, args); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Timeline is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("timeline")
	if !cmd.Flags().Changed("timeline") && len(args) > 0 {
		path = args[0]
	}

	_, err := loader.LoadFile(path)
	return err
}
