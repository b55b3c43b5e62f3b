package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/quadrat"
	"github.com/aretw0/quadrat/pkg/adapters/mcp"
	"github.com/aretw0/quadrat/pkg/loader"
	"github.com/aretw0/quadrat/pkg/ports"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp [timeline]",
	Short: "Run the Model Context Protocol (MCP) inspection server",
	Long: `Starts an MCP server over the loaded timeline so AI agents can inspect
an experiment design: describe the tree, query run state, and read records.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Run: func(cmd *cobra.Command, args []string) {
		path, _ := cmd.Flags().GetString("timeline")
		if !cmd.Flags().Changed("timeline") && len(args) > 0 {
			path = args[0]
		}

		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		desc, err := loader.LoadFile(path)
		if err != nil {
			log.Fatalf("Error loading timeline: %v", err)
		}

		// The experiment is inspected, never started: trial presentation
		// stays with the run command.
		exp, err := quadrat.New(desc, ports.TrialRunnerFunc(func(context.Context, map[string]any, ports.FinishFunc) error {
			return nil
		}))
		if err != nil {
			log.Fatalf("Error building experiment: %v", err)
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		slog.SetDefault(logger)

		srv := mcp.NewServer(exp, desc)

		switch transport {
		case "stdio":
			// Ensure logs don't corrupt JSON-RPC on Stdout
			log.SetOutput(os.Stderr)
			slog.Info("Starting Quadrat MCP Server (Stdio)...")
			if err := srv.ServeStdio(); err != nil {
				slog.Error("MCP Server execution failed", "err", err)
				os.Exit(1)
			}
		case "sse":
			slog.Info("Starting Quadrat MCP Server (SSE)", "port", port)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.ServeSSE(ctx, port); err != nil {
				if err != http.ErrServerClosed {
					slog.Error("MCP Server execution failed", "err", err)
					os.Exit(1)
				}
			}
			slog.Info("MCP Server stopped gracefully")
		default:
			log.Fatalf("Unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
