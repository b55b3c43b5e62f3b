// Package mcp exposes a running experiment as an MCP server, so agent
// tooling can inspect the timeline, read collected data, and steer the run.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/quadrat"
	"github.com/aretw0/quadrat/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Experiment is the narrow control surface the MCP server needs.
type Experiment interface {
	Status() quadrat.Status
	TrialIndex() int
	Data() *domain.Collection
	Scope() map[string]any
	Pause()
	Resume()
	Abort()
}

// StatusResponse is the structured payload for run state queries.
type StatusResponse struct {
	Status     string `json:"status" jsonschema_description:"Lifecycle state of the run"`
	TrialIndex int    `json:"trial_index" jsonschema_description:"Number of trials started so far"`
	Records    int    `json:"records" jsonschema_description:"Number of finalized records"`
}

// Server wraps an experiment and exposes it over MCP.
type Server struct {
	experiment Experiment
	timeline   *domain.Description
	mcpServer  *server.MCPServer
}

// NewServer creates a new MCP Server instance. The timeline description is
// exposed read-only for introspection; callbacks are omitted from the
// serialized form.
func NewServer(exp Experiment, timeline *domain.Description) *Server {
	s := &Server{
		experiment: exp,
		timeline:   timeline,
		mcpServer:  server.NewMCPServer("quadrat-mcp", strings.TrimSpace(quadrat.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: get_status
	statusTool := mcp.NewTool("get_status",
		mcp.WithDescription("Get the lifecycle state of the experiment run."),
		mcp.WithOutputSchema[StatusResponse](),
	)
	s.mcpServer.AddTool(statusTool, mcp.NewStructuredToolHandler(s.handleStatus))

	// TOOL: get_data
	s.mcpServer.AddTool(mcp.NewTool("get_data",
		mcp.WithDescription("Get all finalized trial records collected so far."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jsonBytes, err := json.Marshal(s.experiment.Data().Values())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("marshal failed: %v", err)), nil
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	// TOOL: get_scope
	s.mcpServer.AddTool(mcp.NewTool("get_scope",
		mcp.WithDescription("Get the currently bound timeline variables, innermost bindings winning."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jsonBytes, err := json.Marshal(s.experiment.Scope())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("marshal failed: %v", err)), nil
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	// TOOL: describe_timeline
	s.mcpServer.AddTool(mcp.NewTool("describe_timeline",
		mcp.WithDescription("Get the timeline description tree for introspection."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jsonBytes, err := json.Marshal(s.timeline)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("marshal failed: %v", err)), nil
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	// TOOL: pause_run / resume_run / abort_run
	s.mcpServer.AddTool(mcp.NewTool("pause_run",
		mcp.WithDescription("Pause the run at the next trial boundary."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		s.experiment.Pause()
		return mcp.NewToolResultText(string(s.experiment.Status())), nil
	})
	s.mcpServer.AddTool(mcp.NewTool("resume_run",
		mcp.WithDescription("Resume a paused run."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		s.experiment.Resume()
		return mcp.NewToolResultText(string(s.experiment.Status())), nil
	})
	s.mcpServer.AddTool(mcp.NewTool("abort_run",
		mcp.WithDescription("Abort the run, discarding the in-flight trial."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		s.experiment.Abort()
		return mcp.NewToolResultText(string(s.experiment.Status())), nil
	})
}

func (s *Server) handleStatus(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (StatusResponse, error) {
	return StatusResponse{
		Status:     string(s.experiment.Status()),
		TrialIndex: s.experiment.TrialIndex(),
		Records:    s.experiment.Data().Len(),
	}, nil
}

func (s *Server) registerResources() {
	// EXPOSE: quadrat://timeline
	s.mcpServer.AddResource(mcp.NewResource("quadrat://timeline", "Timeline Description",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.timeline)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal timeline: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "quadrat://timeline",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})

	// EXPOSE: quadrat://data
	s.mcpServer.AddResource(mcp.NewResource("quadrat://data", "Collected Records",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.experiment.Data().Values())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal records: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "quadrat://data",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
