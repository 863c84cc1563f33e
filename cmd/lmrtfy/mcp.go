package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/lmrtfy/pkg/adapters/mcp"
	"github.com/aretw0/lmrtfy/pkg/token"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes link creation, link resolution and the demo script as MCP tools,
so AI agents can hand out lmrtfy links.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		opts := []mcp.Option{
			mcp.WithLogger(logger),
			mcp.WithCodec(token.New(token.WithLevel(cfg.Links.CompressionLevel))),
		}
		// Analytics are only shared with the HTTP server through Redis or the SQLite file.
		if cfg.Analytics.Enabled && (cfg.Redis.Addr != "" || cfg.Analytics.SQLitePath != "") {
			svc, closeStore, err := newAnalytics(cmd.Context(), cfg, logger, nil)
			if err != nil {
				return err
			}
			defer closeStore()
			opts = append(opts, mcp.WithAnalytics(svc))
		}

		srv := mcp.NewServer(mcp.Config{
			PublicURL:      publicURL(cfg),
			AssistantURL:   cfg.Links.AssistantURL,
			MaxPromptBytes: cfg.Links.MaxPromptBytes,
			Timing:         cfg.Playback,
		}, opts...)

		switch transport {
		case "stdio":
			// Ensure logs don't corrupt JSON-RPC on Stdout
			log.SetOutput(os.Stderr)
			logger.Info("Starting lmrtfy MCP Server (Stdio)...")
			if err := srv.ServeStdio(); err != nil {
				return fmt.Errorf("MCP server execution failed: %w", err)
			}
			return nil
		case "sse":
			logger.Info("Starting lmrtfy MCP Server (SSE)", "port", port)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.ServeSSE(ctx, port); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("MCP server execution failed: %w", err)
			}
			logger.Info("MCP Server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8081, "Port to listen on (only for SSE)")
}
