package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/lmrtfy"
	"github.com/aretw0/lmrtfy/pkg/analytics"
	"github.com/aretw0/lmrtfy/pkg/domain"
	"github.com/aretw0/lmrtfy/pkg/playback"
	"github.com/aretw0/lmrtfy/pkg/token"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	stepsURI       = "lmrtfy://steps"
	defaultHorizon = 15 * time.Second
	maxHorizon     = time.Minute
)

// Config holds what the tools need to build links.
type Config struct {
	PublicURL      string
	AssistantURL   string
	MaxPromptBytes int
	Timing         playback.Timing
}

// ResolveResult is the output of resolve_link.
type ResolveResult struct {
	Prompt       string `json:"prompt" jsonschema_description:"The decoded prompt"`
	AssistantURL string `json:"assistantUrl" jsonschema_description:"Direct link to the AI assistant with the prompt prefilled"`
	Strategy     string `json:"strategy" jsonschema_description:"Which decoder accepted the token (compressed, legacy or verbatim)"`
}

// ScriptResult is the output of playback_script.
type ScriptResult struct {
	Prompt string           `json:"prompt"`
	Loop   bool             `json:"loop"`
	Frames []playback.Frame `json:"frames" jsonschema_description:"Every state change of the demo, with its offset in ms"`
}

// StepInfo describes one demo step in the steps resource.
type StepInfo struct {
	Index int    `json:"index"`
	ID    string `json:"id"`
	Label string `json:"label"`
}

type createLinkArgs struct {
	Prompt string `json:"prompt"`
}

type resolveLinkArgs struct {
	Token string `json:"token"`
}

type playbackScriptArgs struct {
	Prompt    string `json:"prompt"`
	Loop      bool   `json:"loop"`
	HorizonMs int64  `json:"horizon_ms"`
}

// Server exposes link creation, resolution and the demo script as MCP tools.
type Server struct {
	cfg       Config
	codec     *token.Codec
	machine   playback.Machine
	analytics *analytics.Service
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithAnalytics records generated links and exposes get_stats.
func WithAnalytics(a *analytics.Service) Option {
	return func(s *Server) {
		s.analytics = a
	}
}

// WithCodec sets the token codec.
func WithCodec(c *token.Codec) Option {
	return func(s *Server) {
		s.codec = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(cfg Config, opts ...Option) *Server {
	if cfg.PublicURL == "" {
		cfg.PublicURL = "http://localhost:8080"
	}
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	if cfg.AssistantURL == "" {
		cfg.AssistantURL = "https://replit.com/ai"
	}
	if cfg.MaxPromptBytes <= 0 {
		cfg.MaxPromptBytes = domain.DefaultMaxPromptBytes
	}

	s := &Server{
		cfg:       cfg,
		codec:     token.New(),
		machine:   playback.NewMachine(cfg.Timing),
		logger:    slog.Default(),
		mcpServer: server.NewMCPServer("lmrtfy-mcp", strings.TrimSpace(lmrtfy.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops when ctx is done.
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
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, stopping MCP server")
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
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: create_link
	createTool := mcp.NewTool("create_link",
		mcp.WithDescription("Create a shareable link that shows how to ask Replit AI the given question."),
		mcp.WithString("prompt", mcp.Required(), mcp.Description("The question to share")),
		mcp.WithOutputSchema[domain.Link](),
	)
	s.mcpServer.AddTool(createTool, mcp.NewStructuredToolHandler(s.handleCreateLink))

	// TOOL: resolve_link
	resolveTool := mcp.NewTool("resolve_link",
		mcp.WithDescription("Decode the q token of a shared link back into its prompt."),
		mcp.WithString("token", mcp.Required(), mcp.Description("The q parameter of the link")),
		mcp.WithOutputSchema[ResolveResult](),
	)
	s.mcpServer.AddTool(resolveTool, mcp.NewStructuredToolHandler(s.handleResolveLink))

	// TOOL: playback_script
	scriptTool := mcp.NewTool("playback_script",
		mcp.WithDescription("Compute the frames of the typing demo for a prompt."),
		mcp.WithString("prompt", mcp.Required(), mcp.Description("The prompt being typed")),
		mcp.WithBoolean("loop", mcp.Description("Restart the demo after the last step")),
		mcp.WithNumber("horizon_ms", mcp.Description("How far ahead to compute, in ms (default 15000, max 60000)")),
		mcp.WithOutputSchema[ScriptResult](),
	)
	s.mcpServer.AddTool(scriptTool, mcp.NewStructuredToolHandler(s.handlePlaybackScript))

	if s.analytics == nil {
		return
	}

	// TOOL: get_stats
	s.mcpServer.AddTool(mcp.NewTool("get_stats",
		mcp.WithDescription("Get link analytics: totals, top prompts and daily counts."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := s.analytics.Stats(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("stats failed: %v", err)), nil
		}
		jsonBytes, _ := json.Marshal(stats)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

func (s *Server) handleCreateLink(ctx context.Context, request mcp.CallToolRequest, args createLinkArgs) (domain.Link, error) {
	prompt, err := domain.NormalizePrompt(args.Prompt, s.cfg.MaxPromptBytes)
	if err != nil {
		s.logger.Warn("MCP create_link: Prompt rejected", "error", err, "size", len(args.Prompt))
		return domain.Link{}, fmt.Errorf("prompt rejected: %w", err)
	}

	link := s.codec.Link(s.cfg.PublicURL, s.cfg.AssistantURL, prompt)

	if s.analytics != nil {
		if _, err := s.analytics.Record(ctx, domain.EventLinkGenerated, prompt, "mcp", ""); err != nil {
			s.logger.Error("MCP create_link: analytics record failed", "error", err)
		}
	}
	return link, nil
}

func (s *Server) handleResolveLink(ctx context.Context, request mcp.CallToolRequest, args resolveLinkArgs) (ResolveResult, error) {
	if args.Token == "" {
		return ResolveResult{}, domain.ErrMissingToken
	}
	prompt, strategy := s.codec.DecodeStrategy(args.Token)
	return ResolveResult{
		Prompt:       prompt,
		AssistantURL: token.AssistantURL(s.cfg.AssistantURL, prompt),
		Strategy:     strategy,
	}, nil
}

func (s *Server) handlePlaybackScript(ctx context.Context, request mcp.CallToolRequest, args playbackScriptArgs) (ScriptResult, error) {
	if args.HorizonMs < 0 {
		return ScriptResult{}, fmt.Errorf("invalid horizon_ms %d", args.HorizonMs)
	}
	horizon := defaultHorizon
	if args.HorizonMs > 0 {
		horizon = min(time.Duration(args.HorizonMs)*time.Millisecond, maxHorizon)
	}

	cfg := playback.Config{Prompt: args.Prompt, AutoPlay: true, Loop: args.Loop}
	return ScriptResult{
		Prompt: args.Prompt,
		Loop:   args.Loop,
		Frames: s.machine.Script(cfg, horizon),
	}, nil
}

func (s *Server) registerResources() {
	// EXPOSE: lmrtfy://steps
	s.mcpServer.AddResource(mcp.NewResource(stepsURI, "Demo Steps",
		mcp.WithResourceDescription("The steps of the typing demo and their labels"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(stepInfos())
		if err != nil {
			return nil, fmt.Errorf("failed to encode steps: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      stepsURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

func stepInfos() []StepInfo {
	steps := playback.Steps()
	out := make([]StepInfo, len(steps))
	for i, st := range steps {
		out[i] = StepInfo{Index: int(st), ID: st.String(), Label: st.Label()}
	}
	return out
}
