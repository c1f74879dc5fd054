package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/waypoint"
	"github.com/aretw0/waypoint/internal/logging"
	"github.com/aretw0/waypoint/internal/presentation/graph"
	"github.com/aretw0/waypoint/internal/sanitize"
	"github.com/aretw0/waypoint/pkg/domain"
)

// FlowsURI is the resource listing every loaded flow.
const FlowsURI = "waypoint://flows"

// Engine defines the operations the MCP server exposes to agents.
type Engine interface {
	Start(ctx context.Context, flowID string) (*waypoint.StartResult, error)
	Submit(ctx context.Context, sessionID, nodeID string, answer domain.Value) (*waypoint.SubmitResult, error)
	CurrentView(ctx context.Context, sessionID string) (*waypoint.SubmitResult, error)
	Session(ctx context.Context, sessionID string) (*domain.SessionContext, error)
	Flow(flowID string) (*domain.Flow, error)
	Flows() []*domain.Flow
}

var _ Engine = (*waypoint.Engine)(nil)

// FlowSummary is one entry of the list_flows tool and the flows resource.
type FlowSummary struct {
	ID          string `json:"id" jsonschema_description:"Flow identifier used by start_session"`
	Title       string `json:"title"`
	StartNodeID string `json:"start_node_id"`
	Nodes       int    `json:"nodes"`
}

// FlowList wraps the summaries so structured content is always an object.
type FlowList struct {
	Flows []FlowSummary `json:"flows" jsonschema_description:"Flows available to start"`
}

// Server wraps the Waypoint Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine: engine,
		logger: logging.NewNop(),
		mcpServer: server.NewMCPServer("waypoint-mcp", waypoint.Version,
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
			server.WithRecovery(),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer exposes the underlying protocol server, mostly for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("shutting down MCP server")
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

type startArgs struct {
	FlowID string `json:"flow_id"`
}

type submitArgs struct {
	SessionID string       `json:"session_id"`
	NodeID    string       `json:"node_id"`
	Answer    domain.Value `json:"answer"`
}

type sessionArgs struct {
	SessionID string `json:"session_id"`
}

type graphArgs struct {
	FlowID    string `json:"flow_id"`
	SessionID string `json:"session_id"`
}

// submitSchema is written by hand: the answer accepts any JSON scalar or list.
const submitSchema = `{
  "type": "object",
  "properties": {
    "session_id": {"type": "string", "description": "Session returned by start_session"},
    "node_id": {"type": "string", "description": "Node the answer is for; must be the session's current node"},
    "answer": {"description": "Option id, free text, number, boolean or list of option ids"}
  },
  "required": ["session_id", "node_id", "answer"]
}`

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_flows",
		mcp.WithDescription("List the questionnaires that can be started."),
		mcp.WithOutputSchema[FlowList](),
	), mcp.NewStructuredToolHandler(s.handleListFlows))

	s.mcpServer.AddTool(mcp.NewTool("start_session",
		mcp.WithDescription("Start a new session of a flow and return its first question."),
		mcp.WithString("flow_id", mcp.Required(), mcp.Description("Flow to start")),
	), mcp.NewStructuredToolHandler(s.handleStart))

	s.mcpServer.AddTool(mcp.NewToolWithRawSchema("submit_answer",
		"Answer the current question of a session. Returns the next question, or the result once the flow is done.",
		json.RawMessage(submitSchema),
	), mcp.NewStructuredToolHandler(s.handleSubmit))

	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Show the current question or result of a session, with its context."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to inspect")),
	), mcp.NewStructuredToolHandler(s.handleGetSession))

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Render a flow as a Mermaid diagram, optionally highlighting a session's path."),
		mcp.WithString("flow_id", mcp.Required(), mcp.Description("Flow to render")),
		mcp.WithString("session_id", mcp.Description("Session whose path is highlighted")),
	), s.handleGraph)
}

func (s *Server) handleListFlows(ctx context.Context, request mcp.CallToolRequest, _ map[string]any) (FlowList, error) {
	return FlowList{Flows: summarize(s.engine.Flows())}, nil
}

func (s *Server) handleStart(ctx context.Context, request mcp.CallToolRequest, args startArgs) (*waypoint.StartResult, error) {
	if args.FlowID == "" {
		return nil, errors.New("flow_id is required")
	}
	res, err := s.engine.Start(ctx, args.FlowID)
	if err != nil {
		s.logger.Warn("MCP start_session failed", "flow_id", args.FlowID, "error", err)
		return nil, err
	}
	return res, nil
}

func (s *Server) handleSubmit(ctx context.Context, request mcp.CallToolRequest, args submitArgs) (*waypoint.SubmitResult, error) {
	if args.SessionID == "" || args.NodeID == "" {
		return nil, errors.New("session_id and node_id are required")
	}
	answer, err := sanitize.Answer(args.Answer)
	if err != nil {
		s.logger.Warn("MCP submit_answer: input rejected", "session_id", args.SessionID, "error", err)
		return nil, fmt.Errorf("input rejected: %w", err)
	}
	res, err := s.engine.Submit(ctx, args.SessionID, args.NodeID, answer)
	if err != nil {
		s.logger.Warn("MCP submit_answer failed", "session_id", args.SessionID, "node_id", args.NodeID, "error", err)
		return nil, err
	}
	return res, nil
}

func (s *Server) handleGetSession(ctx context.Context, request mcp.CallToolRequest, args sessionArgs) (*waypoint.SubmitResult, error) {
	if args.SessionID == "" {
		return nil, errors.New("session_id is required")
	}
	return s.engine.CurrentView(ctx, args.SessionID)
}

func (s *Server) handleGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args graphArgs
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	flow, err := s.engine.Flow(args.FlowID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var overlay *graph.GraphOverlay
	if args.SessionID != "" {
		sc, err := s.engine.Session(ctx, args.SessionID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		overlay = graph.OverlayFor(sc)
	}
	return mcp.NewToolResultText(graph.GenerateMermaid(flow, overlay)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(FlowsURI, "Loaded flows",
		mcp.WithResourceDescription("Every flow the engine can start, with full node definitions."),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(s.engine.Flows())
		if err != nil {
			return nil, fmt.Errorf("failed to encode flows: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      FlowsURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}

func summarize(flows []*domain.Flow) []FlowSummary {
	out := make([]FlowSummary, len(flows))
	for i, f := range flows {
		out[i] = FlowSummary{ID: f.ID, Title: f.Title, StartNodeID: f.StartNodeID, Nodes: len(f.Nodes)}
	}
	return out
}
