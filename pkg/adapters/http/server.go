package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/waypoint"
	"github.com/aretw0/waypoint/internal/logging"
	"github.com/aretw0/waypoint/internal/presentation/graph"
	"github.com/aretw0/waypoint/internal/sanitize"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	fieldvalidator "github.com/go-playground/validator/v10"
)

// Engine is the subset of *waypoint.Engine served over HTTP.
type Engine interface {
	Start(ctx context.Context, flowID string) (*waypoint.StartResult, error)
	Submit(ctx context.Context, sessionID, nodeID string, answer domain.Value) (*waypoint.SubmitResult, error)
	Session(ctx context.Context, sessionID string) (*domain.SessionContext, error)
	CurrentView(ctx context.Context, sessionID string) (*waypoint.SubmitResult, error)
	DeleteSession(ctx context.Context, sessionID string) error
	Flow(flowID string) (*domain.Flow, error)
	Flows() []*domain.Flow
	Watch(ctx context.Context) (<-chan struct{}, error)
}

var _ Engine = (*waypoint.Engine)(nil)

// Server holds the handlers' dependencies.
type Server struct {
	Engine  Engine
	Streams *StreamManager

	logger  *slog.Logger
	origins []string
	metrics http.Handler
	checks  map[string]func(context.Context) error
}

// Option configures the handler.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithCORSOrigins sets the allowed origins; "*" allows any.
func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

// WithMetrics mounts h (typically promhttp.Handler()) on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithHealthCheck adds a named dependency probe to /health.
func WithHealthCheck(name string, check func(context.Context) error) Option {
	return func(s *Server) {
		s.checks[name] = check
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	server := &Server{
		Engine: engine,
		logger: logging.NewNop(),
		checks: make(map[string]func(context.Context) error),
	}
	for _, opt := range opts {
		opt(server)
	}
	server.Streams = NewStreamManager(server.logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(server.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(server.cors)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.Get("/", server.GetRoot)
	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerHTML))
	})
	if server.metrics != nil {
		r.Method(http.MethodGet, "/metrics", server.metrics)
	}

	r.Route("/onboarding", func(r chi.Router) {
		r.Post("/start", server.StartSession)
		r.Post("/answer", server.SubmitAnswer)
		r.Get("/session/{sessionId}", server.GetSession)
		r.Delete("/session/{sessionId}", server.DeleteSession)
	})

	r.Get("/flows", server.ListFlows)
	r.Get("/flows/{flowId}", server.GetFlow)
	r.Get("/flows/{flowId}/graph", server.GetFlowGraph)
	r.Get("/events", server.SubscribeEvents)

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.DebugContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.allowOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
					w.Header().Set("Access-Control-Allow-Headers", reqHeaders)
				} else {
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				}
				w.WriteHeader(http.StatusOK)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) allowOrigin(origin string) bool {
	return slices.Contains(s.origins, "*") || slices.Contains(s.origins, origin)
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Waypoint API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

var validate = fieldvalidator.New()

// decode reads a JSON body into dst and checks its validate tags.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// GetRoot handles GET /.
func (s *Server) GetRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "Onboarding API running"})
}

// GetHealth runs the registered dependency checks.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		if err := s.checks[name](ctx); err != nil {
			s.logger.Warn("health check failed", "check", name, "err", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  name + ": " + err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "waypoint-http",
		"version":     strings.TrimSpace(waypoint.Version),
		"api_version": apiVersion,
	})
}

type startRequest struct {
	FlowID string `json:"flow_id" validate:"required"`
}

// StartSession handles POST /onboarding/start.
func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	var body startRequest
	if err := decode(r, &body); err != nil {
		s.logger.Debug("StartSession: invalid request body", "err", err)
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.Engine.Start(r.Context(), body.FlowID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type answerRequest struct {
	SessionID string       `json:"session_id" validate:"required"`
	NodeID    string       `json:"node_id" validate:"required"`
	Answer    domain.Value `json:"answer"`
}

// SubmitAnswer handles POST /onboarding/answer and pushes the resulting
// context diff to the session's SSE subscribers.
func (s *Server) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var body answerRequest
	if err := decode(r, &body); err != nil {
		s.logger.Debug("SubmitAnswer: invalid request body", "err", err)
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	answer, err := sanitize.Answer(body.Answer)
	if err != nil {
		s.logger.Warn("SubmitAnswer: input rejected", "session_id", body.SessionID, "err", err)
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.Engine.Submit(r.Context(), body.SessionID, body.NodeID, answer)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if res.Diff != nil {
		if payload, err := json.Marshal(res.Diff); err == nil {
			s.Streams.Broadcast(body.SessionID, string(payload))
		} else {
			s.logger.Error("SubmitAnswer: diff encode failed", "session_id", body.SessionID, "err", err)
		}
	}

	writeJSON(w, http.StatusOK, res)
}

// GetSession handles GET /onboarding/session/{sessionId}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	res, err := s.Engine.CurrentView(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DeleteSession handles DELETE /onboarding/session/{sessionId}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.DeleteSession(r.Context(), chi.URLParam(r, "sessionId")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type flowSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	StartNodeID string `json:"start_node_id"`
	Nodes       int    `json:"nodes"`
}

// ListFlows handles GET /flows.
func (s *Server) ListFlows(w http.ResponseWriter, r *http.Request) {
	flows := s.Engine.Flows()
	out := make([]flowSummary, len(flows))
	for i, f := range flows {
		out[i] = flowSummary{ID: f.ID, Title: f.Title, StartNodeID: f.StartNodeID, Nodes: len(f.Nodes)}
	}
	writeJSON(w, http.StatusOK, out)
}

// GetFlow handles GET /flows/{flowId}.
func (s *Server) GetFlow(w http.ResponseWriter, r *http.Request) {
	flow, err := s.Engine.Flow(chi.URLParam(r, "flowId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, flow)
}

// GetFlowGraph handles GET /flows/{flowId}/graph.
func (s *Server) GetFlowGraph(w http.ResponseWriter, r *http.Request) {
	flow, err := s.Engine.Flow(chi.URLParam(r, "flowId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var overlay *graph.GraphOverlay
	if sessionID := r.URL.Query().Get("session_id"); sessionID != "" {
		sc, err := s.Engine.Session(r.Context(), sessionID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		overlay = graph.OverlayFor(sc)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(graph.GenerateMermaid(flow, overlay)))
}

// SubscribeEvents handles the GET /events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeDetail(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	var (
		events <-chan string
		done   func()
	)
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		changes, err := s.Engine.Watch(r.Context())
		if err != nil {
			writeDetail(w, http.StatusNotImplemented, "Flow watching is not available")
			return
		}
		events = reloadMessages(r.Context(), changes)
		done = func() {}
		s.logger.Info("SSE: subscribing to flow reloads")
	} else {
		events, done = s.Streams.Subscribe(sessionID)
		s.logger.Info("SSE: subscribing to session updates", "session_id", sessionID)
	}
	defer done()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE: client disconnected", "session_id", sessionID)
			return
		case msg, ok := <-events:
			if !ok {
				return
			}
			var buf bytes.Buffer
			fmt.Fprintf(&buf, "data: %s\n\n", msg)
			_, _ = w.Write(buf.Bytes())
			flusher.Flush()
		}
	}
}

func reloadMessages(ctx context.Context, changes <-chan struct{}) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		for range changes {
			select {
			case out <- "reload":
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
