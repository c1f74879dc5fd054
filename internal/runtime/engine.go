package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/waypoint/internal/logging"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/registry"
	"github.com/aretw0/waypoint/pkg/session"
)

// Engine executes flows for many concurrent sessions.
// It holds no session state itself: every call loads, mutates and saves
// through the session manager.
type Engine struct {
	flows    *registry.Registry
	sessions *session.Manager
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	newID    func() string
}

// Option configures the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger configures a logger for the Engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithIDGenerator overrides the session id generator (UUIDv4 by default).
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		e.newID = fn
	}
}

// NewEngine creates a new engine with dependencies.
func NewEngine(flows *registry.Registry, sessions *session.Manager, opts ...Option) *Engine {
	e := &Engine{
		flows:    flows,
		sessions: sessions,
		logger:   logging.NewNop(),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StartResult is returned by Start.
type StartResult struct {
	SessionID string       `json:"session_id"`
	Node      *domain.Node `json:"node"`
}

// SubmitResult is returned by Submit. Node is set while the session continues,
// Result once it reaches a result node.
type SubmitResult struct {
	Done    bool                   `json:"done"`
	Node    *domain.Node           `json:"node"`
	Result  *domain.Result         `json:"result"`
	Context *domain.SessionContext `json:"context"`

	// Diff describes what the submission changed. Not part of the response body.
	Diff *domain.ContextDiff `json:"-"`
}

// Start creates a session positioned at the flow's start node.
func (e *Engine) Start(ctx context.Context, flowID string) (*StartResult, error) {
	flow, err := e.flows.Get(flowID)
	if err != nil {
		return nil, err
	}
	start, ok := flow.StartNode()
	if !ok {
		return nil, fmt.Errorf("%w: flow '%s' has no start node '%s'", domain.ErrInvalidFlow, flow.ID, flow.StartNodeID)
	}

	sc := domain.NewSessionContext(e.newID(), flow)
	if err := e.sessions.Create(ctx, sc); err != nil {
		return nil, err
	}

	e.logger.Info("session started", "flow_id", flow.ID, "session_id", sc.SessionID)
	e.emitSessionStart(ctx, sc, start)
	e.emitNodeEnter(ctx, sc, start)

	return &StartResult{SessionID: sc.SessionID, Node: start}, nil
}

// Submit records answer for nodeID and advances the session.
// The stored session only changes if the whole submission succeeds.
func (e *Engine) Submit(ctx context.Context, sessionID, nodeID string, answer domain.Value) (*SubmitResult, error) {
	var next *domain.Node
	before, after, err := e.sessions.Update(ctx, sessionID, func(sc *domain.SessionContext) error {
		if nodeID != sc.CurrentNodeID {
			return &domain.NodeMismatchError{SessionID: sessionID, Expected: sc.CurrentNodeID, Got: nodeID}
		}
		flow, err := e.flows.Get(sc.FlowID)
		if err != nil {
			return err
		}
		node, ok := flow.Node(sc.CurrentNodeID)
		if !ok {
			return fmt.Errorf("%w: flow '%s' has no node '%s'", domain.ErrInvalidFlow, flow.ID, sc.CurrentNodeID)
		}
		next, err = e.advance(flow, node, answer, sc)
		return err
	})
	if err != nil {
		e.logger.Debug("submission rejected", "session_id", sessionID, "node_id", nodeID, "err", err)
		return nil, err
	}

	res := &SubmitResult{
		Done:    after.Done,
		Context: after,
		Diff:    domain.Diff(before, after),
	}
	if after.Done {
		result := BuildResult(next, after)
		res.Result = &result
	} else {
		res.Node = next
	}

	e.logger.Debug("answer accepted", "session_id", sessionID, "node_id", nodeID, "next_node_id", next.ID)
	e.emitAnswer(ctx, after, nodeID, answer)
	e.emitNodeEnter(ctx, after, next)
	if res.Result != nil {
		e.logger.Info("session completed", "flow_id", after.FlowID, "session_id", sessionID, "top_traits", res.Result.Summary.TopTraits)
		e.emitComplete(ctx, after, next, *res.Result)
	}
	return res, nil
}

// advance applies a submission to sc: record the answer, run node effects,
// run the chosen option's effects, then move along the first matching edge.
func (e *Engine) advance(flow *domain.Flow, node *domain.Node, answer domain.Value, sc *domain.SessionContext) (*domain.Node, error) {
	sc.Answers[node.ID] = answer
	ApplyEffects(node.Effects, answer, sc)

	if node.UI != nil && node.UI.InputKind == domain.InputSingleChoice && len(node.UI.Options) > 0 {
		if id, ok := answer.AsString(); ok {
			if opt, found := node.Option(id); found {
				ApplyEffects(opt.Effects, answer, sc)
			} else {
				e.logger.Debug("answer matches no option", "flow_id", flow.ID, "node_id", node.ID, "answer", id)
			}
		}
	}

	next, err := Resolve(flow, node, answer, sc)
	if err != nil {
		return nil, err
	}

	sc.CurrentNodeID = next.ID
	sc.History = append(sc.History, next.ID)
	if next.IsTerminal() {
		sc.Done = true
	}
	return next, nil
}

// Session returns a snapshot of a stored session.
func (e *Engine) Session(ctx context.Context, sessionID string) (*domain.SessionContext, error) {
	return e.sessions.Load(ctx, sessionID)
}

// Sessions lists stored session ids.
func (e *Engine) Sessions(ctx context.Context) ([]string, error) {
	return e.sessions.List(ctx)
}

// DeleteSession removes a stored session.
func (e *Engine) DeleteSession(ctx context.Context, sessionID string) error {
	return e.sessions.Delete(ctx, sessionID)
}

// CurrentView returns what the session should show now: the current node,
// or the result when the session is done.
func (e *Engine) CurrentView(ctx context.Context, sessionID string) (*SubmitResult, error) {
	sc, err := e.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	flow, err := e.flows.Get(sc.FlowID)
	if err != nil {
		return nil, err
	}
	node, ok := flow.Node(sc.CurrentNodeID)
	if !ok {
		return nil, fmt.Errorf("%w: flow '%s' has no node '%s'", domain.ErrInvalidFlow, flow.ID, sc.CurrentNodeID)
	}
	view := &SubmitResult{Done: sc.Done, Context: sc}
	if sc.Done {
		result := BuildResult(node, sc)
		view.Result = &result
	} else {
		view.Node = node
	}
	return view, nil
}

// Flow looks up a loaded flow.
func (e *Engine) Flow(flowID string) (*domain.Flow, error) {
	return e.flows.Get(flowID)
}

// Flows lists loaded flows.
func (e *Engine) Flows() []*domain.Flow {
	return e.flows.List()
}

func (e *Engine) base(t domain.EventType, sc *domain.SessionContext) domain.EventBase {
	return domain.EventBase{
		Timestamp: time.Now().UTC(),
		Type:      t,
		SessionID: sc.SessionID,
		FlowID:    sc.FlowID,
	}
}

func (e *Engine) emitSessionStart(ctx context.Context, sc *domain.SessionContext, node *domain.Node) {
	if e.hooks.OnSessionStart == nil {
		return
	}
	e.hooks.OnSessionStart(ctx, &domain.NodeEvent{
		EventBase: e.base(domain.EventSessionStart, sc),
		NodeID:    node.ID,
		NodeKind:  node.Kind,
	})
}

func (e *Engine) emitNodeEnter(ctx context.Context, sc *domain.SessionContext, node *domain.Node) {
	if e.hooks.OnNodeEnter == nil {
		return
	}
	e.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
		EventBase: e.base(domain.EventNodeEnter, sc),
		NodeID:    node.ID,
		NodeKind:  node.Kind,
	})
}

func (e *Engine) emitAnswer(ctx context.Context, sc *domain.SessionContext, nodeID string, answer domain.Value) {
	if e.hooks.OnAnswer == nil {
		return
	}
	e.hooks.OnAnswer(ctx, &domain.AnswerEvent{
		EventBase: e.base(domain.EventAnswer, sc),
		NodeID:    nodeID,
		Answer:    answer,
	})
}

func (e *Engine) emitComplete(ctx context.Context, sc *domain.SessionContext, node *domain.Node, result domain.Result) {
	if e.hooks.OnComplete == nil {
		return
	}
	e.hooks.OnComplete(ctx, &domain.CompletionEvent{
		EventBase: e.base(domain.EventSessionComplete, sc),
		NodeID:    node.ID,
		Result:    result,
	})
}
