package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventSessionStart    EventType = "session_start"
	EventAnswer          EventType = "answer"
	EventNodeEnter       EventType = "node_enter"
	EventSessionComplete EventType = "session_complete"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	FlowID    string    `json:"flow_id"`
}

// NodeEvent represents entering a node, including the start node.
type NodeEvent struct {
	EventBase
	NodeID   string   `json:"node_id"`
	NodeKind NodeKind `json:"node_kind"`
}

// AnswerEvent is emitted after an answer has been accepted and applied.
type AnswerEvent struct {
	EventBase
	NodeID string `json:"node_id"`
	Answer Value  `json:"answer"`
}

// CompletionEvent is emitted when a session reaches a result node.
type CompletionEvent struct {
	EventBase
	NodeID string `json:"node_id"`
	Result Result `json:"result"`
}

// LifecycleHooks defines callbacks for engine observability.
// Every field is optional.
type LifecycleHooks struct {
	OnSessionStart func(context.Context, *NodeEvent)
	OnNodeEnter    func(context.Context, *NodeEvent)
	OnAnswer       func(context.Context, *AnswerEvent)
	OnComplete     func(context.Context, *CompletionEvent)
}

// Merge combines several hook sets; callbacks run in argument order.
func Merge(hooks ...LifecycleHooks) LifecycleHooks {
	var out LifecycleHooks
	for _, h := range hooks {
		out.OnSessionStart = chain(out.OnSessionStart, h.OnSessionStart)
		out.OnNodeEnter = chain(out.OnNodeEnter, h.OnNodeEnter)
		out.OnAnswer = chain(out.OnAnswer, h.OnAnswer)
		out.OnComplete = chain(out.OnComplete, h.OnComplete)
	}
	return out
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
