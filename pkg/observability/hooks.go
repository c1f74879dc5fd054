package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/ports"
)

// LoggingHooks logs every lifecycle event. Answers are logged at debug level
// only, since they may carry personal data.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSessionStart: func(ctx context.Context, e *domain.NodeEvent) {
			logger.InfoContext(ctx, "session_start", "session_id", e.SessionID, "flow_id", e.FlowID)
		},
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.InfoContext(ctx, "node_enter",
				"session_id", e.SessionID,
				"node_id", e.NodeID,
				"type", e.NodeKind,
			)
		},
		OnAnswer: func(ctx context.Context, e *domain.AnswerEvent) {
			logger.DebugContext(ctx, "answer",
				"session_id", e.SessionID,
				"node_id", e.NodeID,
				"answer", e.Answer.String(),
			)
		},
		OnComplete: func(ctx context.Context, e *domain.CompletionEvent) {
			logger.InfoContext(ctx, "session_complete",
				"session_id", e.SessionID,
				"flow_id", e.FlowID,
				"top_traits", e.Result.Summary.TopTraits,
			)
		},
	}
}

// PublishHooks forwards completion events to pub. Publishing is bounded by
// timeout and detached from request cancellation; failures are logged, never
// surfaced to the answering user.
func PublishHooks(pub ports.EventPublisher, logger *slog.Logger, timeout time.Duration) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnComplete: func(ctx context.Context, e *domain.CompletionEvent) {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
			defer cancel()
			if err := pub.Publish(ctx, e); err != nil {
				logger.Error("failed to publish completion", "session_id", e.SessionID, "err", err)
			}
		},
	}
}
