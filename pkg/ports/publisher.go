package ports

import (
	"context"

	"github.com/aretw0/waypoint/pkg/domain"
)

// EventPublisher forwards completed sessions to an external system
// (message broker, webhook, analytics pipeline).
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.CompletionEvent) error
}
