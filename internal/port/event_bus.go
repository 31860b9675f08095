package port

import (
	"context"

	"github.com/tmn08/ward-supply/internal/core/domain"
)

type EventBus interface {
	// PublishTaskEvent broadcasts a ledger change to all subscribers.
	// Delivery is at-least-once; subscribers must tolerate duplicates.
	PublishTaskEvent(ctx context.Context, ev domain.TaskEvent) error

	// SubscribeTaskEvents returns a channel of ledger changes and an
	// unsubscribe func. The channel closes after unsubscribe or when the
	// context ends.
	SubscribeTaskEvents(ctx context.Context) (<-chan domain.TaskEvent, func(), error)

	// RecentEvents returns up to limit most recently published events,
	// newest first, for late-joining views
	RecentEvents(ctx context.Context, limit int) ([]domain.TaskEvent, error)
}
