package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tmn08/ward-supply/internal/core/domain"
	"github.com/tmn08/ward-supply/internal/logging"
)

const (
	// idempotencyTTL is the request-dedup window: a repeat of the same
	// transfer request inside it is rejected as a duplicate.
	idempotencyTTL = 30 * time.Second

	taskEventChannel  = "transfers:events"
	recentEventsKey   = "transfers:recent"
	recentEventsLimit = 100

	subscriberBuffer = 64
)

// publishEventScript records the payload on a bounded recent-events list and
// broadcasts it in one atomic step, so the list never diverges from what
// subscribers saw.
var publishEventScript = redis.NewScript(`
local list = KEYS[1]
local channel = KEYS[2]
local payload = ARGV[1]
local limit = tonumber(ARGV[2])

redis.call('LPUSH', list, payload)
redis.call('LTRIM', list, 0, limit - 1)
return redis.call('PUBLISH', channel, payload)
`)

// RedisBus implements port.EventBus and port.CacheStore: idempotency keys and
// the transfer change feed.
type RedisBus struct {
	client *redis.Client
}

func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

func (r *RedisBus) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, idempotencyTTL).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (r *RedisBus) PublishTaskEvent(ctx context.Context, ev domain.TaskEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal task event: %w", err)
	}

	keys := []string{recentEventsKey, taskEventChannel}
	if err := publishEventScript.Run(ctx, r.client, keys, payload, recentEventsLimit).Err(); err != nil {
		return fmt.Errorf("publish task event: %w", err)
	}
	return nil
}

func (r *RedisBus) SubscribeTaskEvents(ctx context.Context) (<-chan domain.TaskEvent, func(), error) {
	sub := r.client.Subscribe(ctx, taskEventChannel)

	// Confirm the subscription before handing out the channel.
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", taskEventChannel, err)
	}

	out := make(chan domain.TaskEvent, subscriberBuffer)
	go func() {
		defer close(out)
		logger := logging.Logger()

		for msg := range sub.Channel() {
			var ev domain.TaskEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				logger.WithError(err).Warn("dropping malformed task event")
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, func() { sub.Close() }, nil
}

// RecentEvents returns up to limit most recently published events, newest
// first, for late-joining views.
func (r *RedisBus) RecentEvents(ctx context.Context, limit int) ([]domain.TaskEvent, error) {
	if limit <= 0 || limit > recentEventsLimit {
		limit = recentEventsLimit
	}

	payloads, err := r.client.LRange(ctx, recentEventsKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read recent events: %w", err)
	}

	events := make([]domain.TaskEvent, 0, len(payloads))
	for _, payload := range payloads {
		var ev domain.TaskEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}
