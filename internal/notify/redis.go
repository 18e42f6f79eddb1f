// Package notify relays store change events to Redis pub/sub so other
// processes (search indexers, caches, other wiki replicas) can react to edits.
package notify

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/gowiki/gowiki/internal/wiki"
	"github.com/gowiki/gowiki/pkg/logger"
)

// Source is the part of the store the relay needs.
type Source interface {
	Subscribe(buffer int) (<-chan wiki.Event, func())
}

// RedisRelay publishes every event from a Source on a Redis channel.
type RedisRelay struct {
	client  *redis.Client
	channel string
	buffer  int

	cancel func()
	done   chan struct{}
	once   sync.Once
}

func NewRedisRelay(client *redis.Client, channel string) *RedisRelay {
	if channel == "" {
		channel = "wiki:events"
	}
	return &RedisRelay{client: client, channel: channel, buffer: 256}
}

// Start subscribes to src and publishes in the background until ctx is
// cancelled or Stop is called. Events committed after Start returns are relayed.
func (r *RedisRelay) Start(ctx context.Context, src Source) {
	ch, cancel := src.Subscribe(r.buffer)
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.run(ctx, ch)
}

func (r *RedisRelay) run(ctx context.Context, ch <-chan wiki.Event) {
	defer close(r.done)
	for {
		select {
		case <-ctx.Done():
			r.cancel()
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := r.publish(ctx, ev); err != nil {
				logger.Warnf("relay %s event for %s: %v", ev.Type, ev.Path, err)
			}
		}
	}
}

func (r *RedisRelay) publish(ctx context.Context, ev wiki.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, b).Err()
}

// Stop unsubscribes and waits for the publisher goroutine to exit.
func (r *RedisRelay) Stop() {
	r.once.Do(func() {
		if r.cancel == nil {
			return
		}
		r.cancel()
		<-r.done
	})
}
