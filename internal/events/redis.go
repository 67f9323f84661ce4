package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultChannel is the Pub/Sub channel used when none is configured.
const DefaultChannel = "portaljuridico:documents"

// Publisher is the part of a Redis client used to send events.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisBridge mirrors local events to a Redis channel and replays
// events from other instances into the local bus.
type RedisBridge struct {
	bus     *Bus
	pub     Publisher
	channel string
	log     *zap.Logger
}

// NewRedisBridge constructs a bridge over bus.
func NewRedisBridge(bus *Bus, pub Publisher, channel string, log *zap.Logger) *RedisBridge {
	if channel == "" {
		channel = DefaultChannel
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisBridge{bus: bus, pub: pub, channel: channel, log: log.Named("redis-bridge")}
}

// NewRedisClient connects to addr and checks the connection.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	c := redis.NewClient(&redis.Options{Addr: addr})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return c, nil
}

// Run forwards local events out and remote events in until ctx ends.
func (r *RedisBridge) Run(ctx context.Context, client *redis.Client) error {
	sub := client.Subscribe(ctx, r.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}

	local, cancel := r.bus.Subscribe(64)
	defer cancel()

	go r.Relay(ctx, sub.Channel())
	r.Forward(ctx, local)
	return ctx.Err()
}

// Forward publishes events produced by this instance until ctx ends or events closes.
func (r *RedisBridge) Forward(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if e.Origin != r.bus.Origin() {
				continue
			}
			if err := r.publish(ctx, e); err != nil {
				r.log.Warn("publish failed", zap.String("document", e.DocumentID), zap.Error(err))
			}
		}
	}
}

func (r *RedisBridge) publish(ctx context.Context, e Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return r.pub.Publish(ctx, r.channel, b).Err()
}

// Relay injects events of other instances into the local bus.
func (r *RedisBridge) Relay(ctx context.Context, msgs <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-msgs:
			if !ok {
				return
			}
			var e Event
			if err := json.Unmarshal([]byte(m.Payload), &e); err != nil {
				r.log.Warn("malformed event", zap.String("channel", m.Channel), zap.Error(err))
				continue
			}
			if e.Origin == "" || e.Origin == r.bus.Origin() {
				continue
			}
			r.bus.Publish(ctx, e)
		}
	}
}
