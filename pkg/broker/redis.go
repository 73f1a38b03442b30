// Package broker relays layout events between dashboard instances over
// Redis pub/sub.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/girlsclub/modular-dashboard/components/dashboard"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultChannel is used when no channel is configured.
const DefaultChannel = "dashboard.layout"

// Publisher is the subset of the Redis client used to publish.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *goredis.IntCmd
}

// Envelope is the wire form of a relayed event. Origin identifies the
// publishing instance so it can skip its own messages.
type Envelope struct {
	Origin string                `json:"origin"`
	Event  dashboard.LayoutEvent `json:"event"`
}

// Config configures a Redis broker.
type Config struct {
	Addr     string
	Password string
	DB       int
	Channel  string
	Logger   *zap.Logger
}

// Redis publishes layout events and forwards remote ones to a local hook.
type Redis struct {
	rdb     *goredis.Client
	pub     Publisher
	channel string
	origin  string
	log     *zap.Logger
}

// Dial connects to Redis and verifies the connection.
func Dial(ctx context.Context, cfg Config) (*Redis, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("broker: redis address is required")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("broker: redis ping: %w", err)
	}
	b := New(rdb, cfg.Channel, cfg.Logger)
	b.rdb = rdb
	return b, nil
}

// New wraps an existing publisher.
func New(pub Publisher, channel string, logger *zap.Logger) *Redis {
	if strings.TrimSpace(channel) == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{
		pub:     pub,
		channel: channel,
		origin:  uuid.NewString(),
		log:     logger.Named("broker"),
	}
}

// Channel returns the default channel.
func (b *Redis) Channel() string {
	return b.channel
}

// PublishLayoutEvent satisfies dashboard.NotificationsClient.
func (b *Redis) PublishLayoutEvent(ctx context.Context, channel string, event dashboard.LayoutEvent) error {
	if b == nil || b.pub == nil {
		return fmt.Errorf("broker: not initialized")
	}
	if channel == "" {
		channel = b.channel
	}
	raw, err := json.Marshal(Envelope{Origin: b.origin, Event: event})
	if err != nil {
		return fmt.Errorf("broker: encode event: %w", err)
	}
	if err := b.pub.Publish(ctx, channel, raw).Err(); err != nil {
		return fmt.Errorf("broker: publish: %w", err)
	}
	return nil
}

// Hook returns a ChangeHook publishing on the broker's channel.
func (b *Redis) Hook() dashboard.ChangeHook {
	return &dashboard.NotificationsHook{Client: b, Channel: b.channel}
}

// StartForwarder subscribes to the channel and hands events published by
// other instances to sink until ctx is done.
func (b *Redis) StartForwarder(ctx context.Context, sink dashboard.ChangeHook) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("broker: not connected")
	}
	if sink == nil {
		return fmt.Errorf("broker: sink is required")
	}
	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("broker: subscribe: %w", err)
	}
	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok || msg == nil {
					return
				}
				b.forward(ctx, msg.Payload, sink)
			}
		}
	}()
	return nil
}

func (b *Redis) forward(ctx context.Context, payload string, sink dashboard.ChangeHook) bool {
	var env Envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		b.log.Warn("bad layout event payload", zap.Error(err))
		return false
	}
	if env.Origin == b.origin || env.Event.OrganizationID == "" {
		return false
	}
	if err := sink.LayoutChanged(ctx, env.Event); err != nil {
		b.log.Warn("forward layout event", zap.String("organization_id", env.Event.OrganizationID), zap.Error(err))
		return false
	}
	return true
}

// Close releases the Redis connection when the broker owns it.
func (b *Redis) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}

var _ dashboard.NotificationsClient = (*Redis)(nil)
