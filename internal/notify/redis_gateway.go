package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis channels collaborators subscribe to.
const (
	// ChannelPassIssued carries IssuedEvent payloads.
	ChannelPassIssued = "passdeck.pass_issued"
	// ChannelReminderDue carries ReminderEvent payloads.
	ChannelReminderDue = "passdeck.reminder_due"
)

// RedisGateway publishes engine events to Redis pub/sub channels so the
// notification service and checkout flows can react without polling.
type RedisGateway struct {
	client *redis.Client
}

// NewRedisGateway connects a publisher to the given Redis address.
func NewRedisGateway(addr, password string, dbIndex int) *RedisGateway {
	if addr == "" {
		return nil
	}
	return &RedisGateway{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       dbIndex,
		}),
	}
}

// PassIssued publishes an issuance event.
func (g *RedisGateway) PassIssued(ctx context.Context, evt IssuedEvent) error {
	return g.publish(ctx, ChannelPassIssued, evt)
}

// ReminderDue publishes a reminder event.
func (g *RedisGateway) ReminderDue(ctx context.Context, evt ReminderEvent) error {
	return g.publish(ctx, ChannelReminderDue, evt)
}

// Close releases the underlying client.
func (g *RedisGateway) Close() error {
	if g == nil || g.client == nil {
		return nil
	}
	return g.client.Close()
}

func (g *RedisGateway) publish(ctx context.Context, channel string, payload any) error {
	if g == nil || g.client == nil {
		return errors.New("notify: redis gateway not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	encoded, errMarshal := json.Marshal(payload)
	if errMarshal != nil {
		return fmt.Errorf("notify: encode event: %w", errMarshal)
	}
	if errPublish := g.client.Publish(ctx, channel, encoded).Err(); errPublish != nil {
		return fmt.Errorf("notify: publish %s: %w", channel, errPublish)
	}
	return nil
}
