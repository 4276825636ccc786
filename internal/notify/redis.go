package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// DefaultOutboxKey is the list external mail workers consume from.
const DefaultOutboxKey = "accounts:mail:outbox"

// RedisOutbox queues messages on a Redis list for an external mailer.
type RedisOutbox struct {
	client *redis.Client
	key    string
}

// DialRedisOutbox connects to Redis and verifies the connection.
func DialRedisOutbox(ctx context.Context, addr, password string, db int, key string) (*RedisOutbox, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisOutbox(client, key), nil
}

// NewRedisOutbox wraps an existing client.
func NewRedisOutbox(client *redis.Client, key string) *RedisOutbox {
	if key == "" {
		key = DefaultOutboxKey
	}
	return &RedisOutbox{client: client, key: key}
}

type outboxEntry struct {
	Message
	QueuedAt time.Time `json:"queuedAt"`
}

// Send pushes the message onto the outbox list.
func (o *RedisOutbox) Send(ctx context.Context, msg Message) error {
	data, err := json.Marshal(outboxEntry{Message: msg, QueuedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encode outbox entry: %w", err)
	}
	if err := o.client.LPush(ctx, o.key, data).Err(); err != nil {
		return fmt.Errorf("push outbox entry: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (o *RedisOutbox) Close() error {
	if o == nil || o.client == nil {
		return nil
	}
	return o.client.Close()
}
