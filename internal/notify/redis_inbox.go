package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ecohood/points-ledger/internal/config"
)

// RedisInbox keeps the newest notifications of each user in a Redis list and publishes
// every new notification on a pub/sub channel for live clients.
type RedisInbox struct {
	client    *redis.Client
	keyPrefix string
	maxItems  int64
	channel   string
}

// NewRedisInbox creates a Redis-backed inbox.
func NewRedisInbox(client *redis.Client, cfg *config.RedisInboxConfig) *RedisInbox {
	maxItems := cfg.MaxItems
	if maxItems <= 0 {
		maxItems = 100
	}
	return &RedisInbox{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
		maxItems:  maxItems,
		channel:   cfg.Channel,
	}
}

func (r *RedisInbox) key(userID uint) string {
	return fmt.Sprintf("%sinbox:%d", r.keyPrefix, userID)
}

// Notify implements Dispatcher.
func (r *RedisInbox) Notify(ctx context.Context, userID uint, title, content string) error {
	payload, err := json.Marshal(Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	key := r.key(userID)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, payload)
		pipe.LTrim(ctx, key, 0, r.maxItems-1)
		if r.channel != "" {
			pipe.Publish(ctx, r.channel, payload)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store notification for user %d: %w", userID, err)
	}
	return nil
}

// List returns up to limit notifications of a user, newest first.
func (r *RedisInbox) List(ctx context.Context, userID uint, limit int64) ([]Notification, error) {
	if limit <= 0 || limit > r.maxItems {
		limit = r.maxItems
	}

	raw, err := r.client.LRange(ctx, r.key(userID), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read inbox of user %d: %w", userID, err)
	}

	notifications := make([]Notification, 0, len(raw))
	for _, item := range raw {
		var n Notification
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			return nil, fmt.Errorf("failed to decode notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, nil
}
