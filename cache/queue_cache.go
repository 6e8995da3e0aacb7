package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// QueueItem is one entry in a listener's play queue.
type QueueItem struct {
	SongID   string `json:"songId"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album,omitempty"`
	Position int    `json:"position"`
	AddedAt  int64  `json:"addedAt,omitempty"`
}

// queueTTL keeps abandoned queues from accumulating.
const queueTTL = 24 * time.Hour

// QueueCache stores per-user play queues as Redis sorted sets, scored by
// position.
type QueueCache struct {
	client *redis.Client
}

// NewQueueCache creates a play queue cache on the given Redis client.
func NewQueueCache(client *redis.Client) *QueueCache {
	return &QueueCache{client: client}
}

// QueueKey generates the Redis key for a user's play queue.
func QueueKey(userID int64) string {
	return fmt.Sprintf("queue:%d", userID)
}

// Add appends a song to the end of the user's queue.
func (c *QueueCache) Add(ctx context.Context, userID int64, item QueueItem) error {
	key := QueueKey(userID)

	items, err := c.Get(ctx, userID)
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to get current queue: %w", err)
	}

	maxPos := -1
	for _, existing := range items {
		if existing.Position > maxPos {
			maxPos = existing.Position
		}
	}
	item.Position = maxPos + 1
	item.AddedAt = time.Now().Unix()

	itemJSON, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal queue item: %w", err)
	}

	if err := c.client.ZAdd(ctx, key, redis.Z{
		Score:  float64(item.Position),
		Member: itemJSON,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add song to queue: %w", err)
	}

	if err := c.client.Expire(ctx, key, queueTTL).Err(); err != nil {
		return fmt.Errorf("failed to set queue expiration: %w", err)
	}

	return nil
}

// Get returns the user's queue in position order.
func (c *QueueCache) Get(ctx context.Context, userID int64) ([]QueueItem, error) {
	key := QueueKey(userID)

	members, err := c.client.ZRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read queue: %w", err)
	}

	items := make([]QueueItem, 0, len(members))
	for _, member := range members {
		var item QueueItem
		if err := json.Unmarshal([]byte(member), &item); err != nil {
			return nil, fmt.Errorf("failed to unmarshal queue item: %w", err)
		}
		items = append(items, item)
	}

	return items, nil
}

// Remove deletes the given song from the user's queue.
func (c *QueueCache) Remove(ctx context.Context, userID int64, songID string) error {
	key := QueueKey(userID)

	items, err := c.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get queue: %w", err)
	}

	for _, item := range items {
		if item.SongID == songID {
			itemJSON, err := json.Marshal(item)
			if err != nil {
				return fmt.Errorf("failed to marshal queue item: %w", err)
			}
			if err := c.client.ZRem(ctx, key, itemJSON).Err(); err != nil {
				return fmt.Errorf("failed to remove song from queue: %w", err)
			}
			return nil
		}
	}

	return nil
}

// Clear drops the user's entire queue.
func (c *QueueCache) Clear(ctx context.Context, userID int64) error {
	if err := c.client.Del(ctx, QueueKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to clear queue: %w", err)
	}
	return nil
}
