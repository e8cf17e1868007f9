package rediscache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTTL = 5 * time.Minute

// Whitelist caches membership lookups in redis so every photo in a busy chat
// does not hit postgres. Entries expire on their own; admin mutations
// invalidate eagerly.
type Whitelist struct {
	client *redis.Client
	ttl    time.Duration
}

func NewWhitelist(client *redis.Client, ttl time.Duration) *Whitelist {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Whitelist{client: client, ttl: ttl}
}

// Get returns (member, found, error). found=false means the cache holds no
// answer and the caller should consult the backing store.
func (w *Whitelist) Get(ctx context.Context, chatID, userID int64) (bool, bool, error) {
	if w == nil || w.client == nil {
		return false, false, nil
	}

	value, err := w.client.Get(ctx, key(chatID, userID)).Result()
	if err != nil {
		if err == redis.Nil {
			return false, false, nil
		}
		return false, false, err
	}
	return value == "1", true, nil
}

func (w *Whitelist) Set(ctx context.Context, chatID, userID int64, member bool) error {
	if w == nil || w.client == nil {
		return nil
	}

	value := "0"
	if member {
		value = "1"
	}
	return w.client.Set(ctx, key(chatID, userID), value, w.ttl).Err()
}

func (w *Whitelist) Invalidate(ctx context.Context, chatID, userID int64) error {
	if w == nil || w.client == nil {
		return nil
	}
	return w.client.Del(ctx, key(chatID, userID)).Err()
}

func key(chatID, userID int64) string {
	return "wl:" + strconv.FormatInt(chatID, 10) + ":" + strconv.FormatInt(userID, 10)
}
