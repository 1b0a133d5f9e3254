// Package dedup tracks which videos the collector has already queued and
// which URLs the rater has already discarded, so neither pipeline repeats
// work across runs. Lookups fail open: a redis error is logged and treated
// as "not seen", which at worst re-processes a video.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clipscout/clipscout/internal/logger"
)

type Tracker struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

// NewTracker wraps a connected redis client. ttl bounds how long seen-video
// marks live; discarded-URL marks are kept without expiry.
func NewTracker(client *redis.Client, ttl time.Duration, log logger.Logger) *Tracker {
	return &Tracker{
		client: client,
		ttl:    ttl,
		logger: log,
	}
}

func (t *Tracker) seenKey(videoID string) string {
	return fmt.Sprintf("seen:video:%s", videoID)
}

func (t *Tracker) discardedKey(url string) string {
	return fmt.Sprintf("discarded:url:%s", url)
}

// Seen reports whether the collector has already queued this video.
func (t *Tracker) Seen(ctx context.Context, videoID string) bool {
	return t.exists(ctx, t.seenKey(videoID))
}

// MarkSeen records a queued video for the tracker TTL.
func (t *Tracker) MarkSeen(ctx context.Context, videoID string) error {
	key := t.seenKey(videoID)
	if err := t.client.Set(ctx, key, "1", t.ttl).Err(); err != nil {
		t.logger.Error("Redis error marking video as seen",
			logger.String("video_id", videoID),
			logger.String("redis_key", key),
			logger.Error(err),
		)
		return err
	}
	t.logger.Debug("Marked video as seen",
		logger.String("video_id", videoID),
		logger.Duration("ttl", t.ttl),
	)
	return nil
}

// WasDiscarded reports whether this URL was rejected by a previous rating pass.
func (t *Tracker) WasDiscarded(ctx context.Context, url string) bool {
	return t.exists(ctx, t.discardedKey(url))
}

// MarkDiscarded records a rejected URL permanently.
func (t *Tracker) MarkDiscarded(ctx context.Context, url string) error {
	key := t.discardedKey(url)
	if err := t.client.Set(ctx, key, "1", 0).Err(); err != nil {
		t.logger.Error("Redis error marking URL as discarded",
			logger.String("url", url),
			logger.String("redis_key", key),
			logger.Error(err),
		)
		return err
	}
	return nil
}

func (t *Tracker) exists(ctx context.Context, key string) bool {
	exists, err := t.client.Exists(ctx, key).Result()
	if err != nil {
		t.logger.Error("Redis error checking key",
			logger.String("redis_key", key),
			logger.Error(err),
		)
		return false
	}
	return exists == 1
}

// Clear removes a seen-video mark, mainly for operator re-runs.
func (t *Tracker) Clear(ctx context.Context, videoID string) error {
	key := t.seenKey(videoID)
	if err := t.client.Del(ctx, key).Err(); err != nil {
		t.logger.Error("Redis error clearing seen mark",
			logger.String("video_id", videoID),
			logger.String("redis_key", key),
			logger.Error(err),
		)
		return err
	}
	return nil
}

// FlushSeen removes every seen-video mark with a cursor scan, leaving the
// discarded-URL marks in place.
func (t *Tracker) FlushSeen(ctx context.Context) error {
	pattern := "seen:video:*"
	var cursor uint64
	var deletedCount int

	for {
		var keys []string
		var err error
		const scanBatchSize = 100
		keys, cursor, err = t.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			t.logger.Error("Redis error scanning for keys",
				logger.String("pattern", pattern),
				logger.Error(err),
			)
			return fmt.Errorf("scan keys: %w", err)
		}

		if len(keys) > 0 {
			deleted, delErr := t.client.Del(ctx, keys...).Result()
			if delErr != nil {
				t.logger.Error("Redis error deleting keys",
					logger.Int("key_count", len(keys)),
					logger.Error(delErr),
				)
				return fmt.Errorf("delete keys: %w", delErr)
			}
			deletedCount += int(deleted)
		}

		if cursor == 0 {
			break
		}
	}

	t.logger.Info("Flushed seen-video marks",
		logger.Int("keys_deleted", deletedCount),
	)
	return nil
}
