package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clipscout/clipscout/internal/logger"
)

const connectionTimeout = 2 * time.Second

// NewRedisClient connects and pings before handing the client back.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// RedisStore keeps one redis list per destination. Appends go to the tail,
// the rating pipeline peeks the head and removes by value after persisting
// the outcome.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	logger    logger.Logger
}

// NewRedisStore wraps an already-connected client.
func NewRedisStore(client *redis.Client, keyPrefix string, log logger.Logger) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "clipscout:queue"
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix, logger: log}
}

func (s *RedisStore) key(dest Destination) string {
	return fmt.Sprintf("%s:%s", s.keyPrefix, dest)
}

func (s *RedisStore) Append(ctx context.Context, dest Destination, payload json.RawMessage) error {
	if err := s.client.RPush(ctx, s.key(dest), []byte(payload)).Err(); err != nil {
		return fmt.Errorf("append to %s: %w", dest, err)
	}
	s.logger.Debug("Appended queue record",
		logger.String("destination", string(dest)),
		logger.Int("bytes", len(payload)),
	)
	return nil
}

func (s *RedisStore) DequeueNext(ctx context.Context, dest Destination) (*Item, error) {
	raw, err := s.client.LIndex(ctx, s.key(dest), 0).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("peek %s: %w", dest, err)
	}
	// The payload itself is the removal handle; records carry unique IDs.
	return &Item{Handle: raw, Payload: json.RawMessage(raw)}, nil
}

func (s *RedisStore) Remove(ctx context.Context, dest Destination, item *Item) error {
	removed, err := s.client.LRem(ctx, s.key(dest), 1, item.Handle).Result()
	if err != nil {
		return fmt.Errorf("remove from %s: %w", dest, err)
	}
	if removed == 0 {
		return ErrEmpty
	}
	return nil
}

func (s *RedisStore) Len(ctx context.Context, dest Destination) (int, error) {
	n, err := s.client.LLen(ctx, s.key(dest)).Result()
	if err != nil {
		return 0, fmt.Errorf("len of %s: %w", dest, err)
	}
	return int(n), nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
