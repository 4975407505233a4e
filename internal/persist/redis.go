package persist

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chatframe/sessiond/internal/model"
)

// redisStore implements Store on Redis. The registry lives under one key as a
// JSON array, the last-session pointer under another, mirroring the widget's
// two local-storage keys.
type redisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func (s *redisStore) registryKey() string {
	return s.prefix + ":conversations"
}

func (s *redisStore) lastSessionKey() string {
	return s.prefix + ":last-session"
}

// LoadSummaries implements Store.
func (s *redisStore) LoadSummaries(ctx context.Context) ([]model.ConversationSummary, error) {
	val, err := s.client.Get(ctx, s.registryKey()).Result()
	if errors.Is(err, redis.Nil) {
		return []model.ConversationSummary{}, nil
	}
	if err != nil {
		return nil, err
	}

	var summaries []model.ConversationSummary
	if err := json.Unmarshal([]byte(val), &summaries); err != nil {
		// Corrupt registry recovers to empty, never surfaces.
		return []model.ConversationSummary{}, nil
	}
	return summaries, nil
}

// SaveSummaries implements Store.
func (s *redisStore) SaveSummaries(ctx context.Context, summaries []model.ConversationSummary) error {
	data, err := json.Marshal(summaries)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, s.registryKey(), data, s.ttl).Err()
}

// LastSessionID implements Store.
func (s *redisStore) LastSessionID(ctx context.Context) (string, error) {
	val, err := s.client.Get(ctx, s.lastSessionKey()).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// SetLastSessionID implements Store.
func (s *redisStore) SetLastSessionID(ctx context.Context, id string) error {
	return s.client.Set(ctx, s.lastSessionKey(), id, s.ttl).Err()
}

// Close implements Store.
func (s *redisStore) Close() error {
	return s.client.Close()
}
