package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/frypillows/models"
)

const keyPrefix = "fry:settings:"

// Store persists per-guild settings.
type Store interface {
	// Get returns the guild's settings; an unknown guild yields empty settings, not an error.
	Get(ctx context.Context, guildID string) (models.GuildSettings, error)
	// Merge shallow-merges patch into the stored settings and returns the result.
	Merge(ctx context.Context, guildID string, patch models.GuildSettings) (models.GuildSettings, error)
}

func merge(current, patch models.GuildSettings) models.GuildSettings {
	out := models.GuildSettings{}
	for k, v := range current {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// RedisStore keeps each guild's settings as one JSON string.
type RedisStore struct {
	rc *redis.Client
}

func NewRedisStore(rc *redis.Client) *RedisStore {
	return &RedisStore{rc: rc}
}

func (s *RedisStore) Get(ctx context.Context, guildID string) (models.GuildSettings, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	raw, err := s.rc.Get(ctx, keyPrefix+guildID).Bytes()
	return decode(raw, err)
}

func (s *RedisStore) Merge(ctx context.Context, guildID string, patch models.GuildSettings) (models.GuildSettings, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	key := keyPrefix + guildID

	var merged models.GuildSettings
	txf := func(tx *redis.Tx) error {
		current, err := decode(tx.Get(ctx, key).Bytes())
		if err != nil {
			return err
		}
		merged = merge(current, patch)
		b, err := json.Marshal(merged)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, 0)
			return nil
		})
		return err
	}

	// Optimistic lock: retry when another writer touched the key between GET and SET.
	for attempt := 0; attempt < 3; attempt++ {
		err := s.rc.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("merge settings for guild %s: %w", guildID, err)
		}
		return merged, nil
	}
	return nil, fmt.Errorf("merge settings for guild %s: too much contention", guildID)
}

func decode(raw []byte, err error) (models.GuildSettings, error) {
	if errors.Is(err, redis.Nil) {
		return models.GuildSettings{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := models.GuildSettings{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return out, nil
}

// MemoryStore is a process-local Store for tests and SETTINGS_MODE=memory.
type MemoryStore struct {
	mu     sync.Mutex
	guilds map[string]models.GuildSettings
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{guilds: map[string]models.GuildSettings{}}
}

func (s *MemoryStore) Get(ctx context.Context, guildID string) (models.GuildSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return merge(s.guilds[guildID], nil), nil
}

func (s *MemoryStore) Merge(ctx context.Context, guildID string, patch models.GuildSettings) (models.GuildSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	merged := merge(s.guilds[guildID], patch)
	s.guilds[guildID] = merged
	return merge(merged, nil), nil
}
