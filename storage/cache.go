package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"kanban-api/domain"
)

type backend interface {
	LoadBoard(ctx context.Context, boardID string) (domain.Board, error)
	SaveBoard(ctx context.Context, boardID string, b domain.Board) error
	LoadSettings(ctx context.Context, boardID string) (domain.Settings, error)
	SaveSettings(ctx context.Context, boardID string, settings domain.Settings) error
}

// Cache wraps a Storage instance with Redis-backed caching for read operations.
// Writes go straight through and evict the cached copy, so the next read
// observes the stored document.
type Cache struct {
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching Storage wrapper using the provided Redis client and TTL.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{
		base:  base,
		redis: client,
		ttl:   ttl,
	}
}

func (c *Cache) LoadBoard(ctx context.Context, boardID string) (domain.Board, error) {
	if b, ok := c.loadBoardFromCache(ctx, boardID); ok {
		return b, nil
	}

	b, err := c.base.LoadBoard(ctx, boardID)
	if err != nil {
		return domain.Board{}, err
	}

	c.storeBoard(ctx, boardID, b)
	return b, nil
}

func (c *Cache) SaveBoard(ctx context.Context, boardID string, b domain.Board) error {
	if err := c.base.SaveBoard(ctx, boardID, b); err != nil {
		return err
	}

	c.evict(ctx, boardCacheKey(boardID))
	return nil
}

func (c *Cache) LoadSettings(ctx context.Context, boardID string) (domain.Settings, error) {
	if settings, ok := c.loadSettingsFromCache(ctx, boardID); ok {
		return settings, nil
	}

	settings, err := c.base.LoadSettings(ctx, boardID)
	if err != nil {
		return domain.Settings{}, err
	}

	c.storeSettings(ctx, boardID, settings)
	return settings, nil
}

func (c *Cache) SaveSettings(ctx context.Context, boardID string, settings domain.Settings) error {
	if err := c.base.SaveSettings(ctx, boardID, settings); err != nil {
		return err
	}

	c.evict(ctx, settingsCacheKey(boardID))
	return nil
}

func (c *Cache) loadBoardFromCache(ctx context.Context, boardID string) (domain.Board, bool) {
	if c.redis == nil {
		return domain.Board{}, false
	}
	data, err := c.redis.Get(ctx, boardCacheKey(boardID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, boardCacheKey(boardID)).Err()
		}
		return domain.Board{}, false
	}
	var b domain.Board
	if err := json.Unmarshal(data, &b); err != nil {
		_ = c.redis.Del(ctx, boardCacheKey(boardID)).Err()
		return domain.Board{}, false
	}
	return b, true
}

func (c *Cache) loadSettingsFromCache(ctx context.Context, boardID string) (domain.Settings, bool) {
	if c.redis == nil {
		return domain.Settings{}, false
	}
	data, err := c.redis.Get(ctx, settingsCacheKey(boardID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			_ = c.redis.Del(ctx, settingsCacheKey(boardID)).Err()
		}
		return domain.Settings{}, false
	}
	var settings domain.Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		_ = c.redis.Del(ctx, settingsCacheKey(boardID)).Err()
		return domain.Settings{}, false
	}
	return settings, true
}

func (c *Cache) storeBoard(ctx context.Context, boardID string, b domain.Board) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(b)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, boardCacheKey(boardID), data, c.ttl).Err()
}

func (c *Cache) storeSettings(ctx context.Context, boardID string, settings domain.Settings) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, settingsCacheKey(boardID), data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, key string) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, key).Result()
}

func boardCacheKey(boardID string) string {
	return "board:" + boardID
}

func settingsCacheKey(boardID string) string {
	return "settings:" + boardID
}
