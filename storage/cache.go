package storage

import (
	"context"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"taskzen-api/domain"
)

// TaskCache wraps a TaskStorage with Redis-backed caching for the count
// queries feeding the dashboard. Counts for one owner live in a single
// hash keyed by owner, with one field per distinct query, so any write to
// that owner's tasks can invalidate them all with one delete.
type TaskCache struct {
	base  domain.TaskStorage
	redis *redis.Client
	ttl   time.Duration
}

// NewTaskCache creates a caching wrapper using the provided Redis client
// and TTL. A nil client or zero TTL disables caching entirely.
func NewTaskCache(base domain.TaskStorage, client *redis.Client, ttl time.Duration) *TaskCache {
	if base == nil {
		panic("storage.NewTaskCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &TaskCache{base: base, redis: client, ttl: ttl}
}

func (c *TaskCache) CountTasks(ctx context.Context, ownerID string, q domain.TaskQuery) (int64, error) {
	key := countsCacheKey(ownerID)
	field, ok := queryField(q)
	if ok {
		if n, hit := c.loadCount(ctx, key, field); hit {
			return n, nil
		}
	}

	n, err := c.base.CountTasks(ctx, ownerID, q)
	if err != nil {
		return 0, err
	}
	if ok {
		c.storeCount(ctx, key, field, n)
	}
	return n, nil
}

func (c *TaskCache) InsertTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	created, err := c.base.InsertTask(ctx, t)
	if err != nil {
		return domain.Task{}, err
	}
	c.evict(ctx, created.OwnerID)
	return created, nil
}

func (c *TaskCache) UpdateTask(ctx context.Context, t domain.Task) (*domain.Task, error) {
	updated, err := c.base.UpdateTask(ctx, t)
	if err != nil || updated == nil {
		return updated, err
	}
	c.evict(ctx, updated.OwnerID)
	return updated, nil
}

func (c *TaskCache) DeleteTask(ctx context.Context, id, ownerID string) (bool, error) {
	deleted, err := c.base.DeleteTask(ctx, id, ownerID)
	if err != nil || !deleted {
		return deleted, err
	}
	c.evict(ctx, ownerID)
	return true, nil
}

func (c *TaskCache) TaskByID(ctx context.Context, id, ownerID string) (*domain.Task, error) {
	return c.base.TaskByID(ctx, id, ownerID)
}

func (c *TaskCache) ListTasks(ctx context.Context, ownerID string, q domain.TaskQuery) ([]domain.Task, error) {
	return c.base.ListTasks(ctx, ownerID, q)
}

func (c *TaskCache) loadCount(ctx context.Context, key, field string) (int64, bool) {
	if c.redis == nil {
		return 0, false
	}
	val, err := c.redis.HGet(ctx, key, field).Result()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, key).Err()
		}
		return 0, false
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return 0, false
	}
	return n, true
}

func (c *TaskCache) storeCount(ctx context.Context, key, field string, n int64) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	if err := c.redis.HSet(ctx, key, field, strconv.FormatInt(n, 10)).Err(); err != nil {
		return
	}
	_ = c.redis.Expire(ctx, key, c.ttl).Err()
}

func (c *TaskCache) evict(ctx context.Context, ownerID string) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, countsCacheKey(ownerID)).Result()
}

func countsCacheKey(ownerID string) string {
	return "taskcounts:" + ownerID
}

// queryField fingerprints a query for use as a hash field.
func queryField(q domain.TaskQuery) (string, bool) {
	data, err := sonic.Marshal(q)
	if err != nil {
		return "", false
	}
	return string(data), true
}
