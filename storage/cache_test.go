package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"taskzen-api/domain"
)

type stubTasks struct {
	domain.TaskStorage

	countFn  func(ctx context.Context, ownerID string, q domain.TaskQuery) (int64, error)
	insertFn func(ctx context.Context, t domain.Task) (domain.Task, error)
	updateFn func(ctx context.Context, t domain.Task) (*domain.Task, error)
	deleteFn func(ctx context.Context, id, ownerID string) (bool, error)
}

func (s *stubTasks) CountTasks(ctx context.Context, ownerID string, q domain.TaskQuery) (int64, error) {
	if s.countFn == nil {
		return 0, errors.New("unexpected CountTasks call")
	}
	return s.countFn(ctx, ownerID, q)
}

func (s *stubTasks) InsertTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	if s.insertFn == nil {
		return domain.Task{}, errors.New("unexpected InsertTask call")
	}
	return s.insertFn(ctx, t)
}

func (s *stubTasks) UpdateTask(ctx context.Context, t domain.Task) (*domain.Task, error) {
	if s.updateFn == nil {
		return nil, errors.New("unexpected UpdateTask call")
	}
	return s.updateFn(ctx, t)
}

func (s *stubTasks) DeleteTask(ctx context.Context, id, ownerID string) (bool, error) {
	if s.deleteFn == nil {
		return false, errors.New("unexpected DeleteTask call")
	}
	return s.deleteFn(ctx, id, ownerID)
}

func newCacheFixture(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestTaskCacheCountMissThenHit(t *testing.T) {
	mr, client := newCacheFixture(t)
	ctx := context.Background()
	ownerID := "owner-1"

	var calls int
	cache := NewTaskCache(&stubTasks{
		countFn: func(ctx context.Context, owner string, q domain.TaskQuery) (int64, error) {
			calls++
			if owner != ownerID {
				t.Fatalf("unexpected owner id: %s", owner)
			}
			return 7, nil
		},
	}, client, time.Minute)

	q := domain.TaskQuery{NotCompleted: true}
	n, err := cache.CountTasks(ctx, ownerID, q)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 7 || calls != 1 {
		t.Fatalf("unexpected miss result: n=%d calls=%d", n, calls)
	}
	if ttl := mr.TTL(countsCacheKey(ownerID)); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected TTL: %v", ttl)
	}

	n, err = cache.CountTasks(ctx, ownerID, q)
	if err != nil {
		t.Fatalf("cached count: %v", err)
	}
	if n != 7 || calls != 1 {
		t.Fatalf("expected a cache hit: n=%d calls=%d", n, calls)
	}
}

func TestTaskCacheDistinguishesQueries(t *testing.T) {
	_, client := newCacheFixture(t)
	ctx := context.Background()

	counts := map[bool]int64{true: 3, false: 9}
	cache := NewTaskCache(&stubTasks{
		countFn: func(ctx context.Context, owner string, q domain.TaskQuery) (int64, error) {
			return counts[q.NotCompleted], nil
		},
	}, client, time.Minute)

	all, err := cache.CountTasks(ctx, "owner-1", domain.TaskQuery{NotCompleted: true})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	done, err := cache.CountTasks(ctx, "owner-1", domain.TaskQuery{Status: domain.StatusCompleted})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if all != 3 || done != 9 {
		t.Fatalf("queries must key distinct fields: all=%d done=%d", all, done)
	}
}

func TestTaskCacheWritesEvict(t *testing.T) {
	mr, client := newCacheFixture(t)
	ctx := context.Background()
	ownerID := "owner-1"

	var calls int
	cache := NewTaskCache(&stubTasks{
		countFn: func(ctx context.Context, owner string, q domain.TaskQuery) (int64, error) {
			calls++
			return int64(calls), nil
		},
		insertFn: func(ctx context.Context, task domain.Task) (domain.Task, error) {
			task.ID = "t1"
			return task, nil
		},
		deleteFn: func(ctx context.Context, id, owner string) (bool, error) {
			return true, nil
		},
	}, client, time.Minute)

	q := domain.TaskQuery{}
	if _, err := cache.CountTasks(ctx, ownerID, q); err != nil {
		t.Fatalf("count: %v", err)
	}
	if !mr.Exists(countsCacheKey(ownerID)) {
		t.Fatalf("expected cached counts after read")
	}

	if _, err := cache.InsertTask(ctx, domain.Task{OwnerID: ownerID, Title: "x"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if mr.Exists(countsCacheKey(ownerID)) {
		t.Fatalf("expected insert to evict cached counts")
	}

	n, err := cache.CountTasks(ctx, ownerID, q)
	if err != nil {
		t.Fatalf("count after evict: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected a fresh backend count, got %d", n)
	}

	if _, err := cache.DeleteTask(ctx, "t1", ownerID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists(countsCacheKey(ownerID)) {
		t.Fatalf("expected delete to evict cached counts")
	}
}

func TestTaskCacheFailedWritesDoNotEvict(t *testing.T) {
	mr, client := newCacheFixture(t)
	ctx := context.Background()
	ownerID := "owner-1"

	cache := NewTaskCache(&stubTasks{
		countFn: func(ctx context.Context, owner string, q domain.TaskQuery) (int64, error) {
			return 4, nil
		},
		deleteFn: func(ctx context.Context, id, owner string) (bool, error) {
			return false, nil
		},
	}, client, time.Minute)

	if _, err := cache.CountTasks(ctx, ownerID, domain.TaskQuery{}); err != nil {
		t.Fatalf("count: %v", err)
	}
	if deleted, err := cache.DeleteTask(ctx, "missing", ownerID); err != nil || deleted {
		t.Fatalf("unexpected delete result: %v, %v", deleted, err)
	}
	if !mr.Exists(countsCacheKey(ownerID)) {
		t.Fatalf("a no-op delete must not evict cached counts")
	}
}

func TestTaskCacheNilClientPassesThrough(t *testing.T) {
	ctx := context.Background()

	var calls int
	cache := NewTaskCache(&stubTasks{
		countFn: func(ctx context.Context, owner string, q domain.TaskQuery) (int64, error) {
			calls++
			return 1, nil
		},
	}, nil, time.Minute)

	for i := 0; i < 3; i++ {
		if _, err := cache.CountTasks(ctx, "owner-1", domain.TaskQuery{}); err != nil {
			t.Fatalf("count: %v", err)
		}
	}
	if calls != 3 {
		t.Fatalf("expected every call to reach the backend, got %d", calls)
	}
}

func TestTaskCacheSurvivesRedisOutage(t *testing.T) {
	mr, client := newCacheFixture(t)
	ctx := context.Background()

	cache := NewTaskCache(&stubTasks{
		countFn: func(ctx context.Context, owner string, q domain.TaskQuery) (int64, error) {
			return 5, nil
		},
	}, client, time.Minute)

	mr.Close()

	n, err := cache.CountTasks(ctx, "owner-1", domain.TaskQuery{})
	if err != nil {
		t.Fatalf("count with redis down: %v", err)
	}
	if n != 5 {
		t.Fatalf("expected backend count, got %d", n)
	}
}
