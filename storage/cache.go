package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"taskmanager/domain"
)

// Backend is implemented by every task store.
type Backend interface {
	Create(ctx context.Context, in domain.NewTask) (domain.Task, error)
	List(ctx context.Context, f domain.ListFilter) ([]domain.Task, error)
	Get(ctx context.Context, id string) (domain.Task, error)
	Update(ctx context.Context, id string, p domain.TaskPatch) (domain.Task, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// cacheVersionKey is bumped on every eviction. A read-through result is only
// stored when the version is unchanged since before the backend read.
const cacheVersionKey = "tasks:version"

var errCacheStale = errors.New("cache version changed during read")

var listCacheKeys = []string{
	listCacheKey(domain.ListFilter{}),
	listCacheKey(domain.CompletedFilter(true)),
	listCacheKey(domain.CompletedFilter(false)),
}

// Cache wraps a Backend with Redis-backed caching for read operations.
// Redis failures never fail a call; the backend is used instead.
type Cache struct {
	base   Backend
	redis  *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

// NewCache creates a caching wrapper using the provided Redis client and TTL.
func NewCache(base Backend, client *redis.Client, ttl time.Duration, logger *log.Logger) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Cache{base: base, redis: client, ttl: ttl, logger: logger}
}

func (c *Cache) Create(ctx context.Context, in domain.NewTask) (domain.Task, error) {
	t, err := c.base.Create(ctx, in)
	if err != nil {
		return domain.Task{}, err
	}
	c.evict(ctx, t.ID)
	return t, nil
}

func (c *Cache) List(ctx context.Context, f domain.ListFilter) ([]domain.Task, error) {
	key := listCacheKey(f)
	var tasks []domain.Task
	if c.load(ctx, key, &tasks) {
		return tasks, nil
	}

	version, ok := c.version(ctx)
	tasks, err := c.base.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if ok {
		c.store(ctx, key, tasks, version)
	}
	return tasks, nil
}

func (c *Cache) Get(ctx context.Context, id string) (domain.Task, error) {
	key := taskCacheKey(id)
	var t domain.Task
	if c.load(ctx, key, &t) {
		return t, nil
	}

	version, ok := c.version(ctx)
	t, err := c.base.Get(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	if ok {
		c.store(ctx, key, t, version)
	}
	return t, nil
}

func (c *Cache) Update(ctx context.Context, id string, p domain.TaskPatch) (domain.Task, error) {
	t, err := c.base.Update(ctx, id, p)
	if err != nil {
		return domain.Task{}, err
	}
	c.evict(ctx, id)
	return t, nil
}

func (c *Cache) Delete(ctx context.Context, id string) error {
	if err := c.base.Delete(ctx, id); err != nil {
		return err
	}
	c.evict(ctx, id)
	return nil
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.base.Ping(ctx)
}

func (c *Cache) load(ctx context.Context, key string, out any) bool {
	if c.redis == nil {
		return false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			c.logger.WithError(err).WithField("key", key).Warn("cache read failed")
			_ = c.redis.Del(ctx, key).Err()
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return false
	}
	return true
}

// version reports the current eviction counter. ok is false when the
// counter cannot be read, in which case nothing should be stored.
func (c *Cache) version(ctx context.Context) (int64, bool) {
	if c.redis == nil || c.ttl == 0 {
		return 0, false
	}
	v, err := c.redis.Get(ctx, cacheVersionKey).Int64()
	if err == redis.Nil {
		return 0, true
	}
	if err != nil {
		return 0, false
	}
	return v, true
}

func (c *Cache) store(ctx context.Context, key string, v any, version int64) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	err = c.redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, cacheVersionKey).Int64()
		if err != nil && err != redis.Nil {
			return err
		}
		if current != version {
			return errCacheStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, c.ttl)
			return nil
		})
		return err
	}, cacheVersionKey)
	switch {
	case err == nil:
	case errors.Is(err, errCacheStale), errors.Is(err, redis.TxFailedErr):
		c.logger.WithField("key", key).Debug("cache write skipped, entries evicted during read")
	default:
		c.logger.WithError(err).WithField("key", key).Warn("cache write failed")
	}
}

func (c *Cache) evict(ctx context.Context, id string) {
	if c.redis == nil {
		return
	}
	keys := append([]string{taskCacheKey(id)}, listCacheKeys...)
	_, err := c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, cacheVersionKey)
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		c.logger.WithError(err).WithField("task", id).Warn("cache eviction failed")
	}
}

func taskCacheKey(id string) string {
	return "tasks:item:" + domain.CanonicalID(id)
}

func listCacheKey(f domain.ListFilter) string {
	switch {
	case f.Completed == nil:
		return "tasks:list:all"
	case *f.Completed:
		return "tasks:list:completed"
	default:
		return "tasks:list:pending"
	}
}
