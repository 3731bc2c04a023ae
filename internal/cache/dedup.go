package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	updateKeyPrefix = "remindbot:update:"
	// Telegram keeps undelivered updates for 24 hours.
	DefaultUpdateTTL = 48 * time.Hour
)

// Deduper remembers which transport updates were already handed to the
// ingestion loop.
type Deduper interface {
	// FirstSeen marks id as seen and reports whether this call was the first.
	FirstSeen(ctx context.Context, id int) (bool, error)
	// Forget undoes FirstSeen for an update that could not be handed over.
	Forget(ctx context.Context, id int) error
}

type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = DefaultUpdateTTL
	}
	return &RedisDeduper{client: client, ttl: ttl}
}

func (d *RedisDeduper) FirstSeen(ctx context.Context, id int) (bool, error) {
	return d.client.SetNX(ctx, updateKeyPrefix+strconv.Itoa(id), 1, d.ttl).Result()
}

func (d *RedisDeduper) Forget(ctx context.Context, id int) error {
	return d.client.Del(ctx, updateKeyPrefix+strconv.Itoa(id)).Err()
}

// MemoryDeduper is the fallback when redis is not configured. It only
// remembers the most recent updates and forgets everything on restart.
type MemoryDeduper struct {
	mu    sync.Mutex
	seen  map[int]struct{}
	order []int
	limit int
}

func NewMemoryDeduper(limit int) *MemoryDeduper {
	if limit <= 0 {
		limit = 1000
	}
	return &MemoryDeduper{seen: make(map[int]struct{}, limit), limit: limit}
}

func (d *MemoryDeduper) FirstSeen(_ context.Context, id int) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return false, nil
	}

	d.seen[id] = struct{}{}
	d.order = append(d.order, id)
	if len(d.order) > d.limit {
		delete(d.seen, d.order[0])
		d.order = d.order[1:]
	}
	return true, nil
}

func (d *MemoryDeduper) Forget(_ context.Context, id int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; !ok {
		return nil
	}
	delete(d.seen, id)
	for i, v := range d.order {
		if v == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return nil
}
