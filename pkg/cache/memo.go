// Package cache memoizes expensive lookups in memory.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

type entry[V any] struct {
	value   V
	expires time.Time
}

// Memo is a size-bounded LRU whose entries expire after a TTL. Concurrent
// loads of the same key share one call. Failed loads are not cached.
type Memo[V any] struct {
	name string
	ttl  time.Duration

	mu    sync.Mutex
	items *lru.Cache
	group singleflight.Group

	now func() time.Time
}

// NewMemo keeps at most size entries for ttl each. A zero ttl never expires.
func NewMemo[V any](name string, size int, ttl time.Duration) *Memo[V] {
	return &Memo[V]{
		name:  name,
		ttl:   ttl,
		items: lru.New(size),
		now:   time.Now,
	}
}

// Peek returns a live cached value without loading.
func (m *Memo[V]) Peek(key string) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero V
	raw, ok := m.items.Get(key)
	if !ok {
		return zero, false
	}
	e := raw.(entry[V])
	if m.ttl > 0 && m.now().After(e.expires) {
		m.items.Remove(key)
		return zero, false
	}
	return e.value, true
}

func (m *Memo[V]) Set(key string, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items.Add(key, entry[V]{value: value, expires: m.now().Add(m.ttl)})
}

// maxJoins bounds how often Get starts over after joining a load whose
// caller went away.
const maxJoins = 3

// Get returns the cached value for key or calls load to fill it. A shared
// load runs on the context of the caller that started it; when that caller is
// cancelled the others start a new load on their own context.
func (m *Memo[V]) Get(ctx context.Context, key string, load func(context.Context) (V, error)) (V, error) {
	if v, ok := m.Peek(key); ok {
		log.Debug().Str("cache", m.name).Str("key", key).Msg("cache hit")
		return v, nil
	}

	var zero V
	for attempt := 1; ; attempt++ {
		ch := m.group.DoChan(key, func() (any, error) {
			log.Debug().Str("cache", m.name).Str("key", key).Msg("cache miss")
			v, err := load(ctx)
			if err != nil {
				return nil, err
			}
			m.Set(key, v)
			return v, nil
		})

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case res := <-ch:
			if res.Err == nil {
				return res.Val.(V), nil
			}
			if ctx.Err() == nil && attempt < maxJoins && isCancellation(res.Err) {
				log.Debug().Str("cache", m.name).Str("key", key).Msg("shared load cancelled, retrying")
				continue
			}
			return zero, res.Err
		}
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (m *Memo[V]) Remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items.Remove(key)
}

func (m *Memo[V]) Purge() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items.Clear()
}

func (m *Memo[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items.Len()
}
