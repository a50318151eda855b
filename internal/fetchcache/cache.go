// 包 fetchcache：按键去重的异步取数缓存（single-flight + 结果常驻）
package fetchcache

import (
	"context"
	"fmt"
	"sync"

	"sectorwatch/internal/logger"
	"sectorwatch/internal/metrics"
)

// 文档注释：取数函数
// 背景：通常为带重试的远程调用或索引构建，可能较慢也可能失败。
type Producer[K comparable, V any] func(ctx context.Context, key K) (V, error)

// 文档注释：去重缓存
// 背景：多个调用方并发请求同一个键时，只允许一个取数函数在跑，其余调用方挂到同一个结果上。
// 约束：成功与失败结果都会常驻，直到 Remove；失败不会自动淘汰，需要调用方显式 Remove 以触发重试。
type Cache[K comparable, V any] struct {
	name    string
	produce Producer[K, V]

	mu      sync.Mutex
	entries map[K]*entry[V]
}

type entry[V any] struct {
	done chan struct{}
	val  V
	err  error
}

func (e *entry[V]) complete() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

// name 用作指标标签
func New[K comparable, V any](name string, produce Producer[K, V]) *Cache[K, V] {
	return &Cache[K, V]{name: name, produce: produce, entries: make(map[K]*entry[V])}
}

// 文档注释：获取键对应的值
// 背景：登记与挂接在同一把锁内完成，只有一个登记者会启动取数函数。
// 约束：取数函数在独立协程中以脱离取消的上下文运行，首个调用方放弃等待不会让其他等待者收到取消错误；
// 调用方可通过自身 ctx 提前返回。
func (c *Cache[K, V]) Get(ctx context.Context, key K) (V, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry[V]{done: make(chan struct{})}
		c.entries[key] = e
	}
	c.mu.Unlock()

	if ok {
		metrics.CacheHitsTotal.WithLabelValues(c.name).Inc()
	} else {
		metrics.CacheMissesTotal.WithLabelValues(c.name).Inc()
		go c.fill(context.WithoutCancel(ctx), key, e)
	}

	select {
	case <-e.done:
		return e.val, e.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

func (c *Cache[K, V]) fill(ctx context.Context, key K, e *entry[V]) {
	defer close(e.done)
	defer func() {
		if r := recover(); r != nil {
			e.err = fmt.Errorf("fetchcache %s: producer panic: %v", c.name, r)
		}
		if e.err != nil {
			metrics.CacheProducerFailTotal.WithLabelValues(c.name).Inc()
			logger.L().Debug("fetchcache_producer_error", "cache", c.name, "key", key, "err", e.err)
		}
	}()
	e.val, e.err = c.produce(ctx, key)
}

// 文档注释：淘汰键
// 返回：条目已成功完成时返回其值与 true；进行中或失败的条目直接淘汰，已挂接的等待者仍会收到原结果。
func (c *Cache[K, V]) Remove(key K) (V, bool) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		delete(c.entries, key)
	}
	c.mu.Unlock()

	var zero V
	if !ok {
		return zero, false
	}
	metrics.CacheEvictionsTotal.WithLabelValues(c.name).Inc()
	if e.complete() && e.err == nil {
		return e.val, true
	}
	return zero, false
}

// 是否存在条目（含进行中）
func (c *Cache[K, V]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// 条目存在且已完成（成功或失败）
func (c *Cache[K, V]) IsComplete(key K) bool {
	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()
	return ok && e.complete()
}

func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
