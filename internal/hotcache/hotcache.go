// 包 hotcache：Redis 读穿缓存，挡在远端 API 之前
package hotcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"sectorwatch/internal/gw2api"
	"sectorwatch/internal/logger"
	"sectorwatch/internal/metrics"
)

const DefaultTTL = 24 * time.Hour

// 文档注释：Redis 热缓存装饰器
// 背景：地图与区域元数据几乎不变，多进程/重启之间共享可显著减少远端调用。
// 约束：Redis 不可用时退化为直通；只缓存成功结果，失败（含终态）从不写入。
type Cache struct {
	rc   *redis.Client
	next gw2api.Source
	ttl  time.Duration
}

func New(rc *redis.Client, next gw2api.Source, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{rc: rc, next: next, ttl: ttl}
}

func MapKey(lang string, id int) string { return fmt.Sprintf("sw:%s:map:%d", lang, id) }

func SectorsKey(lang string, q gw2api.SectorQuery) string {
	return fmt.Sprintf("sw:%s:sectors:%d:%d:%d:%d", lang, q.Continent, q.Floor, q.Region, q.Map)
}

func (c *Cache) Map(ctx context.Context, lang string, id int) (*gw2api.Map, error) {
	key := MapKey(lang, id)
	var m gw2api.Map
	if c.load(ctx, key, &m) {
		return &m, nil
	}
	v, err := c.next.Map(ctx, lang, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, v)
	return v, nil
}

func (c *Cache) Sectors(ctx context.Context, lang string, q gw2api.SectorQuery) ([]gw2api.Sector, error) {
	key := SectorsKey(lang, q)
	var out []gw2api.Sector
	if c.load(ctx, key, &out) {
		return out, nil
	}
	v, err := c.next.Sectors(ctx, lang, q)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, v)
	return v, nil
}

func (c *Cache) load(ctx context.Context, key string, dst any) bool {
	if c.rc == nil {
		return false
	}
	s, err := c.rc.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.L().Warn("hotcache_get_error", "key", key, "err", err)
		}
		metrics.RedisMissesTotal.Inc()
		return false
	}
	if err := json.Unmarshal([]byte(s), dst); err != nil {
		logger.L().Warn("hotcache_decode_error", "key", key, "err", err)
		metrics.RedisMissesTotal.Inc()
		return false
	}
	metrics.RedisHitsTotal.Inc()
	return true
}

func (c *Cache) store(ctx context.Context, key string, v any) {
	if c.rc == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rc.Set(ctx, key, string(b), c.ttl).Err(); err != nil {
		logger.L().Warn("hotcache_set_error", "key", key, "err", err)
	}
}

// 淘汰某地图在指定语言下的元数据键（区域键随地图 id 的全部楼层一并删除）
func (c *Cache) Forget(ctx context.Context, lang string, id int) error {
	if c.rc == nil {
		return nil
	}
	keys := []string{MapKey(lang, id)}
	iter := c.rc.Scan(ctx, 0, fmt.Sprintf("sw:%s:sectors:*:*:*:%d", lang, id), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return c.rc.Del(ctx, keys...).Err()
}
