package utils

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/redis/go-redis/v9"

	"sectorwatch/internal/logger"
)

// 文档注释：Redis 连接参数
// 背景：REDIS_URL（redis:// 或 rediss://）优先；否则读取 REDIS_HOST/REDIS_PORT/REDIS_PASS/REDIS_DB。
// 返回：URL 或 REDIS_DB 非法时返回错误，由调用方决定是否关闭热缓存。
func RedisOptionsFromEnv() (*redis.Options, error) {
	if raw := os.Getenv("REDIS_URL"); raw != "" {
		opt, err := redis.ParseURL(raw)
		if err != nil {
			return nil, fmt.Errorf("REDIS_URL: %w", err)
		}
		return opt, nil
	}
	opt := &redis.Options{
		Addr:     net.JoinHostPort(env("REDIS_HOST", "127.0.0.1"), env("REDIS_PORT", "6379")),
		Password: os.Getenv("REDIS_PASS"),
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("REDIS_DB: invalid value %q", v)
		}
		opt.DB = n
	}
	return opt, nil
}

func OpenRedisFromEnv() (*redis.Client, error) {
	opt, err := RedisOptionsFromEnv()
	if err != nil {
		return nil, err
	}
	logger.L().Debug("redis_env", "addr", opt.Addr, "db", opt.DB)
	return redis.NewClient(opt), nil
}
