// 包 config：环境变量配置（可选 .env 文件），集中默认值
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"sectorwatch/internal/gw2api"
	"sectorwatch/internal/tracker"
)

type Config struct {
	APIBase    string
	APITimeout time.Duration

	Lang           string
	RetryAttempts  int
	RetryDelay     time.Duration
	PollInterval   time.Duration
	Cooldown       time.Duration
	MaxSpeed       float64
	SuppressBounce bool
	MapNotify      bool
	SectorNotify   bool
	IncludeRegion  bool
	IncludeMap     bool
	Sequential     bool

	RedisEnabled bool
	RedisTTL     time.Duration

	PGEnabled    bool
	MirrorMaxAge time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	Addr         string
	HTTPBase     string
	RateLimit    bool
	RateLimitQPS int
}

// Load：依次加载 ./.env 与 data/env/.env（已存在的环境变量优先），再读取环境
func Load() Config {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	return FromEnv()
}

func FromEnv() Config {
	return Config{
		APIBase:    str("GW2_API_BASE", gw2api.DefaultBase),
		APITimeout: ms("GW2_API_TIMEOUT_MS", 5000),

		Lang:           str("SW_LANG", "en"),
		RetryAttempts:  num("SW_RETRY_ATTEMPTS", 3),
		RetryDelay:     time.Duration(num("SW_RETRY_DELAY_S", 30)) * time.Second,
		PollInterval:   ms("SW_POLL_MS", 10),
		Cooldown:       time.Duration(num("SW_COOLDOWN_S", 5)) * time.Second,
		MaxSpeed:       float("SW_MAX_SPEED", 54),
		SuppressBounce: flag("SW_SUPPRESS_BOUNCE", false),
		MapNotify:      flag("SW_MAP_NOTIFY", true),
		SectorNotify:   flag("SW_SECTOR_NOTIFY", true),
		IncludeRegion:  flag("SW_INCLUDE_REGION", true),
		IncludeMap:     flag("SW_INCLUDE_MAP", true),
		Sequential:     flag("SW_SEQUENTIAL_INDEX", false),

		RedisEnabled: flag("REDIS_ENABLED", false),
		RedisTTL:     time.Duration(num("SW_REDIS_TTL_S", 86400)) * time.Second,

		PGEnabled:    flag("PG_ENABLED", false),
		MirrorMaxAge: time.Duration(num("SW_MIRROR_MAX_AGE_H", 168)) * time.Hour,
		KafkaBrokers: list("KAFKA_BROKERS"),
		KafkaTopic:   str("SW_KAFKA_TOPIC", "sectorwatch.events"),
		Addr:         str("ADDR", ":8080"),
		HTTPBase:     str("API_BASE", "/api"),
		RateLimit:    flag("RATE_LIMIT_ENABLED", false),
		RateLimitQPS: num("RATE_LIMIT_QPS", 200),
	}
}

// TrackerOptions：转换为跟踪器参数
func (c Config) TrackerOptions() tracker.Options {
	o := tracker.DefaultOptions()
	o.Lang = c.Lang
	o.PollInterval = c.PollInterval
	o.Cooldown = c.Cooldown
	o.MaxSpeed = c.MaxSpeed
	o.SuppressBounce = c.SuppressBounce
	o.MapNotify = c.MapNotify
	o.SectorNotify = c.SectorNotify
	o.IncludeRegion = c.IncludeRegion
	o.IncludeMap = c.IncludeMap
	o.Sequential = c.Sequential
	return o
}

func str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// 解析失败或为负时回退默认值
func num(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, e := strconv.Atoi(strings.TrimSpace(v)); e == nil && n >= 0 {
			return n
		}
	}
	return def
}

func ms(key string, def int) time.Duration {
	return time.Duration(num(key, def)) * time.Millisecond
}

func float(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, e := strconv.ParseFloat(strings.TrimSpace(v), 64); e == nil && f >= 0 {
			return f
		}
	}
	return def
}

func flag(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, e := strconv.ParseBool(strings.TrimSpace(v)); e == nil {
			return b
		}
	}
	return def
}

func list(key string) []string {
	var out []string
	for _, s := range strings.Split(os.Getenv(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
