// 程序入口：读取配置、组装数据源装饰链与通知出口，启动轮询循环与 HTTP/WebSocket 服务
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sectorwatch/internal/api"
	"sectorwatch/internal/config"
	"sectorwatch/internal/gw2api"
	"sectorwatch/internal/hotcache"
	"sectorwatch/internal/logger"
	"sectorwatch/internal/middleware"
	"sectorwatch/internal/migrate"
	"sectorwatch/internal/notify"
	"sectorwatch/internal/overlay"
	"sectorwatch/internal/store"
	"sectorwatch/internal/tracker"
	"sectorwatch/internal/utils"
)

func main() {
	cfg := config.Load()
	l := logger.Setup()
	l.Debug("log_init_ok")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 数据源装饰链：HTTP → 重试 → Postgres 镜像 → Redis 热缓存
	var src gw2api.Source = gw2api.WithRetry(
		gw2api.NewClient(cfg.APIBase, &http.Client{Timeout: cfg.APITimeout}),
		cfg.RetryAttempts, cfg.RetryDelay,
	)
	var purgers []api.Purge
	var visits api.Visits
	sinks := notify.Fanout{{Name: "log", Notifier: notify.LogNotifier{}}}

	if cfg.PGEnabled {
		st, err := store.Open(utils.PostgresDSN())
		if err != nil {
			l.Error("db_open_error", "err", err)
			os.Exit(1)
		}
		defer st.Close()
		if err := st.DB().PingContext(ctx); err != nil {
			l.Error("db_ping_error", "err", err)
		} else {
			l.Info("db_ping_ok")
		}
		if err := migrate.EnsureSchema(st.DB()); err != nil {
			l.Error("schema_error", "err", err)
			os.Exit(1)
		}
		mirror := st.Mirror(src, cfg.MirrorMaxAge)
		src = mirror
		purgers = append(purgers, func(ctx context.Context, _ string, id int) error { return mirror.Forget(ctx, id) })
		journal := st.Journal()
		visits = journal
		sinks = append(sinks, notify.Named{Name: "journal", Notifier: journal})
	} else {
		l.Info("db_disabled")
	}

	if cfg.RedisEnabled {
		if rc, err := utils.OpenRedisFromEnv(); err != nil {
			l.Error("redis_config_error", "err", err)
		} else {
			defer rc.Close()
			if err := rc.Ping(ctx).Err(); err != nil {
				l.Error("redis_ping_error", "err", err)
			} else {
				l.Info("redis_ping_ok")
			}
			hc := hotcache.New(rc, src, cfg.RedisTTL)
			src = hc
			purgers = append(purgers, hc.Forget)
		}
	} else {
		l.Info("redis_disabled")
	}

	if len(cfg.KafkaBrokers) > 0 {
		k := notify.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer k.Close()
		sinks = append(sinks, notify.Named{Name: "kafka", Notifier: k})
		l.Info("kafka_enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	hub := overlay.NewHub()
	sinks = append(sinks, notify.Named{Name: "overlay", Notifier: hub})

	tr := tracker.New(src, sinks, cfg.TrackerOptions())
	unsubscribe := hub.OnLocale(tr.OnLocaleChanged)
	defer unsubscribe()

	router := api.NewRouter(cfg.HTTPBase, api.Deps{Core: tr, Visits: visits, Purgers: purgers, WS: hub})
	handler := logger.AccessMiddleware(l)(middleware.RateLimit(cfg.RateLimit, cfg.RateLimitQPS)(router))
	srv := &http.Server{
		Addr:        cfg.Addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	go func() {
		l.Info("http_listen", "addr", cfg.Addr, "base", cfg.HTTPBase)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("http_error", "err", err)
			stop()
		}
	}()

	l.Info("tracker_start", "lang", cfg.Lang, "poll_ms", cfg.PollInterval.Milliseconds())
	if err := tr.Run(ctx, hub); err != nil && !errors.Is(err, context.Canceled) {
		l.Error("tracker_error", "err", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error("http_shutdown_error", "err", err)
	}
	l.Info("shutdown_done")
}
