package gw2api

import (
	"context"
	"errors"
	"time"

	"sectorwatch/internal/logger"
	"sectorwatch/internal/metrics"
)

// 文档注释：有界重试装饰器
// 背景：上游偶发 5xx/限流/网络抖动；固定间隔重试，终态错误（不存在/非法请求）直接返回。
// 约束：attempts 为总尝试次数（<1 视为 1）；等待期间 ctx 取消立即返回取消错误。
type retrying struct {
	next     Source
	attempts int
	delay    time.Duration
}

func WithRetry(next Source, attempts int, delay time.Duration) Source {
	if attempts < 1 {
		attempts = 1
	}
	return &retrying{next: next, attempts: attempts, delay: delay}
}

func (r *retrying) Map(ctx context.Context, lang string, id int) (*Map, error) {
	var m *Map
	err := r.do(ctx, "map", func() error {
		var err error
		m, err = r.next.Map(ctx, lang, id)
		return err
	})
	return m, err
}

func (r *retrying) Sectors(ctx context.Context, lang string, q SectorQuery) ([]Sector, error) {
	var out []Sector
	err := r.do(ctx, "sectors", func() error {
		var err error
		out, err = r.next.Sectors(ctx, lang, q)
		return err
	})
	return out, err
}

func (r *retrying) do(ctx context.Context, endpoint string, call func() error) error {
	var err error
	for i := 1; ; i++ {
		err = call()
		if err == nil || IsTerminal(err) || ctx.Err() != nil {
			return err
		}
		if i >= r.attempts {
			break
		}
		metrics.APIRetriesTotal.Inc()
		logger.L().Warn("gw2api_retry", "endpoint", endpoint, "attempt", i, "delay_ms", r.delay.Milliseconds(), "err", err)
		t := time.NewTimer(r.delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	if errors.Is(err, ErrRateLimited) {
		logger.L().Warn("gw2api_rate_limited", "endpoint", endpoint, "attempts", r.attempts)
	}
	return err
}
