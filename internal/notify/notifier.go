package notify

import (
	"context"
	"errors"
	"fmt"

	"sectorwatch/internal/logger"
	"sectorwatch/internal/metrics"
)

// Notifier：事件出口
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Func：函数适配器
type Func func(ctx context.Context, ev Event) error

func (f Func) Notify(ctx context.Context, ev Event) error { return f(ctx, ev) }

// 文档注释：扇出
// 约束：逐个调用全部出口，单个出口失败不影响其余；错误合并返回并按出口计数。
type Fanout []Named

// Named：带名称的出口，名称用作指标标签
type Named struct {
	Name string
	Notifier
}

func (f Fanout) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range f {
		if n.Notifier == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			metrics.NotifyFailTotal.WithLabelValues(n.Name).Inc()
			logger.L().Warn("notify_error", "sink", n.Name, "kind", ev.Kind, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", n.Name, err))
		}
	}
	return errors.Join(errs...)
}

// LogNotifier：以 info 级别记录事件
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, ev Event) error {
	logger.L().Info(ev.Kind, "map", ev.MapID, "sector", ev.SectorID, "header", ev.Header, "text", ev.Text, "lang", ev.Lang)
	return nil
}
