// 包 tracker：地图/区域跟踪编排器（元数据缓存 → 区域索引 → 坐标换算 → 切换通知）
package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"sectorwatch/internal/coords"
	"sectorwatch/internal/fetchcache"
	"sectorwatch/internal/gw2api"
	"sectorwatch/internal/logger"
	"sectorwatch/internal/metrics"
	"sectorwatch/internal/notify"
	"sectorwatch/internal/sector"
)

const MinPollInterval = 10 * time.Millisecond

// Snapshot：一帧遥测（地图 id 与米制位置）
type Snapshot struct {
	MapID    int
	Position coords.Vec3
}

// Telemetry：遥测源，按需轮询；尚无数据时返回 false
type Telemetry interface {
	Snapshot() (Snapshot, bool)
}

// Options：跟踪参数，零值不可直接使用，先取 DefaultOptions 再覆盖
type Options struct {
	Lang           string
	PollInterval   time.Duration
	Cooldown       time.Duration
	MaxSpeed       float64
	SuppressBounce bool
	MapNotify      bool
	SectorNotify   bool
	IncludeRegion  bool
	IncludeMap     bool
	Sequential     bool
	Now            func() time.Time
}

func DefaultOptions() Options {
	return Options{
		Lang:          "en",
		PollInterval:  MinPollInterval,
		Cooldown:      5 * time.Second,
		MaxSpeed:      54,
		MapNotify:     true,
		SectorNotify:  true,
		IncludeRegion: true,
		IncludeMap:    true,
	}
}

// 一代缓存：同一语言下的地图元数据与区域索引，切换语言时整体替换
type generation struct {
	lang    string
	maps    *fetchcache.Cache[int, *gw2api.Map]
	indexes *fetchcache.Cache[int, *sector.Index]
}

// 文档注释：跟踪编排器
// 背景：独占两级缓存与当前地图/区域状态；轮询循环串行驱动 Tick，HTTP 查询可并发调用 Resolve*。
// 约束：缓存在锁外等待；等待返回后以 epoch 判定期间是否发生过地图或语言切换，过期结果直接丢弃。
type Tracker struct {
	src      gw2api.Source
	notifier notify.Notifier
	opts     Options
	now      func() time.Time

	mu         sync.Mutex
	gen        *generation
	epoch      uint64
	mapID      int
	curMap     *gw2api.Map
	current    sector.Sector
	previous   sector.Sector
	lastChange time.Time
	speed      speedometer
}

func New(src gw2api.Source, notifier notify.Notifier, opts Options) *Tracker {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Lang == "" {
		opts.Lang = "en"
	}
	if opts.PollInterval < MinPollInterval {
		opts.PollInterval = MinPollInterval
	}
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	t := &Tracker{src: src, notifier: notifier, opts: opts, now: opts.Now}
	t.gen = t.newGeneration(opts.Lang)
	return t
}

func (t *Tracker) newGeneration(lang string) *generation {
	g := &generation{lang: lang}
	g.maps = fetchcache.New("maps", func(ctx context.Context, id int) (*gw2api.Map, error) {
		m, err := t.src.Map(ctx, lang, id)
		if gw2api.IsTerminal(err) {
			logger.L().Debug("map_not_found", "map", id, "lang", lang, "err", err)
			return nil, nil
		}
		return m, err
	})
	g.indexes = fetchcache.New("sector_indexes", func(ctx context.Context, id int) (*sector.Index, error) {
		return t.buildIndex(ctx, g, id)
	})
	return g
}

func (t *Tracker) active() (*generation, uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gen, t.epoch
}

// 文档注释：解析地图元数据（缓存）
// 返回：地图不存在或请求非法时返回 (nil, nil)；瞬时失败重试耗尽后返回错误，并淘汰失败条目以便后续重试。
func (t *Tracker) ResolveMap(ctx context.Context, id int) (*gw2api.Map, error) {
	g, _ := t.active()
	return t.resolveMap(ctx, g, id)
}

func (t *Tracker) resolveMap(ctx context.Context, g *generation, id int) (*gw2api.Map, error) {
	m, err := g.maps.Get(ctx, id)
	if err != nil {
		if ctx.Err() == nil {
			logger.L().Warn("map_fetch_failed", "map", id, "lang", g.lang, "err", err)
			g.maps.Remove(id)
		}
		return nil, err
	}
	return m, nil
}

// 文档注释：解析玩家所在区域
// 参数：raw 为遥测原始位置（米）。
// 返回：命中区域与 true；地图未知或不在任何区域内返回 false；索引构建失败返回错误。
func (t *Tracker) ResolveSector(ctx context.Context, mapID int, raw coords.Vec3) (sector.Sector, bool, error) {
	g, _ := t.active()
	return t.resolveSector(ctx, g, mapID, raw)
}

func (t *Tracker) resolveSector(ctx context.Context, g *generation, mapID int, raw coords.Vec3) (sector.Sector, bool, error) {
	m, err := t.resolveMap(ctx, g, mapID)
	if err != nil || m == nil {
		return sector.Sector{}, false, err
	}
	idx, err := g.indexes.Get(ctx, mapID)
	if err != nil {
		if ctx.Err() == nil {
			logger.L().Warn("sector_index_failed", "map", mapID, "lang", g.lang, "err", err)
			g.indexes.Remove(mapID)
		}
		return sector.Sector{}, false, err
	}
	p := ContinentPoint(m, raw)
	s, ok := idx.Query(p)
	return s, ok, nil
}

// ContinentPoint：遥测位置换算到大陆平面坐标
func ContinentPoint(m *gw2api.Map, raw coords.Vec3) coords.Vec2 {
	mapRect := coords.RectFromCorners(m.MapRect[0], m.MapRect[1])
	contRect := coords.RectFromCorners(m.ContinentRect[0], m.ContinentRect[1])
	return coords.ToPlane(coords.SwapYZ(coords.ToContinentCoords(raw, coords.Telemetry, mapRect, contRect)))
}

// 文档注释：区域索引取数函数
// 背景：逐楼层拉取区域列表并按 id 合并（先出现的楼层优先）。
// 约束：某楼层终态失败视为该楼层无数据继续合并；瞬时失败使整个构建失败，不产出残缺索引。
func (t *Tracker) buildIndex(ctx context.Context, g *generation, id int) (*sector.Index, error) {
	m, err := g.maps.Get(ctx, id)
	if err != nil {
		g.maps.Remove(id)
		return nil, err
	}
	if m == nil {
		return sector.Build(nil), nil
	}
	t0 := time.Now()
	floors := make([][]sector.Sector, 0, len(m.Floors))
	for _, f := range m.Floors {
		raw, err := t.src.Sectors(ctx, g.lang, gw2api.SectorQuery{Continent: m.ContinentID, Floor: f, Region: m.RegionID, Map: m.ID})
		if err != nil {
			if gw2api.IsTerminal(err) {
				logger.L().Debug("sector_floor_skipped", "map", id, "floor", f, "err", err)
				continue
			}
			return nil, err
		}
		ss := make([]sector.Sector, 0, len(raw))
		for _, r := range raw {
			ss = append(ss, sector.New(r.ID, r.Name, r.Bounds))
		}
		floors = append(floors, ss)
	}
	var opts []sector.BuildOption
	if t.opts.Sequential {
		opts = append(opts, sector.Sequential())
	}
	idx := sector.Build(sector.Merge(floors...), opts...)
	metrics.IndexBuildDurationMs.Observe(float64(time.Since(t0).Milliseconds()))
	metrics.IndexSectors.Observe(float64(idx.Len()))
	return idx, nil
}

// 文档注释：地图切换
// 背景：重置冷却与区域状态，解析新地图并发出 map_changed（单区域地图使用区域名作为地图名）。
// 约束：id 为 0 表示离开地图（加载界面等），只重置状态。
func (t *Tracker) OnMapChanged(ctx context.Context, id int) error {
	t.mu.Lock()
	t.epoch++
	epoch := t.epoch
	g := t.gen
	t.mapID = id
	t.curMap = nil
	t.current, t.previous = sector.Sector{}, sector.Sector{}
	t.lastChange = t.now()
	t.mu.Unlock()

	if id == 0 {
		return nil
	}
	m, err := t.resolveMap(ctx, g, id)
	if err != nil {
		return err
	}
	if m == nil {
		return nil
	}

	t.mu.Lock()
	if t.epoch != epoch {
		t.mu.Unlock()
		return nil
	}
	t.curMap = m
	t.mu.Unlock()
	metrics.MapChangesTotal.Inc()
	logger.L().Debug("map_changed", "map", id, "name", m.Name, "lang", g.lang)

	if !t.opts.MapNotify {
		return nil
	}
	name := t.trueMapName(ctx, g, m)
	var header string
	if t.opts.IncludeRegion {
		header = DisplayName(m.RegionName)
	}
	t.emit(ctx, notify.NewEvent(notify.KindMapChanged, id, 0, header, DisplayName(name), g.lang, t.now()))
	return nil
}

// 部分地图只有一个区域，真实名称藏在区域名里
func (t *Tracker) trueMapName(ctx context.Context, g *generation, m *gw2api.Map) string {
	idx, err := g.indexes.Get(ctx, m.ID)
	if err != nil {
		if ctx.Err() == nil {
			g.indexes.Remove(m.ID)
		}
		return m.Name
	}
	if ss := idx.Sectors(); len(ss) == 1 {
		return ss[0].Name
	}
	return m.Name
}

// 文档注释：语言切换
// 背景：远端名称随语言变化，两级缓存整体替换，地图与区域状态清零；下一次轮询会重新识别地图并通知。
func (t *Tracker) OnLocaleChanged(lang string) {
	if lang == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.epoch++
	t.gen = t.newGeneration(lang)
	t.mapID = 0
	t.curMap = nil
	t.current, t.previous = sector.Sector{}, sector.Sector{}
	logger.L().Info("locale_changed", "lang", lang)
}

// 文档注释：单次轮询
// 流程：解析区域 → 同一区域忽略 → 可选往返抑制 → 记录切换 → 速度门限 → 冷却 → 发出 sector_changed。
// 约束：冷却期内仍跟踪当前区域，只是不发通知。
// 返回：是否发出了通知；解析失败时返回错误（调用方记录后继续下一轮）。
func (t *Tracker) Tick(ctx context.Context, pos coords.Vec3) (bool, error) {
	now := t.now()
	t.mu.Lock()
	g, epoch, mapID := t.gen, t.epoch, t.mapID
	speed := t.speed.sample(pos, now)
	t.mu.Unlock()

	if mapID == 0 {
		return false, nil
	}
	s, ok, err := t.resolveSector(ctx, g, mapID, pos)
	if err != nil || !ok {
		return false, err
	}

	t.mu.Lock()
	if t.epoch != epoch || s.ID == t.current.ID {
		t.mu.Unlock()
		return false, nil
	}
	if t.opts.SuppressBounce && s.ID == t.previous.ID {
		t.mu.Unlock()
		metrics.SectorSuppressedTotal.WithLabelValues("bounce").Inc()
		return false, nil
	}
	t.previous, t.current = t.current, s
	if t.opts.MaxSpeed > 0 && speed > t.opts.MaxSpeed {
		t.mu.Unlock()
		metrics.SectorSuppressedTotal.WithLabelValues("speed").Inc()
		logger.L().Debug("sector_change_suppressed", "map", mapID, "sector", s.ID, "speed", speed)
		return false, nil
	}
	if !t.opts.SectorNotify {
		t.mu.Unlock()
		metrics.SectorSuppressedTotal.WithLabelValues("disabled").Inc()
		return false, nil
	}
	if now.Sub(t.lastChange) < t.opts.Cooldown {
		t.mu.Unlock()
		metrics.SectorSuppressedTotal.WithLabelValues("cooldown").Inc()
		return false, nil
	}
	t.lastChange = now
	var header string
	if t.opts.IncludeMap && t.curMap != nil {
		header = DisplayName(t.curMap.Name)
	}
	t.mu.Unlock()

	metrics.SectorChangesTotal.Inc()
	t.emit(ctx, notify.NewEvent(notify.KindSectorChanged, mapID, s.ID, header, DisplayName(s.Name), g.lang, now))
	return true, nil
}

// 正文为空（如占位名）时用标题顶替；两者皆空不发送
func (t *Tracker) emit(ctx context.Context, ev notify.Event) {
	if ev.Text == "" {
		ev.Text, ev.Header = ev.Header, ""
	}
	if ev.Text == "" {
		logger.L().Debug("notify_skipped_empty", "kind", ev.Kind, "map", ev.MapID, "sector", ev.SectorID)
		return
	}
	if err := t.notifier.Notify(ctx, ev); err != nil {
		logger.L().Warn("notify_failed", "kind", ev.Kind, "map", ev.MapID, "err", err)
	}
}

// 文档注释：轮询循环
// 约束：串行执行，上一轮的等待结束前不会发起下一轮；间隔不低于 MinPollInterval；ctx 取消后返回。
func (t *Tracker) Run(ctx context.Context, tel Telemetry) error {
	tk := time.NewTicker(t.opts.PollInterval)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tk.C:
		}
		snap, ok := tel.Snapshot()
		if !ok {
			continue
		}
		if snap.MapID != t.MapID() {
			if err := t.OnMapChanged(ctx, snap.MapID); err != nil && !errors.Is(err, context.Canceled) {
				logger.L().Warn("map_change_failed", "map", snap.MapID, "err", err)
			}
		}
		if _, err := t.Tick(ctx, snap.Position); err != nil && !errors.Is(err, context.Canceled) {
			logger.L().Warn("sector_resolve_failed", "map", snap.MapID, "err", err)
		}
	}
}

// Invalidate：淘汰某地图的元数据与区域索引缓存
func (t *Tracker) Invalidate(mapID int) {
	g, _ := t.active()
	g.indexes.Remove(mapID)
	g.maps.Remove(mapID)
}

func (t *Tracker) MapID() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mapID
}

func (t *Tracker) Lang() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gen.lang
}

// Status：当前状态快照
type Status struct {
	Lang          string `json:"lang"`
	MapID         int    `json:"map_id"`
	MapName       string `json:"map_name,omitempty"`
	SectorID      int    `json:"sector_id,omitempty"`
	SectorName    string `json:"sector_name,omitempty"`
	CachedMaps    int    `json:"cached_maps"`
	CachedIndexes int    `json:"cached_indexes"`
}

func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := Status{
		Lang:          t.gen.lang,
		MapID:         t.mapID,
		SectorID:      t.current.ID,
		SectorName:    DisplayName(t.current.Name),
		CachedMaps:    t.gen.maps.Len(),
		CachedIndexes: t.gen.indexes.Len(),
	}
	if t.curMap != nil {
		st.MapName = t.curMap.Name
	}
	return st
}
