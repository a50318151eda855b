package store

import (
	"context"
	"encoding/json"
	"time"

	"sectorwatch/internal/gw2api"
	"sectorwatch/internal/logger"
	"sectorwatch/internal/metrics"
)

const DefaultMaxAge = 7 * 24 * time.Hour

// 文档注释：元数据镜像（读穿）
// 背景：远端不可达时仍可用上次拉取的数据启动；新鲜行直接返回，过期或缺失时调用下游并回写。
// 约束：读写数据库失败只记日志并直通下游，不影响主链路；只镜像成功结果。
type Mirror struct {
	st     *Store
	next   gw2api.Source
	maxAge time.Duration
}

func (s *Store) Mirror(next gw2api.Source, maxAge time.Duration) *Mirror {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Mirror{st: s, next: next, maxAge: maxAge}
}

func (m *Mirror) Map(ctx context.Context, lang string, id int) (*gw2api.Map, error) {
	var payload []byte
	row := m.st.db.QueryRowContext(ctx, "SELECT payload FROM _sw_maps WHERE lang=$1 AND map_id=$2 AND fetched_at >= $3",
		lang, id, m.st.now().Add(-m.maxAge))
	if err := row.Scan(&payload); err == nil {
		var v gw2api.Map
		if err := json.Unmarshal(payload, &v); err == nil {
			metrics.MirrorHitsTotal.Inc()
			logger.L().Debug("mirror_map_hit", "map", id, "lang", lang)
			return &v, nil
		}
	}
	metrics.MirrorMissesTotal.Inc()
	v, err := m.next.Map(ctx, lang, id)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(v); err == nil {
		if _, err := m.st.db.ExecContext(ctx, `INSERT INTO _sw_maps(lang, map_id, payload, fetched_at)
            VALUES($1, $2, $3, $4)
            ON CONFLICT (lang, map_id) DO UPDATE SET payload=EXCLUDED.payload, fetched_at=EXCLUDED.fetched_at`,
			lang, id, b, m.st.now()); err != nil {
			logger.L().Warn("mirror_map_upsert_error", "map", id, "err", err)
		}
	}
	return v, nil
}

func (m *Mirror) Sectors(ctx context.Context, lang string, q gw2api.SectorQuery) ([]gw2api.Sector, error) {
	var payload []byte
	row := m.st.db.QueryRowContext(ctx, `SELECT payload FROM _sw_sectors
        WHERE lang=$1 AND continent_id=$2 AND floor_id=$3 AND region_id=$4 AND map_id=$5 AND fetched_at >= $6`,
		lang, q.Continent, q.Floor, q.Region, q.Map, m.st.now().Add(-m.maxAge))
	if err := row.Scan(&payload); err == nil {
		var v []gw2api.Sector
		if err := json.Unmarshal(payload, &v); err == nil {
			metrics.MirrorHitsTotal.Inc()
			logger.L().Debug("mirror_sectors_hit", "map", q.Map, "floor", q.Floor, "lang", lang)
			return v, nil
		}
	}
	metrics.MirrorMissesTotal.Inc()
	v, err := m.next.Sectors(ctx, lang, q)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(v); err == nil {
		if _, err := m.st.db.ExecContext(ctx, `INSERT INTO _sw_sectors(lang, continent_id, floor_id, region_id, map_id, payload, fetched_at)
            VALUES($1, $2, $3, $4, $5, $6, $7)
            ON CONFLICT (lang, continent_id, floor_id, region_id, map_id) DO UPDATE SET payload=EXCLUDED.payload, fetched_at=EXCLUDED.fetched_at`,
			lang, q.Continent, q.Floor, q.Region, q.Map, b, m.st.now()); err != nil {
			logger.L().Warn("mirror_sectors_upsert_error", "map", q.Map, "err", err)
		}
	}
	return v, nil
}

// 删除某地图的全部镜像行（所有语言）
func (m *Mirror) Forget(ctx context.Context, id int) error {
	if _, err := m.st.db.ExecContext(ctx, "DELETE FROM _sw_maps WHERE map_id=$1", id); err != nil {
		return err
	}
	_, err := m.st.db.ExecContext(ctx, "DELETE FROM _sw_sectors WHERE map_id=$1", id)
	return err
}
