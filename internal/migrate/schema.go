package migrate

import (
	"database/sql"

	"sectorwatch/internal/logger"
)

// 背景：首次运行自动创建镜像表与访问日志表
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；payload 保存远端原始 JSON，列只用于定位与新鲜度判断
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS _sw_maps (
            lang TEXT NOT NULL,
            map_id INT NOT NULL,
            payload JSONB NOT NULL,
            fetched_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            PRIMARY KEY (lang, map_id)
        )`,
		`CREATE TABLE IF NOT EXISTS _sw_sectors (
            lang TEXT NOT NULL,
            continent_id INT NOT NULL,
            floor_id INT NOT NULL,
            region_id INT NOT NULL,
            map_id INT NOT NULL,
            payload JSONB NOT NULL,
            fetched_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            PRIMARY KEY (lang, continent_id, floor_id, region_id, map_id)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_sw_sectors_map ON _sw_sectors(lang, map_id)`,
		`CREATE TABLE IF NOT EXISTS _sw_visits (
            id BIGSERIAL PRIMARY KEY,
            event_id TEXT NOT NULL,
            kind TEXT NOT NULL,
            map_id INT NOT NULL,
            sector_id INT NOT NULL DEFAULT 0,
            header TEXT NOT NULL DEFAULT '',
            text TEXT NOT NULL,
            lang TEXT NOT NULL DEFAULT '',
            visited_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_sw_visits_event ON _sw_visits(event_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sw_visits_time ON _sw_visits(visited_at DESC)`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
