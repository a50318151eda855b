package store

import (
	"context"
	"time"

	"sectorwatch/internal/notify"
)

// Visit: 一次地图/区域切换记录
type Visit struct {
	EventID   string    `json:"event_id"`
	Kind      string    `json:"kind"`
	MapID     int       `json:"map_id"`
	SectorID  int       `json:"sector_id"`
	Header    string    `json:"header"`
	Text      string    `json:"text"`
	Lang      string    `json:"lang"`
	VisitedAt time.Time `json:"visited_at"`
}

// 文档注释：访问日志
// 背景：作为通知出口之一，将每次切换事件落库，供 /visits 查询最近足迹。
// 约束：按事件 id 去重，重复投递静默忽略。
type Journal struct{ st *Store }

func (s *Store) Journal() *Journal { return &Journal{st: s} }

func (j *Journal) Notify(ctx context.Context, ev notify.Event) error {
	_, err := j.st.db.ExecContext(ctx, `INSERT INTO _sw_visits(event_id, kind, map_id, sector_id, header, text, lang, visited_at)
        VALUES($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (event_id) DO NOTHING`,
		ev.ID, ev.Kind, ev.MapID, ev.SectorID, ev.Header, ev.Text, ev.Lang, ev.Timestamp)
	return err
}

// Recent: 按时间倒序返回最近 limit 条记录；limit<=0 时取 50
func (j *Journal) Recent(ctx context.Context, limit int) ([]Visit, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.st.db.QueryContext(ctx, `SELECT event_id, kind, map_id, sector_id, header, text, lang, visited_at
        FROM _sw_visits ORDER BY visited_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Visit
	for rows.Next() {
		var v Visit
		if err := rows.Scan(&v.EventID, &v.Kind, &v.MapID, &v.SectorID, &v.Header, &v.Text, &v.Lang, &v.VisitedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
