// 包 notify：地图/区域切换事件与通知出口（日志、Kafka、WebSocket、数据库日志）
package notify

import (
	"time"

	"github.com/google/uuid"
)

const (
	KindMapChanged    = "map_changed"
	KindSectorChanged = "sector_changed"
)

// 文档注释：切换事件
// 背景：Header 为上级名称（地区或地图，可为空），Text 为显示名；同一事件广播给所有出口。
type Event struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	MapID     int       `json:"map_id"`
	SectorID  int       `json:"sector_id,omitempty"`
	Header    string    `json:"header,omitempty"`
	Text      string    `json:"text"`
	Lang      string    `json:"lang,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEvent(kind string, mapID, sectorID int, header, text, lang string, ts time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		MapID:     mapID,
		SectorID:  sectorID,
		Header:    header,
		Text:      text,
		Lang:      lang,
		Timestamp: ts.UTC(),
	}
}
