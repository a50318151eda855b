package gw2api

import "context"

// 文档注释：地图元数据
// 背景：对齐 /v2/maps/{id} 的返回字段，只解析坐标换算与通知需要的部分。
// 约束：MapRect 以地图左下角为起点（Y 向上），ContinentRect 以大陆左上角为起点（Y 向下）。
type Map struct {
	ID            int           `json:"id"`
	Name          string        `json:"name"`
	MinLevel      int           `json:"min_level,omitempty"`
	MaxLevel      int           `json:"max_level,omitempty"`
	DefaultFloor  int           `json:"default_floor"`
	Type          string        `json:"type,omitempty"`
	Floors        []int         `json:"floors"`
	RegionID      int           `json:"region_id"`
	RegionName    string        `json:"region_name"`
	ContinentID   int           `json:"continent_id"`
	ContinentName string        `json:"continent_name"`
	MapRect       [2][2]float64 `json:"map_rect"`
	ContinentRect [2][2]float64 `json:"continent_rect"`
}

// 区域（sector）原始数据，bounds 为大陆坐标系下的多边形顶点
type Sector struct {
	ID       int          `json:"id"`
	Name     string       `json:"name"`
	Level    int          `json:"level"`
	Coord    [2]float64   `json:"coord"`
	Bounds   [][2]float64 `json:"bounds"`
	ChatLink string       `json:"chat_link"`
}

// 区域列表定位：大陆/楼层/地区/地图四段路径
type SectorQuery struct {
	Continent int
	Floor     int
	Region    int
	Map       int
}

// 文档注释：远端数据源
// 背景：HTTP 客户端、重试装饰、Redis 热缓存与 Postgres 镜像都实现该接口，按装饰链组合。
// 约束：lang 为空时由远端使用默认语言；错误语义见 errors.go。
type Source interface {
	Map(ctx context.Context, lang string, id int) (*Map, error)
	Sectors(ctx context.Context, lang string, q SectorQuery) ([]Sector, error)
}
