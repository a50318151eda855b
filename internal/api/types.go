package api

import "sectorwatch/internal/sector"

// 文档注释：区域查询返回结构（对外）
// 约束：Point 为换算后的大陆平面坐标，便于与官方地图工具对照；未命中时 Sector 为空。
type sectorResult struct {
	MapID   int         `json:"map_id"`
	Point   [2]float64  `json:"point"`
	Found   bool        `json:"found"`
	Sector  *sectorView `json:"sector,omitempty"`
	Display string      `json:"display,omitempty"`
}

type sectorView struct {
	ID     int          `json:"id"`
	Name   string       `json:"name"`
	Bounds [][2]float64 `json:"bounds"`
}

func viewOf(s sector.Sector) *sectorView {
	v := &sectorView{ID: s.ID, Name: s.Name, Bounds: make([][2]float64, 0, len(s.Bounds))}
	for _, p := range s.Bounds {
		v.Bounds = append(v.Bounds, [2]float64{p.X, p.Y})
	}
	return v
}

type localeRequest struct {
	Lang string `json:"lang"`
}
