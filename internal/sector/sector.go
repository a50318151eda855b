// 包 sector：地图分区（sector）几何、R-Tree 与分区索引
package sector

import "sectorwatch/internal/coords"

// 文档注释：地图分区
// 背景：接口按 (大陆, 楼层, 区域, 地图) 返回分区列表；边界为大陆像素空间的整数点。
// 约束：ID 在同一地图内唯一且稳定；构造后不可变，Bounds 不得被调用方修改。
type Sector struct {
	ID     int
	Name   string
	Bounds []coords.Vec2
}

// 由接口边界构造分区，逐点四舍五入
func New(id int, name string, bounds [][2]float64) Sector {
	pts := make([]coords.Vec2, 0, len(bounds))
	for _, b := range bounds {
		pts = append(pts, coords.Round(coords.Vec2{X: b[0], Y: b[1]}))
	}
	return Sector{ID: id, Name: name, Bounds: pts}
}

func (s Sector) Envelope() Envelope { return EnvelopeOf(s.Bounds) }

func (s Sector) Contains(p coords.Vec2) bool { return Contains(s.Bounds, p) }

// 文档注释：按 ID 合并多个楼层的分区集合
// 背景：同一地图的多个楼层可能返回相同分区；以 ID 为显式去重键。
// 约束：首次出现者胜出，保留出现顺序。
func Merge(floors ...[]Sector) []Sector {
	seen := make(map[int]struct{})
	var out []Sector
	for _, f := range floors {
		for _, s := range f {
			if _, ok := seen[s.ID]; ok {
				continue
			}
			seen[s.ID] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
