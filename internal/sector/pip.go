package sector

import "sectorwatch/internal/coords"

// 文档注释：点入多边形判定（Even-Odd / PNPOLY）
// 背景：沿 +X 方向射线计数穿越边数，奇数为内；首尾点不要求重复，按隐式闭合处理。
// 约束：少于 3 个点的多边形视为退化，永不命中；点恰在边上时结果由算法自然给出，不保证一致。
func Contains(bounds []coords.Vec2, p coords.Vec2) bool {
	n := len(bounds)
	if n < 3 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := bounds[i].X, bounds[i].Y
		xj, yj := bounds[j].X, bounds[j].Y
		if (yi > p.Y) != (yj > p.Y) && p.X < (xj-xi)*(p.Y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}
