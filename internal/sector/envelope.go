package sector

import (
	"math"

	"sectorwatch/internal/coords"
)

// 文档注释：轴对齐包围盒
// 约束：空包围盒以 +Inf/-Inf 表示，Extend 后即为点包围盒；不做任何精度截断。
type Envelope struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

func emptyEnvelope() Envelope {
	return Envelope{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
}

// 点查询用的退化包围盒
func PointEnvelope(p coords.Vec2) Envelope {
	return Envelope{MinX: p.X, MinY: p.Y, MaxX: p.X, MaxY: p.Y}
}

// 多边形各点的最小/最大值
func EnvelopeOf(pts []coords.Vec2) Envelope {
	e := emptyEnvelope()
	for _, p := range pts {
		e = e.Extend(PointEnvelope(p))
	}
	return e
}

func (e Envelope) Extend(o Envelope) Envelope {
	return Envelope{
		MinX: math.Min(e.MinX, o.MinX),
		MinY: math.Min(e.MinY, o.MinY),
		MaxX: math.Max(e.MaxX, o.MaxX),
		MaxY: math.Max(e.MaxY, o.MaxY),
	}
}

// 闭区间相交：共享边界也算相交
func (e Envelope) Intersects(o Envelope) bool {
	return o.MinX <= e.MaxX && o.MinY <= e.MaxY && o.MaxX >= e.MinX && o.MaxY >= e.MinY
}

func (e Envelope) Area() float64 {
	if e.IsEmpty() {
		return 0
	}
	return (e.MaxX - e.MinX) * (e.MaxY - e.MinY)
}

// 半周长
func (e Envelope) Margin() float64 {
	if e.IsEmpty() {
		return 0
	}
	return (e.MaxX - e.MinX) + (e.MaxY - e.MinY)
}

func (e Envelope) IsEmpty() bool { return e.MinX > e.MaxX || e.MinY > e.MaxY }

func (e Envelope) center() coords.Vec2 {
	return coords.Vec2{X: (e.MinX + e.MaxX) / 2, Y: (e.MinY + e.MaxY) / 2}
}

func intersectionArea(a, b Envelope) float64 {
	minX := math.Max(a.MinX, b.MinX)
	minY := math.Max(a.MinY, b.MinY)
	maxX := math.Min(a.MaxX, b.MaxX)
	maxY := math.Min(a.MaxY, b.MaxY)
	if minX > maxX || minY > maxY {
		return 0
	}
	return (maxX - minX) * (maxY - minY)
}
