package coords

import "math"

// 文档注释：轴对齐矩形
// 约束：(X0,Y0) 为各轴最小值，(X1,Y1) 为最大值；由外部按地图提供，不可变。
type Rect struct {
	X0, Y0 float64
	X1, Y1 float64
}

func (r Rect) Width() float64  { return r.X1 - r.X0 }
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// 接口返回 [[x,y],[x,y]]，两角顺序不保证，这里统一为 min/max
func RectFromCorners(a, b [2]float64) Rect {
	return Rect{
		X0: math.Min(a[0], b[0]),
		Y0: math.Min(a[1], b[1]),
		X1: math.Max(a[0], b[0]),
		Y1: math.Max(a[1], b[1]),
	}
}

// 边界点在接口中为整数像素，换算后四舍五入对齐
func Round(v Vec2) Vec2 { return Vec2{X: math.Round(v.X), Y: math.Round(v.Y)} }
