// 包 coords：游戏内单位、遥测单位与地图/大陆像素坐标之间的换算
package coords

// 文档注释：坐标单位
// 背景：客户端内部以英寸计，遥测（mumble link）以米计；两族单位之间只差固定比例。
// 约束：Inches 与 GameWorld 等价，Meters 与 Telemetry 等价。
type Unit int

const (
	Inches Unit = iota
	Meters

	GameWorld = Inches
	Telemetry = Meters
)

// 1 米 = 1/0.0254 英寸
const inchToMeter = 0.0254

func (u Unit) String() string {
	switch u {
	case Inches:
		return "inches"
	case Meters:
		return "meters"
	default:
		return "unknown"
	}
}

// 三维坐标；单位由调用约定决定
type Vec3 struct{ X, Y, Z float64 }

// 平面坐标（大陆像素空间）
type Vec2 struct{ X, Y float64 }

// 文档注释：单位换算
// 约束：跨单位族时三个分量同比例缩放；同族时原样返回。
func ToUnit(c Vec3, from, to Unit) Vec3 {
	switch {
	case from == Meters && to == Inches:
		return Vec3{X: c.X / inchToMeter, Y: c.Y / inchToMeter, Z: c.Z / inchToMeter}
	case from == Inches && to == Meters:
		return Vec3{X: c.X * inchToMeter, Y: c.Y * inchToMeter, Z: c.Z * inchToMeter}
	default:
		return c
	}
}

// 遥测源与地图投影对“竖直轴”的约定不同，交换 Y/Z
func SwapYZ(c Vec3) Vec3 { return Vec3{X: c.X, Y: c.Z, Z: c.Y} }

// 丢弃第三分量
func ToPlane(c Vec3) Vec2 { return Vec2{X: c.X, Y: c.Y} }

func ToMapCoords(c Vec3, from Unit) Vec3 { return ToUnit(c, from, GameWorld) }

// 文档注释：地图坐标 → 大陆坐标
// 背景：地图空间 Y 轴向上，像素空间 Y 轴向下，因此竖直方向需要翻转。
// 返回：(大陆X, 高度, 大陆Y)；SwapYZ 后 ToPlane 即得到大陆平面点。
// 约束：mapRect.Y0 为地图底边，contRect.Y0 为大陆顶边；只做四则运算，结果可逐位复现。
func ToContinentCoords(c Vec3, from Unit, mapRect, contRect Rect) Vec3 {
	m := ToMapCoords(c, from)
	x := (m.X-mapRect.X0)/mapRect.Width()*contRect.Width() + contRect.X0
	y := (1-(m.Z-mapRect.Y0)/mapRect.Height())*contRect.Height() + contRect.Y0
	return Vec3{X: x, Y: m.Y, Z: y}
}
