package tracker

import (
	"math"
	"time"

	"sectorwatch/internal/coords"
)

const speedSampleWindow = 40 * time.Millisecond

// speedometer：按遥测位置差估算移动速度（单位/秒），采样间隔不足窗口时沿用上次结果
type speedometer struct {
	prev  coords.Vec3
	at    time.Time
	speed float64
}

func (s *speedometer) sample(p coords.Vec3, now time.Time) float64 {
	if s.at.IsZero() {
		s.prev, s.at = p, now
		return 0
	}
	dt := now.Sub(s.at)
	if dt < speedSampleWindow {
		return s.speed
	}
	dx, dy, dz := p.X-s.prev.X, p.Y-s.prev.Y, p.Z-s.prev.Z
	s.speed = math.Sqrt(dx*dx+dy*dy+dz*dz) / dt.Seconds()
	s.prev, s.at = p, now
	return s.speed
}
