package sim

import (
	"math"
)

// Object 场景里能参与碰撞的东西: *Fighter, *Bullet, *Runway
type Object interface {
	object()
}

// Fighter 联网的飞机
type Fighter struct {
	Index  uint8
	Exists bool
	ID     string
	Score  uint32

	Health   uint8
	X, Y, Z  float64
	Rotation float64

	Speed         float64
	RotationSpeed float64
	VerticalSpeed float64

	Fuel     float64
	Ordnance uint16

	Controls  uint8 // 本tick生效的操作位图
	ShotDelay float64
}

// Bullet 只在服务器本地模拟, 不单独同步
type Bullet struct {
	Origin   uint8
	X, Y, Z  float64
	Rotation float64
	Speed    float64
	TTL      float64
}

// Runway 静态的旋转矩形, 加载后不再改变
type Runway struct {
	X, Y       float64
	HalfWidth  float64
	HalfLength float64
	Rotation   float64
}

func (*Fighter) object() {}
func (*Bullet) object() {}
func (*Runway) object() {}

// Contains 点是否在矩形里, 先逆旋转到矩形本地坐标
func (r *Runway) Contains(x, y float64) bool {
	dx, dy := x-r.X, y-r.Y
	c, s := math.Cos(-r.Rotation), math.Sin(-r.Rotation)
	lx := dx*c - dy*s
	ly := dx*s + dy*c
	return math.Abs(lx) <= r.HalfWidth && math.Abs(ly) <= r.HalfLength
}

// heading 机头方向, rotation 为0时朝 +y
func heading(rotation float64) (float64, float64) {
	return -math.Sin(rotation), math.Cos(rotation)
}

func wrapAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Snapshot 一个tick结束时的完整世界
type Snapshot struct {
	Frame    uint64
	written  bool
	Fighters [MaxFighters]Fighter
	Bullets  []Bullet
}

func (s *Snapshot) copyFrom(o *Snapshot) {
	s.Fighters = o.Fighters
	s.Bullets = append(s.Bullets[:0], o.Bullets...)
}

// Count 存活的飞机数
func (s *Snapshot) Count() int {
	n := 0
	for i := range s.Fighters {
		if s.Fighters[i].Exists {
			n++
		}
	}
	return n
}
