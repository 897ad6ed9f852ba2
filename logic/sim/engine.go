package sim

import (
	"math"

	"github.com/byebyebruce/rollbackserver/pkg/packet/control"
)

type opKind uint8

const (
	opSpawn opKind = iota + 1
	opRemove
)

// lifecycleOp 加入/离开挂在tick上, 回滚重放时会再执行一次
type lifecycleOp struct {
	kind    opKind
	fighter Fighter
}

// Engine 单步模拟, 相同的前一帧和输入一定得到相同的结果
type Engine struct {
	params  *Params
	runways []Runway
	rules   Rules
	events  []Event
}

// NewEngine 构造
func NewEngine(p *Params, runways []Runway, rules Rules) *Engine {
	if rules == nil {
		rules = DefaultRules{}
	}
	return &Engine{
		params:  p,
		runways: runways,
		rules:   rules,
	}
}

// Runways 静态跑道
func (e *Engine) Runways() []Runway {
	return e.runways
}

// Step 从 prev 模拟一步写到 next. 返回的事件在下一次 Step 前有效
func (e *Engine) Step(prev, next *Snapshot, in *InputBuffer, step uint8, ops []lifecycleOp) []Event {
	p := e.params
	dt := p.dt()
	events := e.events[:0]

	next.copyFrom(prev)
	next.Frame = prev.Frame + 1

	for i := range ops {
		op := &ops[i]
		switch op.kind {
		case opSpawn:
			next.Fighters[op.fighter.Index] = op.fighter
		case opRemove:
			next.Fighters[op.fighter.Index] = Fighter{Index: op.fighter.Index}
		}
	}

	// 子弹
	for i := range next.Bullets {
		b := &next.Bullets[i]
		hx, hy := heading(b.Rotation)
		d := b.Speed * dt
		b.X += hx * d
		b.Y += hy * d
		b.Speed *= p.BulletSpeedDecay
		b.TTL -= dt
		if b.TTL <= 0 {
			events = append(events, BulletExpired{Bullet: i})
		}
	}

	// 飞机
	for i := range next.Fighters {
		f := &next.Fighters[i]
		if !f.Exists {
			continue
		}
		s := in.Sample(f.Index, step)
		e.move(f, s, dt)
		if e.fire(f, s, dt, next) {
			events = append(events, Shot{Fighter: f.Index})
		}
	}

	mark := len(events)
	events = detectCollisions(next, e.runways, p, events)
	e.rules.Apply(next, p, events[mark:])

	for i := range next.Fighters {
		f := &next.Fighters[i]
		if f.Exists && f.Health == 0 {
			events = append(events, HealthZero{Fighter: f.Index, ID: f.ID})
		}
	}

	alive := next.Bullets[:0]
	for _, b := range next.Bullets {
		if b.TTL > 0 {
			alive = append(alive, b)
		}
	}
	next.Bullets = alive

	e.events = events
	return events
}

func (e *Engine) move(f *Fighter, s control.Sample, dt float64) {
	p := e.params
	f.Controls = s.Mask()

	up := s.Force(control.Up)
	if f.Fuel <= 0 {
		up = 0
	}
	f.Fuel = math.Max(0, f.Fuel-up*p.FuelBurn*dt)
	f.Speed = clamp(f.Speed+(up-s.Force(control.Down))*p.Acceleration*dt, p.MinSpeed, p.MaxSpeed)

	turn := s.Force(control.Left) - s.Force(control.Right)
	f.RotationSpeed = clamp(f.RotationSpeed+turn*p.RotationAcceleration*dt, -p.MaxRotationSpeed, p.MaxRotationSpeed)
	if s[control.Left] == 0 && s[control.Right] == 0 {
		f.RotationSpeed = e.damp(f.RotationSpeed, p.RotationDecay, dt)
	}

	climb := s.Force(control.Ascend) - s.Force(control.Descend)
	f.VerticalSpeed = clamp(f.VerticalSpeed+climb*p.VerticalAcceleration*dt, -p.MaxVerticalSpeed, p.MaxVerticalSpeed)
	if s[control.Ascend] == 0 && s[control.Descend] == 0 {
		f.VerticalSpeed = e.damp(f.VerticalSpeed, p.VerticalDecay, dt)
	}

	f.Rotation = wrapAngle(f.Rotation + f.RotationSpeed*p.RotationFactor*dt)
	hx, hy := heading(f.Rotation)
	d := f.Speed * p.SpeedFactor * dt
	f.X = clamp(f.X+hx*d, -p.WorldBound, p.WorldBound)
	f.Y = clamp(f.Y+hy*d, -p.WorldBound, p.WorldBound)
	f.Z = clamp(f.Z+f.VerticalSpeed*p.VerticalFactor*dt, 0, p.MaxAltitude)
}

func (e *Engine) damp(v, rate, dt float64) float64 {
	v *= math.Exp(-rate * dt)
	if math.Abs(v) < e.params.DampingEpsilon {
		return 0
	}
	return v
}

func (e *Engine) fire(f *Fighter, s control.Sample, dt float64, next *Snapshot) bool {
	p := e.params
	if f.ShotDelay > 0 {
		f.ShotDelay = math.Max(0, f.ShotDelay-dt)
	}
	if s[control.Fire] == 0 || f.ShotDelay > 0 || f.Ordnance == 0 {
		return false
	}

	next.Bullets = append(next.Bullets, Bullet{
		Origin:   f.Index,
		X:        f.X,
		Y:        f.Y,
		Z:        f.Z,
		Rotation: f.Rotation,
		Speed:    p.BulletSpeed + f.Speed*p.SpeedFactor,
		TTL:      p.BulletTTL.Seconds(),
	})
	f.ShotDelay = p.ShotCooldown.Seconds()
	f.Ordnance--
	return true
}
