package sim

import (
	"time"
)

const (
	MaxFighters  = 256 // networkIndex 是 uint8
	HistoryLen   = 256 // tick 序号 mod 256
	DefaultTicks = 20
)

// Params 模拟参数
type Params struct {
	TickInterval time.Duration
	MaxRollback  uint8 // 最多回滚多少个tick
	PublishDelay uint8 // baseline 全员确认后再等几个tick才能用于diff

	WorldBound  float64 // x,y 范围 [-WorldBound, WorldBound]
	MaxAltitude float64 // z 范围 [0, MaxAltitude]

	MinSpeed     float64
	MaxSpeed     float64
	SpeedFactor  float64 // speed -> 世界单位/秒
	Acceleration float64 // 满力度每秒加速

	MaxRotationSpeed     float64
	RotationAcceleration float64
	RotationFactor       float64 // rotationSpeed -> 弧度/秒
	RotationDecay        float64

	MaxVerticalSpeed     float64
	VerticalAcceleration float64
	VerticalFactor       float64 // verticalSpeed -> 世界单位/秒
	VerticalDecay        float64

	DampingEpsilon float64

	MaxHealth   uint8
	MaxFuel     float64
	FuelBurn    float64 // 满推力每秒油耗
	MaxOrdnance uint16

	ShotCooldown     time.Duration
	BulletSpeed      float64 // 世界单位/秒, 叠加在飞机速度上
	BulletSpeedDecay float64 // 每tick乘数
	BulletTTL        time.Duration

	BulletHitRadius float64
	FighterRadius   float64
	BulletDamage    uint8
	CollisionDamage uint8

	RunwayAltitude   float64 // 低于这个高度才算在跑道上
	RefuelPerTick    float64
	RearmPerTick     uint16
	RefuelSpeedLimit float64
}

// DefaultParams 默认参数
func DefaultParams() Params {
	return Params{
		TickInterval: time.Second / DefaultTicks,
		MaxRollback:  8,
		PublishDelay: 2,

		WorldBound:  10000,
		MaxAltitude: 2000,

		MinSpeed:     0,
		MaxSpeed:     25500,
		SpeedFactor:  1000.0 / 3600.0 / 20.0,
		Acceleration: 2800,

		MaxRotationSpeed:     127,
		RotationAcceleration: 2000,
		RotationFactor:       0.01,
		RotationDecay:        4,

		MaxVerticalSpeed:     127,
		VerticalAcceleration: 200,
		VerticalFactor:       0.2,
		VerticalDecay:        4,

		DampingEpsilon: 1e-5,

		MaxHealth:   255,
		MaxFuel:     8200,
		FuelBurn:    20,
		MaxOrdnance: 480,

		ShotCooldown:     100 * time.Millisecond,
		BulletSpeed:      100,
		BulletSpeedDecay: 0.99,
		BulletTTL:        1500 * time.Millisecond,

		BulletHitRadius: 1,
		FighterRadius:   3,
		BulletDamage:    10,
		CollisionDamage: 1,

		RunwayAltitude:   1,
		RefuelPerTick:    0.1,
		RearmPerTick:     1,
		RefuelSpeedLimit: 0,
	}
}

func (p *Params) dt() float64 {
	return p.TickInterval.Seconds()
}
