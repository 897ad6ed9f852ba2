package sim

// Event 一个tick里发生的事情, 由 Rules 决定怎么结算
type Event interface {
	event()
}

// Collision 飞机和别的东西碰撞. With 指向本tick的快照, tick结束后子弹指针失效
type Collision struct {
	Fighter uint8
	With    Object
}

// BulletExpired 子弹寿命到了
type BulletExpired struct {
	Bullet int
}

// Shot 开火
type Shot struct {
	Fighter uint8
}

// HealthZero 血量归零, 需要外部释放这个位置
type HealthZero struct {
	Fighter uint8
	ID      string
}

func (Collision) event()     {}
func (BulletExpired) event() {}
func (Shot) event()          {}
func (HealthZero) event()    {}

// Rules 碰撞结算策略
type Rules interface {
	Apply(s *Snapshot, p *Params, events []Event)
}

// DefaultRules 默认结算: 每对碰撞每tick固定扣血, 子弹命中后寿命清零并给射手加分,
// 停在跑道上补油补弹
type DefaultRules struct{}

// Apply 结算
func (DefaultRules) Apply(s *Snapshot, p *Params, events []Event) {
	for _, ev := range events {
		c, ok := ev.(Collision)
		if !ok {
			continue
		}
		f := &s.Fighters[c.Fighter]

		switch o := c.With.(type) {
		case *Bullet:
			if o.TTL <= 0 {
				continue
			}
			o.TTL = 0
			damage(f, p.BulletDamage)
			if shooter := &s.Fighters[o.Origin]; shooter.Exists {
				shooter.Score++
			}
		case *Fighter:
			damage(f, p.CollisionDamage)
			damage(o, p.CollisionDamage)
		case *Runway:
			if f.Speed > p.RefuelSpeedLimit {
				continue
			}
			f.Fuel = clamp(f.Fuel+p.RefuelPerTick, 0, p.MaxFuel)
			if f.Ordnance+p.RearmPerTick <= p.MaxOrdnance {
				f.Ordnance += p.RearmPerTick
			} else {
				f.Ordnance = p.MaxOrdnance
			}
		}
	}
}

func damage(f *Fighter, d uint8) {
	if f.Health > d {
		f.Health -= d
	} else {
		f.Health = 0
	}
}
