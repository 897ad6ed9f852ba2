package sim

func near(ax, ay, az, bx, by, bz, r float64) bool {
	dx, dy, dz := ax-bx, ay-by, az-bz
	return dx*dx+dy*dy+dz*dz <= r*r
}

// overlaps 飞机 f 是否碰到 o
func overlaps(f *Fighter, o Object, p *Params) bool {
	switch v := o.(type) {
	case *Bullet:
		return v.Origin != f.Index && v.TTL > 0 &&
			near(f.X, f.Y, f.Z, v.X, v.Y, v.Z, p.BulletHitRadius)
	case *Fighter:
		return v.Exists && v.Index != f.Index &&
			near(f.X, f.Y, f.Z, v.X, v.Y, v.Z, p.FighterRadius)
	case *Runway:
		return f.Z <= p.RunwayAltitude && v.Contains(f.X, f.Y)
	}
	return false
}

// detectCollisions 只检测不结算, 结果追加到 events
func detectCollisions(s *Snapshot, runways []Runway, p *Params, events []Event) []Event {
	for i := range s.Fighters {
		f := &s.Fighters[i]
		if !f.Exists {
			continue
		}

		for j := range s.Bullets {
			if b := &s.Bullets[j]; overlaps(f, b, p) {
				events = append(events, Collision{Fighter: f.Index, With: b})
			}
		}

		// 每对只报一次
		for j := i + 1; j < len(s.Fighters); j++ {
			if o := &s.Fighters[j]; overlaps(f, o, p) {
				events = append(events, Collision{Fighter: f.Index, With: o})
			}
		}

		for j := range runways {
			if r := &runways[j]; overlaps(f, r, p) {
				events = append(events, Collision{Fighter: f.Index, With: r})
			}
		}
	}
	return events
}
