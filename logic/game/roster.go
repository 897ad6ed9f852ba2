package game

import (
	"encoding/binary"
	"math"

	"github.com/byebyebruce/rollbackserver/logic/sim"
	"github.com/google/uuid"
)

/*

s->c 可靠通道的全量名单, 定期发和有人加入时发

|--seq(uint8)--|--entity(42)--|--entity(42)--|...

entity:
|--index(u8)--|--uuid(16)--|--score(u32)--|--health(u8)--|--rotSpeed(i8)--|--vertSpeed(i8)--|--speed(u16)--|--x(f32)--|--y(f32)--|--z(f32)--|--rot(f32)--|

*/

const (
	RosterHeaderLen = 1
	RosterEntityLen = 1 + 16 + 4 + 1 + 1 + 1 + 2 + 4*4

	speedScale = 2.57 // speed 最大 25500, 放进 u16
)

// RosterEntry 名单里的一架飞机
type RosterEntry struct {
	Index         uint8
	ID            uuid.UUID
	Score         uint32
	Health        uint8
	RotationSpeed int8
	VerticalSpeed int8
	Speed         float64
	X, Y, Z       float32
	Rotation      float32
}

// EntityUUID id 不是 uuid 格式时按名字生成一个固定的
func EntityUUID(id string) uuid.UUID {
	if u, err := uuid.Parse(id); err == nil {
		return u
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(id))
}

// AppendRoster 把快照里存活的飞机追加到 dst
func AppendRoster(dst []byte, seq uint8, s *sim.Snapshot) []byte {
	dst = append(dst, seq)
	for i := range s.Fighters {
		f := &s.Fighters[i]
		if !f.Exists {
			continue
		}
		id := EntityUUID(f.ID)
		dst = append(dst, f.Index)
		dst = append(dst, id[:]...)
		dst = binary.BigEndian.AppendUint32(dst, f.Score)
		dst = append(dst, f.Health, uint8(int8(f.RotationSpeed)), uint8(int8(f.VerticalSpeed)))
		dst = binary.BigEndian.AppendUint16(dst, uint16(math.Min(f.Speed*speedScale, math.MaxUint16)))
		for _, v := range [...]float64{f.X, f.Y, f.Z, f.Rotation} {
			dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(float32(v)))
		}
	}
	return dst
}

// DecodeRoster 不完整的尾部忽略
func DecodeRoster(b []byte) (uint8, []RosterEntry, bool) {
	if len(b) < RosterHeaderLen {
		return 0, nil, false
	}
	seq := b[0]
	b = b[RosterHeaderLen:]

	entries := make([]RosterEntry, 0, len(b)/RosterEntityLen)
	for len(b) >= RosterEntityLen {
		var e RosterEntry
		e.Index = b[0]
		copy(e.ID[:], b[1:17])
		e.Score = binary.BigEndian.Uint32(b[17:])
		e.Health = b[21]
		e.RotationSpeed = int8(b[22])
		e.VerticalSpeed = int8(b[23])
		e.Speed = float64(binary.BigEndian.Uint16(b[24:])) / speedScale
		e.X = math.Float32frombits(binary.BigEndian.Uint32(b[26:]))
		e.Y = math.Float32frombits(binary.BigEndian.Uint32(b[30:]))
		e.Z = math.Float32frombits(binary.BigEndian.Uint32(b[34:]))
		e.Rotation = math.Float32frombits(binary.BigEndian.Uint32(b[38:]))
		entries = append(entries, e)
		b = b[RosterEntityLen:]
	}
	return seq, entries, true
}
