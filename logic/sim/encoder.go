package sim

import (
	"encoding/binary"
	"math"
)

/*

s->c 状态包

|--seq(uint8)--|--baseline(uint8)--|--record--|--record--|...

record:

|--presence(uint8)--|--ext(uint8)?--|--index--|--controls--|--health--|--provided--|--x--|--y--|--z--|--rot--|--fuel--|--ordnance(uint16)--|

presence 之后的字段都是可选的, x/y/z/rot 只发和 baseline 不同的低位字节,
provided 每个轴2位, 记录发了几个字节(值为字节数-1).

*/

const (
	bitIndex    = 1 << 0
	bitControls = 1 << 1
	bitHealth   = 1 << 2
	bitX        = 1 << 3
	bitY        = 1 << 4
	bitZ        = 1 << 5
	bitRot      = 1 << 6
	bitExt      = 1 << 7

	bitAxes = bitX | bitY | bitZ | bitRot

	extFuel     = 1 << 0
	extOrdnance = 1 << 1

	HeaderLen    = 2
	MaxRecordLen = 1 + 1 + 3 + 1 + 4*4 + 1 + 2

	numAxes   = 4
	angleSpan = 65535
)

// Record 一个飞机在网络上的原始字段
type Record struct {
	Order    uint8 // 在包里的位置
	Index    uint8
	Controls uint8
	Health   uint8
	X, Y, Z  uint32
	Rot      uint32
	Fuel     uint8
	Ordnance uint16
}

func (r *Record) axes() [numAxes]uint32 {
	return [numAxes]uint32{r.X, r.Y, r.Z, r.Rot}
}

func (r *Record) setAxis(i int, v uint32) {
	switch i {
	case 0:
		r.X = v
	case 1:
		r.Y = v
	case 2:
		r.Z = v
	case 3:
		r.Rot = v
	}
}

// significance 从低位数起有几个字节不同, 0表示相同
func significance(a, b uint32) int {
	d := a ^ b
	switch {
	case d == 0:
		return 0
	case d>>24 != 0:
		return 4
	case d>>16 != 0:
		return 3
	case d>>8 != 0:
		return 2
	default:
		return 1
	}
}

// Encoder 状态包编码器, 只在飞机数变化时重新分配buffer
type Encoder struct {
	params *Params
	count  int
	buf    []byte
}

// NewEncoder 构造
func NewEncoder(p *Params) *Encoder {
	return &Encoder{params: p, count: -1}
}

// Encode 编码 tick 的状态. recordSlot 为true时把发出的值记到新的 ack slot.
// 返回的切片在下次调用前有效
func (e *Encoder) Encode(tick uint8, s *Snapshot, acks *AckTracker, recordSlot bool) []byte {
	n := s.Count()
	if n != e.count {
		e.count = n
		e.buf = make([]byte, 0, HeaderLen+n*MaxRecordLen)
	}

	base, useBase := acks.Baseline()

	buf := append(e.buf[:0], tick)
	if useBase {
		buf = append(buf, base)
	} else {
		buf = append(buf, NoBaseline)
	}

	var order uint8
	for i := range s.Fighters {
		f := &s.Fighters[i]
		if !f.Exists {
			continue
		}

		rec := e.Quantize(f)
		rec.Order = order

		var old Record
		ok := false
		if useBase {
			old, ok = acks.lookup(base, f.Index)
		}
		buf = appendRecord(buf, &rec, &old, ok)

		if recordSlot {
			acks.store(tick, f.Index, rec)
		}
		order++
	}
	return buf
}

// Quantize 把飞机状态量化成网络字段
func (e *Encoder) Quantize(f *Fighter) Record {
	p := e.params
	return Record{
		Index:    f.Index,
		Controls: f.Controls,
		Health:   f.Health,
		X:        quantize(f.X, -p.WorldBound, p.WorldBound),
		Y:        quantize(f.Y, -p.WorldBound, p.WorldBound),
		Z:        quantize(f.Z, 0, p.MaxAltitude),
		Rot:      QuantizeAngle(f.Rotation),
		Fuel:     uint8(math.Round(clamp(f.Fuel/p.MaxFuel, 0, 1) * math.MaxUint8)),
		Ordnance: f.Ordnance,
	}
}

func appendRecord(buf []byte, rec, old *Record, ok bool) []byte {
	var mask, ext, provided uint8
	if !ok || rec.Order != old.Order {
		mask |= bitIndex
	}
	if !ok || rec.Controls != old.Controls {
		mask |= bitControls
	}
	if !ok || rec.Health != old.Health {
		mask |= bitHealth
	}

	vals, olds := rec.axes(), old.axes()
	var sig [numAxes]int
	for i := range vals {
		if ok {
			sig[i] = significance(vals[i], olds[i])
		} else {
			sig[i] = 4
		}
		if sig[i] > 0 {
			mask |= bitX << uint(i)
			provided |= uint8(sig[i]-1) << uint(2*i)
		}
	}

	if !ok || rec.Fuel != old.Fuel {
		ext |= extFuel
	}
	if !ok || rec.Ordnance != old.Ordnance {
		ext |= extOrdnance
	}
	if ext != 0 {
		mask |= bitExt
	}

	buf = append(buf, mask)
	if ext != 0 {
		buf = append(buf, ext)
	}
	if mask&bitIndex != 0 {
		buf = append(buf, rec.Index)
	}
	if mask&bitControls != 0 {
		buf = append(buf, rec.Controls)
	}
	if mask&bitHealth != 0 {
		buf = append(buf, rec.Health)
	}
	if mask&bitAxes != 0 {
		buf = append(buf, provided)
	}
	var tmp [4]byte
	for i, v := range vals {
		if sig[i] == 0 {
			continue
		}
		binary.BigEndian.PutUint32(tmp[:], v)
		buf = append(buf, tmp[4-sig[i]:]...)
	}
	if ext&extFuel != 0 {
		buf = append(buf, rec.Fuel)
	}
	if ext&extOrdnance != 0 {
		buf = binary.BigEndian.AppendUint16(buf, rec.Ordnance)
	}
	return buf
}

func quantize(v, min, max float64) uint32 {
	q := math.Round((clamp(v, min, max) - min) * (math.MaxUint32 / (max - min)))
	if q >= math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(q)
}

func dequantize(q uint32, min, max float64) float64 {
	return float64(q)/(math.MaxUint32/(max-min)) + min
}

// QuantizeAngle [-π,π] 映射到 [0,65535]
func QuantizeAngle(a float64) uint32 {
	return uint32(math.Round((wrapAngle(a) + math.Pi) / (2 * math.Pi) * angleSpan))
}

// DequantizeAngle QuantizeAngle 的逆
func DequantizeAngle(q uint32) float64 {
	return float64(q)/angleSpan*2*math.Pi - math.Pi
}

// DequantizePosition 还原 x/y
func DequantizePosition(q uint32, p *Params) float64 {
	return dequantize(q, -p.WorldBound, p.WorldBound)
}

// DequantizeAltitude 还原 z
func DequantizeAltitude(q uint32, p *Params) float64 {
	return dequantize(q, 0, p.MaxAltitude)
}
