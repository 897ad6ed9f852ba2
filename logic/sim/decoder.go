package sim

import (
	"encoding/binary"
)

type reader struct {
	b   []byte
	off int
}

func (r *reader) byte() uint8 {
	if r.off >= len(r.b) {
		r.off++
		return 0
	}
	v := r.b[r.off]
	r.off++
	return v
}

func (r *reader) bytes(n int) []byte {
	var tmp [4]byte
	for i := 0; i < n; i++ {
		tmp[4-n+i] = r.byte()
	}
	return tmp[:]
}

func (r *reader) more() bool {
	return r.off < len(r.b)
}

type decodedSlot struct {
	seq     uint8
	valid   bool
	byOrder map[uint8]Record
	byIndex map[uint8]Record
}

// Decoder 客户端侧的状态包解码, 自己维护收到的 slot 状态
type Decoder struct {
	slots [NumSlots]decodedSlot
}

// NewDecoder 构造
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode 解码状态包. 引用了本地没有的 baseline 时 ok 为false, 此时缺省字段都是0.
// 短包不会报错, 读不到的字段按0处理
func (d *Decoder) Decode(b []byte) (tick uint8, recs []Record, ok bool) {
	r := &reader{b: b}
	tick = r.byte()
	base := r.byte()

	var slot *decodedSlot
	ok = true
	if base != NoBaseline {
		slot = &d.slots[slotIndex(base)]
		if !slot.valid || slot.seq != base {
			slot, ok = nil, false
		}
	}

	var order uint8
	for r.more() {
		rec := d.decodeRecord(r, slot, order)
		recs = append(recs, rec)
		order++
	}

	if ok && IsSlotTick(tick) {
		s := &d.slots[slotIndex(tick)]
		*s = decodedSlot{
			seq:     tick,
			valid:   true,
			byOrder: make(map[uint8]Record, len(recs)),
			byIndex: make(map[uint8]Record, len(recs)),
		}
		for _, rec := range recs {
			s.byOrder[rec.Order] = rec
			s.byIndex[rec.Index] = rec
		}
	}
	return tick, recs, ok
}

func (d *Decoder) decodeRecord(r *reader, slot *decodedSlot, order uint8) Record {
	mask := r.byte()
	var ext uint8
	if mask&bitExt != 0 {
		ext = r.byte()
	}

	var rec Record
	if slot != nil {
		rec = slot.byOrder[order]
	}
	if mask&bitIndex != 0 {
		idx := r.byte()
		rec = Record{}
		if slot != nil {
			rec = slot.byIndex[idx]
		}
		rec.Index = idx
	}
	rec.Order = order

	if mask&bitControls != 0 {
		rec.Controls = r.byte()
	}
	if mask&bitHealth != 0 {
		rec.Health = r.byte()
	}

	var provided uint8
	if mask&bitAxes != 0 {
		provided = r.byte()
	}
	axes := rec.axes()
	for i := range axes {
		if mask&(bitX<<uint(i)) == 0 {
			continue
		}
		n := int(provided>>uint(2*i)&3) + 1
		low := binary.BigEndian.Uint32(r.bytes(n))
		keep := uint32(0)
		if n < 4 {
			keep = ^uint32(0) << uint(8*n)
		}
		rec.setAxis(i, axes[i]&keep|low)
	}

	if ext&extFuel != 0 {
		rec.Fuel = r.byte()
	}
	if ext&extOrdnance != 0 {
		rec.Ordnance = binary.BigEndian.Uint16(r.bytes(2)[2:])
	}
	return rec
}
