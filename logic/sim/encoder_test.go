package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoFighters() *Snapshot {
	s := &Snapshot{}
	s.Fighters[0] = Fighter{Index: 0, Exists: true, Health: 255, X: 100, Y: 100, Z: 10, Fuel: 8200, Ordnance: 480}
	s.Fighters[1] = Fighter{Index: 1, Exists: true, Health: 255, X: -50, Y: 20, Z: 10, Fuel: 8200, Ordnance: 480}
	return s
}

func Test_Significance(t *testing.T) {
	assert.Equal(t, 0, significance(0x12345678, 0x12345678))
	assert.Equal(t, 1, significance(0x12345678, 0x12345679))
	assert.Equal(t, 2, significance(0x12345678, 0x12340078))
	assert.Equal(t, 3, significance(0x12345678, 0x12005678))
	assert.Equal(t, 4, significance(0x12345678, 0x02345678))
}

func Test_EncodeFullWithoutBaseline(t *testing.T) {
	p := DefaultParams()
	acks := NewAckTracker(0)
	enc := NewEncoder(&p)

	out := enc.Encode(5, twoFighters(), acks, false)
	require.Equal(t, uint8(5), out[0])
	assert.Equal(t, uint8(NoBaseline), out[1])
	assert.Len(t, out, HeaderLen+2*MaxRecordLen)
	assert.Equal(t, uint8(0xFF), out[2])
}

func Test_EncodeDeltaMinimality(t *testing.T) {
	p := DefaultParams()
	acks := NewAckTracker(0)
	acks.AddClient("c")
	enc := NewEncoder(&p)
	dec := NewDecoder()
	s := twoFighters()

	require.True(t, acks.onTick(32))
	first := enc.Encode(32, s, acks, true)
	_, recs, ok := dec.Decode(first)
	require.True(t, ok)
	require.Len(t, recs, 2)

	require.True(t, acks.ReceiveAck(32, "c"))
	require.True(t, acks.IsAcknowledged(32))

	assert.False(t, acks.onTick(33))
	s.Fighters[0].X += 50
	out := enc.Encode(33, s, acks, false)

	require.Equal(t, uint8(33), out[0])
	require.Equal(t, uint8(32), out[1])

	// A: 只有x变了
	assert.Equal(t, uint8(bitX), out[2])
	sig := int(out[3]&3) + 1
	assert.GreaterOrEqual(t, sig, 3)
	// B: 只有一个全0的 presence
	require.Len(t, out, HeaderLen+2+sig+1)
	assert.Equal(t, uint8(0), out[len(out)-1])

	tick, recs, ok := dec.Decode(out)
	require.True(t, ok)
	assert.Equal(t, uint8(33), tick)
	want := enc.Quantize(&s.Fighters[0])
	assert.Equal(t, want.X, recs[0].X)
	assert.Equal(t, want.Y, recs[0].Y)
	assert.Equal(t, uint8(1), recs[1].Index)
}

func Test_EncodeReorder(t *testing.T) {
	p := DefaultParams()
	acks := NewAckTracker(0)
	acks.AddClient("c")
	enc := NewEncoder(&p)
	dec := NewDecoder()
	s := twoFighters()

	acks.onTick(64)
	_, _, ok := dec.Decode(enc.Encode(64, s, acks, true))
	require.True(t, ok)
	acks.ReceiveAck(64, "c")

	// 0 离开后 1 在包里的位置变了
	s.Fighters[0] = Fighter{Index: 0}
	acks.invalidate(0)
	acks.onTick(65)
	out := enc.Encode(65, s, acks, false)
	assert.Equal(t, uint8(bitIndex), out[2])
	assert.Equal(t, uint8(1), out[3])

	_, recs, ok := dec.Decode(out)
	require.True(t, ok)
	require.Len(t, recs, 1)
	assert.Equal(t, enc.Quantize(&s.Fighters[1]).X, recs[0].X)
	assert.Equal(t, uint8(1), recs[0].Index)
}

func Test_EncodeBufferReuse(t *testing.T) {
	p := DefaultParams()
	acks := NewAckTracker(0)
	enc := NewEncoder(&p)
	s := twoFighters()

	a := enc.Encode(1, s, acks, false)
	b := enc.Encode(2, s, acks, false)
	assert.Same(t, &a[0], &b[0])

	s.Fighters[2] = Fighter{Index: 2, Exists: true}
	c := enc.Encode(3, s, acks, false)
	assert.Equal(t, HeaderLen+3*MaxRecordLen, cap(c))
}

func Test_DecodeShort(t *testing.T) {
	p := DefaultParams()
	enc := NewEncoder(&p)
	out := enc.Encode(7, twoFighters(), NewAckTracker(0), false)

	dec := NewDecoder()
	tick, recs, ok := dec.Decode(out[:10])
	assert.True(t, ok)
	assert.Equal(t, uint8(7), tick)
	assert.Len(t, recs, 1)

	_, recs, _ = dec.Decode(nil)
	assert.Empty(t, recs)
}

func Test_DecodeUnknownBaseline(t *testing.T) {
	_, _, ok := NewDecoder().Decode([]byte{40, 32, 0})
	assert.False(t, ok)
}

func Test_DecodeStoresOnlyDecodedSlots(t *testing.T) {
	dec := NewDecoder()

	// 基准 32 不在本地, slot 64 不能当基准
	_, _, ok := dec.Decode([]byte{64, 32, 0})
	assert.False(t, ok)
	_, _, ok = dec.Decode([]byte{70, 64})
	assert.False(t, ok)

	// 全量包的 slot 可以
	_, _, ok = dec.Decode([]byte{96, NoBaseline})
	require.True(t, ok)
	_, _, ok = dec.Decode([]byte{100, 96})
	assert.True(t, ok)

	// 不是 slot tick 的包不存
	_, _, ok = dec.Decode([]byte{101, NoBaseline})
	require.True(t, ok)
	_, _, ok = dec.Decode([]byte{102, 101})
	assert.False(t, ok)
}

func Test_Quantize(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, uint32(0), quantize(-p.WorldBound, -p.WorldBound, p.WorldBound))
	assert.Equal(t, uint32(0xFFFFFFFF), quantize(p.WorldBound*2, -p.WorldBound, p.WorldBound))
	assert.InDelta(t, 1234.5, DequantizePosition(quantize(1234.5, -p.WorldBound, p.WorldBound), &p), 1e-3)
	assert.InDelta(t, 0.5, DequantizeAngle(QuantizeAngle(0.5)), 1e-3)
	assert.LessOrEqual(t, QuantizeAngle(100), uint32(65535))
}

func Benchmark_Encode(b *testing.B) {
	p := DefaultParams()
	acks := NewAckTracker(0)
	enc := NewEncoder(&p)
	s := &Snapshot{}
	for i := 0; i < 64; i++ {
		s.Fighters[i] = Fighter{Index: uint8(i), Exists: true, X: float64(i)}
	}
	for i := 0; i < b.N; i++ {
		enc.Encode(uint8(i), s, acks, false)
	}
}
