package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_AckSlotTicks(t *testing.T) {
	a := NewAckTracker(0)
	for tick := 0; tick < 256; tick++ {
		assert.Equal(t, tick%32 == 0, a.onTick(uint8(tick)), "tick %d", tick)
	}
	s, ok := a.Expected()
	assert.True(t, ok)
	assert.Equal(t, uint8(224), s)
}

func Test_AckGating(t *testing.T) {
	a := NewAckTracker(0)
	a.AddClient("a")
	a.AddClient("b")
	a.AddClient("c")

	a.onTick(0)
	for _, id := range []string{"a", "b", "c"} {
		assert.True(t, a.ReceiveAck(0, id))
	}
	assert.True(t, a.IsAcknowledged(0))

	// c 不再回ack
	a.onTick(32)
	a.ReceiveAck(32, "a")
	a.ReceiveAck(32, "b")
	assert.False(t, a.IsAcknowledged(32))

	for tick := 33; tick <= 64; tick++ {
		a.onTick(uint8(tick))
	}
	assert.False(t, a.IsAcknowledged(32))
	a.ReceiveAck(64, "a")
	a.ReceiveAck(64, "b")
	assert.False(t, a.IsAcknowledged(64))

	a.onTick(70)
	base, ok := a.Baseline()
	assert.True(t, ok)
	assert.Equal(t, uint8(0), base)

	// 过期的ack不算
	assert.False(t, a.ReceiveAck(32, "c"))

	a.RemoveClient("c")
	assert.True(t, a.IsAcknowledged(64))
	base, _ = a.Baseline()
	assert.Equal(t, uint8(64), base)
}

func Test_AckUnknownClient(t *testing.T) {
	a := NewAckTracker(0)
	a.AddClient("a")
	a.onTick(0)
	assert.False(t, a.ReceiveAck(0, "x"))
	assert.False(t, a.IsAcknowledged(0))
}

func Test_AckPublishDelay(t *testing.T) {
	a := NewAckTracker(2)
	a.AddClient("a")
	a.onTick(32)
	a.ReceiveAck(32, "a")

	a.onTick(33)
	_, ok := a.Baseline()
	assert.False(t, ok)

	a.onTick(34)
	base, ok := a.Baseline()
	assert.True(t, ok)
	assert.Equal(t, uint8(32), base)
}

func Test_AckNewClientResets(t *testing.T) {
	a := NewAckTracker(0)
	a.AddClient("a")
	a.onTick(32)
	a.ReceiveAck(32, "a")
	a.onTick(33)
	_, ok := a.Baseline()
	assert.True(t, ok)

	a.AddClient("b")
	_, ok = a.Baseline()
	assert.False(t, ok)
}

func Test_AckEviction(t *testing.T) {
	a := NewAckTracker(0)
	a.AddClient("a")
	a.onTick(0)
	a.ReceiveAck(0, "a")
	a.store(0, 3, Record{Index: 3})

	for tick := 1; tick <= 256; tick++ {
		a.onTick(uint8(tick))
	}
	assert.False(t, a.IsAcknowledged(0))
	_, ok := a.lookup(0, 3)
	assert.False(t, ok)
}

func Test_AckInvalidate(t *testing.T) {
	a := NewAckTracker(0)
	a.onTick(32)
	a.store(32, 5, Record{Index: 5, Health: 9})
	_, ok := a.lookup(32, 5)
	assert.True(t, ok)
	a.invalidate(5)
	_, ok = a.lookup(32, 5)
	assert.False(t, ok)
}
