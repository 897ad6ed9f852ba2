package sim

import (
	"github.com/byebyebruce/rollbackserver/pkg/seq"
)

const (
	SlotInterval = 32
	NumSlots     = HistoryLen / SlotInterval

	NoBaseline = 0xFF // slot 号都是32的倍数, 0xFF 不会冲突
)

type baseline struct {
	valid bool
	rec   Record
}

type ackSlot struct {
	seq          uint8
	active       bool
	acknowledged bool
	ackedAt      uint8
	acks         map[string]bool
	states       [MaxFighters]baseline
}

// AckTracker 每32个tick存一份已发送的状态, 所有客户端都确认后才能作为diff的基准
type AckTracker struct {
	slots        [NumSlots]ackSlot
	expected     uint8
	hasExpected  bool
	tick         uint8
	publishDelay uint8
	clients      map[string]struct{}
}

// NewAckTracker 构造
func NewAckTracker(publishDelay uint8) *AckTracker {
	return &AckTracker{
		publishDelay: publishDelay,
		clients:      make(map[string]struct{}),
	}
}

func slotIndex(s uint8) int {
	return int(s / SlotInterval)
}

// IsSlotTick 是否是存 baseline 的tick
func IsSlotTick(tick uint8) bool {
	return tick%SlotInterval == 0
}

// AddClient 新客户端手里没有任何 baseline, 之前的都不能再用
func (a *AckTracker) AddClient(id string) {
	a.clients[id] = struct{}{}
	for i := range a.slots {
		a.slots[i].acknowledged = false
	}
}

// RemoveClient 客户端离开, 不再等它的ack
func (a *AckTracker) RemoveClient(id string) {
	delete(a.clients, id)
	if !a.hasExpected {
		return
	}
	s := &a.slots[slotIndex(a.expected)]
	delete(s.acks, id)
	a.check(s)
}

// ClientCount 当前跟踪的客户端数
func (a *AckTracker) ClientCount() int {
	return len(a.clients)
}

// ReceiveAck 只接受当前期待的 slot 的ack
func (a *AckTracker) ReceiveAck(s uint8, id string) bool {
	if !a.hasExpected || s != a.expected {
		return false
	}
	if _, ok := a.clients[id]; !ok {
		return false
	}
	slot := &a.slots[slotIndex(s)]
	slot.acks[id] = true
	a.check(slot)
	return true
}

func (a *AckTracker) check(slot *ackSlot) {
	if !slot.active || slot.acknowledged {
		return
	}
	for id := range a.clients {
		if !slot.acks[id] {
			return
		}
	}
	slot.acknowledged = true
	slot.ackedAt = a.tick
}

// onTick 每个tick开始前调用, 是 slot tick 时换新的 slot, 返回本tick是否要记录
func (a *AckTracker) onTick(tick uint8) bool {
	a.tick = tick
	if !IsSlotTick(tick) {
		return false
	}

	slot := &a.slots[slotIndex(tick)]
	*slot = ackSlot{
		seq:    tick,
		active: true,
		acks:   make(map[string]bool, len(a.clients)),
	}
	a.expected = tick
	a.hasExpected = true
	return true
}

// Expected 当前期待的ack序号
func (a *AckTracker) Expected() (uint8, bool) {
	return a.expected, a.hasExpected
}

// IsAcknowledged slot s 是否已全员确认
func (a *AckTracker) IsAcknowledged(s uint8) bool {
	slot := &a.slots[slotIndex(s)]
	return slot.active && slot.seq == s && slot.acknowledged
}

// Baseline 最近一个已确认并且过了发布延迟的 slot
func (a *AckTracker) Baseline() (uint8, bool) {
	start := a.tick - a.tick%SlotInterval
	for k := 0; k < NumSlots; k++ {
		s := start - uint8(k*SlotInterval)
		slot := &a.slots[slotIndex(s)]
		if !slot.active || slot.seq != s || !slot.acknowledged {
			continue
		}
		if seq.DistanceBack(a.tick, slot.ackedAt) < a.publishDelay {
			continue
		}
		return s, true
	}
	return 0, false
}

func (a *AckTracker) lookup(s, index uint8) (Record, bool) {
	b := &a.slots[slotIndex(s)].states[index]
	return b.rec, b.valid
}

func (a *AckTracker) store(s, index uint8, rec Record) {
	a.slots[slotIndex(s)].states[index] = baseline{valid: true, rec: rec}
}

// invalidate index 被释放, 所有 slot 里它的状态都作废
func (a *AckTracker) invalidate(index uint8) {
	for i := range a.slots {
		a.slots[i].states[index] = baseline{}
	}
}
