package sim

import (
	"github.com/byebyebruce/rollbackserver/pkg/packet/control"
	"github.com/byebyebruce/rollbackserver/pkg/seq"
)

// InputStatus 某个tick的输入状态
type InputStatus uint8

const (
	InputMissing  InputStatus = iota // 还没收到
	InputZero                        // 收到了, 没有操作
	InputNonZero                     // 收到了, 有操作
)

type inputSlot struct {
	received bool
	sample   control.Sample
}

// InputBuffer 每个飞机256个tick的输入环
//
// 客户端在看到第 T 帧时产生的输入标记为 T, 驱动的是 T+1 这一步,
// 所以存放在 slot T+1.
type InputBuffer struct {
	maxRollback uint8
	rings       [MaxFighters][HistoryLen]inputSlot

	pending       bool
	oldestPending uint8

	dropped uint64
}

// NewInputBuffer 构造
func NewInputBuffer(maxRollback uint8) *InputBuffer {
	return &InputBuffer{maxRollback: maxRollback}
}

// Receive 收到 index 在 tick 的输入. current 是下一个要模拟的tick.
// 超出回滚窗口的直接丢弃, 返回false
func (b *InputBuffer) Receive(current, index, tick uint8, s control.Sample) bool {
	if !seq.IsWithinWindow(current, tick, b.maxRollback) {
		b.dropped++
		return false
	}

	b.rings[index][seq.Next(tick)] = inputSlot{received: true, sample: s}

	// slot tick+1 已经模拟过了, 需要回滚
	if seq.DistanceBack(current, tick) > 1 {
		if !b.pending || seq.IsBefore(tick, b.oldestPending) {
			b.oldestPending = tick
		}
		b.pending = true
	}
	return true
}

// Status 标记为 tick 的输入状态
func (b *InputBuffer) Status(index, tick uint8) InputStatus {
	slot := &b.rings[index][seq.Next(tick)]
	switch {
	case !slot.received:
		return InputMissing
	case slot.sample.IsZero():
		return InputZero
	default:
		return InputNonZero
	}
}

// Sample 第 step 步使用的输入, 没收到就依次用前一个, 前两个, 最后是空操作
func (b *InputBuffer) Sample(index, step uint8) control.Sample {
	ring := &b.rings[index]
	for i := uint8(0); i < 3; i++ {
		if slot := &ring[step-i]; slot.received {
			return slot.sample
		}
	}
	return control.Sample{}
}

// OldestPending 最早的迟到输入
func (b *InputBuffer) OldestPending() (uint8, bool) {
	return b.oldestPending, b.pending
}

func (b *InputBuffer) takePending() (uint8, bool) {
	t, ok := b.oldestPending, b.pending
	b.pending = false
	return t, ok
}

// Dropped 丢弃的输入数
func (b *InputBuffer) Dropped() uint64 {
	return b.dropped
}

func (b *InputBuffer) reject() {
	b.dropped++
}

// age step 模拟完后, 清掉回滚窗口外的slot
func (b *InputBuffer) age(step uint8) {
	old := step - b.maxRollback - 1
	for i := range b.rings {
		b.rings[i][old] = inputSlot{}
	}
}

func (b *InputBuffer) clear(index uint8) {
	b.rings[index] = [HistoryLen]inputSlot{}
}
