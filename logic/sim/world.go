package sim

import (
	"errors"
	"fmt"

	"github.com/byebyebruce/rollbackserver/pkg/packet/control"
	"github.com/byebyebruce/rollbackserver/pkg/seq"

	l4g "github.com/alecthomas/log4go"
)

var (
	ErrHistoryCorrupt = errors.New("sim: predecessor snapshot missing")
	ErrNoFreeIndex    = errors.New("sim: no free network index")
)

// Profile 加入时的档案
type Profile struct {
	ID    string
	Score uint32
}

// TickResult 一次非静默tick的输出
type TickResult struct {
	Seq      uint8
	Frame    uint64
	Payload  []byte  // 状态包, 下一次 Tick 前有效
	Events   []Event // 同上
	Replayed int
}

// Stats 统计
type Stats struct {
	Ticks         uint64
	ReplayedTicks uint64
	DroppedInputs uint64
}

// World 一个独立的模拟世界
type World struct {
	params  Params
	engine  *Engine
	inputs  *InputBuffer
	acks    *AckTracker
	encoder *Encoder

	history  [HistoryLen]Snapshot
	ops      [HistoryLen][]lifecycleOp
	reserved [MaxFighters]bool
	frame    uint64

	stats Stats
}

// NewWorld 构造, 第0帧是空世界
func NewWorld(p Params, runways []Runway, rules Rules) *World {
	w := &World{params: p}
	w.engine = NewEngine(&w.params, runways, rules)
	w.inputs = NewInputBuffer(p.MaxRollback)
	w.acks = NewAckTracker(p.PublishDelay)
	w.encoder = NewEncoder(&w.params)

	w.history[0].written = true
	for i := range w.history[0].Fighters {
		w.history[0].Fighters[i].Index = uint8(i)
	}
	return w
}

// Params 参数
func (w *World) Params() *Params {
	return &w.params
}

// Current 下一个要模拟的tick
func (w *World) Current() uint8 {
	return uint8(w.frame + 1)
}

// Frame 最后模拟完的绝对帧号
func (w *World) Frame() uint64 {
	return w.frame
}

// Latest 最新的快照
func (w *World) Latest() *Snapshot {
	return &w.history[uint8(w.frame)]
}

// Snapshot tick 对应的快照
func (w *World) Snapshot(tick uint8) *Snapshot {
	return &w.history[tick]
}

// Inputs 输入缓冲
func (w *World) Inputs() *InputBuffer {
	return w.inputs
}

// Acks ack 跟踪
func (w *World) Acks() *AckTracker {
	return w.acks
}

// Stats 统计
func (w *World) Stats() Stats {
	s := w.stats
	s.DroppedInputs = w.inputs.Dropped()
	return s
}

// Spawn 分配第一个空闲的 networkIndex, 在下一个tick生效
func (w *World) Spawn(prof Profile) (uint8, error) {
	for i := range w.reserved {
		if w.reserved[i] {
			continue
		}
		index := uint8(i)
		w.reserved[i] = true
		w.inputs.clear(index)
		w.acks.invalidate(index)
		w.schedule(lifecycleOp{kind: opSpawn, fighter: w.newFighter(index, prof)})
		return index, nil
	}
	return 0, ErrNoFreeIndex
}

// Remove 释放 index, 在下一个tick生效
func (w *World) Remove(index uint8) {
	if !w.reserved[index] {
		return
	}
	w.reserved[index] = false
	w.acks.invalidate(index)
	w.schedule(lifecycleOp{kind: opRemove, fighter: Fighter{Index: index}})
}

// IsReserved index 是否被占用
func (w *World) IsReserved(index uint8) bool {
	return w.reserved[index]
}

// FreeCount 空闲位置数
func (w *World) FreeCount() int {
	n := 0
	for _, r := range w.reserved {
		if !r {
			n++
		}
	}
	return n
}

func (w *World) schedule(op lifecycleOp) {
	t := w.Current()
	w.ops[t] = append(w.ops[t], op)
}

func (w *World) newFighter(index uint8, prof Profile) Fighter {
	p := &w.params
	f := Fighter{
		Index:    index,
		Exists:   true,
		ID:       prof.ID,
		Score:    prof.Score,
		Health:   p.MaxHealth,
		Fuel:     p.MaxFuel,
		Ordnance: p.MaxOrdnance,
	}
	if rws := w.engine.Runways(); len(rws) > 0 {
		r := &rws[int(index)%len(rws)]
		f.X, f.Y, f.Rotation = r.X, r.Y, r.Rotation
	}
	return f
}

// ReceiveInput 收到客户端输入, 窗口外的丢弃
func (w *World) ReceiveInput(index, tick uint8, s control.Sample) bool {
	if !w.reserved[index] {
		return false
	}
	// 开局不久时, 回绕到 0 之前的 tick 没有历史可以重放
	if uint64(seq.DistanceBack(w.Current(), tick)) > w.frame+1 {
		w.inputs.reject()
		l4g.Debug("[sim] drop input index=%d tick=%d before first frame, current=%d", index, tick, w.Current())
		return false
	}
	if !w.inputs.Receive(w.Current(), index, tick, s) {
		l4g.Debug("[sim] drop input index=%d tick=%d current=%d", index, tick, w.Current())
		return false
	}
	return true
}

// Tick 模拟下一个tick. 有迟到输入时先静默重放, 再正常模拟并编码
func (w *World) Tick() (*TickResult, error) {
	next := w.frame + 1
	cur := uint8(next)

	replayed := 0
	if oldest, ok := w.inputs.takePending(); ok && seq.IsBefore(oldest, cur) {
		from := next - uint64(seq.DistanceBack(cur, oldest)) + 1
		for f := from; f < next; f++ {
			if _, err := w.step(f); err != nil {
				return nil, err
			}
			replayed++
		}
	}

	events, err := w.step(next)
	if err != nil {
		return nil, err
	}
	w.frame = next

	recordSlot := w.acks.onTick(cur)
	payload := w.encoder.Encode(cur, &w.history[cur], w.acks, recordSlot)

	w.inputs.age(cur)
	w.ops[cur-w.params.MaxRollback-1] = w.ops[cur-w.params.MaxRollback-1][:0]

	w.stats.Ticks++
	w.stats.ReplayedTicks += uint64(replayed)

	return &TickResult{
		Seq:      cur,
		Frame:    next,
		Payload:  payload,
		Events:   events,
		Replayed: replayed,
	}, nil
}

func (w *World) step(frame uint64) ([]Event, error) {
	prev := &w.history[uint8(frame-1)]
	if !prev.written || prev.Frame != frame-1 {
		return nil, fmt.Errorf("%w: frame %d", ErrHistoryCorrupt, frame)
	}
	next := &w.history[uint8(frame)]
	events := w.engine.Step(prev, next, w.inputs, uint8(frame), w.ops[uint8(frame)])
	next.written = true
	return events, nil
}

// AddClient 开始等这个客户端的ack
func (w *World) AddClient(id string) {
	w.acks.AddClient(id)
}

// RemoveClient 不再等这个客户端的ack
func (w *World) RemoveClient(id string) {
	w.acks.RemoveClient(id)
}

// ReceiveAck 收到ack
func (w *World) ReceiveAck(tick uint8, id string) bool {
	return w.acks.ReceiveAck(tick, id)
}
