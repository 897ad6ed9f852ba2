package sim

import (
	"errors"
	"testing"

	"github.com/byebyebruce/rollbackserver/pkg/packet/control"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorld(t *testing.T, n int) *World {
	t.Helper()
	w := NewWorld(DefaultParams(), []Runway{{HalfWidth: 20, HalfLength: 200}}, nil)
	for i := 0; i < n; i++ {
		_, err := w.Spawn(Profile{ID: string(rune('a' + i))})
		require.NoError(t, err)
	}
	return w
}

func tickTo(t *testing.T, w *World, frame uint64) {
	t.Helper()
	for w.Frame() < frame {
		_, err := w.Tick()
		require.NoError(t, err)
	}
}

func thrust() control.Sample {
	var s control.Sample
	s[control.Up] = 15
	s[control.Left] = 9
	s[control.Fire] = 1
	return s
}

func Test_SpawnNextTick(t *testing.T) {
	w := newTestWorld(t, 2)
	assert.Equal(t, 0, w.Latest().Count())
	tickTo(t, w, 1)
	assert.Equal(t, 2, w.Latest().Count())
	assert.Equal(t, "a", w.Latest().Fighters[0].ID)
	assert.Equal(t, uint8(255), w.Latest().Fighters[1].Health)

	w.Remove(0)
	tickTo(t, w, 2)
	assert.Equal(t, 1, w.Latest().Count())
	assert.False(t, w.Latest().Fighters[0].Exists)
}

func Test_SpawnExhaustion(t *testing.T) {
	w := newTestWorld(t, MaxFighters)
	_, err := w.Spawn(Profile{ID: "late"})
	assert.True(t, errors.Is(err, ErrNoFreeIndex))
	assert.Equal(t, 0, w.FreeCount())

	w.Remove(7)
	i, err := w.Spawn(Profile{ID: "late"})
	require.NoError(t, err)
	assert.Equal(t, uint8(7), i)
}

func Test_Determinism(t *testing.T) {
	a := newTestWorld(t, 3)
	b := newTestWorld(t, 3)
	for f := uint64(1); f <= 40; f++ {
		tag := uint8(f - 1)
		if f%3 != 0 {
			a.ReceiveInput(1, tag, thrust())
			b.ReceiveInput(1, tag, thrust())
		}
		_, err := a.Tick()
		require.NoError(t, err)
		_, err = b.Tick()
		require.NoError(t, err)
	}
	assert.Equal(t, a.Latest().Fighters, b.Latest().Fighters)
	assert.Equal(t, a.Latest().Bullets, b.Latest().Bullets)
}

func Test_RollbackEquivalence(t *testing.T) {
	const T = 20
	onTime := newTestWorld(t, 2)
	late := newTestWorld(t, 2)
	tickTo(t, onTime, T)
	tickTo(t, late, T)

	require.True(t, onTime.ReceiveInput(0, T, thrust()))
	tickTo(t, onTime, T+3)

	tickTo(t, late, T+2)
	require.True(t, late.ReceiveInput(0, T, thrust()))
	oldest, ok := late.Inputs().OldestPending()
	require.True(t, ok)
	assert.Equal(t, uint8(T), oldest)

	res, err := late.Tick()
	require.NoError(t, err)
	assert.Equal(t, 2, res.Replayed)

	assert.Equal(t, onTime.Latest().Fighters, late.Latest().Fighters)
	assert.Equal(t, onTime.Latest().Bullets, late.Latest().Bullets)
}

func Test_LateInputReplay(t *testing.T) {
	w := newTestWorld(t, 1)
	tickTo(t, w, 102)
	require.Equal(t, uint8(103), w.Current())

	require.True(t, w.ReceiveInput(0, 100, thrust()))
	res, err := w.Tick()
	require.NoError(t, err)
	assert.Equal(t, 2, res.Replayed)
	assert.Equal(t, uint8(103), res.Seq)
	assert.Equal(t, uint8(103), res.Payload[0])

	_, pending := w.Inputs().OldestPending()
	assert.False(t, pending)
}

func Test_BeyondWindowDrop(t *testing.T) {
	w := newTestWorld(t, 1)
	ref := newTestWorld(t, 1)
	tickTo(t, w, 102)
	tickTo(t, ref, 102)
	w.AddClient("c")
	ref.AddClient("c")

	assert.False(t, w.ReceiveInput(0, 90, thrust()))
	_, pending := w.Inputs().OldestPending()
	assert.False(t, pending)
	assert.Equal(t, uint64(1), w.Stats().DroppedInputs)

	got, err := w.Tick()
	require.NoError(t, err)
	want, err := ref.Tick()
	require.NoError(t, err)
	assert.Equal(t, 0, got.Replayed)
	assert.Equal(t, want.Payload, got.Payload)
	assert.Equal(t, ref.Latest().Fighters, w.Latest().Fighters)
}

func Test_EarlyWrappedInputDropped(t *testing.T) {
	w := newTestWorld(t, 1)
	tickTo(t, w, 2)
	require.Equal(t, uint8(3), w.Current())

	// 255 在环形窗口内, 但早于第 0 帧
	assert.False(t, w.ReceiveInput(0, 255, thrust()))
	assert.Equal(t, uint64(1), w.Stats().DroppedInputs)
	_, pending := w.Inputs().OldestPending()
	assert.False(t, pending)

	res, err := w.Tick()
	require.NoError(t, err)
	assert.Equal(t, 0, res.Replayed)

	// 第 0 帧还在, 可以从第 1 步重放
	assert.True(t, w.ReceiveInput(0, 0, thrust()))
	res, err = w.Tick()
	require.NoError(t, err)
	assert.Equal(t, 3, res.Replayed)
}

func Test_InputFromUnknownIndex(t *testing.T) {
	w := newTestWorld(t, 1)
	tickTo(t, w, 5)
	assert.False(t, w.ReceiveInput(9, 4, thrust()))
}

func Test_HistoryCorrupt(t *testing.T) {
	w := newTestWorld(t, 1)
	tickTo(t, w, 10)
	w.history[10].written = false
	_, err := w.Tick()
	assert.True(t, errors.Is(err, ErrHistoryCorrupt))
}

func Test_WrapAround(t *testing.T) {
	w := newTestWorld(t, 2)
	for f := uint64(1); f <= 600; f++ {
		w.ReceiveInput(0, uint8(f-1), thrust())
		if f%50 == 0 {
			// 迟到3帧
			w.ReceiveInput(1, uint8(f-3), thrust())
		}
		_, err := w.Tick()
		require.NoError(t, err)
	}
	assert.Equal(t, uint64(600), w.Frame())
	assert.Equal(t, uint64(600), w.Latest().Frame)
	assert.NotZero(t, w.Stats().ReplayedTicks)
}
