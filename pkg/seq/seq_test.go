package seq

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_DistanceBack(t *testing.T) {
	for a := 0; a < 256; a++ {
		assert.Equal(t, uint8(0), DistanceBack(uint8(a), uint8(a)))
	}
	assert.Equal(t, uint8(3), DistanceBack(103, 100))
	assert.Equal(t, uint8(2), DistanceBack(1, 255))
	assert.Equal(t, uint8(253), DistanceBack(100, 103))
}

func Test_IsWithinWindow(t *testing.T) {
	cases := []struct {
		s, x, w uint8
		want    bool
	}{
		{103, 100, 8, true},
		{103, 90, 8, false},
		{103, 103, 8, false},
		{103, 95, 8, true},
		{103, 94, 8, false},
		{2, 250, 8, true},
		{100, 103, 8, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, IsWithinWindow(c.s, c.x, c.w), "s=%d x=%d w=%d", c.s, c.x, c.w)
	}
}

func Test_IsWithinWindowMonotonic(t *testing.T) {
	for s := 0; s < 256; s += 7 {
		for x := 0; x < 256; x++ {
			prev := false
			for w := 0; w < 256; w++ {
				cur := IsWithinWindow(uint8(s), uint8(x), uint8(w))
				if prev && !cur {
					t.Fatalf("not monotonic s=%d x=%d w=%d", s, x, w)
				}
				prev = cur
			}
		}
	}
}

func Test_IsBefore(t *testing.T) {
	assert.True(t, IsBefore(100, 103))
	assert.False(t, IsBefore(103, 100))
	assert.True(t, IsBefore(250, 3))
	assert.False(t, IsBefore(3, 250))
	assert.True(t, IsBefore(7, 7))
}

func Test_PrevNext(t *testing.T) {
	assert.Equal(t, uint8(255), Prev(0))
	assert.Equal(t, uint8(0), Next(255))
	for a := 0; a < 256; a++ {
		assert.Equal(t, uint8(a), Next(Prev(uint8(a))))
	}
}
