package control

/*

c->s 操作包

|--presence(uint8)--|--value(4bit)--|--value(4bit)--|...
|---------1---------|------按 presence 位序依次排列, 高位在前------|

*/

// Action 操作类型, 同时也是 presence 的位序
const (
	Up = iota
	Down
	Left
	Right
	Fire
	Descend
	Ascend
	Boost

	NumActions
)

const (
	ValueBits = 4
	MaxValue  = 1<<ValueBits - 1

	MaxPacketLen = 1 + (NumActions*ValueBits+7)/8
)

// Sample 一个tick采样窗口内每个操作的按键次数(已量化)
type Sample [NumActions]uint8

// Mask 非零操作的位图
func (s Sample) Mask() uint8 {
	var m uint8
	for i, v := range s {
		if v != 0 {
			m |= 1 << uint(i)
		}
	}
	return m
}

// IsZero 没有任何操作
func (s Sample) IsZero() bool {
	return s.Mask() == 0
}

// Force 操作力度 [0,1]
func (s Sample) Force(action int) float64 {
	return float64(s[action]) / MaxValue
}

// Encode 把 s 追加到 dst
func Encode(dst []byte, s Sample) []byte {
	mask := s.Mask()
	dst = append(dst, mask)

	half := false
	for i, v := range s {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		if v > MaxValue {
			v = MaxValue
		}
		if !half {
			dst = append(dst, v<<ValueBits)
		} else {
			dst[len(dst)-1] |= v
		}
		half = !half
	}
	return dst
}

// Decode 解码, 数据不够的字段按0处理
func Decode(b []byte) Sample {
	var s Sample
	if len(b) == 0 {
		return s
	}

	mask := b[0]
	k := 0
	for i := 0; i < NumActions; i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		idx := 1 + k/2
		if idx < len(b) {
			if k%2 == 0 {
				s[i] = b[idx] >> ValueBits
			} else {
				s[i] = b[idx] & MaxValue
			}
		}
		k++
	}
	return s
}
