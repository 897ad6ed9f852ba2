// Package seq 8位循环序号运算，tick号和ack号在网络上都是 mod 256
package seq

// Half 循环空间的中点，用来区分前后
const Half = 127

// DistanceBack 从 b 往前数到 a 的距离
func DistanceBack(a, b uint8) uint8 {
	return a - b
}

// IsWithinWindow x 在 s 之前且距离不超过 window
func IsWithinWindow(s, x, window uint8) bool {
	d := DistanceBack(s, x)
	return d > 0 && d <= window
}

// IsBefore 循环意义上 a <= b
func IsBefore(a, b uint8) bool {
	return DistanceBack(b, a) <= Half
}

// Prev 上一个序号
func Prev(s uint8) uint8 {
	return s - 1
}

// Next 下一个序号
func Next(s uint8) uint8 {
	return s + 1
}
