// Package sched 固定间隔的tick驱动
package sched

import (
	"time"
)

// Clock 时钟, 测试里可以换成假的
type Clock interface {
	Now() time.Time
}

// SystemClock 系统时钟
type SystemClock struct{}

// Now 当前时间
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Scheduler 每次唤醒最多跑一个tick, 落后超过一个间隔就重新对齐, 不追帧
type Scheduler struct {
	clock    Clock
	interval time.Duration
	idle     time.Duration

	next    time.Time
	running bool
	ticks   uint64
	skipped uint64
}

// New 构造
func New(clock Clock, interval, idle time.Duration) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Scheduler{
		clock:    clock,
		interval: interval,
		idle:     idle,
	}
}

// Interval tick 间隔
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Poll 唤醒时调用. active 为false表示没人在线, 进入空闲轮询.
// 返回本次是否跑了tick, 以及距离下次唤醒的时间
func (s *Scheduler) Poll(active bool, tick func()) (bool, time.Duration) {
	now := s.clock.Now()

	if !active {
		s.running = false
		return false, s.idle
	}

	if !s.running {
		s.running = true
		s.next = now
	}

	if now.Before(s.next) {
		return false, s.next.Sub(now)
	}

	tick()
	s.ticks++
	s.next = s.next.Add(s.interval)

	// 卡顿后不补帧
	if now.Sub(s.next) > s.interval {
		s.skipped++
		s.next = now.Add(s.interval)
	}

	wait := s.next.Sub(now)
	if wait < 0 {
		wait = 0
	}
	return true, wait
}

// Ticks 已跑的tick数
func (s *Scheduler) Ticks() uint64 {
	return s.ticks
}

// Realigned 重新对齐的次数
func (s *Scheduler) Realigned() uint64 {
	return s.skipped
}
