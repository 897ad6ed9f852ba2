package game

import (
	"time"
)

type peerState int

const (
	peerQueued peerState = iota // 排队中
	peerActive                  // 有飞机
)

// Peer 一个连进来的客户端
type Peer struct {
	session  uint32
	id       string
	username string
	score    uint32
	index    uint8
	state    peerState
	joinTime time.Time
	lastSeen time.Time
}

func newPeer(session uint32, id, username string, score uint32, now time.Time) *Peer {
	return &Peer{
		session:  session,
		id:       id,
		username: username,
		score:    score,
		joinTime: now,
		lastSeen: now,
	}
}

// Session 会话ID
func (p *Peer) Session() uint32 {
	return p.session
}

// ID 档案ID
func (p *Peer) ID() string {
	return p.id
}

// Index networkIndex, 只有 IsActive 时有效
func (p *Peer) Index() uint8 {
	return p.index
}

// IsActive 是否已经有飞机
func (p *Peer) IsActive() bool {
	return p.state == peerActive
}

func (p *Peer) refresh(now time.Time) {
	p.lastSeen = now
}

func (p *Peer) isTimeout(now time.Time, timeout time.Duration) bool {
	return timeout > 0 && now.Sub(p.lastSeen) > timeout
}
