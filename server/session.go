package server

import (
	"encoding/binary"
	"net"
	"sync"
	"sync/atomic"

	"github.com/byebyebruce/rollbackserver/logic/room"
	"github.com/byebyebruce/rollbackserver/pkg/network"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// session 一个客户端在两个通道上的绑定
type session struct {
	id      uint32
	peerID  string
	conn    *network.Conn
	room    *room.Room
	limiter *rate.Limiter
	addr    atomic.Pointer[net.UDPAddr]
}

func (s *session) udpAddr() *net.UDPAddr {
	return s.addr.Load()
}

// bind hello 包绑定地址, 其它包必须来自绑定的地址
func (s *session) bind(addr *net.UDPAddr, hello bool) bool {
	if hello {
		a := *addr
		s.addr.Store(&a)
		return true
	}
	old := s.addr.Load()
	return old != nil && old.Port == addr.Port && old.IP.Equal(addr.IP)
}

type sessionTable struct {
	sync.RWMutex
	m     map[uint32]*session
	limit rate.Limit
	burst int
}

func newSessionTable(limit rate.Limit, burst int) *sessionTable {
	return &sessionTable{
		m:     make(map[uint32]*session),
		limit: limit,
		burst: burst,
	}
}

// add 分配一个不重复的非零会话ID
func (t *sessionTable) add(conn *network.Conn, r *room.Room, peerID string) *session {
	t.Lock()
	defer t.Unlock()

	var id uint32
	for id == 0 || t.m[id] != nil {
		u := uuid.New()
		id = binary.BigEndian.Uint32(u[:4])
	}
	s := &session{
		id:      id,
		peerID:  peerID,
		conn:    conn,
		room:    r,
		limiter: rate.NewLimiter(t.limit, t.burst),
	}
	t.m[id] = s
	return s
}

func (t *sessionTable) get(id uint32) *session {
	t.RLock()
	defer t.RUnlock()
	return t.m[id]
}

func (t *sessionTable) remove(id uint32) *session {
	t.Lock()
	defer t.Unlock()
	s := t.m[id]
	delete(t.m, id)
	return s
}

func (t *sessionTable) count() int {
	t.RLock()
	defer t.RUnlock()
	return len(t.m)
}
