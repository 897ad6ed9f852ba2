package server

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"

	"github.com/byebyebruce/rollbackserver/logic/room"

	l4g "github.com/alecthomas/log4go"
)

const maxDatagramLen = 1500

// datagramServer 不可靠通道, 所有会话共用一个 udp socket
type datagramServer struct {
	conn     *net.UDPConn
	sessions *sessionTable
	wg       sync.WaitGroup
	bufPool  sync.Pool

	dropped uint64 // 限流或者不认识的会话
}

func listenDatagram(addr string, sessions *sessionTable) (*datagramServer, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}
	d := &datagramServer{
		conn:     conn,
		sessions: sessions,
	}
	d.bufPool.New = func() interface{} {
		b := make([]byte, 0, maxDatagramLen)
		return &b
	}
	d.wg.Add(1)
	go d.readLoop()
	return d, nil
}

func (d *datagramServer) localAddr() *net.UDPAddr {
	return d.conn.LocalAddr().(*net.UDPAddr)
}

func (d *datagramServer) readLoop() {
	defer d.wg.Done()

	buf := make([]byte, maxDatagramLen)
	for {
		n, addr, err := d.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			l4g.Warn("[datagram] read error: %v", err)
			continue
		}
		d.handle(buf[:n], addr)
	}
}

func (d *datagramServer) handle(b []byte, addr *net.UDPAddr) {
	dg, ok := room.ParseDatagram(b)
	if !ok {
		atomic.AddUint64(&d.dropped, 1)
		return
	}
	s := d.sessions.get(dg.Session)
	if s == nil || !s.limiter.Allow() {
		atomic.AddUint64(&d.dropped, 1)
		return
	}
	if !s.bind(addr, dg.Kind == room.KindHello) {
		atomic.AddUint64(&d.dropped, 1)
		return
	}

	// 读缓冲会复用
	dg.Payload = append([]byte(nil), dg.Payload...)
	if !s.room.PostDatagram(dg) {
		atomic.AddUint64(&d.dropped, 1)
		l4g.Warn("[datagram] room(%d) queue full, drop session=%d", s.room.ID(), dg.Session)
	}
}

// writeTo 加上 [kind] 头发出去
func (d *datagramServer) writeTo(addr *net.UDPAddr, kind uint8, payload []byte) error {
	bp := d.bufPool.Get().(*[]byte)
	b := append((*bp)[:0], kind)
	b = append(b, payload...)
	_, err := d.conn.WriteToUDP(b, addr)
	*bp = b
	d.bufPool.Put(bp)
	return err
}

// Dropped 丢弃的包数
func (d *datagramServer) Dropped() uint64 {
	return atomic.LoadUint64(&d.dropped)
}

func (d *datagramServer) close() {
	d.conn.Close()
	d.wg.Wait()
}
