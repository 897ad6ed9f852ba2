package network

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrConnClosing   = errors.New("use of closed network connection")
	ErrWriteBlocking = errors.New("write packet was blocking")
	ErrReadBlocking  = errors.New("read packet was blocking")
)

// Conn wraps a stream with buffered read and write loops
type Conn struct {
	srv               *Server
	conn              net.Conn
	extraData         atomic.Value
	callback          atomic.Value
	closeOnce         sync.Once
	closeFlag         int32
	closeChan         chan struct{}
	packetSendChan    chan Packet
	packetReceiveChan chan Packet
}

type extra struct {
	v interface{}
}

type callbackBox struct {
	cb ConnCallback
}

// NewConn returns a wrapper of raw conn
func NewConn(conn net.Conn, srv *Server) *Conn {
	c := &Conn{
		srv:               srv,
		conn:              conn,
		closeChan:         make(chan struct{}),
		packetSendChan:    make(chan Packet, srv.config.PacketSendChanLimit),
		packetReceiveChan: make(chan Packet, srv.config.PacketReceiveChanLimit),
	}
	c.callback.Store(callbackBox{cb: srv.callback})
	c.extraData.Store(extra{})
	return c
}

// GetExtraData gets the extra data from the Conn
func (c *Conn) GetExtraData() interface{} {
	return c.extraData.Load().(extra).v
}

// PutExtraData puts the extra data with the Conn
func (c *Conn) PutExtraData(data interface{}) {
	c.extraData.Store(extra{v: data})
}

// GetRawConn returns the raw net.Conn
func (c *Conn) GetRawConn() net.Conn {
	return c.conn
}

// SetCallback routes the following messages to cb. Only call it inside OnConnect
// or OnMessage.
func (c *Conn) SetCallback(cb ConnCallback) {
	c.callback.Store(callbackBox{cb: cb})
}

func (c *Conn) getCallback() ConnCallback {
	return c.callback.Load().(callbackBox).cb
}

// Close closes the connection
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		atomic.StoreInt32(&c.closeFlag, 1)
		close(c.closeChan)
		c.conn.Close()
		c.getCallback().OnClose(c)
	})
}

type closePacket struct{}

func (closePacket) Serialize() []byte { return nil }

// CloseAfterWrite closes the connection once the packets already queued are written.
// Falls back to Close when the send queue stays full for timeout.
func (c *Conn) CloseAfterWrite(timeout time.Duration) {
	if err := c.AsyncWritePacket(closePacket{}, timeout); err != nil {
		c.Close()
	}
}

// IsClosed indicates whether or not the connection is closed
func (c *Conn) IsClosed() bool {
	return atomic.LoadInt32(&c.closeFlag) == 1
}

// AsyncWritePacket queues p for writing. A zero timeout fails immediately when
// the send queue is full.
func (c *Conn) AsyncWritePacket(p Packet, timeout time.Duration) (err error) {
	if c.IsClosed() {
		return ErrConnClosing
	}

	defer func() {
		if e := recover(); e != nil {
			err = ErrConnClosing
		}
	}()

	if timeout == 0 {
		select {
		case c.packetSendChan <- p:
			return nil
		default:
			return ErrWriteBlocking
		}
	}

	select {
	case c.packetSendChan <- p:
		return nil
	case <-c.closeChan:
		return ErrConnClosing
	case <-time.After(timeout):
		return ErrWriteBlocking
	}
}

// Do runs the connection until it is closed
func (c *Conn) Do() {
	if !c.getCallback().OnConnect(c) {
		c.Close()
		return
	}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); c.handleLoop() }()
	go func() { defer wg.Done(); c.readLoop() }()
	go func() { defer wg.Done(); c.writeLoop() }()
	wg.Wait()
}

func (c *Conn) readLoop() {
	defer c.Close()

	for {
		select {
		case <-c.srv.exitChan:
			return
		case <-c.closeChan:
			return
		default:
		}

		if c.srv.config.ConnReadTimeout > 0 {
			c.conn.SetReadDeadline(time.Now().Add(c.srv.config.ConnReadTimeout))
		}
		p, err := c.srv.protocol.ReadPacket(c.conn)
		if err != nil {
			return
		}

		select {
		case c.packetReceiveChan <- p:
		case <-c.closeChan:
			return
		}
	}
}

func (c *Conn) writeLoop() {
	defer c.Close()

	for {
		select {
		case <-c.srv.exitChan:
			return
		case <-c.closeChan:
			return
		case p := <-c.packetSendChan:
			if _, ok := p.(closePacket); ok {
				return
			}
			if c.srv.config.ConnWriteTimeout > 0 {
				c.conn.SetWriteDeadline(time.Now().Add(c.srv.config.ConnWriteTimeout))
			}
			if _, err := c.conn.Write(p.Serialize()); err != nil {
				return
			}
		}
	}
}

func (c *Conn) handleLoop() {
	defer c.Close()

	for {
		select {
		case <-c.srv.exitChan:
			return
		case <-c.closeChan:
			return
		case p := <-c.packetReceiveChan:
			if !c.getCallback().OnMessage(c, p) {
				return
			}
		}
	}
}
