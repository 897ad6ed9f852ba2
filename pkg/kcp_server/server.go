package kcp_server

import (
	"net"
	"time"

	"github.com/byebyebruce/rollbackserver/pkg/network"
	"github.com/xtaci/kcp-go"
)

// Config kcp 监听参数
type Config struct {
	ReadTimeout  time.Duration // 这么久没收到包就断开, 客户端靠心跳保活
	WriteTimeout time.Duration
	Turbo        bool // 极速模式
}

// DefaultConfig 默认
func DefaultConfig() Config {
	return Config{
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 5,
		Turbo:        true,
	}
}

// setup 设置 kcp 会话参数, 客户端也用同一套
func setup(s *kcp.UDPSession, turbo bool) {
	// 普通模式：ikcp_nodelay(kcp, 0, 40, 0, 0); 极速模式： ikcp_nodelay(kcp, 1, 10, 2, 1);
	if turbo {
		s.SetNoDelay(1, 10, 2, 1)
	} else {
		s.SetNoDelay(0, 40, 0, 0)
	}
	s.SetStreamMode(true)
	s.SetWindowSize(4096, 4096)
	s.SetReadBuffer(4 * 1024 * 1024)
	s.SetWriteBuffer(4 * 1024 * 1024)
	s.SetACKNoDelay(true)
}

// ListenAndServe 开始监听, 返回的 server 需要调用者 Stop
func ListenAndServe(addr string, cfg Config, callback network.ConnCallback, protocol network.Protocol) (*network.Server, error) {
	dupConfig := &network.Config{
		PacketReceiveChanLimit: 1024,
		PacketSendChanLimit:    1024,
		ConnReadTimeout:        cfg.ReadTimeout,
		ConnWriteTimeout:       cfg.WriteTimeout,
	}

	l, err := kcp.Listen(addr)
	if nil != err {
		return nil, err
	}

	server := network.NewServer(dupConfig, callback, protocol)
	go server.Start(l, func(conn net.Conn, i *network.Server) *network.Conn {
		setup(conn.(*kcp.UDPSession), cfg.Turbo)
		return network.NewConn(conn, server)
	})

	return server, nil
}

// Dial 连服务器, 参数和服务端一致
func Dial(addr string, turbo bool) (*kcp.UDPSession, error) {
	s, err := kcp.Dial(addr)
	if nil != err {
		return nil, err
	}
	sess := s.(*kcp.UDPSession)
	setup(sess, turbo)
	return sess, nil
}
