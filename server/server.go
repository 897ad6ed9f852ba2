package server

import (
	"time"

	"github.com/byebyebruce/rollbackserver/config"
	"github.com/byebyebruce/rollbackserver/logic"
	"github.com/byebyebruce/rollbackserver/logic/game"
	"github.com/byebyebruce/rollbackserver/logic/room"
	"github.com/byebyebruce/rollbackserver/pkg/directory"
	"github.com/byebyebruce/rollbackserver/pkg/kcp_server"
	"github.com/byebyebruce/rollbackserver/pkg/network"
	"github.com/byebyebruce/rollbackserver/pkg/packet/pb_packet"
	"github.com/byebyebruce/rollbackserver/util"
	"golang.org/x/time/rate"

	l4g "github.com/alecthomas/log4go"
)

// RollbackServer 回滚同步服务器. kcp 走可靠消息, udp 走状态和操作
type RollbackServer struct {
	roomMgr   *logic.RoomManager
	kcpServer *network.Server
	datagram  *datagramServer
	sessions  *sessionTable
	advertise string
	totalConn int64
}

// New 构造并开始监听
func New(cfg *config.Config, dir directory.Directory) (*RollbackServer, error) {
	s := &RollbackServer{
		sessions: newSessionTable(rate.Limit(cfg.Sim.InputRate), cfg.Sim.InputBurst),
	}

	d, err := listenDatagram(cfg.Server.Unreliable, s.sessions)
	if err != nil {
		return nil, err
	}
	s.datagram = d
	s.advertise = util.AdvertiseAddr(cfg.Server.Advertise, d.localAddr())

	roomCfg := room.Config{
		Game: game.Config{
			Params:         cfg.Params(),
			Runways:        cfg.Runways,
			RosterInterval: cfg.Sim.RosterInterval,
			ClientTimeout:  cfg.Sim.ClientTimeout,
			UDP:            s.advertise,
			TickRate:       cfg.Sim.TickRate,
		},
		IdlePoll:      cfg.Sim.IdlePoll,
		SaveInterval:  cfg.Directory.SaveInterval,
		LookupTimeout: cfg.Directory.Timeout,
	}
	s.roomMgr = logic.NewRoomManager(roomCfg, s, dir)

	kcpCfg := kcp_server.DefaultConfig()
	kcpCfg.ReadTimeout = cfg.Server.ReadTimeout
	networkServer, err := kcp_server.ListenAndServe(cfg.Server.Reliable, kcpCfg, s, &pb_packet.MsgProtocol{})
	if err != nil {
		d.close()
		return nil, err
	}
	s.kcpServer = networkServer

	l4g.Info("[server] reliable=%s unreliable=%s advertise=%s", cfg.Server.Reliable, cfg.Server.Unreliable, s.advertise)
	return s, nil
}

// RoomManager 获取房间管理器
func (r *RollbackServer) RoomManager() *logic.RoomManager {
	return r.roomMgr
}

// Advertise 告诉客户端的 udp 地址
func (r *RollbackServer) Advertise() string {
	return r.advertise
}

// SendReliable game.Transport
func (r *RollbackServer) SendReliable(session uint32, p network.Packet) {
	s := r.sessions.get(session)
	if s == nil || p == nil {
		return
	}
	if nil != s.conn.AsyncWritePacket(p, 0) {
		l4g.Warn("[server] session=%d send queue blocked, close", session)
		go s.conn.Close()
	}
}

// SendUnreliable game.Transport, 还没发 hello 的会话收不到
func (r *RollbackServer) SendUnreliable(session uint32, b []byte) {
	s := r.sessions.get(session)
	if s == nil {
		return
	}
	addr := s.udpAddr()
	if addr == nil {
		return
	}
	if err := r.datagram.writeTo(addr, room.KindState, b); err != nil {
		l4g.Debug("[server] session=%d write udp error: %v", session, err)
	}
}

// Disconnect game.Transport. 房间协程里调用, 关闭放到别的协程避免回调里等房间.
// 已经排队的消息(比如踢人原因)会先写出去
func (r *RollbackServer) Disconnect(session uint32) {
	s := r.sessions.remove(session)
	if s == nil {
		return
	}
	go s.conn.CloseAfterWrite(time.Second)
}

// Release room.Host
func (r *RollbackServer) Release(session uint32) {
	r.sessions.remove(session)
}

// Stop 停止服务
func (r *RollbackServer) Stop() {
	r.roomMgr.Stop()
	r.kcpServer.Stop()
	r.datagram.close()
}
