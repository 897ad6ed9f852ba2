package server

import (
	"sync/atomic"
	"time"

	"github.com/byebyebruce/rollbackserver/logic/room"
	"github.com/byebyebruce/rollbackserver/pb"
	"github.com/byebyebruce/rollbackserver/pkg/network"
	"github.com/byebyebruce/rollbackserver/pkg/packet/pb_packet"
	"google.golang.org/protobuf/types/known/structpb"

	l4g "github.com/alecthomas/log4go"
)

// OnConnect 链接进来
func (r *RollbackServer) OnConnect(conn *network.Conn) bool {
	count := atomic.AddInt64(&r.totalConn, 1)
	l4g.Debug("[router] OnConnect [%s] totalConn=%d", conn.GetRawConn().RemoteAddr().String(), count)
	return true
}

func reply(conn *network.Conn, code pb.ErrorCode) {
	conn.AsyncWritePacket(pb_packet.NewPacket(uint8(pb.MsgConnect), pb.NewResult(code)), time.Millisecond)
}

// OnMessage 进房间之前的消息处理, 进房间之后由房间接管
func (r *RollbackServer) OnMessage(conn *network.Conn, p network.Packet) bool {
	msg := p.(*pb_packet.Packet)

	l4g.Debug("[router] OnMessage [%s] msg=[%s] len=[%d]", conn.GetRawConn().RemoteAddr().String(), pb.ID(msg.GetMessageID()), len(msg.GetData()))

	switch pb.ID(msg.GetMessageID()) {
	case pb.MsgConnect:
		rec := &structpb.Struct{}
		if err := msg.Unmarshal(rec); nil != err {
			l4g.Error("[router] msg.Unmarshal error=[%s]", err.Error())
			return false
		}
		c := pb.ParseConnect(rec)

		if c.PeerID == "" {
			reply(conn, pb.ErrBadPeer)
			l4g.Error("[router] empty peer room=[%d]", c.Room)
			return true
		}

		rm := r.roomMgr.GetRoom(c.Room)
		if nil == rm {
			reply(conn, pb.ErrNoRoom)
			l4g.Error("[router] no room peer=[%s] room=[%d]", c.PeerID, c.Room)
			return true
		}

		if rm.IsOver() {
			reply(conn, pb.ErrRoomState)
			l4g.Error("[router] room is over peer=[%s] room=[%d]", c.PeerID, c.Room)
			return true
		}

		s := r.sessions.add(conn, rm, c.PeerID)
		conn.PutExtraData(room.Identity{Session: s.id, PeerID: c.PeerID})
		atomic.AddInt64(&r.totalConn, -1)

		// 连接结果由房间在取到档案后返回
		if !rm.OnConnect(conn) {
			r.sessions.remove(s.id)
			return false
		}
		return true

	case pb.MsgHeartbeat:
		conn.AsyncWritePacket(pb_packet.NewPacket(uint8(pb.MsgHeartbeat), pb.NewHeartbeat()), time.Millisecond)
		return true
	}

	return false
}

// OnClose 还没进房间就断开的链接
func (r *RollbackServer) OnClose(conn *network.Conn) {
	count := atomic.AddInt64(&r.totalConn, -1)

	l4g.Info("[router] OnClose: total=%d", count)
}
