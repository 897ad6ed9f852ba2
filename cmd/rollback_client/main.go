package main

import (
	"flag"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/byebyebruce/rollbackserver/logic/game"
	"github.com/byebyebruce/rollbackserver/logic/room"
	"github.com/byebyebruce/rollbackserver/logic/sim"
	"github.com/byebyebruce/rollbackserver/pb"
	"github.com/byebyebruce/rollbackserver/pkg/kcp_server"
	"github.com/byebyebruce/rollbackserver/pkg/packet/control"
	"github.com/byebyebruce/rollbackserver/pkg/packet/pb_packet"
	"github.com/golang/protobuf/proto"
	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

var (
	addr     = flag.String("kcp", "127.0.0.1:10086", "connect kcp address")
	roomID   = flag.Uint64("room", 1, "room id")
	id       = flag.String("id", "", "my id, random uuid if empty")
	duration = flag.Duration("duration", 30*time.Second, "how long to fly")
)

// bot 一个只会转圈开火的客户端
type bot struct {
	kcp     net.Conn
	udp     *net.UDPConn
	session uint32
	viewed  uint32 // 最近收到的状态 tick
	states  uint32
	decoder *sim.Decoder
}

func (b *bot) send(id pb.ID, msg interface{}) {
	if _, e := b.kcp.Write(pb_packet.NewPacket(uint8(id), msg).Serialize()); nil != e {
		panic(fmt.Sprintf("write error:%s", e.Error()))
	}
}

func (b *bot) datagram(kind uint8, payload []byte) {
	if b.udp == nil {
		return
	}
	b.udp.Write(room.AppendDatagram(nil, b.session, kind, payload))
}

func parse(p *pb_packet.Packet) *structpb.Struct {
	msg := &structpb.Struct{}
	proto.Unmarshal(p.GetData(), msg)
	return msg
}

// readReliable 一直读到 Welcome, 后面的消息在另一个协程里打印
func (b *bot) readReliable(welcome chan<- pb.Welcome) {
	ms := &pb_packet.MsgProtocol{}
	for {
		n, e := ms.ReadPacket(b.kcp)
		if nil != e {
			fmt.Println("read error:", e.Error())
			close(welcome)
			return
		}

		ret := n.(*pb_packet.Packet)
		switch pb.ID(ret.GetMessageID()) {
		case pb.MsgConnect:
			if code := pb.ParseResult(parse(ret)); code != pb.ErrOk {
				fmt.Println("connect failed, code", code)
				close(welcome)
				return
			}
		case pb.MsgWelcome:
			welcome <- pb.ParseWelcome(parse(ret))
		case pb.MsgQueue:
			fmt.Println("queue position", pb.ParseQueue(parse(ret)))
		case pb.MsgRoster:
			seq, entries, _ := game.DecodeRoster(ret.GetData())
			fmt.Println("roster seq", seq, "fighters", len(entries))
		case pb.MsgHeartbeat:
			ts := &timestamppb.Timestamp{}
			proto.Unmarshal(ret.GetData(), ts)
			fmt.Println("server time", ts.AsTime().Format(time.RFC3339Nano))
		case pb.MsgKick:
			code, reason := pb.ParseKick(parse(ret))
			fmt.Println("kicked", code, reason)
			close(welcome)
			return
		}
	}
}

func (b *bot) readState() {
	buf := make([]byte, 1500)
	for {
		n, e := b.udp.Read(buf)
		if nil != e {
			return
		}
		if n < 1 || buf[0] != room.KindState {
			continue
		}
		tick, recs, ok := b.decoder.Decode(buf[1:n])
		atomic.StoreUint32(&b.viewed, uint32(tick))
		if atomic.AddUint32(&b.states, 1)%100 == 0 {
			fmt.Println("state tick", tick, "records", len(recs), "baseline ok", ok)
		}
		// 基准没对上的 slot 没有存下来, 不能确认
		if ok && sim.IsSlotTick(tick) {
			b.datagram(room.KindAck, []byte{tick})
		}
	}
}

func main() {
	flag.Parse()

	if *id == "" {
		*id = uuid.NewString()
	}
	fmt.Println("addr", *addr, "room", *roomID, "id", *id)

	c, e := kcp_server.Dial(*addr, true)
	if nil != e {
		panic(e)
	}
	defer c.Close()

	b := &bot{kcp: c, decoder: sim.NewDecoder()}

	welcome := make(chan pb.Welcome, 1)
	go b.readReliable(welcome)

	b.send(pb.MsgConnect, pb.NewConnect(pb.Connect{PeerID: *id, Room: *roomID}))

	w, ok := <-welcome
	if !ok {
		return
	}
	fmt.Println("welcome session", w.Session, "index", w.Index, "udp", w.UDP, "tickRate", w.TickRate)

	raddr, e := net.ResolveUDPAddr("udp", w.UDP)
	if nil != e {
		panic(e)
	}
	if b.udp, e = net.DialUDP("udp", nil, raddr); nil != e {
		panic(e)
	}
	defer b.udp.Close()
	b.session = w.Session
	b.datagram(room.KindHello, nil)
	go b.readState()

	tickRate := w.TickRate
	if tickRate <= 0 {
		tickRate = sim.DefaultTicks
	}
	ticker := time.NewTicker(time.Second / time.Duration(tickRate))
	defer ticker.Stop()
	heartbeat := time.NewTicker(time.Second)
	defer heartbeat.Stop()
	done := time.After(*duration)

	var i int
	for {
		select {
		case <-ticker.C:
			var s control.Sample
			s[control.Up] = control.MaxValue
			s[control.Left] = 6
			if i%10 == 0 {
				s[control.Fire] = 1
			}
			i++
			tick := uint8(atomic.LoadUint32(&b.viewed))
			b.datagram(room.KindInput, control.Encode([]byte{tick}, s))
		case <-heartbeat.C:
			b.send(pb.MsgHeartbeat, nil)
			b.datagram(room.KindHello, nil)
		case <-done:
			b.send(pb.MsgLeave, nil)
			time.Sleep(100 * time.Millisecond)
			fmt.Println("states received", atomic.LoadUint32(&b.states))
			return
		}
	}
}
