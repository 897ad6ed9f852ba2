package room

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/byebyebruce/rollbackserver/logic/game"
	"github.com/byebyebruce/rollbackserver/logic/sched"
	"github.com/byebyebruce/rollbackserver/logic/sim"
	"github.com/byebyebruce/rollbackserver/pb"
	"github.com/byebyebruce/rollbackserver/pkg/directory"
	"github.com/byebyebruce/rollbackserver/pkg/network"
	"github.com/byebyebruce/rollbackserver/pkg/packet/pb_packet"

	l4g "github.com/alecthomas/log4go"
)

// Host 房间依赖的网络层
type Host interface {
	game.Transport
	// Release 连接关闭后释放会话
	Release(session uint32)
}

// Identity 连接上挂的身份, 在 Connect 消息里确定
type Identity struct {
	Session uint32
	PeerID  string
}

// Datagram 不可靠通道的一个包
type Datagram struct {
	Session uint32
	Kind    uint8
	Payload []byte
}

// 不可靠通道的包类型
const (
	KindHello uint8 = iota + 1
	KindInput
	KindAck
)

// 不可靠通道 s->c
const (
	KindState uint8 = 1
)

// Config 房间配置
type Config struct {
	Game          game.Config
	IdlePoll      time.Duration
	SaveInterval  time.Duration
	LookupTimeout time.Duration
	Clock         sched.Clock
}

type packet struct {
	id  Identity
	msg network.Packet
}

type lookupResult struct {
	id   Identity
	prof directory.Profile
	err  error
}

// Room 一个战场的协程
type Room struct {
	wg sync.WaitGroup

	roomID    uint64
	closeFlag int32
	timeStamp int64

	cfg   Config
	host  Host
	dir   directory.Directory
	clock sched.Clock

	exitChan chan struct{}
	stopOnce sync.Once
	msgQ     chan *packet
	dgramQ   chan Datagram
	inChan   chan *network.Conn
	outChan  chan *network.Conn
	lookupQ  chan lookupResult

	pending map[uint32]*network.Conn // 等档案的连接
	conns   map[uint32]*network.Conn

	sched *sched.Scheduler
	timer *time.Timer
	game  *game.Game

	status atomic.Value
}

// Status 给 web 接口看的状态
type Status struct {
	ID        uint64 `json:"id"`
	Peers     int    `json:"peers"`
	Queue     int    `json:"queue"`
	Fighters  int    `json:"fighters"`
	Frame     uint64 `json:"frame"`
	Replayed  uint64 `json:"replayed"`
	Dropped   uint64 `json:"dropped"`
	Realigned uint64 `json:"realigned"`
	Over      bool   `json:"over"`
}

// NewRoom 构造
func NewRoom(id uint64, cfg Config, host Host, dir directory.Directory) *Room {
	if cfg.Clock == nil {
		cfg.Clock = sched.SystemClock{}
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = 3 * time.Second
	}
	r := &Room{
		roomID:    id,
		cfg:       cfg,
		host:      host,
		dir:       dir,
		clock:     cfg.Clock,
		timeStamp: time.Now().Unix(),
		exitChan:  make(chan struct{}),
		msgQ:      make(chan *packet, 2048),
		dgramQ:    make(chan Datagram, 4096),
		outChan:   make(chan *network.Conn, 256),
		inChan:    make(chan *network.Conn, 256),
		lookupQ:   make(chan lookupResult, 256),
		pending:   make(map[uint32]*network.Conn),
		conns:     make(map[uint32]*network.Conn),
	}
	r.sched = sched.New(cfg.Clock, cfg.Game.Params.TickInterval, cfg.IdlePoll)
	r.game = game.NewGame(id, cfg.Game, host)
	r.status.Store(Status{ID: id})
	r.wg.Add(1) // Run 结束时 Done, 构造后必须调用 Run
	return r
}

// ID room ID
func (r *Room) ID() uint64 {
	return r.roomID
}

// TimeStamp 创建时间
func (r *Room) TimeStamp() int64 {
	return r.timeStamp
}

// IsOver 是否已经结束
func (r *Room) IsOver() bool {
	return atomic.LoadInt32(&r.closeFlag) != 0
}

// Status 最近一次tick后的状态
func (r *Room) Status() Status {
	return r.status.Load().(Status)
}

// OnConnect network.Conn callback, 由 router 在 Connect 消息里调
func (r *Room) OnConnect(conn *network.Conn) bool {
	id, ok := conn.GetExtraData().(Identity)
	if !ok {
		l4g.Error("[room(%d)] OnConnect conn don't have identity", r.roomID)
		return false
	}
	conn.SetCallback(r) // SetCallback只能在OnConnect或OnMessage里调
	select {
	case r.inChan <- conn:
	case <-r.exitChan:
		return false
	}
	l4g.Debug("[room(%d)] OnConnect session=%d peer=%s", r.roomID, id.Session, id.PeerID)
	return true
}

// OnMessage network.Conn callback
func (r *Room) OnMessage(conn *network.Conn, msg network.Packet) bool {
	id, ok := conn.GetExtraData().(Identity)
	if !ok {
		l4g.Error("[room(%d)] OnMessage error conn don't have identity", r.roomID)
		return false
	}

	select {
	case r.msgQ <- &packet{id: id, msg: msg}:
		return true
	case <-r.exitChan:
		return false
	}
}

// OnClose network.Conn callback
func (r *Room) OnClose(conn *network.Conn) {
	select {
	case r.outChan <- conn:
	case <-r.exitChan:
	}
	if id, ok := conn.GetExtraData().(Identity); ok {
		l4g.Debug("[room(%d)] OnClose session=%d", r.roomID, id.Session)
	} else {
		l4g.Warn("[room(%d)] OnClose no identity", r.roomID)
	}
}

// PostDatagram 不可靠通道来的包, 队列满了直接丢
func (r *Room) PostDatagram(d Datagram) bool {
	select {
	case r.dgramQ <- d:
		return true
	default:
		return false
	}
}

// Run 主循环
func (r *Room) Run() {
	defer r.wg.Done()
	defer func() {
		atomic.StoreInt32(&r.closeFlag, 1)
		r.stopOnce.Do(func() {
			close(r.exitChan)
		})
		r.game.Close()
		r.saveScores()
		for _, c := range r.pending {
			c.Close()
		}
		r.updateStatus()
		l4g.Warn("[room(%d)] quit! total time=[%d]", r.roomID, time.Now().Unix()-r.timeStamp)
	}()

	r.timer = time.NewTimer(0)
	defer r.timer.Stop()

	var saveC <-chan time.Time
	if r.cfg.SaveInterval > 0 {
		saveTicker := time.NewTicker(r.cfg.SaveInterval)
		defer saveTicker.Stop()
		saveC = saveTicker.C
	}

	l4g.Info("[room(%d)] running...", r.roomID)

	for {
		select {
		case <-r.exitChan:
			l4g.Warn("[room(%d)] force exit", r.roomID)
			return
		case msg := <-r.msgQ:
			r.processMsg(msg.id, msg.msg.(*pb_packet.Packet))
		case d := <-r.dgramQ:
			r.processDatagram(d)
		case c := <-r.inChan:
			r.onJoin(c)
		case c := <-r.outChan:
			r.onLeave(c)
		case res := <-r.lookupQ:
			r.onLookup(res)
		case <-saveC:
			r.saveScores()
		case <-r.timer.C:
			var err error
			_, wait := r.sched.Poll(r.game.IsActive(), func() {
				err = r.game.Tick(r.clock.Now())
			})
			if err != nil {
				if errors.Is(err, sim.ErrHistoryCorrupt) {
					l4g.Critical("[room(%d)] %v", r.roomID, err)
				} else {
					l4g.Error("[room(%d)] tick error: %v", r.roomID, err)
				}
				return
			}
			r.updateStatus()
			r.timer.Reset(wait)
		}
	}
}

func (r *Room) onJoin(c *network.Conn) {
	id := c.GetExtraData().(Identity)
	if c.IsClosed() {
		return
	}
	r.pending[id.Session] = c

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.LookupTimeout)
		defer cancel()
		prof, err := r.dir.Lookup(ctx, id.PeerID)
		select {
		case r.lookupQ <- lookupResult{id: id, prof: prof, err: err}:
		case <-r.exitChan:
		}
	}()
}

func (r *Room) onLookup(res lookupResult) {
	c, ok := r.pending[res.id.Session]
	if !ok {
		// 等档案的时候已经断开了
		return
	}
	delete(r.pending, res.id.Session)

	if res.err != nil {
		l4g.Error("[room(%d)] lookup peer[%s] failed: %v", r.roomID, res.id.PeerID, res.err)
		r.host.SendReliable(res.id.Session, pb_packet.NewPacket(uint8(pb.MsgConnect), pb.NewResult(pb.ErrBadPeer)))
		r.host.Disconnect(res.id.Session)
		return
	}

	res.prof.ID = res.id.PeerID
	idle := !r.game.IsActive()
	if err := r.game.Join(res.id.Session, res.prof, r.clock.Now()); err != nil {
		l4g.Error("[room(%d)] peer[%s] join failed: %v", r.roomID, res.id.PeerID, err)
		r.host.Disconnect(res.id.Session)
		return
	}
	r.conns[res.id.Session] = c
	l4g.Info("[room(%d)] peer[%s] join room ok", r.roomID, res.id.PeerID)

	if idle {
		r.wake()
	}
}

// wake 从空闲轮询回到正常节奏
func (r *Room) wake() {
	if !r.timer.Stop() {
		select {
		case <-r.timer.C:
		default:
		}
	}
	r.timer.Reset(0)
}

func (r *Room) onLeave(c *network.Conn) {
	id, ok := c.GetExtraData().(Identity)
	if !ok {
		l4g.Error("[room(%d)] outChan don't have identity", r.roomID)
		return
	}
	delete(r.pending, id.Session)
	if r.conns[id.Session] == c {
		delete(r.conns, id.Session)
		r.game.Leave(id.Session)
	}
	r.host.Release(id.Session)
}

func (r *Room) processMsg(id Identity, msg *pb_packet.Packet) {
	now := r.clock.Now()
	var err error

	switch pb.ID(msg.GetMessageID()) {
	case pb.MsgHeartbeat:
		err = r.game.OnHeartbeat(id.Session, now)
	case pb.MsgAck:
		if data := msg.GetData(); len(data) > 0 {
			err = r.game.OnAck(id.Session, data[0], now)
		}
	case pb.MsgLeave:
		if r.game.Leave(id.Session) {
			r.host.Disconnect(id.Session)
		}
	default:
		l4g.Warn("[room(%d)] processMsg unknown message id[%d] session=%d", r.roomID, msg.GetMessageID(), id.Session)
	}

	if err != nil && !errors.Is(err, game.ErrUnknownPeer) {
		l4g.Error("[room(%d)] processMsg session=%d msg=[%d] error: %v", r.roomID, id.Session, msg.GetMessageID(), err)
	}
}

func (r *Room) processDatagram(d Datagram) {
	now := r.clock.Now()
	switch d.Kind {
	case KindInput:
		if len(d.Payload) < 1 {
			return
		}
		r.game.OnInput(d.Session, d.Payload[0], d.Payload[1:], now)
	case KindAck:
		if len(d.Payload) < 1 {
			return
		}
		r.game.OnAck(d.Session, d.Payload[0], now)
	case KindHello:
		// 地址在网络层已经绑定
	}
}

func (r *Room) saveScores() {
	scores := r.game.Scores()
	if len(scores) == 0 {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.LookupTimeout)
		defer cancel()
		if err := r.dir.SaveScores(ctx, scores); err != nil {
			l4g.Error("[room(%d)] save scores failed: %v", r.roomID, err)
		}
	}()
}

func (r *Room) updateStatus() {
	stats := r.game.World().Stats()
	r.status.Store(Status{
		ID:        r.roomID,
		Peers:     r.game.PeerCount(),
		Queue:     r.game.QueueLength(),
		Fighters:  r.game.World().Latest().Count(),
		Frame:     r.game.World().Frame(),
		Replayed:  stats.ReplayedTicks,
		Dropped:   stats.DroppedInputs,
		Realigned: r.sched.Realigned(),
		Over:      r.IsOver(),
	})
}

// AppendDatagram 拼 c->s 不可靠包, 客户端用
func AppendDatagram(dst []byte, session uint32, kind uint8, payload []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, session)
	dst = append(dst, kind)
	return append(dst, payload...)
}

// ParseDatagram 拆 c->s 不可靠包
func ParseDatagram(b []byte) (Datagram, bool) {
	if len(b) < 5 {
		return Datagram{}, false
	}
	return Datagram{
		Session: binary.BigEndian.Uint32(b),
		Kind:    b[4],
		Payload: b[5:],
	}, true
}

// Stop 强制关闭
func (r *Room) Stop() {
	r.stopOnce.Do(func() {
		close(r.exitChan)
	})
	r.wg.Wait()
}
