package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/byebyebruce/rollbackserver/logic/sim"
	"github.com/byebyebruce/rollbackserver/pb"
	"github.com/byebyebruce/rollbackserver/pkg/directory"
	"github.com/byebyebruce/rollbackserver/pkg/network"
	"github.com/byebyebruce/rollbackserver/pkg/packet/control"
	"github.com/byebyebruce/rollbackserver/pkg/packet/pb_packet"

	l4g "github.com/alecthomas/log4go"
)

var (
	ErrUnknownPeer   = errors.New("game: unknown peer")
	ErrDuplicatePeer = errors.New("game: session already joined")
)

// Transport 发包, 由 server 实现. 调用方是房间协程, 实现不能阻塞
type Transport interface {
	SendReliable(session uint32, p network.Packet)
	// SendUnreliable b 在返回后会被复用
	SendUnreliable(session uint32, b []byte)
	Disconnect(session uint32)
}

// Config 一局的配置
type Config struct {
	Params         sim.Params
	Runways        []sim.Runway
	Rules          sim.Rules
	RosterInterval time.Duration
	ClientTimeout  time.Duration
	UDP            string // 告诉客户端的 udp 地址
	TickRate       int
}

// Game 一个战场. 只能在房间协程里调用
type Game struct {
	id        uint64
	cfg       Config
	world     *sim.World
	transport Transport

	peers   map[uint32]*Peer
	byIndex [sim.MaxFighters]*Peer
	queue   joinQueue

	lastRoster time.Time
	rosterBuf  []byte
	departed   []directory.Score // 离开的人, 下次回存带上

	metrics *metrics
}

// NewGame 构造
func NewGame(id uint64, cfg Config, transport Transport) *Game {
	if cfg.Rules == nil {
		cfg.Rules = sim.DefaultRules{}
	}
	g := &Game{
		id:        id,
		cfg:       cfg,
		world:     sim.NewWorld(cfg.Params, cfg.Runways, cfg.Rules),
		transport: transport,
		peers:     make(map[uint32]*Peer),
		metrics:   newMetrics(id),
	}
	return g
}

// World 模拟世界
func (g *Game) World() *sim.World {
	return g.world
}

// IsActive 有人在线才需要按频率tick
func (g *Game) IsActive() bool {
	return len(g.peers) > 0
}

// PeerCount 在线人数
func (g *Game) PeerCount() int {
	return len(g.peers)
}

// QueueLength 排队人数
func (g *Game) QueueLength() int {
	return g.queue.len()
}

// Peer 按会话找
func (g *Game) Peer(session uint32) *Peer {
	return g.peers[session]
}

// Join 档案取到后加入. 有空位直接分配飞机, 否则排队
func (g *Game) Join(session uint32, prof directory.Profile, now time.Time) error {
	if _, ok := g.peers[session]; ok {
		return ErrDuplicatePeer
	}

	// 同一个档案重复登录, 把旧的顶掉
	for _, old := range g.peers {
		if old.id == prof.ID {
			l4g.Warn("[game(%d)] peer[%s] replace session %d with %d", g.id, prof.ID, old.session, session)
			g.kick(old, pb.ErrBadPeer, "replaced")
			break
		}
	}

	p := newPeer(session, prof.ID, prof.Username, prof.Score, now)
	g.peers[session] = p
	g.send(p, pb.MsgConnect, pb.NewResult(pb.ErrOk))

	if g.queue.len() == 0 && g.world.FreeCount() > 0 {
		if err := g.activate(p); err != nil {
			return err
		}
	} else {
		pos := g.queue.push(session)
		g.send(p, pb.MsgQueue, pb.NewQueue(pos))
		l4g.Info("[game(%d)] peer[%s] queued at %d", g.id, p.id, pos)
	}

	g.metrics.onPeers(context.Background(), len(g.peers), g.queue.len())
	return nil
}

func (g *Game) activate(p *Peer) error {
	index, err := g.world.Spawn(sim.Profile{ID: p.id, Score: p.score})
	if err != nil {
		return fmt.Errorf("game(%d) spawn %s: %w", g.id, p.id, err)
	}
	p.index = index
	p.state = peerActive
	g.byIndex[index] = p
	g.world.AddClient(p.id)

	g.send(p, pb.MsgWelcome, pb.NewWelcome(pb.Welcome{
		Session:  p.session,
		UDP:      g.cfg.UDP,
		TickRate: g.cfg.TickRate,
		Index:    index,
	}))
	// 下一个tick带上新飞机发一次名单
	g.lastRoster = time.Time{}

	l4g.Info("[game(%d)] peer[%s] session=%d spawn index=%d", g.id, p.id, p.session, index)
	return nil
}

// Leave 离开, 空出来的位置给排队的人
func (g *Game) Leave(session uint32) bool {
	p, ok := g.peers[session]
	if !ok {
		return false
	}
	delete(g.peers, session)

	if p.IsActive() {
		if f := &g.world.Latest().Fighters[p.index]; f.Exists && f.ID == p.id {
			p.score = f.Score
		}
		g.world.Remove(p.index)
		g.world.RemoveClient(p.id)
		g.byIndex[p.index] = nil
	} else {
		g.queue.remove(session)
	}
	g.departed = append(g.departed, directory.Score{ClientID: p.id, Score: p.score})
	l4g.Info("[game(%d)] peer[%s] session=%d leave", g.id, p.id, session)

	g.promote()
	g.metrics.onPeers(context.Background(), len(g.peers), g.queue.len())
	return true
}

func (g *Game) promote() {
	moved := false
	for g.queue.len() > 0 && g.world.FreeCount() > 0 {
		session, _ := g.queue.pop()
		p := g.peers[session]
		if p == nil {
			continue
		}
		if err := g.activate(p); err != nil {
			l4g.Error("[game(%d)] promote %s: %v", g.id, p.id, err)
			break
		}
		moved = true
	}
	if !moved {
		return
	}
	for i, session := range g.queue.sessions {
		if p := g.peers[session]; p != nil {
			g.send(p, pb.MsgQueue, pb.NewQueue(i))
		}
	}
}

func (g *Game) kick(p *Peer, code pb.ErrorCode, reason string) {
	g.send(p, pb.MsgKick, pb.NewKick(code, reason))
	g.Leave(p.session)
	g.transport.Disconnect(p.session)
}

// Kick 踢掉一个会话
func (g *Game) Kick(session uint32, code pb.ErrorCode, reason string) error {
	p, ok := g.peers[session]
	if !ok {
		return ErrUnknownPeer
	}
	g.kick(p, code, reason)
	return nil
}

// OnInput 不可靠通道来的操作, tick 是客户端采样时看到的 tick
func (g *Game) OnInput(session uint32, tick uint8, payload []byte, now time.Time) error {
	p, ok := g.peers[session]
	if !ok {
		return ErrUnknownPeer
	}
	p.refresh(now)
	if !p.IsActive() {
		return nil
	}
	g.world.ReceiveInput(p.index, tick, control.Decode(payload))
	return nil
}

// OnAck 两个通道都可能来
func (g *Game) OnAck(session uint32, seq uint8, now time.Time) error {
	p, ok := g.peers[session]
	if !ok {
		return ErrUnknownPeer
	}
	p.refresh(now)
	if p.IsActive() {
		g.world.ReceiveAck(seq, p.id)
	}
	return nil
}

// OnHeartbeat 回服务器时间
func (g *Game) OnHeartbeat(session uint32, now time.Time) error {
	p, ok := g.peers[session]
	if !ok {
		return ErrUnknownPeer
	}
	p.refresh(now)
	g.send(p, pb.MsgHeartbeat, pb.NewHeartbeat())
	return nil
}

// Tick 推进一个tick并广播. 返回的错误说明历史损坏, 这个世界不能再继续
func (g *Game) Tick(now time.Time) error {
	res, err := g.world.Tick()
	if err != nil {
		return err
	}

	for _, p := range g.peers {
		if p.IsActive() {
			g.transport.SendUnreliable(p.session, res.Payload)
		}
	}

	ctx := context.Background()
	g.metrics.onTick(ctx, res.Replayed, len(res.Payload), g.world.Stats().DroppedInputs)
	if res.Replayed > 0 {
		l4g.Debug("[game(%d)] tick=%d replayed=%d", g.id, res.Seq, res.Replayed)
	}

	for _, ev := range res.Events {
		if hz, ok := ev.(sim.HealthZero); ok {
			g.onHealthZero(hz)
		}
	}

	for _, p := range g.peers {
		if p.isTimeout(now, g.cfg.ClientTimeout) {
			l4g.Warn("[game(%d)] peer[%s] session=%d timeout", g.id, p.id, p.session)
			g.kick(p, pb.ErrBadPeer, "timeout")
		}
	}

	if g.cfg.RosterInterval > 0 && now.Sub(g.lastRoster) >= g.cfg.RosterInterval {
		g.lastRoster = now
		g.broadcastRoster(res.Seq)
	}
	return nil
}

func (g *Game) onHealthZero(ev sim.HealthZero) {
	p := g.byIndex[ev.Fighter]
	if p == nil || p.id != ev.ID {
		return
	}
	l4g.Info("[game(%d)] peer[%s] index=%d shot down", g.id, p.id, ev.Fighter)
	g.kick(p, pb.ErrKilled, "shot down")
}

func (g *Game) broadcastRoster(seq uint8) {
	g.rosterBuf = AppendRoster(g.rosterBuf[:0], seq, g.world.Latest())
	buf := make([]byte, len(g.rosterBuf))
	copy(buf, g.rosterBuf)
	msg := pb_packet.NewPacket(uint8(pb.MsgRoster), buf)
	if msg == nil {
		return
	}
	for _, p := range g.peers {
		g.transport.SendReliable(p.session, msg)
	}
}

// Scores 当前分数加上上次之后离开的人, 定期回存
func (g *Game) Scores() []directory.Score {
	latest := g.world.Latest()
	scores := make([]directory.Score, 0, len(g.peers)+len(g.departed))
	scores = append(scores, g.departed...)
	g.departed = g.departed[:0]
	for _, p := range g.peers {
		score := p.score
		if p.IsActive() {
			if f := &latest.Fighters[p.index]; f.Exists && f.ID == p.id {
				score = f.Score
			}
		}
		scores = append(scores, directory.Score{ClientID: p.id, Score: score})
	}
	return scores
}

// Close 踢掉所有人
func (g *Game) Close() {
	for _, p := range g.peers {
		g.kick(p, pb.ErrRoomState, "room closed")
	}
}

func (g *Game) send(p *Peer, id pb.ID, msg interface{}) {
	packet := pb_packet.NewPacket(uint8(id), msg)
	if packet == nil {
		return
	}
	g.transport.SendReliable(p.session, packet)
}
