// Package pb 可靠通道的消息定义. 消息体是 structpb.Struct, 字段名见各个 Key 常量
package pb

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// ID 消息ID
type ID uint8

const (
	MsgConnect   ID = iota + 1 // c->s 连接, s->c 结果
	MsgWelcome                 // s->c 分配到位置
	MsgQueue                   // s->c 排队位置
	MsgRoster                  // s->c 全量状态(原始字节)
	MsgHeartbeat               // c->s 心跳, s->c 服务器时间
	MsgAck                     // c->s ack(原始字节)
	MsgLeave                   // c->s 主动离开
	MsgKick                    // s->c 被踢
)

var idNames = map[ID]string{
	MsgConnect:   "Connect",
	MsgWelcome:   "Welcome",
	MsgQueue:     "Queue",
	MsgRoster:    "Roster",
	MsgHeartbeat: "Heartbeat",
	MsgAck:       "Ack",
	MsgLeave:     "Leave",
	MsgKick:      "Kick",
}

func (id ID) String() string {
	if s, ok := idNames[id]; ok {
		return s
	}
	return fmt.Sprintf("ID(%d)", uint8(id))
}

// ErrorCode 错误码
type ErrorCode int32

const (
	ErrOk ErrorCode = iota
	ErrNoRoom
	ErrBadPeer
	ErrToken
	ErrRoomState
	ErrKilled
)

const (
	KeyPeer     = "peer"
	KeyRoom     = "room"
	KeyToken    = "token"
	KeyCode     = "code"
	KeySession  = "session"
	KeyUDP      = "udp"
	KeyTickRate = "tickRate"
	KeyIndex    = "index"
	KeyPosition = "position"
	KeyReason   = "reason"
)

// Connect 连接请求
type Connect struct {
	PeerID string
	Room   uint64
	Token  string
}

// Welcome 进入世界
type Welcome struct {
	Session  uint32
	UDP      string
	TickRate int
	Index    uint8
}

func newStruct(m map[string]interface{}) *structpb.Struct {
	s, err := structpb.NewStruct(m)
	if err != nil {
		panic(err)
	}
	return s
}

func getString(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func getNumber(s *structpb.Struct, key string) float64 {
	return s.GetFields()[key].GetNumberValue()
}

// NewConnect c->s
func NewConnect(c Connect) *structpb.Struct {
	return newStruct(map[string]interface{}{
		KeyPeer:  c.PeerID,
		KeyRoom:  c.Room,
		KeyToken: c.Token,
	})
}

// ParseConnect 字段缺失时为零值
func ParseConnect(s *structpb.Struct) Connect {
	return Connect{
		PeerID: getString(s, KeyPeer),
		Room:   uint64(getNumber(s, KeyRoom)),
		Token:  getString(s, KeyToken),
	}
}

// NewResult 只带错误码的回复
func NewResult(code ErrorCode) *structpb.Struct {
	return newStruct(map[string]interface{}{
		KeyCode: int32(code),
	})
}

// ParseResult 错误码
func ParseResult(s *structpb.Struct) ErrorCode {
	return ErrorCode(getNumber(s, KeyCode))
}

// NewWelcome s->c
func NewWelcome(w Welcome) *structpb.Struct {
	return newStruct(map[string]interface{}{
		KeyCode:     int32(ErrOk),
		KeySession:  w.Session,
		KeyUDP:      w.UDP,
		KeyTickRate: w.TickRate,
		KeyIndex:    uint32(w.Index),
	})
}

// ParseWelcome 解析
func ParseWelcome(s *structpb.Struct) Welcome {
	return Welcome{
		Session:  uint32(getNumber(s, KeySession)),
		UDP:      getString(s, KeyUDP),
		TickRate: int(getNumber(s, KeyTickRate)),
		Index:    uint8(getNumber(s, KeyIndex)),
	}
}

// NewQueue 排队位置, 从1开始
func NewQueue(position int) *structpb.Struct {
	return newStruct(map[string]interface{}{
		KeyPosition: position,
	})
}

// ParseQueue 解析
func ParseQueue(s *structpb.Struct) int {
	return int(getNumber(s, KeyPosition))
}

// NewKick 被踢
func NewKick(code ErrorCode, reason string) *structpb.Struct {
	return newStruct(map[string]interface{}{
		KeyCode:   int32(code),
		KeyReason: reason,
	})
}

// ParseKick 解析
func ParseKick(s *structpb.Struct) (ErrorCode, string) {
	return ErrorCode(getNumber(s, KeyCode)), getString(s, KeyReason)
}

// NewHeartbeat s->c 带上服务器时间
func NewHeartbeat() *timestamppb.Timestamp {
	return timestamppb.Now()
}
