package pb_packet

import (
	"encoding/binary"
	"errors"
	"io"
	"math"

	l4g "github.com/alecthomas/log4go"
	"github.com/byebyebruce/rollbackserver/pkg/network"
	"github.com/golang/protobuf/proto"
)

const (
	DataLen      = 2
	MessageIDLen = 1

	MinPacketLen = DataLen + MessageIDLen
	MaxPacketLen = math.MaxUint16
)

var ErrPacketTooLarge = errors.New("pb_packet: data too large")

/*

可靠通道上的消息, s->c 和 c->s 相同

|--totalDataLen(uint16)--|--msgID(uint8)--|--------------data--------------|
|-------------2----------|-------1--------|---------(totalDataLen)---------|

data 是 protobuf 消息或者原始字节

*/

// Packet 可靠通道的一条消息
type Packet struct {
	id   uint8
	data []byte
}

func (p *Packet) GetMessageID() uint8 {
	return p.id
}

func (p *Packet) GetData() []byte {
	return p.data
}

func (p *Packet) Serialize() []byte {
	buff := make([]byte, MinPacketLen, MinPacketLen+len(p.data))
	binary.BigEndian.PutUint16(buff, uint16(len(p.data)))
	buff[DataLen] = p.id
	return append(buff, p.data...)
}

func (p *Packet) Unmarshal(m interface{}) error {
	msg, ok := m.(proto.Message)
	if !ok {
		return errors.New("pb_packet: not a proto message")
	}
	return proto.Unmarshal(p.data, msg)
}

// NewPacket msg 可以是 proto.Message, []byte 或 nil
func NewPacket(id uint8, msg interface{}) *Packet {
	p := &Packet{
		id: id,
	}

	switch v := msg.(type) {
	case []byte:
		p.data = v
	case proto.Message:
		if mdata, err := proto.Marshal(v); err == nil {
			p.data = mdata
		} else {
			l4g.Error("[NewPacket] proto marshal msg: %d error: %v", id, err)
			return nil
		}
	case nil:
	default:
		l4g.Error("[NewPacket] error msg type msg: %d", id)
		return nil
	}

	if len(p.data) > MaxPacketLen {
		l4g.Error("[NewPacket] msg: %d len: %d too large", id, len(p.data))
		return nil
	}

	return p
}

type MsgProtocol struct {
}

func (p *MsgProtocol) ReadPacket(r io.Reader) (network.Packet, error) {
	buff := make([]byte, MinPacketLen)

	if _, err := io.ReadFull(r, buff); err != nil {
		return nil, err
	}
	dataLen := binary.BigEndian.Uint16(buff)

	msg := &Packet{
		id: buff[DataLen],
	}

	if dataLen > 0 {
		msg.data = make([]byte, dataLen)
		if _, err := io.ReadFull(r, msg.data); err != nil {
			return nil, err
		}
	}

	return msg, nil
}
