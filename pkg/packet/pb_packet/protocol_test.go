package pb_packet

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/golang/protobuf/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

const testID = 9

func testMsg(t testing.TB) *structpb.Struct {
	msg, err := structpb.NewStruct(map[string]interface{}{
		"sid": 19234333,
		"x":   10,
		"y":   20000,
	})
	require.NoError(t, err)
	return msg
}

func Test_SCPacket(t *testing.T) {
	msg := testMsg(t)
	raw, _ := proto.Marshal(msg)
	p := NewPacket(testID, msg)
	require.NotNil(t, p)

	buff := p.Serialize()

	dataLen := binary.BigEndian.Uint16(buff[0:])
	assert.Equal(t, uint16(len(raw)), dataLen)
	assert.Equal(t, uint8(testID), buff[DataLen])

	msg1 := &structpb.Struct{}
	require.NoError(t, proto.Unmarshal(buff[MinPacketLen:], msg1))
	assert.Equal(t, msg.AsMap(), msg1.AsMap())
}

func Test_Packet(t *testing.T) {
	msg := testMsg(t)
	temp, _ := proto.Marshal(msg)

	p := &Packet{
		id:   testID,
		data: temp,
	}

	r := strings.NewReader(string(p.Serialize()))
	ret, err := (&MsgProtocol{}).ReadPacket(r)
	require.NoError(t, err)

	packet, ok := ret.(*Packet)
	require.True(t, ok)
	assert.Equal(t, p.id, packet.GetMessageID())
	assert.Equal(t, p.data, packet.GetData())

	msg1 := &structpb.Struct{}
	require.NoError(t, packet.Unmarshal(msg1))
	assert.Equal(t, msg.AsMap(), msg1.AsMap())
}

func Test_RawAndEmpty(t *testing.T) {
	p := NewPacket(testID, []byte{1, 2, 3})
	assert.Equal(t, []byte{0, 3, testID, 1, 2, 3}, p.Serialize())

	p = NewPacket(testID, nil)
	assert.Equal(t, []byte{0, 0, testID}, p.Serialize())

	ret, err := (&MsgProtocol{}).ReadPacket(bytes.NewReader(p.Serialize()))
	require.NoError(t, err)
	assert.Empty(t, ret.(*Packet).GetData())

	assert.Nil(t, NewPacket(testID, 42))
	assert.Nil(t, NewPacket(testID, make([]byte, MaxPacketLen+1)))
}

func Test_ReadShort(t *testing.T) {
	_, err := (&MsgProtocol{}).ReadPacket(bytes.NewReader([]byte{0, 5, testID, 1}))
	assert.Error(t, err)
}

func Test_UnmarshalWrongType(t *testing.T) {
	p := NewPacket(testID, []byte{1})
	assert.Error(t, p.Unmarshal(42))
}

func Benchmark_SCPacket(b *testing.B) {
	msg := testMsg(b)
	for i := 0; i < b.N; i++ {
		NewPacket(testID, msg)
	}
}

func Benchmark_Packet(b *testing.B) {
	buf := NewPacket(testID, testMsg(b)).Serialize()
	proto := &MsgProtocol{}
	r := bytes.NewBuffer(nil)

	for i := 0; i < b.N; i++ {
		r.Write(buf)
		if _, err := proto.ReadPacket(r); nil != err {
			b.Error(err)
		}
	}
}
