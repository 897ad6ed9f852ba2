package network

import (
	"io"
)

// Packet is a frame that can be written to a connection
type Packet interface {
	Serialize() []byte
}

// Protocol reads one frame from a stream
type Protocol interface {
	ReadPacket(conn io.Reader) (Packet, error)
}

// ConnCallback receives connection events. Returning false from OnConnect or
// OnMessage closes the connection.
type ConnCallback interface {
	OnConnect(*Conn) bool
	OnMessage(*Conn, Packet) bool
	OnClose(*Conn)
}
