// Package proto defines the two fixed size messages exchanged between
// canvas clients and the server: control messages on the reliable channel
// and event messages on the per-room datagram channel.
//
// All multi-byte fields are big-endian.
package proto

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	ControlSize = 263
	DataSize    = 256
)

// ServiceType is the mDNS service type servers announce themselves under.
const ServiceType = "_coopcanvas._udp"

var ErrShort = errors.New("proto: short message")

type MsgType uint8

const (
	MsgLogin        MsgType = 1
	MsgLogout       MsgType = 2
	MsgWelcome      MsgType = 3
	MsgCanvasData   MsgType = 4
	MsgSave         MsgType = 5
	MsgDraw         MsgType = 6
	MsgCursor       MsgType = 7
	MsgLine         MsgType = 8
	MsgError        MsgType = 9
	MsgLayerAdd     MsgType = 10
	MsgLayerDelete  MsgType = 11
	MsgLayerSelect  MsgType = 12
	MsgLayerSync    MsgType = 13
	MsgLayerReorder MsgType = 14
	MsgSignature    MsgType = 15
	MsgLayerMove    MsgType = 17
)

var msgNames = map[MsgType]string{
	MsgLogin:        "LOGIN",
	MsgLogout:       "LOGOUT",
	MsgWelcome:      "WELCOME",
	MsgCanvasData:   "CANVAS_DATA",
	MsgSave:         "SAVE",
	MsgDraw:         "DRAW",
	MsgCursor:       "CURSOR",
	MsgLine:         "LINE",
	MsgError:        "ERROR",
	MsgLayerAdd:     "LAYER_ADD",
	MsgLayerDelete:  "LAYER_DEL",
	MsgLayerSelect:  "LAYER_SELECT",
	MsgLayerSync:    "LAYER_SYNC",
	MsgLayerReorder: "LAYER_REORDER",
	MsgSignature:    "SIGNATURE",
	MsgLayerMove:    "LAYER_MOVE",
}

func (t MsgType) String() string {
	if s, ok := msgNames[t]; ok {
		return s
	}
	return fmt.Sprintf("MSG(%d)", uint8(t))
}

// IsEvent reports whether t is valid on the datagram channel.
func (t MsgType) IsEvent() bool {
	return t == MsgDraw || t == MsgCursor || t == MsgLine
}

// Control is a message on the reliable channel. When a control message
// announces a full layer (canvas data, layer sync) the raw layer bytes
// follow it as a separate payload.
type Control struct {
	Type       MsgType
	Canvas     uint8
	DataLen    uint16
	LayerCount uint8 // layers including the paper
	LayerID    uint8
	UserID     uint8
	Data       [DataSize]byte
}

// SetData copies b into the inline buffer and sets DataLen.
// Bytes past DataSize are dropped.
func (m *Control) SetData(b []byte) {
	m.Data = [DataSize]byte{}
	n := copy(m.Data[:], b)
	m.DataLen = uint16(n)
}

// Payload returns the used part of the inline buffer.
func (m *Control) Payload() []byte {
	n := int(m.DataLen)
	if n > DataSize {
		n = DataSize
	}

	return m.Data[:n]
}

func (m *Control) Encode() []byte {
	b := make([]byte, 0, ControlSize)

	b = append(b, uint8(m.Type), m.Canvas)
	b = binary.BigEndian.AppendUint16(b, m.DataLen)
	b = append(b, m.LayerCount, m.LayerID, m.UserID)

	return append(b, m.Data[:]...)
}

// DecodeControl parses the first ControlSize bytes of b.
func DecodeControl(b []byte) (Control, error) {
	var m Control
	if len(b) < ControlSize {
		return m, ErrShort
	}

	m.Type = MsgType(b[0])
	m.Canvas = b[1]
	m.DataLen = binary.BigEndian.Uint16(b[2:])
	m.LayerCount = b[4]
	m.LayerID = b[5]
	m.UserID = b[6]
	copy(m.Data[:], b[7:ControlSize])

	return m, nil
}
