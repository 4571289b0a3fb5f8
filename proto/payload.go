package proto

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const MaxUsername = 31

var ErrPayload = errors.New("proto: malformed payload")

// Reason explains why the server refused a request.
type Reason uint8

const (
	ReasonUnknown Reason = iota
	ReasonLayerLimit
	ReasonLastLayer
	ReasonBadIndex
	ReasonNotLoggedIn
	ReasonBadRoom
	ReasonBadPayload
	ReasonRoomFull
)

var reasonNames = [...]string{
	ReasonUnknown:     "unknown",
	ReasonLayerLimit:  "layer limit reached",
	ReasonLastLayer:   "last drawable layer",
	ReasonBadIndex:    "invalid layer index",
	ReasonNotLoggedIn: "not logged in",
	ReasonBadRoom:     "room index out of range",
	ReasonBadPayload:  "malformed payload",
	ReasonRoomFull:    "room is full",
}

func (r Reason) String() string {
	if int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return fmt.Sprintf("reason(%d)", uint8(r))
}

// Login builds a login request. Usernames are cut to MaxUsername bytes.
func Login(canvas uint8, username string) Control {
	if len(username) > MaxUsername {
		username = username[:MaxUsername]
	}

	m := Control{Type: MsgLogin, Canvas: canvas}
	m.SetData(append([]byte(username), 0))
	return m
}

// Username returns the NUL-terminated name carried by a login message.
func Username(m *Control) string {
	b := m.Data[:]
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	if len(b) > MaxUsername {
		b = b[:MaxUsername]
	}

	return string(b)
}

// Welcome builds the login reply.
func Welcome(canvas, uid, layers uint8, w, h int) Control {
	m := Control{
		Type:       MsgWelcome,
		Canvas:     canvas,
		UserID:     uid,
		LayerCount: layers,
	}

	b := binary.BigEndian.AppendUint16(nil, uint16(w))
	m.SetData(binary.BigEndian.AppendUint16(b, uint16(h)))

	return m
}

// WelcomeSize returns the canvas dimensions announced by a welcome.
func WelcomeSize(m *Control) (w, h int, err error) {
	p := m.Payload()
	if len(p) < 4 {
		return 0, 0, ErrPayload
	}

	return int(binary.BigEndian.Uint16(p)), int(binary.BigEndian.Uint16(p[2:])), nil
}

// Reorder builds a request to move layer from to index to.
func Reorder(canvas uint8, from, to int) Control {
	m := Control{Type: MsgLayerReorder, Canvas: canvas, LayerID: uint8(from)}
	m.SetData([]byte{uint8(from), uint8(to)})
	return m
}

func ReorderIndices(m *Control) (from, to int, err error) {
	p := m.Payload()
	if len(p) < 2 {
		return 0, 0, ErrPayload
	}

	return int(p[0]), int(p[1]), nil
}

// Move builds a request to translate a layer by (dx, dy).
func Move(canvas, layer uint8, dx, dy int) Control {
	m := Control{Type: MsgLayerMove, Canvas: canvas, LayerID: layer}

	b := binary.BigEndian.AppendUint32(nil, uint32(int32(dx)))
	m.SetData(binary.BigEndian.AppendUint32(b, uint32(int32(dy))))

	return m
}

func MoveDelta(m *Control) (dx, dy int, err error) {
	p := m.Payload()
	if len(p) < 8 {
		return 0, 0, ErrPayload
	}

	return int(int32(binary.BigEndian.Uint32(p))), int(int32(binary.BigEndian.Uint32(p[4:]))), nil
}

// Reject is the content of an error message.
type Reject struct {
	Type   MsgType // the refused request
	Layer  uint8   // its layer_id
	Reason Reason
	Text   string
}

func (r Reject) Error() string {
	if r.Text != "" {
		return fmt.Sprintf("%v refused: %v: %s", r.Type, r.Reason, r.Text)
	}
	return fmt.Sprintf("%v refused: %v", r.Type, r.Reason)
}

// Error builds an error reply refusing a request of type t.
func Error(canvas uint8, t MsgType, layer uint8, reason Reason, text string) Control {
	m := Control{Type: MsgError, Canvas: canvas, LayerID: layer}
	m.SetData(append([]byte{uint8(t), uint8(reason)}, text...))
	return m
}

func ParseError(m *Control) (Reject, error) {
	p := m.Payload()
	if len(p) < 2 {
		return Reject{}, ErrPayload
	}

	return Reject{Type: MsgType(p[0]), Layer: m.LayerID, Reason: Reason(p[1]), Text: string(p[2:])}, nil
}
