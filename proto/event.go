package proto

import (
	"encoding/binary"

	"github.com/Bianca-Alexandru/Retele-CoopCanvas/raster"
)

const EventSize = 19

// Event is a paint, line or cursor message on a room's datagram channel.
// For cursor events Brush carries the sender's room uid.
type Event struct {
	Type       MsgType
	Brush      uint8
	Layer      uint8
	X, Y       int16
	EX, EY     int16 // line end, unused by draw and cursor
	R, G, B, A uint8
	Size       uint8
	Pressure   uint8
	Angle      int16 // degrees, for angle-sensitive brushes
}

func (e *Event) Encode() []byte {
	b := make([]byte, 0, EventSize)

	b = append(b, uint8(e.Type), e.Brush, e.Layer)
	for _, v := range [...]int16{e.X, e.Y, e.EX, e.EY} {
		b = binary.BigEndian.AppendUint16(b, uint16(v))
	}
	b = append(b, e.R, e.G, e.B, e.A, e.Size, e.Pressure)

	return binary.BigEndian.AppendUint16(b, uint16(e.Angle))
}

func DecodeEvent(b []byte) (Event, error) {
	var e Event
	if len(b) < EventSize {
		return e, ErrShort
	}

	i16 := func(off int) int16 { return int16(binary.BigEndian.Uint16(b[off:])) }

	e.Type = MsgType(b[0])
	e.Brush = b[1]
	e.Layer = b[2]
	e.X, e.Y = i16(3), i16(5)
	e.EX, e.EY = i16(7), i16(9)
	e.R, e.G, e.B, e.A = b[11], b[12], b[13], b[14]
	e.Size = b[15]
	e.Pressure = b[16]
	e.Angle = i16(17)

	return e, nil
}

func (e *Event) Color() raster.Pixel {
	return raster.Pixel{R: e.R, G: e.G, B: e.B, A: e.A}
}

func (e *Event) SetColor(c raster.Pixel) {
	e.R, e.G, e.B, e.A = c.R, c.G, c.B, c.A
}

// Dab returns the brush parameters of a draw event.
func (e *Event) Dab() raster.Dab {
	return raster.Dab{
		X:        int(e.X),
		Y:        int(e.Y),
		Color:    e.Color(),
		Size:     int(e.Size),
		Pressure: e.Pressure,
		Angle:    int(e.Angle),
	}
}

// Paint applies a draw or line event to l and returns the number of
// pixels touched. Cursor events and unknown types do nothing.
func (e *Event) Paint(l *raster.Layer) int {
	b := raster.Brush(e.Brush)

	switch e.Type {
	case MsgDraw:
		return l.Apply(raster.ApplyBrush(b, e.Dab()))
	case MsgLine:
		return raster.PaintLine(l, b, e.Dab(), int(e.EX), int(e.EY))
	}

	return 0
}
