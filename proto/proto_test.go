package proto

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Bianca-Alexandru/Retele-CoopCanvas/raster"
)

func TestControlLayout(t *testing.T) {
	m := Control{
		Type:       MsgLayerAdd,
		Canvas:     3,
		LayerCount: 5,
		LayerID:    2,
		UserID:     7,
	}
	m.SetData([]byte{0xaa, 0xbb})

	b := m.Encode()
	if len(b) != ControlSize {
		t.Fatalf("len = %d, want %d", len(b), ControlSize)
	}

	want := []byte{10, 3, 0, 2, 5, 2, 7, 0xaa, 0xbb, 0}
	if !bytes.Equal(b[:len(want)], want) {
		t.Errorf("header = %v, want %v", b[:len(want)], want)
	}

	got, err := DecodeControl(b)
	if err != nil {
		t.Fatal(err)
	}
	if got != m {
		t.Errorf("DecodeControl() = %+v, want %+v", got, m)
	}

	if _, err := DecodeControl(b[:ControlSize-1]); !errors.Is(err, ErrShort) {
		t.Errorf("short decode: err = %v", err)
	}
}

func TestEventLayout(t *testing.T) {
	e := Event{
		Type:     MsgLine,
		Brush:    5,
		Layer:    1,
		X:        -2,
		Y:        300,
		EX:       10,
		EY:       11,
		R:        1,
		G:        2,
		B:        3,
		A:        4,
		Size:     9,
		Pressure: 128,
		Angle:    -90,
	}

	b := e.Encode()
	want := []byte{8, 5, 1, 0xff, 0xfe, 0x01, 0x2c, 0, 10, 0, 11, 1, 2, 3, 4, 9, 128, 0xff, 0xa6}
	if !bytes.Equal(b, want) {
		t.Fatalf("Encode() = %v, want %v", b, want)
	}

	got, err := DecodeEvent(b)
	if err != nil {
		t.Fatal(err)
	}
	if got != e {
		t.Errorf("DecodeEvent() = %+v, want %+v", got, e)
	}

	if _, err := DecodeEvent(b[:5]); !errors.Is(err, ErrShort) {
		t.Errorf("short decode: err = %v", err)
	}
}

func TestMsgType(t *testing.T) {
	if MsgLayerMove.String() != "LAYER_MOVE" {
		t.Errorf("String() = %q", MsgLayerMove.String())
	}
	if MsgType(99).String() != "MSG(99)" {
		t.Errorf("String() = %q", MsgType(99).String())
	}

	for _, tt := range []MsgType{MsgDraw, MsgCursor, MsgLine} {
		if !tt.IsEvent() {
			t.Errorf("%v should be an event", tt)
		}
	}
	if MsgLogin.IsEvent() {
		t.Error("login is not an event")
	}
}

func TestPayloads(t *testing.T) {
	t.Run("login", func(t *testing.T) {
		m := Login(2, "alice")
		if m.Canvas != 2 || Username(&m) != "alice" {
			t.Errorf("got canvas %d user %q", m.Canvas, Username(&m))
		}

		long := Login(0, string(bytes.Repeat([]byte{'x'}, 40)))
		if got := Username(&long); len(got) != MaxUsername {
			t.Errorf("len(username) = %d, want %d", len(got), MaxUsername)
		}
	})

	t.Run("welcome", func(t *testing.T) {
		m := Welcome(1, 4, 3, 640, 480)
		w, h, err := WelcomeSize(&m)
		if err != nil || w != 640 || h != 480 {
			t.Errorf("WelcomeSize() = %d, %d, %v", w, h, err)
		}
		if m.UserID != 4 || m.LayerCount != 3 {
			t.Errorf("uid %d layers %d", m.UserID, m.LayerCount)
		}
	})

	t.Run("reorder", func(t *testing.T) {
		m := Reorder(0, 3, 1)
		from, to, err := ReorderIndices(&m)
		if err != nil || from != 3 || to != 1 {
			t.Errorf("ReorderIndices() = %d, %d, %v", from, to, err)
		}
	})

	t.Run("move", func(t *testing.T) {
		m := Move(0, 2, -15, 300)
		dx, dy, err := MoveDelta(&m)
		if err != nil || dx != -15 || dy != 300 {
			t.Errorf("MoveDelta() = %d, %d, %v", dx, dy, err)
		}
		if m.LayerID != 2 {
			t.Errorf("LayerID = %d", m.LayerID)
		}
	})

	t.Run("error", func(t *testing.T) {
		m := Error(0, MsgLayerDelete, 1, ReasonLastLayer, "nope")
		r, err := ParseError(&m)
		if err != nil {
			t.Fatal(err)
		}
		if r.Type != MsgLayerDelete || r.Layer != 1 || r.Reason != ReasonLastLayer || r.Text != "nope" {
			t.Errorf("ParseError() = %+v", r)
		}
		if r.Error() != "LAYER_DEL refused: last drawable layer: nope" {
			t.Errorf("Error() = %q", r.Error())
		}
	})

	t.Run("malformed", func(t *testing.T) {
		var m Control
		if _, _, err := MoveDelta(&m); !errors.Is(err, ErrPayload) {
			t.Errorf("MoveDelta: err = %v", err)
		}
		if _, _, err := ReorderIndices(&m); !errors.Is(err, ErrPayload) {
			t.Errorf("ReorderIndices: err = %v", err)
		}
		if _, err := ParseError(&m); !errors.Is(err, ErrPayload) {
			t.Errorf("ParseError: err = %v", err)
		}
	})
}

func TestEventPaint(t *testing.T) {
	l := raster.NewLayer(20, 20)

	e := Event{Type: MsgDraw, Brush: uint8(raster.BrushSquare), X: 5, Y: 5, A: 255, R: 255, Size: 3}
	if n := e.Paint(l); n != 9 {
		t.Errorf("draw touched %d pixels, want 9", n)
	}
	if l.At(5, 5) != (raster.Pixel{R: 255, A: 255}) {
		t.Errorf("center = %v", l.At(5, 5))
	}

	c := Event{Type: MsgCursor, X: 1, Y: 1, A: 255}
	if n := c.Paint(l); n != 0 {
		t.Errorf("cursor touched %d pixels", n)
	}

	line := Event{Type: MsgLine, Brush: uint8(raster.BrushRound), X: 0, Y: 15, EX: 19, EY: 15, B: 255, A: 255, Size: 1}
	line.Paint(l)
	for x := 0; x < 20; x++ {
		if l.At(x, 15).B != 255 {
			t.Fatalf("line missed (%d, 15)", x)
		}
	}
}

func TestSignature(t *testing.T) {
	alpha := make([]byte, SignatureWidth*SignatureHeight)

	fill := func(cx, cy int, a byte) {
		for y := cy * SignatureCell; y < (cy+1)*SignatureCell; y++ {
			for x := cx * SignatureCell; x < (cx+1)*SignatureCell; x++ {
				alpha[y*SignatureWidth+x] = a
			}
		}
	}
	fill(0, 0, 255)
	fill(1, 0, 130)
	fill(38, 12, 70)

	sig := PackSignature(alpha, SignatureWidth, SignatureHeight)

	if sig[0] != 0xe0 {
		t.Errorf("sig[0] = %#x, want 0xe0", sig[0])
	}

	tests := []struct {
		cx, cy int
		want   uint8
	}{
		{0, 0, 3},
		{1, 0, 2},
		{2, 0, 0},
		{38, 12, 1},
		{39, 0, 0},
	}
	for _, tt := range tests {
		if got := SignatureLevel(sig[:], tt.cx, tt.cy); got != tt.want {
			t.Errorf("level(%d, %d) = %d, want %d", tt.cx, tt.cy, got, tt.want)
		}
	}

	plane := UnpackSignature(sig[:])
	if plane[0] != 255 || plane[SignatureCell] != 170 || plane[2*SignatureCell] != 0 {
		t.Errorf("unpacked row 0 = %d %d %d", plane[0], plane[SignatureCell], plane[2*SignatureCell])
	}
	if again := PackSignature(plane, SignatureWidth, SignatureHeight); again != sig {
		t.Error("pack(unpack(sig)) != sig")
	}
}

func TestPackSignatureSmallInput(t *testing.T) {
	alpha := bytes.Repeat([]byte{255}, 20*10)
	sig := PackSignature(alpha, 20, 10)

	if SignatureLevel(sig[:], 0, 0) != 3 || SignatureLevel(sig[:], 1, 0) != 3 {
		t.Error("covered cells should be full")
	}
	if SignatureLevel(sig[:], 2, 0) != 0 || SignatureLevel(sig[:], 0, 1) != 0 {
		t.Error("cells outside the input should be empty")
	}
}
