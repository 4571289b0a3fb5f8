package raster

import (
	"reflect"
	"testing"
)

func TestApplyBrushShapes(t *testing.T) {
	black := Pixel{0, 0, 0, 255}

	tests := []struct {
		name   string
		brush  Brush
		dab    Dab
		stamps int
		mode   Mode
	}{
		{"round_single", BrushRound, Dab{Size: 1, Color: black}, 1, ModeBlend},
		{"round_r2", BrushRound, Dab{Size: 5, Color: black}, 13, ModeBlend},
		{"square_r2", BrushSquare, Dab{Size: 5, Color: black}, 25, ModeBlend},
		{"hard_eraser", BrushHardEraser, Dab{Size: 3, Color: black}, 9, ModeErase},
		{"pressure_full", BrushPressure, Dab{Size: 5, Pressure: 255, Color: black}, 13, ModeBlend},
		{"pressure_light", BrushPressure, Dab{Size: 5, Pressure: 40, Color: black}, 1, ModeBlend},
		{"unknown", Brush(200), Dab{Size: 5, Color: black}, 0, ModeBlend},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := ApplyBrush(tc.brush, tc.dab)
			if len(s.Stamps) != tc.stamps {
				t.Errorf("stamps = %d, want %d", len(s.Stamps), tc.stamps)
			}
			if s.Mode != tc.mode {
				t.Errorf("mode = %d, want %d", s.Mode, tc.mode)
			}
		})
	}
}

func TestAirbrushIsReplayable(t *testing.T) {
	d := Dab{X: 40, Y: 12, Size: 6, Color: Pixel{10, 20, 30, 255}}

	a := ApplyBrush(BrushAirbrush, d)
	b := ApplyBrush(BrushAirbrush, d)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("airbrush output differs between identical dabs")
	}
	for _, st := range a.Stamps {
		dx, dy := st.X-d.X, st.Y-d.Y
		if dx*dx+dy*dy > d.Size*d.Size {
			t.Fatalf("stamp %v outside radius", st)
		}
		if st.C.A >= d.Color.A {
			t.Fatalf("spray alpha %d should be lighter than %d", st.C.A, d.Color.A)
		}
	}
}

func TestCalligraphyFollowsAngle(t *testing.T) {
	horiz := ApplyBrush(BrushCalligraphy, Dab{Size: 9, Angle: 0, Color: Pixel{A: 255}})
	vert := ApplyBrush(BrushCalligraphy, Dab{Size: 9, Angle: 90, Color: Pixel{A: 255}})

	spanY := func(s Stroke) int {
		lo, hi := 0, 0
		for _, st := range s.Stamps {
			if st.Y < lo {
				lo = st.Y
			}
			if st.Y > hi {
				hi = st.Y
			}
		}
		return hi - lo
	}

	// Moving along x the nib stands across it, so it spans y.
	if spanY(horiz) <= spanY(vert) {
		t.Errorf("horizontal stroke spans %d rows, vertical %d", spanY(horiz), spanY(vert))
	}
}

func TestLayerApplyModes(t *testing.T) {
	l := NewLayer(5, 5)
	red := Pixel{255, 0, 0, 255}

	l.Apply(ApplyBrush(BrushSquare, Dab{X: 2, Y: 2, Size: 5, Color: red}))
	if l.At(0, 0) != red || l.At(4, 4) != red {
		t.Fatal("square brush did not cover the layer")
	}

	l.Apply(ApplyBrush(BrushHardEraser, Dab{X: 0, Y: 0, Size: 1}))
	if l.At(0, 0) != Transparent {
		t.Errorf("hard erase left %v", l.At(0, 0))
	}

	before := l.At(2, 2).A
	l.Apply(ApplyBrush(BrushSoftEraser, Dab{X: 2, Y: 2, Size: 3, Color: Pixel{A: 255}}))
	after := l.At(2, 2)
	if after.A >= before {
		t.Errorf("soft erase alpha %d, want below %d", after.A, before)
	}
	if after.R != 255 {
		t.Errorf("soft erase changed color to %v", after)
	}
}

func TestLayerApplyClips(t *testing.T) {
	l := NewLayer(3, 3)
	n := l.Apply(ApplyBrush(BrushSquare, Dab{X: 0, Y: 0, Size: 3, Color: Pixel{A: 255}}))
	if n != 4 {
		t.Errorf("in-bounds writes = %d, want 4", n)
	}
}
