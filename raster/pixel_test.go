package raster

import "testing"

func TestOver(t *testing.T) {
	tests := []struct {
		name     string
		dst, src Pixel
		want     Pixel
	}{
		{"transparent_source_keeps_dst", Pixel{10, 20, 30, 40}, Pixel{255, 0, 0, 0}, Pixel{10, 20, 30, 40}},
		{"opaque_source_replaces", Pixel{10, 20, 30, 40}, Pixel{1, 2, 3, 255}, Pixel{1, 2, 3, 255}},
		{"onto_transparent", Transparent, Pixel{200, 100, 50, 128}, Pixel{200, 100, 50, 128}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Over(tc.dst, tc.src); got != tc.want {
				t.Errorf("Over(%v, %v) = %v, want %v", tc.dst, tc.src, got, tc.want)
			}
		})
	}
}

func TestOverPartialAlphaAccumulates(t *testing.T) {
	dst := Pixel{0, 0, 255, 128}
	got := Over(dst, Pixel{255, 0, 0, 128})

	if got.A <= dst.A {
		t.Errorf("alpha = %d, want more than %d", got.A, dst.A)
	}
	if got.R == 0 || got.B == 0 {
		t.Errorf("color %v should mix both inputs", got)
	}
}
