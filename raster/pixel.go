// Package raster holds the pixel memory of a canvas: fixed size RGBA layers,
// the brush kinds that paint into them and the compositing used to flatten a
// layer stack into the image shown to users.
package raster

// Pixel is a non-premultiplied RGBA value. Alpha is coverage.
type Pixel struct {
	R, G, B, A uint8
}

var (
	Transparent = Pixel{}
	White       = Pixel{255, 255, 255, 255}
)

// Over blends src on top of dst with the source-over rule used for every
// layer write. Unlike the display composite, the resulting alpha is kept.
func Over(dst, src Pixel) Pixel {
	switch src.A {
	case 0:
		return dst
	case 255:
		return src
	}

	sa := float32(src.A) / 255
	da := float32(dst.A) / 255
	outA := sa + da*(1-sa)
	if outA <= 0 {
		return dst
	}

	return Pixel{
		R: clamp8((float32(src.R)*sa + float32(dst.R)*da*(1-sa)) / outA),
		G: clamp8((float32(src.G)*sa + float32(dst.G)*da*(1-sa)) / outA),
		B: clamp8((float32(src.B)*sa + float32(dst.B)*da*(1-sa)) / outA),
		A: clamp8(outA * 255),
	}
}

// clamp8 truncates like a C float to uint8 cast, guarding rounding overshoot.
func clamp8(f float32) uint8 {
	if f <= 0 {
		return 0
	}
	if f >= 255 {
		return 255
	}
	return uint8(f)
}
