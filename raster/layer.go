package raster

import (
	"errors"
	"image"
)

var ErrSizeMismatch = errors.New("raster: pixel buffer size mismatch")

// A Layer is a fixed size grid of pixels stored row-major, 4 bytes per
// pixel in R, G, B, A order. This is also the layout of a full layer sync
// on the wire.
type Layer struct {
	W, H int
	Pix  []byte

	// Opacity scales the layer's alpha when compositing.
	Opacity uint8

	dirty  bool
	cached string
}

// NewLayer returns a fully transparent layer.
func NewLayer(w, h int) *Layer {
	return &Layer{
		W:       w,
		H:       h,
		Pix:     make([]byte, w*h*4),
		Opacity: 255,
		dirty:   true,
	}
}

// NewPaper returns the opaque white background layer.
func NewPaper(w, h int) *Layer {
	l := NewLayer(w, h)
	for i := range l.Pix {
		l.Pix[i] = 255
	}

	return l
}

// Size is the byte length of a layer with the given dimensions.
func Size(w, h int) int { return w * h * 4 }

// In reports whether (x, y) lies on the layer.
func (l *Layer) In(x, y int) bool {
	return x >= 0 && x < l.W && y >= 0 && y < l.H
}

// At returns the pixel at (x, y). Out of bounds reads are transparent.
func (l *Layer) At(x, y int) Pixel {
	if !l.In(x, y) {
		return Transparent
	}

	i := (y*l.W + x) * 4
	return Pixel{l.Pix[i], l.Pix[i+1], l.Pix[i+2], l.Pix[i+3]}
}

// Set writes the pixel at (x, y) and marks the layer dirty.
// Out of bounds writes are dropped.
func (l *Layer) Set(x, y int, p Pixel) {
	if !l.In(x, y) {
		return
	}

	i := (y*l.W + x) * 4
	l.Pix[i], l.Pix[i+1], l.Pix[i+2], l.Pix[i+3] = p.R, p.G, p.B, p.A
	l.dirty = true
}

// Bytes returns a copy of the pixel buffer.
func (l *Layer) Bytes() []byte {
	b := make([]byte, len(l.Pix))
	copy(b, l.Pix)
	return b
}

// SetBytes replaces the whole pixel buffer with b.
func (l *Layer) SetBytes(b []byte) error {
	if len(b) != len(l.Pix) {
		return ErrSizeMismatch
	}

	copy(l.Pix, b)
	l.dirty = true
	return nil
}

// Clone returns a deep copy of the layer, including its dirty state.
func (l *Layer) Clone() *Layer {
	c := *l
	c.Pix = l.Bytes()
	return &c
}

// Clear makes every pixel transparent.
func (l *Layer) Clear() {
	for i := range l.Pix {
		l.Pix[i] = 0
	}
	l.dirty = true
}

// Dirty reports whether the layer changed since its snapshot was cached.
func (l *Layer) Dirty() bool { return l.dirty }

// MarkDirty invalidates the cached snapshot.
func (l *Layer) MarkDirty() { l.dirty = true }

// CachedSnapshot returns the cached encoded snapshot if it is still valid.
func (l *Layer) CachedSnapshot() (string, bool) {
	if l.dirty || l.cached == "" {
		return "", false
	}

	return l.cached, true
}

// SetCachedSnapshot stores s as the encoding of the current pixels and
// clears the dirty flag.
func (l *Layer) SetCachedSnapshot(s string) {
	l.cached = s
	l.dirty = false
}

// HasContent reports whether any pixel has non-zero alpha.
func (l *Layer) HasContent() bool {
	for i := 3; i < len(l.Pix); i += 4 {
		if l.Pix[i] != 0 {
			return true
		}
	}

	return false
}

// Image returns an image.NRGBA sharing the layer's memory.
func (l *Layer) Image() *image.NRGBA {
	return &image.NRGBA{
		Pix:    l.Pix,
		Stride: l.W * 4,
		Rect:   image.Rect(0, 0, l.W, l.H),
	}
}

// Translate shifts the layer by (dx, dy). Pixels moved off the layer are
// lost and uncovered pixels become transparent.
func (l *Layer) Translate(dx, dy int) {
	if dx == 0 && dy == 0 {
		return
	}

	out := make([]byte, len(l.Pix))
	for y := 0; y < l.H; y++ {
		sy := y - dy
		if sy < 0 || sy >= l.H {
			continue
		}

		for x := 0; x < l.W; x++ {
			sx := x - dx
			if sx < 0 || sx >= l.W {
				continue
			}

			copy(out[(y*l.W+x)*4:(y*l.W+x)*4+4], l.Pix[(sy*l.W+sx)*4:(sy*l.W+sx)*4+4])
		}
	}

	l.Pix = out
	l.dirty = true
}

// Apply writes a brush stroke into the layer and returns the number of
// pixels that fell inside it.
func (l *Layer) Apply(s Stroke) int {
	n := 0
	for _, st := range s.Stamps {
		if !l.In(st.X, st.Y) {
			continue
		}
		n++

		switch s.Mode {
		case ModeErase:
			l.Set(st.X, st.Y, Transparent)
		case ModeSoftErase:
			dst := l.At(st.X, st.Y)
			if dst.A <= st.C.A {
				l.Set(st.X, st.Y, Transparent)
				continue
			}
			dst.A -= st.C.A
			l.Set(st.X, st.Y, dst)
		default:
			l.Set(st.X, st.Y, Over(l.At(st.X, st.Y), st.C))
		}
	}

	return n
}
