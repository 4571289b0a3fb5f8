package snapshot

import (
	"encoding/base64"
	"fmt"

	"github.com/Bianca-Alexandru/Retele-CoopCanvas/raster"
)

// EncodeLayer packs every pixel as a big-endian 32-bit word (R highest,
// A lowest) in row-major order, compresses the words with PackBits and
// returns them base64 encoded.
//
// A layer's pixel buffer already has exactly this byte order.
func EncodeLayer(l *raster.Layer) string {
	return base64.StdEncoding.EncodeToString(Compress(l.Pix))
}

// DecodeLayer writes a snapshot made from a w x h layer into l. The
// stream is consumed row-major over the declared dimensions; pixels that
// fall outside l are dropped and pixels the stream lacks are left alone.
func DecodeLayer(l *raster.Layer, s string, w, h int) error {
	packed, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return fmt.Errorf("snapshot: base64: %w", err)
	}

	data, err := Decompress(packed)
	if err != nil {
		return err
	}

	n := len(data) / 4
	k := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if k >= n {
				l.MarkDirty()
				return nil
			}

			p := data[k*4 : k*4+4]
			k++
			if x < l.W && y < l.H {
				l.Set(x, y, raster.Pixel{R: p[0], G: p[1], B: p[2], A: p[3]})
			}
		}
	}

	l.MarkDirty()
	return nil
}

// Cached returns the encoded snapshot of l, encoding only when the layer
// changed since the last call.
func Cached(l *raster.Layer) string {
	if s, ok := l.CachedSnapshot(); ok {
		return s
	}

	s := EncodeLayer(l)
	l.SetCachedSnapshot(s)
	return s
}
