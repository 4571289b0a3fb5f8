package raster

// Composite flattens layers into a new opaque layer. It starts from a copy
// of layers[0] and puts every following layer on top in index order, with
// the layer's alpha scaled by its opacity. Fully transparent source pixels
// are skipped, fully opaque ones replace the destination and everything in
// between uses source-over. The output alpha is always 255.
//
// Independent clients and the server must flatten identically, so this
// is the only compositing routine in the module.
func Composite(layers []*Layer) *Layer {
	if len(layers) == 0 {
		return nil
	}

	out := layers[0].Clone()
	for _, l := range layers[1:] {
		if l == nil || len(l.Pix) != len(out.Pix) {
			continue
		}

		for i := 0; i < len(out.Pix); i += 4 {
			srcA := l.Pix[i+3]
			if l.Opacity < 255 {
				srcA = uint8(int(srcA) * int(l.Opacity) / 255)
			}
			if srcA == 0 {
				continue
			}

			if srcA == 255 {
				out.Pix[i], out.Pix[i+1], out.Pix[i+2] = l.Pix[i], l.Pix[i+1], l.Pix[i+2]
				out.Pix[i+3] = 255
				continue
			}

			sa := float32(srcA) / 255
			da := float32(out.Pix[i+3]) / 255
			outA := sa + da*(1-sa)
			for c := 0; c < 3; c++ {
				out.Pix[i+c] = clamp8((float32(l.Pix[i+c])*sa + float32(out.Pix[i+c])*da*(1-sa)) / outA)
			}
			out.Pix[i+3] = 255
		}
	}

	out.dirty = false
	out.cached = ""
	return out
}
