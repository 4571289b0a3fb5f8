package proto

// A signature is a user's hand-drawn mark shrunk to a 39x13 grid of 10x10
// pixel cells. Each cell holds the average alpha quantized to 2 bits,
// packed four cells per byte with the first cell in the high bits.
const (
	SignatureCols   = 39
	SignatureRows   = 13
	SignatureCell   = 10
	SignatureWidth  = SignatureCols * SignatureCell
	SignatureHeight = SignatureRows * SignatureCell
	SignatureSize   = 128
)

// PackSignature compresses an alpha plane of w x h pixels, row-major.
// Pixels beyond SignatureWidth x SignatureHeight are ignored, missing
// pixels count as transparent.
func PackSignature(alpha []byte, w, h int) [SignatureSize]byte {
	var out [SignatureSize]byte

	for cy := 0; cy < SignatureRows; cy++ {
		for cx := 0; cx < SignatureCols; cx++ {
			sum := 0
			for dy := 0; dy < SignatureCell; dy++ {
				for dx := 0; dx < SignatureCell; dx++ {
					x, y := cx*SignatureCell+dx, cy*SignatureCell+dy
					if x < w && y < h && y*w+x < len(alpha) {
						sum += int(alpha[y*w+x])
					}
				}
			}

			level := uint8(sum / (SignatureCell * SignatureCell) / 64)
			i := cy*SignatureCols + cx
			out[i/4] |= level << ((3 - i%4) * 2)
		}
	}

	return out
}

// SignatureLevel returns the 0-3 coverage of cell (cx, cy).
func SignatureLevel(sig []byte, cx, cy int) uint8 {
	i := cy*SignatureCols + cx
	if cx < 0 || cx >= SignatureCols || cy < 0 || cy >= SignatureRows || i/4 >= len(sig) {
		return 0
	}

	return sig[i/4] >> ((3 - i%4) * 2) & 3
}

// UnpackSignature expands a packed signature back to a
// SignatureWidth x SignatureHeight alpha plane.
func UnpackSignature(sig []byte) []byte {
	out := make([]byte, SignatureWidth*SignatureHeight)

	for cy := 0; cy < SignatureRows; cy++ {
		for cx := 0; cx < SignatureCols; cx++ {
			a := SignatureLevel(sig, cx, cy) * 85
			if a == 0 {
				continue
			}

			for dy := 0; dy < SignatureCell; dy++ {
				row := (cy*SignatureCell + dy) * SignatureWidth
				for dx := 0; dx < SignatureCell; dx++ {
					out[row+cx*SignatureCell+dx] = a
				}
			}
		}
	}

	return out
}
