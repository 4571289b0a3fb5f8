// Package snapshot turns layers into compact text and back, and persists
// whole canvases as a versioned document through pluggable stores.
package snapshot

import "errors"

var ErrCorrupt = errors.New("snapshot: truncated packbits stream")

// Compress run-length encodes b with PackBits. A header byte n in 0..127 is
// followed by n+1 literal bytes; n in -127..-1 (as int8) is followed by one
// byte repeated 1-n times. -128 is never emitted.
func Compress(b []byte) []byte {
	out := make([]byte, 0, len(b)/4+16)

	i := 0
	for i < len(b) {
		start := i
		for i+1 < len(b) && b[i] == b[i+1] && i-start < 127 {
			i++
		}

		if i > start {
			count := i - start + 1
			out = append(out, byte(257-count), b[start])
			i++
			continue
		}

		// Literal span, ended early where a run of three begins.
		j := i
		for j < len(b) && j-i < 128 {
			if j+2 < len(b) && b[j] == b[j+1] && b[j] == b[j+2] {
				break
			}
			j++
		}

		out = append(out, byte(j-i-1))
		out = append(out, b[i:j]...)
		i = j
	}

	return out
}

// Decompress reverses Compress. Header -128 is skipped.
func Decompress(b []byte) ([]byte, error) {
	out := make([]byte, 0, len(b)*4)

	i := 0
	for i < len(b) {
		n := int8(b[i])
		i++

		switch {
		case n == -128:
		case n >= 0:
			count := int(n) + 1
			if i+count > len(b) {
				return out, ErrCorrupt
			}
			out = append(out, b[i:i+count]...)
			i += count
		default:
			if i >= len(b) {
				return out, ErrCorrupt
			}
			for k := 0; k < 1-int(n); k++ {
				out = append(out, b[i])
			}
			i++
		}
	}

	return out, nil
}
