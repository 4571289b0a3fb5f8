package raster

import "math"

// Brush identifies a brush kind. It is the brush byte of a draw event.
type Brush uint8

const (
	BrushRound Brush = iota
	BrushSquare
	BrushHardEraser
	BrushPressure
	BrushAirbrush
	BrushCalligraphy
	BrushSoftEraser

	BrushCount
)

var brushNames = [...]string{
	BrushRound:       "round",
	BrushSquare:      "square",
	BrushHardEraser:  "hard-eraser",
	BrushPressure:    "pressure",
	BrushAirbrush:    "airbrush",
	BrushCalligraphy: "calligraphy",
	BrushSoftEraser:  "soft-eraser",
}

func (b Brush) String() string {
	if b < BrushCount {
		return brushNames[b]
	}
	return "unknown"
}

// Mode tells a layer how to write the stamps of a stroke.
type Mode uint8

const (
	// ModeBlend puts the stamp color over the layer.
	ModeBlend Mode = iota

	// ModeErase makes the pixel fully transparent.
	ModeErase

	// ModeSoftErase subtracts the stamp alpha from the layer alpha.
	ModeSoftErase
)

// A Stamp is one pixel mutation produced by a brush.
type Stamp struct {
	X, Y int
	C    Pixel
}

// A Stroke is the result of one brush application.
type Stroke struct {
	Mode   Mode
	Stamps []Stamp
}

// A Dab holds the parameters of one brush application.
type Dab struct {
	X, Y     int
	Color    Pixel
	Size     int
	Pressure uint8 // 0-255, 0 when the input device has no pressure
	Angle    int   // stroke direction in degrees
}

// ApplyBrush computes the pixels brush b touches for d. It is pure:
// the same arguments always yield the same stroke. Unknown brushes
// yield an empty stroke.
func ApplyBrush(b Brush, d Dab) Stroke {
	switch b {
	case BrushRound:
		return Stroke{Stamps: disk(d.X, d.Y, d.Size/2, d.Color)}
	case BrushSquare:
		return Stroke{Stamps: square(d.X, d.Y, d.Size/2, d.Color)}
	case BrushHardEraser:
		return Stroke{Mode: ModeErase, Stamps: square(d.X, d.Y, d.Size/2, Pixel{255, 255, 255, 0})}
	case BrushPressure:
		size := d.Size
		if d.Pressure > 0 {
			size = size * int(d.Pressure) / 255
		}
		if size < 1 {
			size = 1
		}
		return Stroke{Stamps: disk(d.X, d.Y, size/2, d.Color)}
	case BrushAirbrush:
		return Stroke{Stamps: spray(d)}
	case BrushCalligraphy:
		return Stroke{Stamps: nib(d)}
	case BrushSoftEraser:
		return Stroke{Mode: ModeSoftErase, Stamps: softDisk(d)}
	}

	return Stroke{}
}

func disk(cx, cy, r int, c Pixel) []Stamp {
	if r < 1 {
		return []Stamp{{cx, cy, c}}
	}

	st := make([]Stamp, 0, (2*r+1)*(2*r+1))
	for i := -r; i <= r; i++ {
		for j := -r; j <= r; j++ {
			if i*i+j*j <= r*r {
				st = append(st, Stamp{cx + i, cy + j, c})
			}
		}
	}

	return st
}

func square(cx, cy, r int, c Pixel) []Stamp {
	if r < 0 {
		r = 0
	}

	st := make([]Stamp, 0, (2*r+1)*(2*r+1))
	for i := -r; i <= r; i++ {
		for j := -r; j <= r; j++ {
			st = append(st, Stamp{cx + i, cy + j, c})
		}
	}

	return st
}

// spray scatters translucent dots over a disk of radius Size. The dot
// positions come from a generator seeded by the dab so replays match.
func spray(d Dab) []Stamp {
	r := d.Size
	if r < 1 {
		r = 1
	}

	c := d.Color
	c.A = uint8(int(c.A) * 3 / 8)
	if c.A == 0 && d.Color.A > 0 {
		c.A = 1
	}

	n := r * r / 2
	if n < 1 {
		n = 1
	}

	seed := uint32(d.X)*73856093 ^ uint32(d.Y)*19349663 ^ uint32(d.Size)*83492791 ^ 0x9e3779b9
	if seed == 0 {
		seed = 1
	}

	st := make([]Stamp, 0, n)
	for len(st) < n {
		seed ^= seed << 13
		seed ^= seed >> 17
		seed ^= seed << 5
		i := int(seed%uint32(2*r+1)) - r
		j := int((seed>>16)%uint32(2*r+1)) - r
		if i*i+j*j > r*r {
			continue
		}
		st = append(st, Stamp{d.X + i, d.Y + j, c})
	}

	return st
}

// nib paints a flat pen held across the stroke direction: a bar of length
// Size perpendicular to Angle, a quarter of that thick.
func nib(d Dab) []Stamp {
	r := d.Size / 2
	if r < 1 {
		return []Stamp{{d.X, d.Y, d.Color}}
	}

	half := float64(d.Size) / 8
	if half < 0.5 {
		half = 0.5
	}

	rad := float64(d.Angle) * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)

	var st []Stamp
	for i := -r; i <= r; i++ {
		for j := -r; j <= r; j++ {
			along := float64(i)*cos + float64(j)*sin
			across := -float64(i)*sin + float64(j)*cos
			if math.Abs(along) <= half && math.Abs(across) <= float64(r) {
				st = append(st, Stamp{d.X + i, d.Y + j, d.Color})
			}
		}
	}

	return st
}

// softDisk produces erase strengths that fall off from the center. The
// strength of each stamp is carried in its alpha.
func softDisk(d Dab) []Stamp {
	r := d.Size / 2
	base := int(d.Color.A) / 4
	if base < 1 {
		base = 1
	}
	if r < 1 {
		return []Stamp{{d.X, d.Y, Pixel{A: uint8(base)}}}
	}

	var st []Stamp
	for i := -r; i <= r; i++ {
		for j := -r; j <= r; j++ {
			d2 := i*i + j*j
			if d2 > r*r {
				continue
			}
			s := base*(r*r-d2)/(r*r) + 1
			st = append(st, Stamp{d.X + i, d.Y + j, Pixel{A: uint8(s)}})
		}
	}

	return st
}
