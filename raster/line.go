package raster

import "math"

// Line walks the integer points from (x0, y0) to (x1, y1) inclusive using
// Bresenham's algorithm.
func Line(x0, y0, x1, y1 int, fn func(x, y int)) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}

	err := dx + dy
	for {
		fn(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}

		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// Angle returns the direction of (dx, dy) in whole degrees.
func Angle(dx, dy int) int {
	return int(math.Atan2(float64(dy), float64(dx)) * 180 / math.Pi)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// PaintLine stamps brush b at every point from (d.X, d.Y) to (x1, y1),
// oriented along the line. It returns the number of in-bounds writes.
func PaintLine(l *Layer, b Brush, d Dab, x1, y1 int) int {
	d.Angle = Angle(x1-d.X, y1-d.Y)

	n := 0
	Line(d.X, d.Y, x1, y1, func(x, y int) {
		d.X, d.Y = x, y
		n += l.Apply(ApplyBrush(b, d))
	})

	return n
}
