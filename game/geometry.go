package game

import "math"

// Wrap maps p back onto a size x size torus. Each axis is handled on its own:
// values above size become 1 and values below 1 become size.
func Wrap(p Point, size int) Point {
	return Point{X: wrapAxis(p.X, size), Y: wrapAxis(p.Y, size)}
}

func wrapAxis(v, size int) int {
	switch {
	case v > size:
		return 1
	case v < 1:
		return size
	default:
		return v
	}
}

// InBounds reports whether p lies on the grid without wrapping.
func InBounds(p Point, size int) bool {
	return p.X >= 1 && p.X <= size && p.Y >= 1 && p.Y <= size
}

// ToroidalDistance is the shortest Euclidean distance from a to b when the
// board wraps, taken over the nine translations of b by {0, ±size}.
func ToroidalDistance(a, b Point, size int) float64 {
	best := math.Inf(1)
	offsets := [3]int{-size, 0, size}
	for _, ox := range offsets {
		for _, oy := range offsets {
			dx := float64(b.X + ox - a.X)
			dy := float64(b.Y + oy - a.Y)
			if d := math.Hypot(dx, dy); d < best {
				best = d
			}
		}
	}
	return best
}
