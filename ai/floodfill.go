package ai

import "snake-agent/game"

type cell uint8

const (
	cellFree cell = iota
	cellBody
	cellReached
)

// neighbourOffsets is the scan order of the fill; with the truncating scan
// the order decides which neighbours are seen before an edge stops it.
var neighbourOffsets = [4]game.Point{
	{X: -1, Y: 0},
	{X: 0, Y: -1},
	{X: 0, Y: 1},
	{X: 1, Y: 0},
}

// Reachability is the result of a flood fill.
type Reachability struct {
	size  int
	cells []cell
	// Count is the number of cells marked reachable.
	Count int
}

// Reached reports whether p was marked by the fill.
func (r Reachability) Reached(p game.Point) bool {
	if !game.InBounds(p, r.size) {
		return false
	}
	return r.cells[r.index(p)] == cellReached
}

func (r Reachability) index(p game.Point) int {
	return (p.Y-1)*r.size + (p.X - 1)
}

// ReachablePoints flood fills the grid from start with body cells blocked,
// using 4-neighbour adjacency and no wrapping across edges. The start cell is
// only marked if the fill gets back to it from a neighbour.
func ReachablePoints(size int, body []game.Point, start game.Point, skipOutOfBounds bool) Reachability {
	r := Reachability{size: size, cells: make([]cell, size*size)}
	for _, p := range body {
		if game.InBounds(p, size) {
			r.cells[r.index(p)] = cellBody
		}
	}

	stack := []game.Point{start}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, off := range neighbourOffsets {
			next := current.Add(off)
			if !game.InBounds(next, size) {
				if skipOutOfBounds {
					continue
				}
				break
			}
			i := r.index(next)
			if r.cells[i] == cellFree {
				r.cells[i] = cellReached
				r.Count++
				stack = append(stack, next)
			}
		}
	}
	return r
}
