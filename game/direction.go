package game

import "fmt"

// Point is a grid cell. Valid cells lie in [1, Size] on both axes.
type Point struct {
	X, Y int
}

// Add returns the component-wise sum of p and q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Direction is one of the four cardinal moves.
type Direction int

const (
	Left Direction = iota
	Right
	Up
	Down
)

// Directions lists every direction in tie-break order.
var Directions = [4]Direction{Left, Right, Up, Down}

// ToPoint returns the unit displacement for d. Y grows downwards.
func (d Direction) ToPoint() Point {
	switch d {
	case Left:
		return Point{X: -1, Y: 0}
	case Right:
		return Point{X: 1, Y: 0}
	case Up:
		return Point{X: 0, Y: -1}
	case Down:
		return Point{X: 0, Y: 1}
	default:
		return Point{}
	}
}

// Opposite returns the direction whose displacement cancels d.
func (d Direction) Opposite() Direction {
	switch d {
	case Left:
		return Right
	case Right:
		return Left
	case Up:
		return Down
	default:
		return Up
	}
}

// Valid reports whether d is one of the four directions.
func (d Direction) Valid() bool {
	return d >= Left && d <= Down
}

// Index returns the position of d in Directions, used as the action index.
func (d Direction) Index() int {
	return int(d)
}

// DirectionFromIndex maps an action index back to its direction.
func DirectionFromIndex(i int) (Direction, bool) {
	d := Direction(i)
	return d, d.Valid()
}

func (d Direction) String() string {
	switch d {
	case Left:
		return "LEFT"
	case Right:
		return "RIGHT"
	case Up:
		return "UP"
	case Down:
		return "DOWN"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}
