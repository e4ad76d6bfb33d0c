// Package game implements the torus-wrapped snake simulation.
//
// The Engine owns the only mutable GameState. Planners, encoders and
// frontends work on State values returned by Engine.State, which are deep
// copies and can be inspected freely.
package game

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
)

// ErrBoardFull is returned when no free cell is left for food.
var ErrBoardFull = errors.New("game: no free cell for food")

// foodSampleAttempts bounds rejection sampling before falling back to a scan
// of the free cells.
const foodSampleAttempts = 64

// State is a snapshot of a running game. Body is ordered head first. Food is
// the zero Point, which is off the grid, once the snake has filled the board.
type State struct {
	Size     int
	Body     []Point
	Food     Point
	Velocity Direction
	Frame    int
	Alive    bool
}

// Head returns the first body cell.
func (s State) Head() Point {
	return s.Body[0]
}

// Score is the number of food items eaten.
func (s State) Score() int {
	return len(s.Body) - 1
}

// Clone performs a deep copy of the state.
func (s State) Clone() State {
	out := s
	out.Body = make([]Point, len(s.Body))
	copy(out.Body, s.Body)
	return out
}

// Occupies reports whether p is part of the body.
func (s State) Occupies(p Point) bool {
	return contains(s.Body, p)
}

// CanTurn applies the reversal guard: a snake longer than one cell may not
// turn straight back into its neck.
func (s State) CanTurn(d Direction) bool {
	if len(s.Body) <= 1 {
		return true
	}
	return d != s.Velocity.Opposite()
}

// NextHead is the wrapped cell the head would enter moving in d.
func (s State) NextHead(d Direction) Point {
	return Wrap(s.Head().Add(d.ToPoint()), s.Size)
}

// Collides runs the Step death check for a move in d without committing it.
// The tail cell is free unless the move eats, because the tail leaves first.
func (s State) Collides(d Direction) bool {
	next := s.NextHead(d)
	occupied := s.Body
	if next != s.Food {
		occupied = s.Body[:len(s.Body)-1]
	}
	return contains(occupied, next)
}

// Outcome reports what happened during one Step.
type Outcome struct {
	AteFood bool
	Died    bool
	// BoardFull is set when the snake filled the grid and no food could be
	// placed. The episode ends without a collision.
	BoardFull bool
}

// Engine advances a single snake one frame per Step. It is not safe for
// concurrent use.
type Engine struct {
	size  int
	rng   *rand.Rand
	state State
}

// NewEngine creates an engine for a size x size grid. Call Reset before Step.
func NewEngine(size int, rng *rand.Rand) *Engine {
	if size < 1 {
		panic("game: grid size must be positive")
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Engine{size: size, rng: rng}
}

// Size returns the grid edge length.
func (e *Engine) Size() int {
	return e.size
}

// Reset starts a new game: one body cell and a velocity chosen at random,
// then food on any other cell.
func (e *Engine) Reset() (State, error) {
	e.state = State{
		Size:     e.size,
		Body:     []Point{e.randomCell()},
		Velocity: Direction(e.rng.Intn(len(Directions))),
		Alive:    true,
	}
	food, err := e.placeFood()
	if err != nil {
		e.state.Alive = false
		return e.State(), err
	}
	e.state.Food = food
	return e.State(), nil
}

// Load replaces the current state, validating it first.
func (e *Engine) Load(s State) error {
	if s.Size != e.size {
		return errors.Errorf("game: state size %d does not match grid size %d", s.Size, e.size)
	}
	if len(s.Body) == 0 {
		return errors.New("game: state has an empty body")
	}
	if !s.Velocity.Valid() {
		return errors.Errorf("game: invalid velocity %d", int(s.Velocity))
	}
	seen := make(map[Point]bool, len(s.Body))
	for _, p := range s.Body {
		if !InBounds(p, e.size) {
			return errors.Errorf("game: body cell %v is off the grid", p)
		}
		if seen[p] {
			return errors.Errorf("game: body cell %v appears twice", p)
		}
		seen[p] = true
	}
	if !InBounds(s.Food, e.size) || seen[s.Food] {
		return errors.Errorf("game: food %v is off the grid or under the body", s.Food)
	}
	e.state = s.Clone()
	return nil
}

// State returns a deep copy of the current game state.
func (e *Engine) State() State {
	return e.state.Clone()
}

// Alive reports whether the current game is still running.
func (e *Engine) Alive() bool {
	return e.state.Alive
}

// Kill ends the current game without moving the snake.
func (e *Engine) Kill() {
	e.state.Alive = false
}

// Step advances the game by one frame. A reversal request is ignored while
// the body is longer than one cell. Stepping a finished game does nothing.
func (e *Engine) Step(requested Direction) Outcome {
	var out Outcome
	if !e.state.Alive {
		return out
	}

	if requested.Valid() && e.state.CanTurn(requested) {
		e.state.Velocity = requested
	}

	next := e.state.NextHead(e.state.Velocity)
	e.state.Body = append([]Point{next}, e.state.Body...)

	if next == e.state.Food {
		out.AteFood = true
		food, err := e.placeFood()
		if err != nil {
			out.BoardFull = true
			e.state.Alive = false
			e.state.Food = Point{}
		} else {
			e.state.Food = food
		}
	} else {
		e.state.Body = e.state.Body[:len(e.state.Body)-1]
	}

	if contains(e.state.Body[1:], next) {
		out.Died = true
		e.state.Alive = false
	}

	e.state.Frame++
	return out
}

func (e *Engine) randomCell() Point {
	return Point{X: e.rng.Intn(e.size) + 1, Y: e.rng.Intn(e.size) + 1}
}

// placeFood picks a uniformly random cell outside the body. Rejection
// sampling is bounded and followed by an exhaustive scan so that a nearly
// full board still terminates.
func (e *Engine) placeFood() (Point, error) {
	if len(e.state.Body) >= e.size*e.size {
		return Point{}, ErrBoardFull
	}
	for i := 0; i < foodSampleAttempts; i++ {
		p := e.randomCell()
		if !contains(e.state.Body, p) {
			return p, nil
		}
	}

	occupied := make(map[Point]bool, len(e.state.Body))
	for _, p := range e.state.Body {
		occupied[p] = true
	}
	free := make([]Point, 0, e.size*e.size-len(e.state.Body))
	for y := 1; y <= e.size; y++ {
		for x := 1; x <= e.size; x++ {
			p := Point{X: x, Y: y}
			if !occupied[p] {
				free = append(free, p)
			}
		}
	}
	if len(free) == 0 {
		return Point{}, ErrBoardFull
	}
	return free[e.rng.Intn(len(free))], nil
}

func contains(body []Point, p Point) bool {
	for _, b := range body {
		if b == p {
			return true
		}
	}
	return false
}
