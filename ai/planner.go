// Package ai holds the scripted move planners: a flood-fill survival
// heuristic, a serpentine path and a random walk.
package ai

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"

	"snake-agent/game"
)

// Planner picks the next requested direction for a game state. The engine
// still applies its reversal guard to whatever is returned.
type Planner interface {
	Plan(s game.State) game.Direction
}

// PlannerFunc adapts a function to the Planner interface.
type PlannerFunc func(s game.State) game.Direction

func (f PlannerFunc) Plan(s game.State) game.Direction {
	return f(s)
}

// Planner names accepted by New.
const (
	NameRandom   = "random"
	NamePath     = "path"
	NameSurvival = "survival"
)

// New builds a planner by name.
func New(name string, cfg Config, rng *rand.Rand) (Planner, error) {
	switch name {
	case NameRandom:
		return NewRandom(rng), nil
	case NamePath:
		return Path{}, nil
	case NameSurvival:
		return NewSurvival(cfg), nil
	default:
		return nil, errors.Errorf("ai: unknown planner %q", name)
	}
}

// Path walks a serpentine through the columns: down on odd columns, up on
// even ones, stepping right at the top and bottom rows.
type Path struct{}

func (Path) Plan(s game.State) game.Direction {
	head := s.Head()
	v := game.Up
	if head.X%2 == 1 {
		v = game.Down
	}
	if head.Y == 1 && v == game.Up {
		v = game.Right
	} else if head.Y == s.Size && v == game.Down {
		v = game.Right
	}
	return v
}

// Random picks any of the four directions with equal probability.
type Random struct {
	rng *rand.Rand
}

func NewRandom(rng *rand.Rand) *Random {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Random{rng: rng}
}

func (r *Random) Plan(game.State) game.Direction {
	return game.Directions[r.rng.Intn(len(game.Directions))]
}
