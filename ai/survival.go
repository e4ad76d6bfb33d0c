package ai

import (
	"log/slog"
	"math"

	"snake-agent/game"
)

const (
	reachableWeight = 100.0
	foodBonus       = 5.0
)

// Config tunes the survival planner.
type Config struct {
	// SkipOutOfBounds makes the flood fill skip an off-grid neighbour and
	// keep scanning. When false the scan of that cell's neighbours stops at
	// the first off-grid one, which can leave corner cells unreached.
	SkipOutOfBounds bool
	Logger          *slog.Logger
}

// Survival scores every legal move by how much of the board stays reachable
// and how close it gets to the food.
type Survival struct {
	cfg Config
	log *slog.Logger
}

func NewSurvival(cfg Config) *Survival {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Survival{cfg: cfg, log: log}
}

// Plan returns the best scoring direction, preferring the earliest of
// LEFT, RIGHT, UP, DOWN on ties. With no safe move it keeps the current
// velocity.
func (p *Survival) Plan(s game.State) game.Direction {
	best := s.Velocity
	bestScore := math.Inf(-1)
	found := false
	for _, d := range game.Directions {
		if !s.CanTurn(d) {
			continue
		}
		head := s.NextHead(d)
		if s.Occupies(head) {
			continue
		}
		score := p.MoveScore(s, head)
		p.log.Debug("survival candidate", "direction", d, "score", score)
		if !found || score > bestScore {
			best, bestScore, found = d, score, true
		}
	}
	return best
}

// MoveScore rates a candidate head cell for state s.
func (p *Survival) MoveScore(s game.State, head game.Point) float64 {
	fill := ReachablePoints(s.Size, s.Body, head, p.cfg.SkipOutOfBounds)

	ratio := 0.0
	if open := s.Size*s.Size - len(s.Body); open > 0 && fill.Count > 0 {
		ratio = float64(fill.Count) / float64(open)
	}
	bonus := 0.0
	if fill.Reached(s.Food) {
		bonus = foodBonus
	}
	distance := game.ToroidalDistance(head, s.Food, s.Size)
	return reachableWeight*ratio + (float64(s.Size) - distance) + bonus
}
