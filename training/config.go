package training

import (
	"log/slog"

	"snake-agent/ai"
	"snake-agent/qlearning"
)

const (
	DefaultGridSize       = 30
	DefaultBatchSize      = 1000
	DefaultEpsilonBase    = 200
	DefaultFrameCapBase   = 100
	DefaultFrameCapFactor = 100
)

// Rewards are the per-step reward magnitudes. Exactly one applies to each
// step: Food when the snake ate, else Death when the episode ended, else
// Survive.
type Rewards struct {
	Food    float64
	Death   float64
	Survive float64
}

func DefaultRewards() Rewards {
	return Rewards{Food: 100, Death: -10, Survive: 0}
}

// Config is fixed for the lifetime of a Loop.
type Config struct {
	GridSize int
	Seed     uint64

	Model          qlearning.Config
	ReplayCapacity int
	BatchSize      int

	// EpsilonBase is the number of episodes over which exploration decays
	// linearly to zero.
	EpsilonBase int
	Rewards     Rewards

	// An episode is cut once frame > FrameCapFactor*score + FrameCapBase.
	FrameCapBase   int
	FrameCapFactor int

	// Checkpoint is the name under which a new best model is saved.
	Checkpoint string

	// Explore names the planner used on exploration steps: ai.NameRandom
	// or ai.NameSurvival.
	Explore string
	Planner ai.Config

	Logger *slog.Logger
}

func DefaultConfig() Config {
	return Config{
		GridSize:       DefaultGridSize,
		Seed:           1,
		Model:          qlearning.DefaultConfig(),
		ReplayCapacity: qlearning.DefaultReplayCapacity,
		BatchSize:      DefaultBatchSize,
		EpsilonBase:    DefaultEpsilonBase,
		Rewards:        DefaultRewards(),
		FrameCapBase:   DefaultFrameCapBase,
		FrameCapFactor: DefaultFrameCapFactor,
		Checkpoint:     qlearning.DefaultCheckpoint,
		Explore:        ai.NameRandom,
	}
}

// sanitized replaces zero or invalid fields with defaults. Rewards are kept
// as given since zero is a meaningful magnitude.
func (c Config) sanitized() Config {
	d := DefaultConfig()
	if c.GridSize < 2 {
		c.GridSize = d.GridSize
	}
	if c.ReplayCapacity <= 0 {
		c.ReplayCapacity = d.ReplayCapacity
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.EpsilonBase < 0 {
		c.EpsilonBase = d.EpsilonBase
	}
	if c.FrameCapBase <= 0 {
		c.FrameCapBase = d.FrameCapBase
	}
	if c.FrameCapFactor <= 0 {
		c.FrameCapFactor = d.FrameCapFactor
	}
	if c.Checkpoint == "" {
		c.Checkpoint = d.Checkpoint
	}
	if c.Explore == "" {
		c.Explore = d.Explore
	}
	if c.Model.Seed == 0 {
		c.Model.Seed = c.Seed
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}
