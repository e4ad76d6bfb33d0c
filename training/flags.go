package training

import "flag"

// RegisterFlags binds every tunable of c to fs. The current values of c are
// the flag defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.GridSize, "grid", c.GridSize, "Grid edge length")
	fs.Uint64Var(&c.Seed, "seed", c.Seed, "Random seed")

	fs.IntVar(&c.Model.Hidden, "hidden", c.Model.Hidden, "Hidden layer width")
	fs.Float64Var(&c.Model.LearningRate, "lr", c.Model.LearningRate, "Adam learning rate")
	fs.Float64Var(&c.Model.Gamma, "gamma", c.Model.Gamma, "Discount factor")
	fs.IntVar(&c.ReplayCapacity, "replay", c.ReplayCapacity, "Replay buffer capacity")
	fs.IntVar(&c.BatchSize, "batch", c.BatchSize, "Replay batch size at the end of an episode")

	fs.IntVar(&c.EpsilonBase, "epsilon", c.EpsilonBase, "Episodes over which exploration decays to zero")
	fs.StringVar(&c.Explore, "explore", c.Explore, "Planner for exploration steps: random or survival")
	fs.BoolVar(&c.Planner.SkipOutOfBounds, "flood-skip-edges", c.Planner.SkipOutOfBounds, "Flood fill skips off-grid neighbours instead of stopping the scan")

	fs.Float64Var(&c.Rewards.Food, "reward-food", c.Rewards.Food, "Reward for eating")
	fs.Float64Var(&c.Rewards.Death, "reward-death", c.Rewards.Death, "Reward for dying")
	fs.Float64Var(&c.Rewards.Survive, "reward-survive", c.Rewards.Survive, "Reward for any other step")

	fs.IntVar(&c.FrameCapBase, "frame-cap", c.FrameCapBase, "Frames allowed before the first food")
	fs.IntVar(&c.FrameCapFactor, "frame-cap-per-score", c.FrameCapFactor, "Extra frames allowed per point of score")
	fs.StringVar(&c.Checkpoint, "checkpoint", c.Checkpoint, "Checkpoint name saved on every new record")
}
