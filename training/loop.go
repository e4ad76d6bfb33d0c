// Package training runs the epsilon-greedy learning loop: play a step,
// learn from it online, remember it, and replay a batch at the end of every
// episode.
package training

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"

	"snake-agent/ai"
	"snake-agent/game"
	"snake-agent/qlearning"
)

// Episode summarises one finished game.
type Episode struct {
	Number    int
	Score     int
	Record    int
	Frames    int
	Reward    float64
	Epsilon   float64
	Loss      float64
	Replay    int
	Duration  time.Duration
	Saved     bool
	BoardFull bool
}

// StepResult reports what a single training step did. Episode is set when
// the step ended the game.
type StepResult struct {
	Transition qlearning.Transition
	Outcome    game.Outcome
	Explored   bool
	Capped     bool
	Loss       float64
	Episode    *Episode
}

// Loop owns the engine, the model and the replay buffer. All of them are
// mutated only from Step, so a Loop must be driven from a single goroutine.
type Loop struct {
	cfg     Config
	log     *slog.Logger
	rng     *rand.Rand
	engine  *game.Engine
	model   *qlearning.Model
	replay  *qlearning.ReplayBuffer
	store   qlearning.Store
	explore ai.Planner

	episodes  int
	best      int
	reward    float64
	started   time.Time
	observers []func(Episode)
}

// NewLoop builds a loop with a fresh model and starts the first episode.
// Best models are written to store; a nil store disables checkpointing.
func NewLoop(cfg Config, store qlearning.Store) (*Loop, error) {
	cfg = cfg.sanitized()
	rng := rand.New(rand.NewSource(cfg.Seed))

	explore, err := ai.New(cfg.Explore, cfg.Planner, rng)
	if err != nil {
		return nil, errors.Wrap(err, "exploration planner")
	}

	l := &Loop{
		cfg:     cfg,
		log:     cfg.Logger,
		rng:     rng,
		engine:  game.NewEngine(cfg.GridSize, rng),
		model:   qlearning.NewModel(cfg.Model),
		replay:  qlearning.NewReplayBuffer(cfg.ReplayCapacity, rng),
		store:   store,
		explore: explore,
	}
	if err := l.reset(); err != nil {
		return nil, err
	}
	return l, nil
}

// Resume replaces the fresh model with the stored checkpoint and carries its
// record forward, so only a better score overwrites it. A missing or
// unreadable checkpoint is an error.
func (l *Loop) Resume() error {
	if l.store == nil {
		return errors.Wrap(qlearning.ErrCheckpointNotFound, "no checkpoint store configured")
	}
	meta, err := l.model.Load(l.store, l.cfg.Checkpoint)
	if err != nil {
		return errors.Wrap(err, "resume")
	}
	if meta.Record > l.best {
		l.best = meta.Record
	}
	l.log.Info("resumed from checkpoint", "checkpoint", l.cfg.Checkpoint, "record", l.best)
	return nil
}

// OnEpisode registers fn to be called after every finished episode.
func (l *Loop) OnEpisode(fn func(Episode)) {
	l.observers = append(l.observers, fn)
}

func (l *Loop) Config() Config { return l.cfg }

func (l *Loop) Model() *qlearning.Model { return l.model }

// State returns a copy of the game in progress.
func (l *Loop) State() game.State { return l.engine.State() }

func (l *Loop) Episodes() int { return l.episodes }

func (l *Loop) Best() int { return l.best }

func (l *Loop) ReplayLen() int { return l.replay.Len() }

// Epsilon is the probability that the next step explores.
func (l *Loop) Epsilon() float64 {
	return float64(l.threshold()) / float64(l.cfg.EpsilonBase+1)
}

func (l *Loop) threshold() int {
	t := l.cfg.EpsilonBase - l.episodes
	if t < 0 {
		return 0
	}
	return t
}

// Step plays and learns from one frame.
func (l *Loop) Step() (StepResult, error) {
	var res StepResult

	s := l.engine.State()
	pre := qlearning.Encode(s)

	action, explored, err := l.choose(s, pre)
	if err != nil {
		return res, err
	}
	res.Explored = explored

	res.Outcome = l.engine.Step(action)
	after := l.engine.State()
	if after.Alive && after.Frame > l.cfg.FrameCapFactor*after.Score()+l.cfg.FrameCapBase {
		l.engine.Kill()
		after = l.engine.State()
		res.Capped = true
	}

	t := qlearning.Transition{
		Pre:      pre,
		Action:   action.Index(),
		Reward:   l.rewardFor(res.Outcome, after.Alive),
		Post:     qlearning.Encode(after),
		Terminal: !after.Alive,
	}
	res.Transition = t
	l.reward += t.Reward

	if res.Loss, err = l.model.Update([]qlearning.Transition{t}); err != nil {
		return res, errors.Wrap(err, "online update")
	}
	l.replay.Append(t)

	if !after.Alive {
		ep, err := l.finish(after, res.Outcome)
		if err != nil {
			return res, err
		}
		res.Episode = &ep
	}
	return res, nil
}

// Run steps until episodes more games have finished or ctx is cancelled.
// A non-positive episodes runs until cancellation. Cancellation is checked
// between steps and returns ctx.Err().
func (l *Loop) Run(ctx context.Context, episodes int) error {
	target := l.episodes + episodes
	for episodes <= 0 || l.episodes < target {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if _, err := l.Step(); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loop) choose(s game.State, features []float64) (game.Direction, bool, error) {
	if l.rng.Intn(l.cfg.EpsilonBase+1) < l.threshold() {
		return l.explore.Plan(s), true, nil
	}
	values, err := l.model.Predict(features)
	if err != nil {
		return 0, false, errors.Wrap(err, "predict action")
	}
	d, _ := game.DirectionFromIndex(qlearning.Best(values))
	return d, false, nil
}

func (l *Loop) rewardFor(out game.Outcome, alive bool) float64 {
	switch {
	case out.AteFood:
		return l.cfg.Rewards.Food
	case !alive:
		return l.cfg.Rewards.Death
	default:
		return l.cfg.Rewards.Survive
	}
}

func (l *Loop) finish(s game.State, out game.Outcome) (Episode, error) {
	l.episodes++

	loss, err := l.model.Update(l.replay.Sample(l.cfg.BatchSize))
	if err != nil {
		return Episode{}, errors.Wrap(err, "replay update")
	}

	ep := Episode{
		Number:    l.episodes,
		Score:     s.Score(),
		Frames:    s.Frame,
		Reward:    l.reward,
		Epsilon:   l.Epsilon(),
		Loss:      loss,
		Replay:    l.replay.Len(),
		Duration:  time.Since(l.started),
		BoardFull: out.BoardFull,
	}

	if ep.Score > l.best {
		l.best = ep.Score
		if l.store != nil {
			if err := l.model.Save(l.store, l.cfg.Checkpoint, qlearning.Meta{Record: l.best}); err != nil {
				l.log.Error("save checkpoint", "checkpoint", l.cfg.Checkpoint, "err", err)
			} else {
				ep.Saved = true
				l.log.Info("new record saved", "score", ep.Score, "checkpoint", l.cfg.Checkpoint)
			}
		}
	}
	ep.Record = l.best

	l.log.Info("episode finished",
		"episode", ep.Number,
		"score", ep.Score,
		"record", ep.Record,
		"frames", ep.Frames,
		"epsilon", ep.Epsilon,
		"replay", ep.Replay,
		"loss", ep.Loss,
	)
	for _, fn := range l.observers {
		fn(ep)
	}

	if err := l.reset(); err != nil {
		return ep, err
	}
	return ep, nil
}

func (l *Loop) reset() error {
	if _, err := l.engine.Reset(); err != nil {
		return errors.Wrap(err, "reset game")
	}
	l.reward = 0
	l.started = time.Now()
	return nil
}
