// Package play runs an interactive game: it drains frontend events, steers
// the snake by keyboard or by a planner, and advances the engine at the
// selected speed.
package play

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"

	"snake-agent/ai"
	"snake-agent/game"
)

const DefaultSpeed = 15

type Config struct {
	GridSize int
	Seed     uint64
	Speed    int
	Mode     Mode
	AI       bool
	Planner  ai.Config
	// Learned backs ModeLearned. Selecting that mode without it is ignored.
	Learned ai.Planner
	Logger  *slog.Logger
	// Now replaces the clock used for frame pacing.
	Now func() time.Time
}

func DefaultConfig() Config {
	return Config{
		GridSize: 30,
		Seed:     1,
		Speed:    DefaultSpeed,
		Mode:     ModeRandom,
	}
}

// Session is a single-player game. It is driven from one goroutine.
type Session struct {
	cfg      Config
	log      *slog.Logger
	engine   *game.Engine
	planners map[Mode]ai.Planner
	pace     *pacer

	mode    Mode
	ai      bool
	paused  bool
	speed   int
	pending game.Direction
	steer   bool
	best    int
	quit    bool
}

func NewSession(cfg Config) (*Session, error) {
	if cfg.GridSize < 2 {
		cfg.GridSize = DefaultConfig().GridSize
	}
	if cfg.Speed <= 0 {
		cfg.Speed = DefaultSpeed
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	planners := map[Mode]ai.Planner{
		ModeRandom:   ai.NewRandom(rng),
		ModePath:     ai.Path{},
		ModeSurvival: ai.NewSurvival(cfg.Planner),
	}
	if cfg.Learned != nil {
		planners[ModeLearned] = cfg.Learned
	}
	if _, ok := planners[cfg.Mode]; !ok {
		return nil, errors.Errorf("play: mode %s is not available", cfg.Mode)
	}

	s := &Session{
		cfg:      cfg,
		log:      cfg.Logger,
		engine:   game.NewEngine(cfg.GridSize, rng),
		planners: planners,
		pace:     newPacer(cfg.Now),
		mode:     cfg.Mode,
		ai:       cfg.AI,
		speed:    clampSpeed(cfg.Speed),
	}
	if _, err := s.engine.Reset(); err != nil {
		return nil, errors.Wrap(err, "start game")
	}
	return s, nil
}

// Apply handles one event. A direction request is kept until the next frame
// and then passes through the engine's reversal guard.
func (s *Session) Apply(ev Event) error {
	switch ev.Kind {
	case DirectionRequest:
		if !ev.Direction.Valid() {
			return nil
		}
		s.pending = ev.Direction
		s.steer = true
	case SpeedDelta:
		s.speed = clampSpeed(s.speed + ev.Delta)
	case SpeedSet:
		if ev.Preset >= 1 && ev.Preset <= len(SpeedPresets) {
			s.speed = SpeedPresets[ev.Preset-1]
		}
	case AIModeSelect:
		if _, ok := s.planners[ev.Mode]; !ok {
			s.log.Warn("ai mode unavailable", "mode", ev.Mode)
			return nil
		}
		s.mode = ev.Mode
	case AIToggle:
		s.ai = !s.ai
	case PauseToggle:
		s.paused = !s.paused
		if !s.paused {
			s.pace.hold()
		}
	case Reset:
		s.steer = false
		if _, err := s.engine.Reset(); err != nil {
			return errors.Wrap(err, "reset game")
		}
	case Quit:
		s.quit = true
	}
	s.log.Debug("event", "kind", ev.Kind, "speed", s.speed, "mode", s.mode, "ai", s.ai, "paused", s.paused)
	return nil
}

// Tick advances one frame unless the game is paused or over.
func (s *Session) Tick() game.Outcome {
	if s.paused || !s.engine.Alive() {
		return game.Outcome{}
	}

	d := s.engine.State().Velocity
	if s.steer {
		d = s.pending
		s.steer = false
	}
	if s.ai {
		d = s.planners[s.mode].Plan(s.engine.State())
	}

	out := s.engine.Step(d)
	if st := s.engine.State(); st.Score() > s.best {
		s.best = st.Score()
	}
	if !s.engine.Alive() {
		st := s.engine.State()
		s.log.Info("game over", "score", st.Score(), "frames", st.Frame, "board_full", out.BoardFull)
	}
	return out
}

func (s *Session) Snapshot() Snapshot {
	snap := snapshotOf(s.engine.State())
	snap.Best = s.best
	snap.Paused = s.paused
	snap.Speed = s.speed
	snap.Mode = s.mode
	snap.AI = s.ai
	return snap
}

// Done reports whether a Quit event has been applied.
func (s *Session) Done() bool {
	return s.quit
}

// Run drives the session until Quit or cancellation. Every iteration drains
// the frontend's events, runs the frames that are due and renders once.
func (s *Session) Run(ctx context.Context, fe Frontend) error {
	for !s.quit {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, ev := range fe.Poll() {
			if err := s.Apply(ev); err != nil {
				return err
			}
		}
		if s.quit {
			break
		}
		if s.paused || !s.engine.Alive() {
			s.pace.hold()
		} else {
			for n := s.pace.due(interval(s.speed)); n > 0; n-- {
				s.Tick()
			}
		}
		fe.Render(s.Snapshot())
	}
	return nil
}
