package play

import (
	"context"
	"log/slog"
	"time"

	"snake-agent/training"
)

const (
	DefaultWatchSpeed    = 50
	DefaultBoostSpeed    = 1000
	DefaultBoostEpisodes = 2000
)

type WatchConfig struct {
	// Speed is used once the boost is over.
	Speed int
	// BoostSpeed applies while fewer than BoostEpisodes episodes have been
	// played. Any speed event from the frontend ends the boost. Zero values
	// take the defaults.
	BoostSpeed    int
	BoostEpisodes int
	Logger        *slog.Logger
	Now           func() time.Time
}

func DefaultWatchConfig() WatchConfig {
	return WatchConfig{
		Speed:         DefaultWatchSpeed,
		BoostSpeed:    DefaultBoostSpeed,
		BoostEpisodes: DefaultBoostEpisodes,
	}
}

// Watch renders a training loop through a frontend. Only pause, speed and
// quit events apply; the loop chooses every move.
type Watch struct {
	loop   *training.Loop
	cfg    WatchConfig
	log    *slog.Logger
	pace   *pacer
	speed  int
	manual bool
	paused bool
	quit   bool
}

func NewWatch(loop *training.Loop, cfg WatchConfig) *Watch {
	d := DefaultWatchConfig()
	if cfg.Speed <= 0 {
		cfg.Speed = d.Speed
	}
	if cfg.BoostSpeed <= 0 {
		cfg.BoostSpeed = d.BoostSpeed
	}
	if cfg.BoostEpisodes <= 0 {
		cfg.BoostEpisodes = d.BoostEpisodes
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Watch{
		loop:  loop,
		cfg:   cfg,
		log:   cfg.Logger,
		pace:  newPacer(cfg.Now),
		speed: clampSpeed(cfg.Speed),
	}
}

// Speed is the current frames per second, including the early boost.
func (w *Watch) Speed() int {
	if !w.manual && w.loop.Episodes() < w.cfg.BoostEpisodes {
		return clampSpeed(w.cfg.BoostSpeed)
	}
	return w.speed
}

func (w *Watch) Apply(ev Event) {
	switch ev.Kind {
	case SpeedDelta:
		w.speed = clampSpeed(w.Speed() + ev.Delta)
		w.manual = true
	case SpeedSet:
		if ev.Preset >= 1 && ev.Preset <= len(SpeedPresets) {
			w.speed = SpeedPresets[ev.Preset-1]
			w.manual = true
		}
	case PauseToggle:
		w.paused = !w.paused
	case Quit:
		w.quit = true
	}
}

func (w *Watch) Snapshot() Snapshot {
	snap := snapshotOf(w.loop.State())
	snap.Best = w.loop.Best()
	snap.Paused = w.paused
	snap.Speed = w.Speed()
	snap.AI = true
	snap.Mode = ModeLearned
	snap.Training = true
	snap.Episode = w.loop.Episodes()
	snap.Epsilon = w.loop.Epsilon()
	return snap
}

// Run trains until Quit, cancellation or a training error.
func (w *Watch) Run(ctx context.Context, fe Frontend) error {
	for !w.quit {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, ev := range fe.Poll() {
			w.Apply(ev)
		}
		if w.quit {
			break
		}
		if w.paused {
			w.pace.hold()
		} else {
			for n := w.pace.due(interval(w.Speed())); n > 0; n-- {
				if _, err := w.loop.Step(); err != nil {
					return err
				}
			}
		}
		fe.Render(w.Snapshot())
	}
	return nil
}
