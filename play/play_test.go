package play

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"snake-agent/ai"
	"snake-agent/game"
	"snake-agent/training"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeClock struct {
	t    time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

// scripted returns one batch of events per Poll and quits when the script
// runs out.
type scripted struct {
	polls   [][]Event
	renders []Snapshot
}

func (f *scripted) Poll() []Event {
	if len(f.polls) == 0 {
		return []Event{QuitGame()}
	}
	ev := f.polls[0]
	f.polls = f.polls[1:]
	return ev
}

func (f *scripted) Render(s Snapshot) {
	f.renders = append(f.renders, s)
}

func newTestSession(t *testing.T, cfg Config, st *game.State) *Session {
	t.Helper()
	cfg.Logger = quiet
	s, err := NewSession(cfg)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if st != nil {
		if err := s.engine.Load(*st); err != nil {
			t.Fatalf("load: %v", err)
		}
	}
	return s
}

func TestSpeedEvents(t *testing.T) {
	s := newTestSession(t, Config{GridSize: 5}, nil)
	if s.Snapshot().Speed != DefaultSpeed {
		t.Fatalf("expected default speed %d, got %d", DefaultSpeed, s.Snapshot().Speed)
	}
	cases := []struct {
		ev   Event
		want int
	}{
		{SetSpeed(9), 500},
		{SetSpeed(1), 5},
		{SetSpeed(0), 5},
		{ChangeSpeed(3), 8},
		{ChangeSpeed(-100), MinSpeed},
		{ChangeSpeed(5000), MaxSpeed},
	}
	for _, c := range cases {
		if err := s.Apply(c.ev); err != nil {
			t.Fatal(err)
		}
		if got := s.Snapshot().Speed; got != c.want {
			t.Errorf("after %+v: speed %d, want %d", c.ev, got, c.want)
		}
	}
}

func TestDirectionRequestHonoursReversalGuard(t *testing.T) {
	s := newTestSession(t, Config{GridSize: 5}, &game.State{
		Size:     5,
		Body:     []game.Point{{X: 1, Y: 1}, {X: 1, Y: 2}},
		Food:     game.Point{X: 4, Y: 4},
		Velocity: game.Up,
		Alive:    true,
	})
	s.Apply(Turn(game.Down))
	s.Tick()
	if snap := s.Snapshot(); snap.Velocity != game.Up || snap.Body[0] != (game.Point{X: 1, Y: 5}) {
		t.Fatalf("reversal was applied: %+v", snap)
	}

	s.Apply(Turn(game.Left))
	s.Tick()
	if v := s.Snapshot().Velocity; v != game.Left {
		t.Fatalf("expected LEFT, got %s", v)
	}
}

func TestDirectionRequestAppliedOnce(t *testing.T) {
	s := newTestSession(t, Config{GridSize: 7}, &game.State{
		Size:     7,
		Body:     []game.Point{{X: 3, Y: 3}},
		Food:     game.Point{X: 7, Y: 7},
		Velocity: game.Right,
		Alive:    true,
	})
	s.Apply(Turn(game.Down))
	s.Tick()
	s.Tick()
	if head := s.Snapshot().Body[0]; head != (game.Point{X: 3, Y: 5}) {
		t.Fatalf("expected head (3,5), got %v", head)
	}
}

func TestPauseStopsFrames(t *testing.T) {
	s := newTestSession(t, Config{GridSize: 6}, nil)
	s.Apply(TogglePause())
	before := s.Snapshot().Frame
	s.Tick()
	if snap := s.Snapshot(); !snap.Paused || snap.Frame != before {
		t.Fatalf("paused session advanced: %+v", snap)
	}
	s.Apply(TogglePause())
	s.Tick()
	if s.Snapshot().Frame != before+1 {
		t.Fatal("resumed session did not advance")
	}
}

func TestAIControlUsesSelectedPlanner(t *testing.T) {
	s := newTestSession(t, Config{GridSize: 5}, &game.State{
		Size:     5,
		Body:     []game.Point{{X: 1, Y: 3}},
		Food:     game.Point{X: 5, Y: 1},
		Velocity: game.Up,
		Alive:    true,
	})
	s.Apply(SelectMode(ModePath))
	s.Apply(ToggleAI())
	s.Tick()
	snap := s.Snapshot()
	if !snap.AI || snap.Mode != ModePath {
		t.Fatalf("unexpected control state %+v", snap)
	}
	if snap.Velocity != game.Down {
		t.Fatalf("path planner should head DOWN from an odd column, got %s", snap.Velocity)
	}
}

func TestLearnedModeNeedsPolicy(t *testing.T) {
	s := newTestSession(t, Config{GridSize: 5}, nil)
	s.Apply(SelectMode(ModeLearned))
	if s.Snapshot().Mode != ModeRandom {
		t.Fatal("learned mode selected without a policy")
	}

	always := ai.PlannerFunc(func(game.State) game.Direction { return game.Left })
	s = newTestSession(t, Config{GridSize: 5, Learned: always, Mode: ModeLearned, AI: true}, nil)
	s.Tick()
	if v := s.Snapshot().Velocity; v != game.Left {
		t.Fatalf("learned policy ignored, velocity %s", v)
	}

	if _, err := NewSession(Config{GridSize: 5, Mode: ModeLearned, Logger: quiet}); err == nil {
		t.Fatal("expected an error for learned mode without a policy")
	}
}

func TestResetAfterGameOver(t *testing.T) {
	s := newTestSession(t, Config{GridSize: 6}, nil)
	s.engine.Kill()
	if s.Snapshot().Alive {
		t.Fatal("expected the game to be over")
	}
	s.Apply(ResetGame())
	snap := s.Snapshot()
	if !snap.Alive || snap.Score != 0 || snap.Frame != 0 {
		t.Fatalf("reset did not start a new game: %+v", snap)
	}
}

func TestRunPacesFrames(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0), step: 100 * time.Millisecond}
	s := newTestSession(t, Config{GridSize: 20, Speed: 10, Now: clock.Now}, &game.State{
		Size:     20,
		Body:     []game.Point{{X: 10, Y: 10}},
		Food:     game.Point{X: 1, Y: 1},
		Velocity: game.Right,
		Alive:    true,
	})
	fe := &scripted{polls: make([][]Event, 5)}
	if err := s.Run(context.Background(), fe); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !s.Done() {
		t.Fatal("session did not stop on quit")
	}
	if len(fe.renders) != 5 {
		t.Fatalf("expected 5 renders, got %d", len(fe.renders))
	}
	// One frame per 100ms at speed 10.
	if got := fe.renders[4].Frame; got != 5 {
		t.Fatalf("expected 5 frames, got %d", got)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s := newTestSession(t, Config{GridSize: 6}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx, &scripted{}); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPacer(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := newPacer(clock.Now)
	if n := p.due(time.Second); n != 1 {
		t.Fatalf("first call should be due, got %d", n)
	}
	clock.step = 500 * time.Millisecond
	if n := p.due(time.Second); n != 0 {
		t.Fatalf("expected nothing due after 0.5s, got %d", n)
	}
	if n := p.due(time.Second); n != 1 {
		t.Fatalf("expected one frame after 1s, got %d", n)
	}
	clock.step = time.Hour
	if n := p.due(time.Second); n != maxCatchUp {
		t.Fatalf("expected catch-up to be capped at %d, got %d", maxCatchUp, n)
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{ModeRandom, ModePath, ModeSurvival, ModeLearned} {
		got, err := ParseMode(m.String())
		if err != nil || got != m {
			t.Errorf("%s: got %v, %v", m, got, err)
		}
	}
	if _, err := ParseMode("cheat"); err == nil {
		t.Error("expected an error for an unknown mode")
	}
}

func TestWatchBoostAndSteps(t *testing.T) {
	cfg := training.DefaultConfig()
	cfg.GridSize = 6
	cfg.Model.Hidden = 8
	cfg.BatchSize = 16
	cfg.Logger = quiet
	loop, err := training.NewLoop(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	clock := &fakeClock{t: time.Unix(0, 0), step: 10 * time.Millisecond}
	w := NewWatch(loop, WatchConfig{Logger: quiet, Now: clock.Now})
	if w.Speed() != DefaultBoostSpeed {
		t.Fatalf("expected boost speed, got %d", w.Speed())
	}

	fe := &scripted{polls: [][]Event{nil, nil, {Turn(game.Left)}, nil}}
	if err := w.Run(context.Background(), fe); err != nil {
		t.Fatalf("run: %v", err)
	}
	if loop.ReplayLen() == 0 {
		t.Fatal("watch did not step the training loop")
	}
	last := fe.renders[len(fe.renders)-1]
	if !last.Training || last.Speed != DefaultBoostSpeed {
		t.Fatalf("unexpected snapshot %+v", last)
	}

	w.Apply(SetSpeed(2))
	if w.Speed() != 10 {
		t.Fatalf("speed preset did not end the boost, speed %d", w.Speed())
	}
}

func TestWatchBoostEndsAfterEpisodes(t *testing.T) {
	cfg := training.DefaultConfig()
	cfg.GridSize = 5
	cfg.Model.Hidden = 8
	cfg.BatchSize = 8
	cfg.Logger = quiet
	loop, err := training.NewLoop(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	w := NewWatch(loop, WatchConfig{BoostEpisodes: 2, Logger: quiet})
	if w.Speed() != DefaultBoostSpeed {
		t.Fatalf("expected boost on a fresh run, got %d", w.Speed())
	}
	if err := loop.Run(context.Background(), 2); err != nil {
		t.Fatalf("run: %v", err)
	}
	if w.Speed() != DefaultWatchSpeed {
		t.Fatalf("expected watch speed after %d episodes, got %d", loop.Episodes(), w.Speed())
	}
}

func TestDefaultBindings(t *testing.T) {
	b := DefaultBindings()
	cases := map[string]Event{
		KeyUp:    Turn(game.Up),
		"w":      Turn(game.Up),
		"k":      Turn(game.Up),
		"l":      Turn(game.Right),
		"9":      SetSpeed(9),
		"t":      SelectMode(ModeSurvival),
		"m":      SelectMode(ModeLearned),
		KeySpace: TogglePause(),
		"q":      QuitGame(),
	}
	for key, want := range cases {
		if got, ok := b.Lookup(key); !ok || got != want {
			t.Errorf("%q: got %+v, want %+v", key, got, want)
		}
	}
	if _, ok := b.Lookup("x"); ok {
		t.Error("unbound key produced an event")
	}
}
