// Command snake-agent opens a window to play snake by keyboard or watch a
// planner play it, or with -train to watch the learning agent train live.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"snake-agent/ai"
	"snake-agent/logging"
	"snake-agent/play"
	"snake-agent/qlearning"
	"snake-agent/stats"
	"snake-agent/training"
	"snake-agent/ui"
)

func init() {
	// raylib must be driven from the main OS thread.
	runtime.LockOSThread()
}

type options struct {
	train     training.Config
	log       logging.Options
	dataDir   string
	trainLive bool
	resume    bool
	mode      string
	ai        bool
	speed     int
	width     int
	height    int
}

func main() {
	var o options
	o.train = training.DefaultConfig()

	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	o.train.RegisterFlags(fs)
	o.log.RegisterFlags(fs)
	fs.StringVar(&o.dataDir, "data", "data", "Directory for checkpoints and run statistics")
	fs.BoolVar(&o.trainLive, "train", false, "Watch the agent train instead of playing")
	fs.BoolVar(&o.resume, "resume", false, "With -train, continue from the saved checkpoint")
	fs.StringVar(&o.mode, "mode", play.ModeRandom.String(), "AI mode: random, path, survival or learned")
	fs.BoolVar(&o.ai, "ai", false, "Start with AI control on")
	fs.IntVar(&o.speed, "speed", play.DefaultSpeed, "Frames per second")
	fs.IntVar(&o.width, "width", 1280, "Window width")
	fs.IntVar(&o.height, "height", 800, "Window height")
	fs.Parse(os.Args[1:])

	if err := run(o); err != nil {
		fmt.Fprintln(os.Stderr, "snake-agent:", err)
		os.Exit(1)
	}
}

func run(o options) error {
	log, err := logging.New(os.Stderr, o.log)
	if err != nil {
		return err
	}
	slog.SetDefault(log)
	o.train.Logger = log
	o.train.Planner.Logger = log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := qlearning.NewFileStore(filepath.Join(o.dataDir, "models"))

	if o.trainLive {
		return watchTraining(ctx, o, store, log)
	}
	return playGame(ctx, o, store, log)
}

func playGame(ctx context.Context, o options, store qlearning.Store, log *slog.Logger) error {
	mode, err := play.ParseMode(o.mode)
	if err != nil {
		return err
	}

	cfg := play.Config{
		GridSize: o.train.GridSize,
		Seed:     o.train.Seed,
		Speed:    o.speed,
		Mode:     mode,
		AI:       o.ai,
		Planner:  o.train.Planner,
		Logger:   log,
	}
	learned, err := loadPolicy(store, o.train)
	switch {
	case err == nil:
		cfg.Learned = learned
	case mode == play.ModeLearned:
		return errors.Wrap(err, "learned mode")
	default:
		log.Warn("learned mode unavailable", "err", err)
	}

	session, err := play.NewSession(cfg)
	if err != nil {
		return err
	}

	r := ui.NewRenderer(play.DefaultBindings(), nil)
	r.Open("Snake", int32(o.width), int32(o.height))
	defer r.Close()

	return ignoreCancel(session.Run(ctx, r))
}

func loadPolicy(store qlearning.Store, cfg training.Config) (ai.Planner, error) {
	model := qlearning.NewModel(cfg.Model)
	if _, err := model.Load(store, cfg.Checkpoint); err != nil {
		return nil, err
	}
	return qlearning.Policy{Model: model}, nil
}

func watchTraining(ctx context.Context, o options, store qlearning.Store, log *slog.Logger) error {
	loop, err := training.NewLoop(o.train, store)
	if err != nil {
		return err
	}
	if o.resume {
		if err := loop.Resume(); err != nil {
			return err
		}
	}

	history := stats.NewHistory(uuid.New())
	loop.OnEpisode(history.Observe)
	log.Info("training", "run", history.RunID(), "grid", o.train.GridSize, "explore", o.train.Explore)

	r := ui.NewRenderer(play.DefaultBindings(), history)
	r.Open("Snake - training", int32(o.width), int32(o.height))
	defer r.Close()

	wcfg := play.DefaultWatchConfig()
	wcfg.Logger = log
	watch := play.NewWatch(loop, wcfg)
	runErr := ignoreCancel(watch.Run(ctx, r))

	dir := stats.RunDir(o.dataDir, history.RunID())
	if err := history.Save(dir); err != nil {
		log.Error("save run statistics", "dir", dir, "err", err)
	} else {
		log.Info("run statistics saved", "dir", dir, "episodes", history.Len())
	}
	return runErr
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
