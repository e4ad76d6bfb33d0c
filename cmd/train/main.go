// Command train runs the learning loop without a window. With -tui a
// terminal dashboard shows progress and the logs go to the run directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"snake-agent/dashboard"
	"snake-agent/logging"
	"snake-agent/qlearning"
	"snake-agent/stats"
	"snake-agent/training"
)

func main() {
	cfg := training.DefaultConfig()
	var logOpts logging.Options

	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	cfg.RegisterFlags(fs)
	logOpts.RegisterFlags(fs)
	dataDir := fs.String("data", "data", "Directory for checkpoints and run statistics")
	episodes := fs.Int("episodes", 0, "Stop after this many episodes (0 runs until interrupted)")
	resume := fs.Bool("resume", false, "Continue from the saved checkpoint")
	tui := fs.Bool("tui", false, "Show a terminal dashboard")
	fs.Parse(os.Args[1:])

	if err := run(cfg, logOpts, *dataDir, *episodes, *resume, *tui); err != nil {
		fmt.Fprintln(os.Stderr, "train:", err)
		os.Exit(1)
	}
}

func run(cfg training.Config, logOpts logging.Options, dataDir string, episodes int, resume, tui bool) error {
	history := stats.NewHistory(uuid.New())
	runDir := stats.RunDir(dataDir, history.RunID())
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return errors.Wrap(err, "create run dir")
	}

	// Logs would corrupt the dashboard, so they go to a file while it runs.
	var logOut io.Writer = os.Stderr
	if tui {
		f, err := os.OpenFile(filepath.Join(runDir, "train.log"), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return errors.Wrap(err, "open log file")
		}
		defer f.Close()
		logOut = f
	}
	log, err := logging.New(logOut, logOpts)
	if err != nil {
		return err
	}
	slog.SetDefault(log)
	cfg.Logger = log
	cfg.Planner.Logger = log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loop, err := training.NewLoop(cfg, qlearning.NewFileStore(filepath.Join(dataDir, "models")))
	if err != nil {
		return err
	}
	if resume {
		if err := loop.Resume(); err != nil {
			return err
		}
	}
	loop.OnEpisode(history.Observe)
	log.Info("training started", "run", history.RunID(), "dir", runDir, "episodes", episodes, "grid", cfg.GridSize)

	var runErr error
	if tui {
		runErr = runWithDashboard(ctx, cancel, loop, history, episodes)
	} else {
		runErr = loop.Run(ctx, episodes)
	}
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	if err := history.Save(runDir); err != nil {
		log.Error("save run statistics", "dir", runDir, "err", err)
		if runErr == nil {
			runErr = err
		}
	}
	sum := history.Summary()
	log.Info("training stopped", "episodes", sum.Episodes, "record", sum.Best, "mean", sum.MeanScore, "dir", runDir)
	return runErr
}

// runWithDashboard trains in a goroutine while bubbletea owns the terminal.
// Quitting the dashboard cancels training; finishing training closes it.
func runWithDashboard(ctx context.Context, cancel context.CancelFunc, loop *training.Loop, history *stats.History, episodes int) error {
	updates := make(chan training.Episode, 64)
	loop.OnEpisode(dashboard.Publish(updates))

	done := make(chan error, 1)
	go func() {
		err := loop.Run(ctx, episodes)
		close(updates)
		done <- err
	}()

	p := tea.NewProgram(dashboard.New(history, updates), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		cancel()
		<-done
		return errors.Wrap(err, "dashboard")
	}
	cancel()
	return <-done
}
