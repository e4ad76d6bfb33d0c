// Package dashboard is the terminal view of a headless training run.
package dashboard

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"snake-agent/stats"
	"snake-agent/training"
)

const recentLines = 10

type tickMsg time.Time

type episodeMsg training.Episode

// closedMsg is delivered once the episode channel is closed.
type closedMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*250, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForEpisode(updates <-chan training.Episode) tea.Cmd {
	return func() tea.Msg {
		ep, ok := <-updates
		if !ok {
			return closedMsg{}
		}
		return episodeMsg(ep)
	}
}

// Publish returns an episode observer that forwards to ch without blocking
// the training loop. Episodes are dropped while the dashboard lags behind.
func Publish(ch chan<- training.Episode) func(training.Episode) {
	return func(ep training.Episode) {
		select {
		case ch <- ep:
		default:
		}
	}
}

// Model is the bubbletea model.
type Model struct {
	history   *stats.History
	updates   <-chan training.Episode
	startTime time.Time
	now       time.Time
	last      training.Episode
	recent    []string
	finished  bool
}

func New(history *stats.History, updates <-chan training.Episode) Model {
	now := time.Now()
	return Model{
		history:   history,
		updates:   updates,
		startTime: now,
		now:       now,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForEpisode(m.updates), tickCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case tickMsg:
		m.now = time.Time(msg)
		return m, tickCmd()
	case episodeMsg:
		ep := training.Episode(msg)
		m.last = ep
		line := fmt.Sprintf("#%-6d score %-4d frames %-6d eps %.3f loss %.3f", ep.Number, ep.Score, ep.Frames, ep.Epsilon, ep.Loss)
		if ep.Saved {
			line += "  saved"
		}
		m.recent = append([]string{line}, m.recent...)
		if len(m.recent) > recentLines {
			m.recent = m.recent[:recentLines]
		}
		return m, waitForEpisode(m.updates)
	case closedMsg:
		m.finished = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) View() string {
	sum := m.history.Summary()
	elapsed := m.now.Sub(m.startTime)
	perSec := 0.0
	if elapsed >= time.Second {
		perSec = float64(sum.Episodes) / elapsed.Seconds()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Run:            %s\n", sum.RunID)
	fmt.Fprintf(&b, "Episodes:       %d\n", sum.Episodes)
	fmt.Fprintf(&b, "Record:         %d\n", sum.Best)
	fmt.Fprintf(&b, "Mean score:     %.2f (last %d: %.2f)\n", sum.MeanScore, stats.RecentWindow, sum.RecentMean)
	fmt.Fprintf(&b, "Median score:   %.1f\n", sum.MedianScore)
	fmt.Fprintf(&b, "Epsilon:        %.3f\n", m.last.Epsilon)
	fmt.Fprintf(&b, "Replay:         %d\n", m.last.Replay)
	fmt.Fprintf(&b, "Duration:       %s\n", elapsed.Round(time.Second))
	fmt.Fprintf(&b, "Episodes/Sec:   %.2f\n\n", perSec)

	b.WriteString("Recent Episodes:\n")
	for _, line := range m.recent {
		b.WriteString(line + "\n")
	}
	if m.finished {
		b.WriteString("\nTraining finished.\n")
	} else {
		b.WriteString("\nPress q to stop training.\n")
	}
	return b.String()
}
