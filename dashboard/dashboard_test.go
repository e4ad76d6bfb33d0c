package dashboard

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"snake-agent/stats"
	"snake-agent/training"
)

func TestEpisodeUpdatesView(t *testing.T) {
	h := stats.NewHistory(uuid.Nil)
	updates := make(chan training.Episode, 1)
	m := New(h, updates)

	ep := training.Episode{Number: 3, Score: 5, Record: 5, Frames: 120, Epsilon: 0.25, Saved: true}
	h.Observe(ep)
	next, cmd := m.Update(episodeMsg(ep))
	if cmd == nil {
		t.Fatal("expected the model to keep waiting for episodes")
	}
	view := next.View()
	for _, want := range []string{"Episodes:       1", "Record:         5", "#3", "saved"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestRecentIsBounded(t *testing.T) {
	m := New(stats.NewHistory(uuid.Nil), nil)
	var model tea.Model = m
	for i := 0; i < recentLines+5; i++ {
		model, _ = model.Update(episodeMsg(training.Episode{Number: i + 1}))
	}
	if got := len(model.(Model).recent); got != recentLines {
		t.Fatalf("expected %d recent lines, got %d", recentLines, got)
	}
	if !strings.HasPrefix(model.(Model).recent[0], "#15") {
		t.Fatalf("newest episode not first: %q", model.(Model).recent[0])
	}
}

func TestQuitAndClose(t *testing.T) {
	m := New(stats.NewHistory(uuid.Nil), nil)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("q did not quit")
	}

	updates := make(chan training.Episode)
	close(updates)
	msg := waitForEpisode(updates)()
	next, _ := m.Update(msg)
	if !next.(Model).finished {
		t.Fatal("closed channel did not finish the dashboard")
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	ch := make(chan training.Episode, 1)
	publish := Publish(ch)
	publish(training.Episode{Number: 1})
	publish(training.Episode{Number: 2})
	if got := (<-ch).Number; got != 1 {
		t.Fatalf("expected the first episode to be kept, got %d", got)
	}
}
