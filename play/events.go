package play

import (
	"fmt"

	"github.com/pkg/errors"

	"snake-agent/game"
)

// Mode selects who steers the snake while AI control is on.
type Mode int

const (
	ModeRandom Mode = iota
	ModePath
	ModeSurvival
	// ModeLearned plays the greedy action of a trained model.
	ModeLearned
)

func (m Mode) String() string {
	switch m {
	case ModeRandom:
		return "random"
	case ModePath:
		return "path"
	case ModeSurvival:
		return "survival"
	case ModeLearned:
		return "learned"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode accepts the names printed by Mode.String.
func ParseMode(name string) (Mode, error) {
	for _, m := range []Mode{ModeRandom, ModePath, ModeSurvival, ModeLearned} {
		if m.String() == name {
			return m, nil
		}
	}
	return 0, errors.Errorf("play: unknown mode %q", name)
}

// SpeedPresets are the frames per second selected by keys 1 to 9.
var SpeedPresets = [9]int{5, 10, 15, 20, 25, 30, 35, 40, 500}

const (
	MinSpeed = 1
	MaxSpeed = 1000
)

type EventKind int

const (
	DirectionRequest EventKind = iota
	SpeedDelta
	SpeedSet
	AIModeSelect
	AIToggle
	PauseToggle
	Reset
	Quit
)

func (k EventKind) String() string {
	switch k {
	case DirectionRequest:
		return "direction"
	case SpeedDelta:
		return "speed-delta"
	case SpeedSet:
		return "speed-set"
	case AIModeSelect:
		return "ai-mode"
	case AIToggle:
		return "ai-toggle"
	case PauseToggle:
		return "pause"
	case Reset:
		return "reset"
	case Quit:
		return "quit"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is a discrete control input. Only the field matching Kind is read.
type Event struct {
	Kind      EventKind
	Direction game.Direction
	// Delta is added to the speed for SpeedDelta.
	Delta int
	// Preset is the 1-based index into SpeedPresets for SpeedSet.
	Preset int
	Mode   Mode
}

func Turn(d game.Direction) Event { return Event{Kind: DirectionRequest, Direction: d} }

func ChangeSpeed(delta int) Event { return Event{Kind: SpeedDelta, Delta: delta} }

func SetSpeed(preset int) Event { return Event{Kind: SpeedSet, Preset: preset} }

func SelectMode(m Mode) Event { return Event{Kind: AIModeSelect, Mode: m} }

func ToggleAI() Event { return Event{Kind: AIToggle} }

func TogglePause() Event { return Event{Kind: PauseToggle} }

func ResetGame() Event { return Event{Kind: Reset} }

func QuitGame() Event { return Event{Kind: Quit} }

// Snapshot is the read-only view handed to a frontend once per frame.
type Snapshot struct {
	Size     int
	Body     []game.Point
	Food     game.Point
	Velocity game.Direction
	Score    int
	Best     int
	Frame    int
	Alive    bool
	Paused   bool
	Speed    int
	Mode     Mode
	AI       bool

	// Training is set while a training loop drives the game.
	Training bool
	Episode  int
	Epsilon  float64
}

// Frontend renders snapshots and reports input. Poll must not block.
type Frontend interface {
	Poll() []Event
	Render(Snapshot)
}

func snapshotOf(s game.State) Snapshot {
	return Snapshot{
		Size:     s.Size,
		Body:     s.Body,
		Food:     s.Food,
		Velocity: s.Velocity,
		Score:    s.Score(),
		Frame:    s.Frame,
		Alive:    s.Alive,
	}
}

func clampSpeed(v int) int {
	if v < MinSpeed {
		return MinSpeed
	}
	if v > MaxSpeed {
		return MaxSpeed
	}
	return v
}
