package play

import "snake-agent/game"

// Key names used by Bindings. Frontends translate their own key codes into
// these names.
const (
	KeyLeft   = "left"
	KeyRight  = "right"
	KeyUp     = "up"
	KeyDown   = "down"
	KeySpace  = "space"
	KeyEscape = "escape"
	KeyPlus   = "+"
	KeyMinus  = "-"
)

// Bindings maps key names to the event they produce.
type Bindings map[string]Event

// DefaultBindings returns the standard layout: arrows, WASD and hjkl steer,
// 1-9 pick a speed preset, r/p/t/m pick an AI mode, c toggles AI control,
// space pauses, n resets and q or escape quits.
func DefaultBindings() Bindings {
	b := Bindings{
		KeyLeft:   Turn(game.Left),
		KeyRight:  Turn(game.Right),
		KeyUp:     Turn(game.Up),
		KeyDown:   Turn(game.Down),
		KeySpace:  TogglePause(),
		KeyEscape: QuitGame(),
		KeyPlus:   ChangeSpeed(5),
		KeyMinus:  ChangeSpeed(-5),

		"a": Turn(game.Left),
		"d": Turn(game.Right),
		"w": Turn(game.Up),
		"s": Turn(game.Down),
		"h": Turn(game.Left),
		"j": Turn(game.Down),
		"k": Turn(game.Up),
		"l": Turn(game.Right),

		"r": SelectMode(ModeRandom),
		"p": SelectMode(ModePath),
		"t": SelectMode(ModeSurvival),
		"m": SelectMode(ModeLearned),
		"c": ToggleAI(),
		"n": ResetGame(),
		"q": QuitGame(),
	}
	for i := 1; i <= len(SpeedPresets); i++ {
		b[string(rune('0'+i))] = SetSpeed(i)
	}
	return b
}

// Lookup returns the event bound to key.
func (b Bindings) Lookup(key string) (Event, bool) {
	ev, ok := b[key]
	return ev, ok
}
