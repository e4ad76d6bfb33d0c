// Package ui is the raylib window frontend. It draws play snapshots and
// turns key presses into play events.
package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"snake-agent/game"
	"snake-agent/play"
	"snake-agent/stats"
)

const (
	maxScores     = 200 // Maximum number of scores to show in graph
	borderPadding = 10
)

// keyCodes translates raylib keys to binding names, in poll order.
var keyCodes = []struct {
	code int32
	name string
}{
	{rl.KeyLeft, play.KeyLeft},
	{rl.KeyRight, play.KeyRight},
	{rl.KeyUp, play.KeyUp},
	{rl.KeyDown, play.KeyDown},
	{rl.KeyA, "a"}, {rl.KeyD, "d"}, {rl.KeyW, "w"}, {rl.KeyS, "s"},
	{rl.KeyH, "h"}, {rl.KeyJ, "j"}, {rl.KeyK, "k"}, {rl.KeyL, "l"},
	{rl.KeyOne, "1"}, {rl.KeyTwo, "2"}, {rl.KeyThree, "3"},
	{rl.KeyFour, "4"}, {rl.KeyFive, "5"}, {rl.KeySix, "6"},
	{rl.KeySeven, "7"}, {rl.KeyEight, "8"}, {rl.KeyNine, "9"},
	{rl.KeyR, "r"}, {rl.KeyP, "p"}, {rl.KeyT, "t"}, {rl.KeyM, "m"},
	{rl.KeyC, "c"}, {rl.KeyN, "n"}, {rl.KeyQ, "q"},
	{rl.KeySpace, play.KeySpace},
	{rl.KeyEscape, play.KeyEscape},
	{rl.KeyEqual, play.KeyPlus},
	{rl.KeyKpAdd, play.KeyPlus},
	{rl.KeyMinus, play.KeyMinus},
	{rl.KeyKpSubtract, play.KeyMinus},
}

// Renderer implements play.Frontend on an open raylib window. Call Open
// from the goroutine locked to the main OS thread.
type Renderer struct {
	bindings play.Bindings
	history  *stats.History

	cellSize     int32
	screenWidth  int32
	screenHeight int32
	graphHeight  int32
	graphWidth   int32
	gameWidth    int32
	statsPanel   int32
	gridSize     int32
	offsetX      int32
	offsetY      int32
}

// NewRenderer draws the score graph from history when it is not nil.
func NewRenderer(bindings play.Bindings, history *stats.History) *Renderer {
	if bindings == nil {
		bindings = play.DefaultBindings()
	}
	return &Renderer{bindings: bindings, history: history}
}

// Open creates the window. Escape is left to the bindings.
func (r *Renderer) Open(title string, width, height int32) {
	rl.InitWindow(width, height, title)
	rl.SetWindowState(rl.FlagWindowResizable)
	rl.SetExitKey(rl.KeyNull)
	rl.SetTargetFPS(60)
	r.updateDimensions()
}

func (r *Renderer) Close() {
	rl.CloseWindow()
}

func (r *Renderer) updateDimensions() {
	r.screenWidth = int32(rl.GetScreenWidth())
	r.screenHeight = int32(rl.GetScreenHeight())

	r.statsPanel = r.screenWidth / 4
	r.gameWidth = r.screenWidth - r.statsPanel

	r.graphWidth = r.statsPanel - 20
	r.graphHeight = r.screenHeight / 4
}

// Poll reports bound key presses and a Quit when the window is closed.
func (r *Renderer) Poll() []play.Event {
	var events []play.Event
	if rl.WindowShouldClose() {
		return append(events, play.QuitGame())
	}
	for _, k := range keyCodes {
		if !rl.IsKeyPressed(k.code) {
			continue
		}
		if ev, ok := r.bindings.Lookup(k.name); ok {
			events = append(events, ev)
		}
	}
	return events
}

func (r *Renderer) Render(s play.Snapshot) {
	r.updateDimensions()
	rl.BeginDrawing()
	defer rl.EndDrawing()
	rl.ClearBackground(rl.Black)

	fontSize := min(r.screenHeight/40, r.statsPanel/14)
	lineHeight := fontSize + fontSize/2

	available := min(r.gameWidth, r.screenHeight) - borderPadding*2
	r.gridSize = int32(s.Size)
	r.cellSize = available / r.gridSize
	total := r.cellSize * r.gridSize
	r.offsetX = borderPadding + (r.gameWidth-borderPadding*2-total)/2
	r.offsetY = (r.screenHeight - total) / 2

	rl.DrawRectangle(r.offsetX-1, r.offsetY-1, total+2, total+2, rl.DarkGray)
	rl.DrawRectangle(r.offsetX, r.offsetY, total, total, rl.Black)

	r.drawSnake(s)
	if game.InBounds(s.Food, s.Size) {
		rl.DrawRectangle(r.cellX(s.Food), r.cellY(s.Food), r.cellSize, r.cellSize, rl.Red)
	}

	r.drawStatsPanel(s, fontSize, lineHeight)

	switch {
	case !s.Alive:
		r.drawOverlay(total, fontSize,
			"Game Over!",
			fmt.Sprintf("Score: %d", s.Score),
			"press n to play again")
	case s.Paused:
		r.drawOverlay(total, fontSize, "Paused", "press space to resume")
	}
}

func (r *Renderer) cellX(p game.Point) int32 {
	return r.offsetX + int32(p.X-1)*r.cellSize
}

func (r *Renderer) cellY(p game.Point) int32 {
	return r.offsetY + int32(p.Y-1)*r.cellSize
}

func (r *Renderer) drawSnake(s play.Snapshot) {
	for i := len(s.Body) - 1; i >= 0; i-- {
		p := s.Body[i]
		color := rl.Green
		if i == 0 {
			color = rl.Lime
		}
		rl.DrawRectangle(r.cellX(p), r.cellY(p), r.cellSize, r.cellSize, color)
		rl.DrawRectangleLines(r.cellX(p), r.cellY(p), r.cellSize, r.cellSize, rl.Black)
	}
	if len(s.Body) == 0 {
		return
	}

	// Head direction indicator
	headX := r.cellX(s.Body[0])
	headY := r.cellY(s.Body[0])
	cell := r.cellSize
	half := cell / 2
	v := func(x, y int32) rl.Vector2 { return rl.Vector2{X: float32(x), Y: float32(y)} }
	switch s.Velocity {
	case game.Right:
		rl.DrawTriangle(v(headX+cell, headY+half), v(headX+half, headY), v(headX+half, headY+cell), rl.Yellow)
	case game.Left:
		rl.DrawTriangle(v(headX, headY+half), v(headX+half, headY+cell), v(headX+half, headY), rl.Yellow)
	case game.Down:
		rl.DrawTriangle(v(headX+half, headY+cell), v(headX+cell, headY+half), v(headX, headY+half), rl.Yellow)
	case game.Up:
		rl.DrawTriangle(v(headX+half, headY), v(headX, headY+half), v(headX+cell, headY+half), rl.Yellow)
	}
}

func (r *Renderer) drawStatsPanel(s play.Snapshot, fontSize, lineHeight int32) {
	x := r.gameWidth + 5
	y := int32(10)
	rl.DrawRectangle(x-5, 0, r.statsPanel+5, r.screenHeight, rl.DarkGray)

	line := func(text string, color rl.Color) {
		rl.DrawText(text, x, y, fontSize, color)
		y += lineHeight
	}

	line(fmt.Sprintf("Score: %d", s.Score), rl.White)
	line(fmt.Sprintf("Best: %d", s.Best), rl.White)
	line(fmt.Sprintf("Frame: %d", s.Frame), rl.LightGray)
	line(fmt.Sprintf("Speed: %d fps", s.Speed), rl.LightGray)
	y += lineHeight / 2

	if s.Training {
		line("Training", rl.Gold)
		line(fmt.Sprintf("Episode: %d", s.Episode), rl.LightGray)
		line(fmt.Sprintf("Epsilon: %.3f", s.Epsilon), rl.LightGray)
	} else {
		control := "keyboard"
		if s.AI {
			control = "AI " + s.Mode.String()
		}
		line("Control: "+control, rl.Gold)
		line("c: toggle AI", rl.LightGray)
		line("r/p/t/m: AI mode", rl.LightGray)
		line("1-9: speed", rl.LightGray)
	}

	if r.history != nil {
		r.drawPerformanceGraph(x, fontSize)
	}
}

// drawPerformanceGraph plots the latest scores and the running mean.
func (r *Renderer) drawPerformanceGraph(graphX, fontSize int32) {
	graphY := r.screenHeight - r.graphHeight - fontSize*2

	rl.DrawRectangleLines(graphX, graphY, r.graphWidth, r.graphHeight, rl.White)
	rl.DrawText("Performance", graphX, graphY-fontSize-5, fontSize, rl.White)

	scores, means := r.history.Scores()
	sum := r.history.Summary()
	rl.DrawText(fmt.Sprintf("Games: %d  Mean: %.2f", sum.Episodes, sum.MeanScore),
		graphX, r.screenHeight-fontSize-5, fontSize, rl.White)

	if len(scores) > maxScores {
		scores = scores[len(scores)-maxScores:]
		means = means[len(means)-maxScores:]
	}
	if len(scores) < 2 {
		return
	}

	top := 1.0
	for _, v := range scores {
		if v > top {
			top = v
		}
	}
	px := func(i int) int32 {
		return graphX + int32(float32(r.graphWidth)*float32(i)/float32(maxScores))
	}
	py := func(v float64) int32 {
		return graphY + r.graphHeight - int32(float64(r.graphHeight)*v/top)
	}
	for i := 1; i < len(scores); i++ {
		rl.DrawLine(px(i-1), py(scores[i-1]), px(i), py(scores[i]), rl.SkyBlue)
		rl.DrawLine(px(i-1), py(means[i-1]), px(i), py(means[i]), rl.Orange)
	}
}

func (r *Renderer) drawOverlay(total, fontSize int32, lines ...string) {
	y := r.offsetY + total/2 - int32(len(lines))*fontSize
	for _, text := range lines {
		w := rl.MeasureText(text, fontSize*2)
		rl.DrawText(text, r.offsetX+(total-w)/2, y, fontSize*2, rl.White)
		y += fontSize * 2
	}
}
