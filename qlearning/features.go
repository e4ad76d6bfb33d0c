package qlearning

import "snake-agent/game"

// FeatureSize is the length of the vector produced by Encode.
const FeatureSize = 12

// Encode turns a game state into the network input:
//
//	[0:4]  a move LEFT, RIGHT, UP, DOWN would collide with the body
//	[4:8]  one-hot current velocity in the same order
//	[8:12] food comparisons: LEFT closer than RIGHT, RIGHT closer than LEFT,
//	       UP closer than DOWN, DOWN closer than UP
func Encode(s game.State) []float64 {
	f := make([]float64, 0, FeatureSize)
	for _, d := range game.Directions {
		f = append(f, boolToFloat(s.Collides(d)))
	}
	for _, d := range game.Directions {
		f = append(f, boolToFloat(s.Velocity == d))
	}

	var dist [4]float64
	for i, d := range game.Directions {
		dist[i] = game.ToroidalDistance(s.NextHead(d), s.Food, s.Size)
	}
	left, right := dist[game.Left], dist[game.Right]
	up, down := dist[game.Up], dist[game.Down]
	f = append(f,
		boolToFloat(left < right),
		boolToFloat(right < left),
		boolToFloat(up < down),
		boolToFloat(down < up),
	)
	return f
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
