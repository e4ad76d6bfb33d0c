package qlearning

import "snake-agent/game"

// Policy plays the greedy action of a trained model.
type Policy struct {
	Model *Model
}

// Plan keeps the current velocity if the model cannot be evaluated.
func (p Policy) Plan(s game.State) game.Direction {
	values, err := p.Model.Predict(Encode(s))
	if err != nil {
		return s.Velocity
	}
	d, _ := game.DirectionFromIndex(Best(values))
	return d
}
