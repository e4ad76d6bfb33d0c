// Package qlearning holds the learned action-value model: the state
// encoder, a two-layer network trained with Adam, the replay buffer and
// checkpoint persistence.
package qlearning

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

const (
	DefaultHidden       = 256
	DefaultOutputs      = 4
	DefaultLearningRate = 0.001
	DefaultGamma        = 0.9
)

// ErrShapeMismatch is returned when features, actions or parameters do not
// fit the network dimensions.
var ErrShapeMismatch = errors.New("qlearning: shape mismatch")

// Config describes the network dimensions and learning parameters.
type Config struct {
	Inputs       int
	Hidden       int
	Outputs      int
	LearningRate float64
	Gamma        float64
	Seed         uint64
}

func DefaultConfig() Config {
	return Config{
		Inputs:       FeatureSize,
		Hidden:       DefaultHidden,
		Outputs:      DefaultOutputs,
		LearningRate: DefaultLearningRate,
		Gamma:        DefaultGamma,
		Seed:         1,
	}
}

func (c Config) sanitized() Config {
	d := DefaultConfig()
	if c.Inputs <= 0 {
		c.Inputs = d.Inputs
	}
	if c.Hidden <= 0 {
		c.Hidden = d.Hidden
	}
	if c.Outputs <= 0 {
		c.Outputs = d.Outputs
	}
	if c.LearningRate <= 0 {
		c.LearningRate = d.LearningRate
	}
	if c.Gamma < 0 || c.Gamma > 1 {
		c.Gamma = d.Gamma
	}
	return c
}

// Params are the network weights. W1 is Inputs x Hidden, B1 is 1 x Hidden,
// W2 is Hidden x Outputs and B2 is 1 x Outputs.
type Params struct {
	W1, B1, W2, B2 *tensor.Dense
}

// Clone deep copies every tensor.
func (p Params) Clone() Params {
	return Params{
		W1: p.W1.Clone().(*tensor.Dense),
		B1: p.B1.Clone().(*tensor.Dense),
		W2: p.W2.Clone().(*tensor.Dense),
		B2: p.B2.Clone().(*tensor.Dense),
	}
}

func (p Params) check(c Config) error {
	want := []struct {
		name string
		t    *tensor.Dense
		r, c int
	}{
		{"w1", p.W1, c.Inputs, c.Hidden},
		{"b1", p.B1, 1, c.Hidden},
		{"w2", p.W2, c.Hidden, c.Outputs},
		{"b2", p.B2, 1, c.Outputs},
	}
	for _, w := range want {
		if w.t == nil {
			return errors.Wrapf(ErrShapeMismatch, "%s is missing", w.name)
		}
		s := w.t.Shape()
		if len(s) != 2 || s[0] != w.r || s[1] != w.c {
			return errors.Wrapf(ErrShapeMismatch, "%s has shape %v, want (%d, %d)", w.name, s, w.r, w.c)
		}
	}
	return nil
}

// initParams draws every weight and bias from U(-1/sqrt(fanIn), 1/sqrt(fanIn)).
func initParams(c Config, rng *rand.Rand) Params {
	return Params{
		W1: uniformDense(rng, c.Inputs, c.Hidden, c.Inputs),
		B1: uniformDense(rng, 1, c.Hidden, c.Inputs),
		W2: uniformDense(rng, c.Hidden, c.Outputs, c.Hidden),
		B2: uniformDense(rng, 1, c.Outputs, c.Hidden),
	}
}

func uniformDense(rng *rand.Rand, rows, cols, fanIn int) *tensor.Dense {
	bound := 1 / math.Sqrt(float64(fanIn))
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = (rng.Float64()*2 - 1) * bound
	}
	return tensor.New(tensor.WithShape(rows, cols), tensor.WithBacking(data))
}

// Model is the action-value network. A Model is not safe for concurrent use.
type Model struct {
	cfg    Config
	params Params
	solver gorgonia.Solver
}

// NewModel creates a network with freshly initialised weights.
func NewModel(cfg Config) *Model {
	cfg = cfg.sanitized()
	rng := rand.New(rand.NewSource(cfg.Seed))
	return &Model{
		cfg:    cfg,
		params: initParams(cfg, rng),
		solver: gorgonia.NewAdamSolver(gorgonia.WithLearnRate(cfg.LearningRate)),
	}
}

func (m *Model) Config() Config {
	return m.cfg
}

// Params returns a copy of the current weights.
func (m *Model) Params() Params {
	return m.params.Clone()
}

// SetParams replaces the weights after checking their shapes. The optimiser
// state is reset.
func (m *Model) SetParams(p Params) error {
	if err := p.check(m.cfg); err != nil {
		return err
	}
	m.params = p.Clone()
	m.solver = gorgonia.NewAdamSolver(gorgonia.WithLearnRate(m.cfg.LearningRate))
	return nil
}

// network is one expression graph over the model weights.
type network struct {
	g              *gorgonia.ExprGraph
	w1, b1, w2, b2 *gorgonia.Node
	out            *gorgonia.Node
}

func (n *network) learnables() gorgonia.Nodes {
	return gorgonia.Nodes{n.w1, n.b1, n.w2, n.b2}
}

func matrixNode(g *gorgonia.ExprGraph, name string, t *tensor.Dense) *gorgonia.Node {
	s := t.Shape()
	return gorgonia.NewMatrix(g, tensor.Float64,
		gorgonia.WithShape(s[0], s[1]),
		gorgonia.WithName(name),
		gorgonia.WithValue(t))
}

func (m *Model) build(x *tensor.Dense) (*network, error) {
	g := gorgonia.NewGraph()
	n := &network{
		g:  g,
		w1: matrixNode(g, "w1", m.params.W1),
		b1: matrixNode(g, "b1", m.params.B1),
		w2: matrixNode(g, "w2", m.params.W2),
		b2: matrixNode(g, "b2", m.params.B2),
	}
	in := matrixNode(g, "x", x)

	h, err := gorgonia.Mul(in, n.w1)
	if err != nil {
		return nil, errors.Wrap(err, "hidden layer")
	}
	if h, err = gorgonia.BroadcastAdd(h, n.b1, nil, []byte{0}); err != nil {
		return nil, errors.Wrap(err, "hidden bias")
	}
	if h, err = gorgonia.Rectify(h); err != nil {
		return nil, errors.Wrap(err, "relu")
	}
	out, err := gorgonia.Mul(h, n.w2)
	if err != nil {
		return nil, errors.Wrap(err, "output layer")
	}
	if out, err = gorgonia.BroadcastAdd(out, n.b2, nil, []byte{0}); err != nil {
		return nil, errors.Wrap(err, "output bias")
	}
	n.out = out
	return n, nil
}

func (m *Model) inputMatrix(features [][]float64) (*tensor.Dense, error) {
	data := make([]float64, 0, len(features)*m.cfg.Inputs)
	for i, f := range features {
		if len(f) != m.cfg.Inputs {
			return nil, errors.Wrapf(ErrShapeMismatch, "row %d has %d features, want %d", i, len(f), m.cfg.Inputs)
		}
		data = append(data, f...)
	}
	return tensor.New(tensor.WithShape(len(features), m.cfg.Inputs), tensor.WithBacking(data)), nil
}

// Predict returns one value per action for a single feature vector.
func (m *Model) Predict(features []float64) ([]float64, error) {
	out, err := m.PredictBatch([][]float64{features})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// PredictBatch evaluates the network on every row of features.
func (m *Model) PredictBatch(features [][]float64) ([][]float64, error) {
	if len(features) == 0 {
		return nil, nil
	}
	x, err := m.inputMatrix(features)
	if err != nil {
		return nil, err
	}
	n, err := m.build(x)
	if err != nil {
		return nil, err
	}
	var out gorgonia.Value
	gorgonia.Read(n.out, &out)

	vm := gorgonia.NewTapeMachine(n.g)
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		return nil, errors.Wrap(err, "forward pass")
	}
	data, ok := out.Data().([]float64)
	if !ok || len(data) != len(features)*m.cfg.Outputs {
		return nil, errors.New("qlearning: unexpected prediction tensor")
	}

	rows := make([][]float64, len(features))
	for i := range rows {
		row := make([]float64, m.cfg.Outputs)
		copy(row, data[i*m.cfg.Outputs:])
		rows[i] = row
	}
	return rows, nil
}

// Best returns the index of the highest value, preferring the lowest index
// on ties.
func Best(values []float64) int {
	return floats.MaxIdx(values)
}

// Update performs one Adam step on the batch and returns the loss before the
// step. Targets are reward for terminal transitions and reward plus
// Gamma*max(Predict(post)) otherwise, computed with the weights in place
// before the step. Only the taken action contributes an error; the other
// outputs are held at their prediction. An empty batch does nothing.
func (m *Model) Update(batch []Transition) (float64, error) {
	if len(batch) == 0 {
		return 0, nil
	}
	outputs := m.cfg.Outputs

	pre := make([][]float64, len(batch))
	post := make([][]float64, 0, len(batch))
	for i, t := range batch {
		if t.Action < 0 || t.Action >= outputs {
			return 0, errors.Wrapf(ErrShapeMismatch, "action %d out of range", t.Action)
		}
		pre[i] = t.Pre
		if !t.Terminal {
			post = append(post, t.Post)
		}
	}
	next, err := m.PredictBatch(post)
	if err != nil {
		return 0, errors.Wrap(err, "next state values")
	}

	targets := make([]float64, len(batch)*outputs)
	mask := make([]float64, len(batch)*outputs)
	j := 0
	for i, t := range batch {
		q := t.Reward
		if !t.Terminal {
			q += m.cfg.Gamma * floats.Max(next[j])
			j++
		}
		targets[i*outputs+t.Action] = q
		mask[i*outputs+t.Action] = 1
	}

	x, err := m.inputMatrix(pre)
	if err != nil {
		return 0, err
	}
	n, err := m.build(x)
	if err != nil {
		return 0, err
	}
	shape := tensor.WithShape(len(batch), outputs)
	target := matrixNode(n.g, "target", tensor.New(shape, tensor.WithBacking(targets)))
	keep := matrixNode(n.g, "mask", tensor.New(shape, tensor.WithBacking(mask)))

	diff, err := gorgonia.Sub(n.out, target)
	if err != nil {
		return 0, errors.Wrap(err, "loss")
	}
	if diff, err = gorgonia.HadamardProd(diff, keep); err != nil {
		return 0, errors.Wrap(err, "loss mask")
	}
	sq, err := gorgonia.Square(diff)
	if err != nil {
		return 0, errors.Wrap(err, "loss")
	}
	loss, err := gorgonia.Mean(sq)
	if err != nil {
		return 0, errors.Wrap(err, "loss")
	}

	learnables := n.learnables()
	if _, err := gorgonia.Grad(loss, learnables...); err != nil {
		return 0, errors.Wrap(err, "gradients")
	}
	var lossVal gorgonia.Value
	gorgonia.Read(loss, &lossVal)

	vm := gorgonia.NewTapeMachine(n.g, gorgonia.BindDualValues(learnables...))
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		return 0, errors.Wrap(err, "backprop")
	}
	if err := m.solver.Step(gorgonia.NodesToValueGrads(learnables)); err != nil {
		return 0, errors.Wrap(err, "adam step")
	}

	updated := make([]*tensor.Dense, 0, len(learnables))
	for _, node := range learnables {
		d, ok := node.Value().(*tensor.Dense)
		if !ok {
			return 0, errors.Errorf("qlearning: %s is not a dense tensor", node.Name())
		}
		updated = append(updated, d)
	}
	m.params = Params{W1: updated[0], B1: updated[1], W2: updated[2], B2: updated[3]}

	return scalar(lossVal), nil
}

func scalar(v gorgonia.Value) float64 {
	if v == nil {
		return 0
	}
	switch d := v.Data().(type) {
	case float64:
		return d
	case []float64:
		if len(d) > 0 {
			return d[0]
		}
	}
	return 0
}
