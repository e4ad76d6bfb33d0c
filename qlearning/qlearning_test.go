package qlearning

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"golang.org/x/exp/rand"

	"snake-agent/game"
)

func smallConfig(seed uint64) Config {
	return Config{
		Inputs:       FeatureSize,
		Hidden:       16,
		Outputs:      4,
		LearningRate: 0.01,
		Gamma:        0.9,
		Seed:         seed,
	}
}

func TestEncodeLayout(t *testing.T) {
	s := game.State{
		Size:     5,
		Body:     []game.Point{{X: 3, Y: 3}, {X: 3, Y: 4}, {X: 3, Y: 5}},
		Food:     game.Point{X: 1, Y: 3},
		Velocity: game.Up,
		Alive:    true,
	}
	want := []float64{
		0, 0, 0, 1, // only DOWN runs into the neck
		0, 0, 1, 0, // moving UP
		1, 0, 0, 0, // food is closer to the left; up and down tie
	}
	if got := Encode(s); !reflect.DeepEqual(got, want) {
		t.Fatalf("got  %v\nwant %v", got, want)
	}
}

func TestEncodeTailIsFree(t *testing.T) {
	s := game.State{
		Size:     5,
		Body:     []game.Point{{X: 3, Y: 3}, {X: 3, Y: 4}},
		Food:     game.Point{X: 1, Y: 1},
		Velocity: game.Up,
		Alive:    true,
	}
	if f := Encode(s); f[game.Down] != 0 {
		t.Fatalf("moving onto the leaving tail flagged as a collision: %v", f)
	}
}

func TestReplayBufferEvictsOldest(t *testing.T) {
	b := NewReplayBuffer(3, rand.New(rand.NewSource(1)))
	for i := 1; i <= 4; i++ {
		b.Append(Transition{Action: i})
	}
	if b.Len() != 3 {
		t.Fatalf("expected 3 items, got %d", b.Len())
	}
	var got []int
	for _, tr := range b.Items() {
		got = append(got, tr.Action)
	}
	if !reflect.DeepEqual(got, []int{2, 3, 4}) {
		t.Fatalf("expected [2 3 4], got %v", got)
	}
}

func TestReplayBufferSample(t *testing.T) {
	b := NewReplayBuffer(100, rand.New(rand.NewSource(5)))
	for i := 0; i < 50; i++ {
		b.Append(Transition{Action: i})
	}
	sample := b.Sample(20)
	if len(sample) != 20 {
		t.Fatalf("expected 20 transitions, got %d", len(sample))
	}
	seen := make(map[int]bool)
	for _, tr := range sample {
		if seen[tr.Action] {
			t.Fatalf("transition %d drawn twice", tr.Action)
		}
		seen[tr.Action] = true
	}
	if all := b.Sample(1000); len(all) != 50 {
		t.Fatalf("oversized sample should return the whole buffer, got %d", len(all))
	}
	if none := b.Sample(0); len(none) != 0 {
		t.Fatalf("expected no transitions, got %d", len(none))
	}
}

func TestPredictShapeAndSeed(t *testing.T) {
	a := NewModel(smallConfig(3))
	b := NewModel(smallConfig(3))
	x := make([]float64, FeatureSize)
	x[0], x[6], x[8] = 1, 1, 1

	qa, err := a.Predict(x)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(qa) != 4 {
		t.Fatalf("expected 4 values, got %d", len(qa))
	}
	qb, _ := b.Predict(x)
	if !reflect.DeepEqual(qa, qb) {
		t.Fatalf("same seed gave different outputs: %v vs %v", qa, qb)
	}

	if _, err := a.Predict(x[:5]); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestUpdateEmptyBatchIsNoop(t *testing.T) {
	m := NewModel(smallConfig(1))
	before := m.Params()
	loss, err := m.Update(nil)
	if err != nil || loss != 0 {
		t.Fatalf("unexpected result %v, %v", loss, err)
	}
	if !reflect.DeepEqual(denseData(before.W1), denseData(m.Params().W1)) {
		t.Fatal("empty batch changed the weights")
	}
}

func TestUpdateOnlyMovesTakenAction(t *testing.T) {
	m := NewModel(smallConfig(2))
	before := m.Params()
	tr := Transition{Pre: Encode(testState()), Action: int(game.Up), Reward: 10, Terminal: true}
	if _, err := m.Update([]Transition{tr}); err != nil {
		t.Fatalf("update: %v", err)
	}
	after := m.Params()

	w2b, w2a := denseData(before.W2), denseData(after.W2)
	b2b, b2a := denseData(before.B2), denseData(after.B2)
	for a := 0; a < 4; a++ {
		changed := b2a[a] != b2b[a]
		for i := 0; i < m.Config().Hidden; i++ {
			if w2a[i*4+a] != w2b[i*4+a] {
				changed = true
			}
		}
		if a == int(game.Up) && !changed {
			t.Fatal("taken action was not updated")
		}
		if a != int(game.Up) && changed {
			t.Fatalf("output weights for untaken action %d changed", a)
		}
	}
}

func TestUpdateAtTargetChangesNothing(t *testing.T) {
	m := NewModel(smallConfig(6))
	x := Encode(testState())
	q0, err := m.Predict(x)
	if err != nil {
		t.Fatal(err)
	}
	batch := []Transition{
		{Pre: x, Action: int(game.Left), Reward: q0[game.Left], Terminal: true},
		{Pre: x, Action: int(game.Down), Reward: q0[game.Down], Terminal: true},
	}
	if _, err := m.Update(batch); err != nil {
		t.Fatalf("update: %v", err)
	}
	q1, _ := m.Predict(x)
	for a := range q0 {
		if math.Abs(q1[a]-q0[a]) > 1e-6 {
			t.Fatalf("action %d moved from %v to %v", a, q0[a], q1[a])
		}
	}
}

func TestUpdateConverges(t *testing.T) {
	m := NewModel(smallConfig(4))
	x := Encode(testState())
	q0, _ := m.Predict(x)
	tr := Transition{Pre: x, Action: int(game.Right), Reward: 10, Terminal: true}

	first, err := m.Update([]Transition{tr})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	var last float64
	for i := 0; i < 400; i++ {
		if last, err = m.Update([]Transition{tr}); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}
	if last >= first {
		t.Fatalf("loss did not decrease: %v -> %v", first, last)
	}
	q1, _ := m.Predict(x)
	if math.Abs(q1[game.Right]-10) >= math.Abs(q0[game.Right]-10)/2 {
		t.Fatalf("value did not approach the target: %v -> %v", q0[game.Right], q1[game.Right])
	}
}

func TestUpdateRejectsBadAction(t *testing.T) {
	m := NewModel(smallConfig(1))
	tr := Transition{Pre: make([]float64, FeatureSize), Action: 7, Terminal: true}
	if _, err := m.Update([]Transition{tr}); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"file":   NewFileStore(t.TempDir()),
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			src := NewModel(smallConfig(10))
			if err := src.Save(store, DefaultCheckpoint, Meta{Record: 8}); err != nil {
				t.Fatalf("save: %v", err)
			}
			dst := NewModel(smallConfig(11))
			meta, err := dst.Load(store, DefaultCheckpoint)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if meta.Record != 8 {
				t.Fatalf("expected record 8, got %d", meta.Record)
			}
			x := Encode(testState())
			a, _ := src.Predict(x)
			b, _ := dst.Predict(x)
			if !reflect.DeepEqual(a, b) {
				t.Fatalf("restored model differs: %v vs %v", a, b)
			}
		})
	}
}

func TestCheckpointErrors(t *testing.T) {
	store := NewFileStore(t.TempDir())
	m := NewModel(smallConfig(1))
	before := denseData(m.Params().W1)

	if _, err := m.Load(store, "missing.gob"); !errors.Is(err, ErrCheckpointNotFound) {
		t.Fatalf("expected ErrCheckpointNotFound, got %v", err)
	}

	if err := store.Put("bad.gob", []byte("not a checkpoint")); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Load(store, "bad.gob"); !errors.Is(err, ErrCheckpointCorrupt) {
		t.Fatalf("expected ErrCheckpointCorrupt, got %v", err)
	}

	wide := smallConfig(1)
	wide.Hidden = 32
	if err := NewModel(wide).Save(store, "wide.gob", Meta{}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Load(store, "wide.gob"); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}

	if !reflect.DeepEqual(before, denseData(m.Params().W1)) {
		t.Fatal("failed loads modified the model")
	}
}

func TestPolicyPicksBestAction(t *testing.T) {
	m := NewModel(smallConfig(1))
	p := m.Params()
	zero(p.W1)
	zero(p.B1)
	zero(p.W2)
	b2 := p.B2.Data().([]float64)
	copy(b2, []float64{1, 3, 3, 2})
	if err := m.SetParams(p); err != nil {
		t.Fatal(err)
	}
	if got := (Policy{Model: m}).Plan(testState()); got != game.Right {
		t.Fatalf("expected the first of the tied best actions (RIGHT), got %s", got)
	}
}

func zero(d interface{ Data() interface{} }) {
	data := d.Data().([]float64)
	for i := range data {
		data[i] = 0
	}
}

func testState() game.State {
	return game.State{
		Size:     8,
		Body:     []game.Point{{X: 4, Y: 4}, {X: 4, Y: 5}, {X: 4, Y: 6}},
		Food:     game.Point{X: 6, Y: 2},
		Velocity: game.Up,
		Alive:    true,
	}
}
