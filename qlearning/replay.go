package qlearning

import "golang.org/x/exp/rand"

// DefaultReplayCapacity is the number of transitions kept for replay.
const DefaultReplayCapacity = 100_000

// Transition is one recorded step of experience. It is never modified once
// appended to a buffer.
type Transition struct {
	Pre      []float64
	Action   int
	Reward   float64
	Post     []float64
	Terminal bool
}

// ReplayBuffer is a bounded FIFO of transitions.
type ReplayBuffer struct {
	items    []Transition
	capacity int
	oldest   int
	rng      *rand.Rand
}

// NewReplayBuffer creates a buffer holding at most capacity transitions.
func NewReplayBuffer(capacity int, rng *rand.Rand) *ReplayBuffer {
	if capacity <= 0 {
		capacity = DefaultReplayCapacity
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	initial := capacity
	if initial > 1024 {
		initial = 1024
	}
	return &ReplayBuffer{
		items:    make([]Transition, 0, initial),
		capacity: capacity,
		rng:      rng,
	}
}

// Append stores t, evicting the oldest transition when the buffer is full.
func (b *ReplayBuffer) Append(t Transition) {
	if len(b.items) < b.capacity {
		b.items = append(b.items, t)
		return
	}
	b.items[b.oldest] = t
	b.oldest = (b.oldest + 1) % b.capacity
}

func (b *ReplayBuffer) Len() int {
	return len(b.items)
}

func (b *ReplayBuffer) Capacity() int {
	return b.capacity
}

// Items returns the stored transitions, oldest first.
func (b *ReplayBuffer) Items() []Transition {
	out := make([]Transition, 0, len(b.items))
	out = append(out, b.items[b.oldest:]...)
	out = append(out, b.items[:b.oldest]...)
	return out
}

// Sample draws min(n, Len()) distinct transitions uniformly at random. When
// n covers the whole buffer every transition is returned.
func (b *ReplayBuffer) Sample(n int) []Transition {
	if n <= 0 {
		return nil
	}
	if n >= len(b.items) {
		return b.Items()
	}
	out := make([]Transition, 0, n)
	for _, i := range b.rng.Perm(len(b.items))[:n] {
		out = append(out, b.items[i])
	}
	return out
}
