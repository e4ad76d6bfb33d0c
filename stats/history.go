// Package stats records finished training episodes and derives the score
// summaries shown while training and written at the end of a run.
package stats

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"snake-agent/training"
)

// Record is one finished episode as it is persisted.
type Record struct {
	Episode    int     `json:"episode" parquet:"episode"`
	Score      int     `json:"score" parquet:"score"`
	Best       int     `json:"best" parquet:"best"`
	Frames     int     `json:"frames" parquet:"frames"`
	Reward     float64 `json:"reward" parquet:"reward"`
	Epsilon    float64 `json:"epsilon" parquet:"epsilon"`
	Loss       float64 `json:"loss" parquet:"loss"`
	MeanScore  float64 `json:"meanScore" parquet:"mean_score"`
	DurationMS int64   `json:"durationMs" parquet:"duration_ms"`
	Saved      bool    `json:"saved" parquet:"saved"`
	BoardFull  bool    `json:"boardFull" parquet:"board_full"`
}

// Summary aggregates every record of a run.
type Summary struct {
	RunID       string    `json:"runId"`
	Started     time.Time `json:"started"`
	Updated     time.Time `json:"updated"`
	Episodes    int       `json:"episodes"`
	Best        int       `json:"best"`
	MeanScore   float64   `json:"meanScore"`
	StdDevScore float64   `json:"stdDevScore"`
	MedianScore float64   `json:"medianScore"`
	RecentMean  float64   `json:"recentMean"`
	MeanFrames  float64   `json:"meanFrames"`
	TotalTime   float64   `json:"totalTimeSeconds"`
}

// RecentWindow is the number of latest episodes averaged into RecentMean.
const RecentWindow = 100

// History is safe for concurrent use: the training loop adds records while
// a dashboard or frontend reads summaries.
type History struct {
	mu      sync.RWMutex
	runID   uuid.UUID
	started time.Time
	updated time.Time
	records []Record
	total   int
	best    int
}

// NewHistory starts an empty history for a run. A nil id gets a fresh one.
func NewHistory(runID uuid.UUID) *History {
	if runID == uuid.Nil {
		runID = uuid.New()
	}
	now := time.Now()
	return &History{runID: runID, started: now, updated: now}
}

func (h *History) RunID() uuid.UUID {
	return h.runID
}

// Observe converts a training episode into a record. It has the signature
// expected by training.Loop.OnEpisode.
func (h *History) Observe(ep training.Episode) {
	h.Add(Record{
		Episode:    ep.Number,
		Score:      ep.Score,
		Best:       ep.Record,
		Frames:     ep.Frames,
		Reward:     ep.Reward,
		Epsilon:    ep.Epsilon,
		Loss:       ep.Loss,
		DurationMS: ep.Duration.Milliseconds(),
		Saved:      ep.Saved,
		BoardFull:  ep.BoardFull,
	})
}

// Add appends r, filling in the running mean score. The stored record is
// returned.
func (h *History) Add(r Record) Record {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.total += r.Score
	if r.Score > h.best {
		h.best = r.Score
	}
	r.MeanScore = float64(h.total) / float64(len(h.records)+1)
	h.records = append(h.records, r)
	h.updated = time.Now()
	return r
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}

// Records returns a copy of every record in insertion order.
func (h *History) Records() []Record {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Record, len(h.records))
	copy(out, h.records)
	return out
}

// Scores returns the per-episode scores and the running mean after each
// episode, the two series plotted while training.
func (h *History) Scores() (scores, means []float64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	scores = make([]float64, len(h.records))
	means = make([]float64, len(h.records))
	for i, r := range h.records {
		scores[i] = float64(r.Score)
		means[i] = r.MeanScore
	}
	return scores, means
}

// Summary computes the aggregate statistics over every record so far. All
// fields come from the same set of records.
func (h *History) Summary() Summary {
	h.mu.RLock()
	defer h.mu.RUnlock()

	s := Summary{
		RunID:    h.runID.String(),
		Started:  h.started,
		Updated:  h.updated,
		Episodes: len(h.records),
		Best:     h.best,
	}
	if len(h.records) == 0 {
		return s
	}

	scores := make([]float64, len(h.records))
	frames := make([]float64, len(h.records))
	var total time.Duration
	for i, r := range h.records {
		scores[i] = float64(r.Score)
		frames[i] = float64(r.Frames)
		total += time.Duration(r.DurationMS) * time.Millisecond
	}
	s.MeanFrames = stat.Mean(frames, nil)
	s.TotalTime = total.Seconds()

	if len(scores) > 1 {
		s.MeanScore, s.StdDevScore = stat.MeanStdDev(scores, nil)
	} else {
		s.MeanScore = scores[0]
	}

	recent := scores
	if len(recent) > RecentWindow {
		recent = recent[len(recent)-RecentWindow:]
	}
	s.RecentMean = stat.Mean(recent, nil)

	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)
	s.MedianScore = median(sorted)
	return s
}

// median expects sorted input and averages the two middle values of an
// even-length series.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return stat.Mean(sorted[n/2-1:n/2+1], nil)
}
