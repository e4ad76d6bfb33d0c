package play

import "time"

// maxCatchUp bounds the frames run in one loop iteration when rendering is
// slower than the game speed.
const maxCatchUp = 64

// pacer converts wall time into a number of due frames.
type pacer struct {
	now  func() time.Time
	last time.Time
}

func newPacer(now func() time.Time) *pacer {
	if now == nil {
		now = time.Now
	}
	return &pacer{now: now}
}

// due returns how many frames of length interval have elapsed since the last
// call that returned a positive count. The first call is always due.
func (p *pacer) due(interval time.Duration) int {
	t := p.now()
	if p.last.IsZero() {
		p.last = t
		return 1
	}
	n := int(t.Sub(p.last) / interval)
	if n <= 0 {
		return 0
	}
	if n > maxCatchUp {
		p.last = t
		return maxCatchUp
	}
	p.last = p.last.Add(time.Duration(n) * interval)
	return n
}

// hold restarts pacing so that time spent paused is not caught up.
func (p *pacer) hold() {
	p.last = p.now()
}

func interval(speed int) time.Duration {
	return time.Second / time.Duration(clampSpeed(speed))
}
