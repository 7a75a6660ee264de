package monitoring

import (
	"sync"
	"time"
)

// A ProgressBar is a tracker of the progress of a run.
type ProgressBar struct {
	sync.Mutex
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Total     uint64    `json:"total"`
	Finished  uint64    `json:"finished"`
}

// SetFinished moves the bar to an absolute position. Positions beyond the
// total are clamped.
func (b *ProgressBar) SetFinished(finished uint64) {
	b.Lock()
	defer b.Unlock()

	if finished > b.Total {
		finished = b.Total
	}

	b.Finished = finished
}

// IncrementFinished add a certain amount to finished element.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.Finished += amount
	if b.Finished > b.Total {
		b.Finished = b.Total
	}
}

// Fraction returns how much of the bar is filled, between 0 and 1.
func (b *ProgressBar) Fraction() float64 {
	b.Lock()
	defer b.Unlock()

	if b.Total == 0 {
		return 1
	}

	return float64(b.Finished) / float64(b.Total)
}
