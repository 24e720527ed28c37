package runner

import "time"

// budget is the time left until the run deadline. Remaining is read afresh
// before every blocking call, so each stage only gets what earlier stages left.
type budget struct {
	deadline time.Time
	now      func() time.Time
}

func newBudget(deadline time.Time, now func() time.Time) *budget {
	return &budget{deadline: deadline, now: now}
}

// Remaining returns the time left, never negative.
func (b *budget) Remaining() time.Duration {
	left := b.deadline.Sub(b.now())
	if left < 0 {
		return 0
	}
	return left
}

// Expired reports whether the deadline has passed.
func (b *budget) Expired() bool {
	return b.Remaining() == 0
}
