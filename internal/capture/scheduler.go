package capture

import (
	"sync"
	"time"

	"github.com/iyunix/go-jex/internal/metrics"
)

// Scheduler registers deferred callbacks the way time.AfterFunc and
// time.Ticker do, routing every callback through the guard. Delays and
// returned handles are passed through unchanged.
type Scheduler struct {
	guard *Guard
}

func NewScheduler(g *Guard) *Scheduler {
	return &Scheduler{guard: g}
}

// AfterFunc runs fn once after d. The returned timer is the one
// time.AfterFunc produced.
func (s *Scheduler) AfterFunc(d time.Duration, fn func()) *time.Timer {
	return time.AfterFunc(d, s.guard.wrap(metrics.SourceTimer, fn))
}

// MinInterval is the period used when Every or Reset is given a
// non-positive duration.
const MinInterval = time.Millisecond

func period(d time.Duration) time.Duration {
	if d <= 0 {
		return MinInterval
	}
	return d
}

// Interval is a repeating callback registration.
type Interval struct {
	ticker *time.Ticker
	stop   chan struct{}
	once   sync.Once
}

// Every runs fn every d until the interval is stopped. A panic in one run is
// reported and does not cancel the following runs. A non-positive d runs fn
// every MinInterval.
func (s *Scheduler) Every(d time.Duration, fn func()) *Interval {
	iv := &Interval{
		ticker: time.NewTicker(period(d)),
		stop:   make(chan struct{}),
	}
	tick := s.guard.wrap(metrics.SourceInterval, fn)
	go func() {
		for {
			select {
			case <-iv.ticker.C:
				tick()
			case <-iv.stop:
				return
			}
		}
	}()
	return iv
}

// Stop cancels future runs. A run already in progress finishes. Stop is
// idempotent.
func (iv *Interval) Stop() {
	iv.once.Do(func() {
		iv.ticker.Stop()
		close(iv.stop)
	})
}

// Reset changes the period of the interval.
func (iv *Interval) Reset(d time.Duration) {
	iv.ticker.Reset(period(d))
}
