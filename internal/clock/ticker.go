package clock

import (
	"sync"
	"time"
)

// Ticker is a real-time frame clock that refreshes at a fixed interval on a
// single goroutine. The goroutine starts with the first request.
type Ticker struct {
	q        queue
	interval time.Duration
	start    time.Time

	startOnce sync.Once
	closeOnce sync.Once
	stop      chan struct{}
}

func NewTicker(interval time.Duration) *Ticker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Ticker{
		interval: interval,
		start:    time.Now(),
		stop:     make(chan struct{}),
	}
}

func (t *Ticker) Request(cb Callback) ID {
	t.startOnce.Do(func() { go t.run() })
	return t.q.add(cb)
}

func (t *Ticker) Cancel(id ID) {
	t.q.remove(id)
}

func (t *Ticker) Now() time.Duration {
	return time.Since(t.start)
}

// Close stops refreshing. Pending callbacks never run.
func (t *Ticker) Close() {
	t.closeOnce.Do(func() { close(t.stop) })
}

func (t *Ticker) run() {
	tick := time.NewTicker(t.interval)
	defer tick.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-tick.C:
			t.q.fire(t.Now())
		}
	}
}
