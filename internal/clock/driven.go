package clock

import (
	"sync"
	"time"
)

// Driven is a frame clock advanced by an external refresh source, such as a
// Bubble Tea tick message or a simulation loop.
type Driven struct {
	q   queue
	mu  sync.Mutex
	now time.Duration
}

func NewDriven() *Driven {
	return &Driven{}
}

func (d *Driven) Request(cb Callback) ID {
	return d.q.add(cb)
}

func (d *Driven) Cancel(id ID) {
	d.q.remove(id)
}

func (d *Driven) Now() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.now
}

// Pending returns the number of callbacks waiting for the next refresh.
func (d *Driven) Pending() int {
	return d.q.len()
}

// Advance moves time forward by step and runs one refresh. It returns the
// number of callbacks that ran.
func (d *Driven) Advance(step time.Duration) int {
	if step < 0 {
		step = 0
	}
	d.mu.Lock()
	d.now += step
	now := d.now
	d.mu.Unlock()
	return d.q.fire(now)
}

// Set runs one refresh at the given timestamp. Time never moves backwards.
func (d *Driven) Set(now time.Duration) int {
	d.mu.Lock()
	if now > d.now {
		d.now = now
	}
	now = d.now
	d.mu.Unlock()
	return d.q.fire(now)
}
