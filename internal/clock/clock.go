// Package clock provides frame clocks: a way to ask for a callback before the
// next display refresh, cancel that request and read a monotonic timestamp.
package clock

import (
	"sync"
	"time"
)

// DefaultInterval is one refresh of a 60 Hz display.
const DefaultInterval = time.Second / 60

// ID identifies a pending callback request.
type ID uint64

// Callback receives the timestamp of the refresh it runs for.
type Callback func(now time.Duration)

// FrameClock schedules one-shot callbacks on display refreshes. A callback
// that wants to keep running requests itself again.
type FrameClock interface {
	Request(cb Callback) ID
	Cancel(id ID)
	Now() time.Duration
}

type request struct {
	id ID
	cb Callback
}

// queue holds pending requests in registration order.
type queue struct {
	mu    sync.Mutex
	next  ID
	items []request
}

func (q *queue) add(cb Callback) ID {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.next++
	q.items = append(q.items, request{id: q.next, cb: cb})
	return q.next
}

func (q *queue) remove(id ID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, item := range q.items {
		if item.id == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return
		}
	}
}

func (q *queue) take(id ID) Callback {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, item := range q.items {
		if item.id == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return item.cb
		}
	}
	return nil
}

func (q *queue) ids() []ID {
	q.mu.Lock()
	defer q.mu.Unlock()
	ids := make([]ID, len(q.items))
	for i, item := range q.items {
		ids[i] = item.id
	}
	return ids
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// fire runs the requests that were pending when the refresh started. Requests
// added by those callbacks wait for the next refresh; requests cancelled by an
// earlier callback in the same refresh do not run.
func (q *queue) fire(now time.Duration) int {
	fired := 0
	for _, id := range q.ids() {
		cb := q.take(id)
		if cb == nil {
			continue
		}
		cb(now)
		fired++
	}
	return fired
}
